package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"quy/internal/core"
	"quy/internal/services"
)

type filterFlags struct {
	Search string
	Fund   string
	Start  string
	End    string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Search, "query", "q", "", "Search description and person (case-insensitive)")
	cmd.Flags().StringVarP(&f.Fund, "fund", "f", "ALL", "Fund: CONG_DOAN, DANG_PHI, VAN_PHONG or ALL")
	cmd.Flags().StringVar(&f.Start, "start", "", "First date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.End, "end", "", "Last date to include (YYYY-MM-DD)")
}

func (f *filterFlags) criteria() (core.Criteria, error) {
	fund, err := core.ParseFund(f.Fund)
	if err != nil {
		return core.Criteria{}, fmt.Errorf("invalid fund %q: %w", f.Fund, err)
	}
	for _, d := range []string{f.Start, f.End} {
		if d == "" {
			continue
		}
		if err := core.ValidateDate(d); err != nil {
			return core.Criteria{}, fmt.Errorf("invalid date %q: %w", d, err)
		}
	}
	return core.Criteria{Search: f.Search, Fund: fund, StartDate: f.Start, EndDate: f.End}, nil
}

type listFlags struct {
	filterFlags
	Limit   int
	Grouped bool
}

type listRunner struct {
	app   *App
	flags *listFlags
	out   io.Writer
}

func NewListCmd(app *App) *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List transactions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return (&listRunner{app: app, flags: flags, out: cmd.OutOrStdout()}).Run()
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&flags.Limit, "limit", "l", 0, "Maximum number of transactions to display (0 = all)")
	cmd.Flags().BoolVarP(&flags.Grouped, "grouped", "g", false, "Group transactions by date")
	return cmd
}

func (r *listRunner) Run() error {
	c, err := r.flags.criteria()
	if err != nil {
		return err
	}
	txs := core.Filter(r.app.Store.Transactions(), c)
	if len(txs) == 0 {
		pterm.Warning.WithWriter(r.out).Println("Không có giao dịch nào")
		return nil
	}
	if r.flags.Limit > 0 {
		txs = core.Recent(txs, r.flags.Limit)
	}

	if !r.flags.Grouped {
		return renderTransactions(r.out, txs)
	}
	for _, g := range core.GroupByDate(txs) {
		pterm.Fprintln(r.out, pterm.DefaultSection.Sprint(g.Date))
		if err := renderTransactions(r.out, g.Transactions); err != nil {
			return err
		}
	}
	return nil
}

func renderTransactions(w io.Writer, txs []core.Transaction) error {
	tableData := pterm.TableData{
		{"ID", "Ngày", "Quỹ", "Loại", "Nội dung", "Đối tượng", "Số tiền"},
	}
	for _, tx := range txs {
		amount := tx.Amount.Display()
		kind := tx.Kind.Label()
		switch tx.Kind {
		case core.Income:
			amount, kind = pterm.Green("+"+amount), pterm.Green(kind)
		case core.Expense:
			amount, kind = pterm.Red("-"+amount), pterm.Red(kind)
		}
		tableData = append(tableData, []string{
			tx.ID, tx.Date, tx.Fund.Label(), kind, tx.Description, tx.Person, amount,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(tableData).Render()
}

type addFlags struct {
	Fund        string
	Kind        string
	Amount      string
	Description string
	Date        string
	Person      string
}

func NewAddCmd(app *App) *cobra.Command {
	flags := &addFlags{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Long: `Record an income (THU) or expense (CHI) against one fund.

The amount is a whole number of đồng. The date defaults to today.`,
		Example: `  quyctl add --fund CONG_DOAN --type THU --amount 500000 --desc "Thu đoàn phí" --person Lan`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, app, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.Fund, "fund", "f", "", "Fund: CONG_DOAN, DANG_PHI or VAN_PHONG")
	cmd.Flags().StringVarP(&flags.Kind, "type", "t", "", "THU (income) or CHI (expense)")
	cmd.Flags().StringVarP(&flags.Amount, "amount", "a", "", "Amount in đồng")
	cmd.Flags().StringVarP(&flags.Description, "desc", "d", "", "Description")
	cmd.Flags().StringVar(&flags.Date, "date", "", "Date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVarP(&flags.Person, "person", "p", "", "Counterparty")
	_ = cmd.MarkFlagRequired("fund")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("desc")
	return cmd
}

func runAdd(cmd *cobra.Command, app *App, flags *addFlags) error {
	fund, err := core.ParseFund(flags.Fund)
	if err == nil && fund == core.AllFunds {
		err = core.ErrUnknownFund
	}
	if err != nil {
		return fmt.Errorf("invalid fund %q: %w", flags.Fund, err)
	}
	kind, err := core.ParseKind(flags.Kind)
	if err != nil {
		return fmt.Errorf("invalid type %q: %w", flags.Kind, err)
	}
	amount, err := core.ParseMoney(flags.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", flags.Amount, err)
	}
	date := flags.Date
	if date == "" {
		date = app.today().Format(core.DateLayout)
	}

	tx, err := app.Store.Insert(cmd.Context(), core.Draft{
		Fund:        fund,
		Kind:        kind,
		Amount:      amount,
		Description: flags.Description,
		Date:        date,
		Person:      flags.Person,
	})
	if err != nil {
		return err
	}
	app.waitForSync()

	out := cmd.OutOrStdout()
	pterm.Success.WithWriter(out).Printfln("Đã ghi %s %s vào quỹ %s (id %s)", tx.Kind.Label(), tx.Amount.Display(), tx.Fund.Label(), tx.ID)
	reportSync(out, app)
	return nil
}

type deleteFlags struct {
	Yes bool
}

func NewDeleteCmd(app *App) *cobra.Command {
	flags := &deleteFlags{}

	cmd := &cobra.Command{
		Use:   "delete <transaction-id>",
		Short: "Delete a transaction",
		Long:  `Delete a transaction. This action cannot be undone.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, app, flags, args[0])
		},
	}
	cmd.Flags().BoolVarP(&flags.Yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func runDelete(cmd *cobra.Command, app *App, flags *deleteFlags, id string) error {
	out := cmd.OutOrStdout()

	tx, found := core.Find(app.Store.Transactions(), id)
	if !found {
		pterm.Info.WithWriter(out).Printfln("Không tìm thấy giao dịch %s", id)
		return nil
	}

	pterm.Warning.WithWriter(out).Printfln("Sắp xoá giao dịch %s:", tx.ID)
	deletionInfo := pterm.TableData{
		{"Ngày", tx.Date},
		{"Quỹ", tx.Fund.Label()},
		{"Loại", tx.Kind.Label()},
		{"Nội dung", tx.Description},
		{"Số tiền", tx.Amount.Display()},
	}
	if err := pterm.DefaultTable.WithWriter(out).WithData(deletionInfo).Render(); err != nil {
		return err
	}

	if !flags.Yes {
		ok, err := app.confirm("Bạn có chắc chắn muốn xóa giao dịch này?")
		if err != nil {
			return err
		}
		if !ok {
			pterm.Info.WithWriter(out).Println("Đã huỷ")
			return nil
		}
	}

	if _, err := app.Store.Delete(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	app.waitForSync()

	pterm.Success.WithWriter(out).Printfln("Đã xoá giao dịch %s", id)
	reportSync(out, app)
	printSeparator(out)
	return nil
}

type exportFlags struct {
	filterFlags
	Output string
}

func NewExportCmd(app *App) *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.criteria()
			if err != nil {
				return err
			}
			txs := core.Filter(app.Store.Transactions(), c)
			if flags.Output == "" || flags.Output == "-" {
				return core.WriteCSV(cmd.OutOrStdout(), txs)
			}
			return writeCSVFile(flags.Output, txs, cmd.OutOrStdout())
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func writeCSVFile(path string, txs []core.Transaction, out io.Writer) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := core.WriteCSV(f, txs); err != nil {
		return err
	}
	pterm.Success.WithWriter(out).Printfln("Đã xuất %d giao dịch ra %s", len(txs), path)
	return nil
}

// reportSync prints the outcome of pushes made by this invocation.
func reportSync(out io.Writer, app *App) {
	if app.Sync == nil || app.Store.SyncEndpoint() == "" {
		return
	}
	st := app.Sync.State()
	switch st.Status {
	case services.SyncError:
		pterm.Warning.WithWriter(out).Printfln("Đồng bộ Google Sheet thất bại: %s", st.Error)
	case services.SyncSuccess:
		pterm.Info.WithWriter(out).Println("Đã đồng bộ Google Sheet")
	}
}
