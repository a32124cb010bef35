package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"quy/internal/core"
)

func NewBalancesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "balances",
		Aliases: []string{"bal"},
		Short:   "Show the balance of each fund",
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderBalances(cmd.OutOrStdout(), app)
		},
	}
}

func renderBalances(out io.Writer, app *App) error {
	b := core.ComputeBalances(app.Store.Transactions())
	threshold := app.LowBalanceThreshold
	if threshold == 0 {
		threshold = core.DefaultLowBalanceThreshold
	}

	tableData := pterm.TableData{{"Quỹ", "Thu", "Chi", "Số dư"}}
	for _, f := range core.Funds {
		fb := b[f]
		total := fb.Total.Display()
		if core.LowBalance(fb, threshold) {
			total = pterm.Red(total)
		}
		tableData = append(tableData, []string{f.Label(), fb.Income.Display(), fb.Expense.Display(), total})
	}
	tableData = append(tableData, []string{"Tổng", "", "", core.TotalBalance(b).Display()})
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(tableData).Render(); err != nil {
		return err
	}

	for _, f := range core.LowFunds(b, threshold) {
		pterm.Warning.WithWriter(out).Printfln("Quỹ %s dưới ngưỡng %s", f.Label(), threshold.Display())
	}
	return nil
}

type chartFlags struct {
	Days int
}

func NewChartCmd(app *App) *cobra.Command {
	flags := &chartFlags{}

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Show daily income and expense for the last days",
		RunE: func(cmd *cobra.Command, args []string) error {
			days := flags.Days
			if days == 0 {
				days = app.ChartWindowDays
			}
			if days <= 0 || days > 366 {
				return fmt.Errorf("days must be between 1 and 366")
			}
			series := core.ChartSeries(app.Store.Transactions(), app.today(), days)
			return renderChart(cmd.OutOrStdout(), series)
		},
	}
	cmd.Flags().IntVarP(&flags.Days, "days", "n", 0, "Number of days ending today (default CHART_WINDOW_DAYS)")
	return cmd
}

// barWidth is the length of the longest bar in the chart.
const barWidth = 40

func renderChart(out io.Writer, series []core.DayBucket) error {
	var peak core.Money
	for _, d := range series {
		peak = max(peak, d.Income, d.Expense)
	}

	tableData := pterm.TableData{{"Ngày", "Thu", "Chi", ""}}
	for _, d := range series {
		bars := pterm.Green(bar(d.Income, peak)) + pterm.Red(bar(d.Expense, peak))
		tableData = append(tableData, []string{d.Date, d.Income.Display(), d.Expense.Display(), bars})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(tableData).Render()
}

func bar(v, peak core.Money) string {
	if peak <= 0 || v <= 0 {
		return ""
	}
	n := int(float64(v) / float64(peak) * barWidth)
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

type insightFlags struct {
	Raw bool
}

func NewInsightCmd(app *App) *cobra.Command {
	flags := &insightFlags{}

	cmd := &cobra.Command{
		Use:   "insight",
		Short: "Ask the AI assistant to analyze the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if app.Insight == nil {
				return fmt.Errorf("insight is not configured")
			}

			txs := app.Store.Transactions()
			if len(txs) == 0 {
				pterm.Info.WithWriter(out).Println("Chưa có giao dịch để phân tích")
				return nil
			}
			pterm.Info.WithWriter(out).Println("Đang phân tích dữ liệu...")
			report, ran := app.Insight.Run(cmd.Context(), txs)
			if !ran {
				pterm.Info.WithWriter(out).Println("Chưa có giao dịch để phân tích")
				return nil
			}
			if report.Failed {
				pterm.Warning.WithWriter(out).Println(report.Text)
				return nil
			}
			return renderMarkdown(out, report.Text, flags.Raw)
		},
	}
	cmd.Flags().BoolVar(&flags.Raw, "raw", false, "Print the Markdown without rendering")
	return cmd
}

func renderMarkdown(out io.Writer, md string, raw bool) error {
	if raw {
		_, err := fmt.Fprintln(out, md)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	rendered, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}
