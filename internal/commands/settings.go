package commands

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"quy/internal/core"
	"quy/internal/services"
)

func NewColorsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "colors",
		Short: "Show or change fund colors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showColors(cmd, app)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "set <fund> <#hex>",
		Short:   "Change the display color of a fund",
		Example: "  quyctl colors set VAN_PHONG '#F59E0B'",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fund, err := core.ParseFund(args[0])
			if err == nil && fund == core.AllFunds {
				err = core.ErrUnknownFund
			}
			if err != nil {
				return fmt.Errorf("invalid fund %q: %w", args[0], err)
			}
			if err := app.Store.SetColor(cmd.Context(), fund, args[1]); err != nil {
				return err
			}
			return showColors(cmd, app)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the default palette",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Store.ResetColors(cmd.Context()); err != nil {
				return err
			}
			return showColors(cmd, app)
		},
	})

	return cmd
}

func showColors(cmd *cobra.Command, app *App) error {
	colors := app.Store.Colors()
	tableData := pterm.TableData{{"Quỹ", "Mã", "Màu"}}
	for _, f := range core.Funds {
		tableData = append(tableData, []string{f.Label(), string(f), colors[f]})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(tableData).Render()
}

func NewEndpointCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoint",
		Short: "Show or change the spreadsheet sync endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if ep := app.Store.SyncEndpoint(); ep != "" {
				pterm.Fprintln(out, ep)
			} else {
				pterm.Info.WithWriter(out).Println("Chưa cấu hình đồng bộ Google Sheet")
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <url>",
		Short: "Store the spreadsheet endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Store.SetSyncEndpoint(cmd.Context(), args[0]); err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Đã lưu: %s", app.Store.SyncEndpoint())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Disable spreadsheet sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Store.SetSyncEndpoint(cmd.Context(), ""); err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Println("Đã tắt đồng bộ Google Sheet")
			return nil
		},
	})

	return cmd
}

func NewSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push the whole ledger to the spreadsheet now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Sync == nil {
				return fmt.Errorf("sync is not configured")
			}
			err := app.Sync.SyncNow(cmd.Context(), app.Store.Snapshot())
			if errors.Is(err, services.ErrNoEndpoint) {
				return fmt.Errorf("chưa cấu hình đường dẫn Google Sheet (quyctl endpoint set <url>)")
			}
			if err != nil {
				return fmt.Errorf("đồng bộ thất bại: %w", err)
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Đã đồng bộ %d giao dịch", app.Store.Len())
			return nil
		},
	}
}
