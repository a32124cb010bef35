// Package commands implements the quyctl command tree.
package commands

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"quy/internal/core"
	"quy/internal/insight"
	"quy/internal/ledger"
	"quy/internal/services"
)

// surveyOpts contains custom options for all survey prompts
var surveyOpts = []survey.AskOpt{
	survey.WithIcons(func(icons *survey.IconSet) {
		icons.Question.Text = "-"
	}),
}

// App holds what the commands operate on.
type App struct {
	Store   *ledger.Store
	Sync    *services.SyncService
	Insight *insight.Service

	LowBalanceThreshold core.Money
	ChartWindowDays     int
	Location            *time.Location

	// Confirm asks a yes/no question. It defaults to a survey prompt.
	Confirm func(message string) (bool, error)
	// Now defaults to time.Now.
	Now func() time.Time
}

func (a *App) today() time.Time {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	loc := a.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

func (a *App) confirm(message string) (bool, error) {
	if a.Confirm != nil {
		return a.Confirm(message)
	}
	var ok bool
	prompt := &survey.Confirm{Message: message, Default: false}
	if err := survey.AskOne(prompt, &ok, surveyOpts...); err != nil {
		return false, err
	}
	return ok, nil
}

// waitForSync blocks until pushes triggered by this invocation finish, so
// the process does not exit mid-request.
func (a *App) waitForSync() {
	if a.Sync != nil {
		a.Sync.Wait()
	}
}

// NewRootCmd builds the quyctl command tree around app.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "quyctl",
		Short:         "quyctl manages the three-fund ledger from the terminal",
		Long:          `quyctl records, lists and summarizes the union, party and office funds.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(NewListCmd(app))
	rootCmd.AddCommand(NewAddCmd(app))
	rootCmd.AddCommand(NewDeleteCmd(app))
	rootCmd.AddCommand(NewBalancesCmd(app))
	rootCmd.AddCommand(NewChartCmd(app))
	rootCmd.AddCommand(NewExportCmd(app))
	rootCmd.AddCommand(NewColorsCmd(app))
	rootCmd.AddCommand(NewEndpointCmd(app))
	rootCmd.AddCommand(NewSyncCmd(app))
	rootCmd.AddCommand(NewInsightCmd(app))

	return rootCmd
}

// Execute runs the command tree and reports errors with pterm.
func Execute(ctx context.Context, app *App, args []string) int {
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " LỖI ",
		Style: pterm.NewStyle(pterm.BgLightRed, pterm.FgBlack),
	}

	rootCmd := NewRootCmd(app)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		pterm.Error.WithWriter(os.Stderr).Println(err.Error())
		return 1
	}
	return 0
}

func printSeparator(w io.Writer) {
	pterm.Fprintln(w, pterm.Green("---------------------------------------------------------"))
}
