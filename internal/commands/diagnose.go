package commands

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/danitzn/sb-frontend/internal/diagnostics"
	"github.com/danitzn/sb-frontend/internal/models"
	"github.com/danitzn/sb-frontend/internal/render"
	"github.com/danitzn/sb-frontend/internal/tui"
)

type diagnoseFlags struct {
	endpoint bool
	json     bool
	tui      bool
	details  bool
}

// NewDiagnoseCmd creates the CORS and reachability diagnostics command
func NewDiagnoseCmd(deps *Dependencies) *cobra.Command {
	var df diagnoseFlags

	cmd := &cobra.Command{
		Use:   "diagnose [url]",
		Short: "Diagnose why the chat API cannot be reached",
		Long: `Run a sequence of probes against the chat endpoint: a CORS preflight,
a plain POST, a CSRF check, a foreign-origin POST and an edge reachability
check. Each probe fails independently and the run always ends with a summary.

Exits non-zero when any probe ends in error.

Examples:
  sbchat diagnose
  sbchat diagnose https://example.com/api/chat/cloud/
  sbchat diagnose --endpoint https://example.com/api/chat/cloud/
  sbchat diagnose --json > report.json
  sbchat diagnose --tui`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target string
			if len(args) > 0 {
				target = args[0]
			}
			return runDiagnose(cmd, deps, target, df)
		},
	}

	cmd.Flags().BoolVar(&df.endpoint, "endpoint", false, "Only run the POST probe")
	cmd.Flags().BoolVar(&df.json, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&df.tui, "tui", false, "Open the interactive diagnostics view")
	cmd.Flags().BoolVarP(&df.details, "details", "d", false, "Show headers and bodies for each probe")
	cmd.MarkFlagsMutuallyExclusive("json", "tui")

	return cmd
}

func runDiagnose(cmd *cobra.Command, deps *Dependencies, target string, df diagnoseFlags) error {
	cfg := deps.settings()

	if df.tui {
		logger, closeLog := deps.tuiLogger(cfg)
		defer closeLog()

		ctrl, err := deps.diagnosticsController(cfg, target, logger)
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		tui.UpdateTheme(cfg.TUITheme)
		return deps.TUI.RunDiagnostics(cmd.Context(), ctrl)
	}

	logger := deps.logger(cfg)
	ctrl, err := deps.diagnosticsController(cfg, target, logger)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	palette, _ := render.PaletteByName(cfg.TUITheme)
	spin := deps.startProgress(!df.json, palette, "Probing "+ctrl.TargetURL())

	if df.endpoint {
		_, err = ctrl.TestSpecificEndpoint(cmd.Context(), target)
	} else {
		_, err = ctrl.RunFullDiagnostics(cmd.Context())
	}
	spin.stop()
	if err != nil {
		return err
	}

	report := ctrl.Report()
	if df.json {
		data, err := report.JSON()
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Fprintln(deps.Stdout, string(data))
	} else {
		printReport(deps, report, palette, df.details || cfg.Verbose)
	}

	if !report.Healthy() {
		return errReported
	}
	return nil
}

func printReport(deps *Dependencies, report diagnostics.Report, palette render.Palette, details bool) {
	title := lipgloss.NewStyle().Foreground(palette.Primary).Bold(true)
	dim := lipgloss.NewStyle().Foreground(palette.TextDim)

	fmt.Fprintln(deps.Stdout, title.Render("Diagnostics for "+report.Target))
	fmt.Fprintln(deps.Stdout, dim.Render("run "+report.RunID))
	fmt.Fprintln(deps.Stdout)
	fmt.Fprintln(deps.Stdout, render.Results(report.Results, palette, details))
	fmt.Fprintln(deps.Stdout)

	counts := report.Counts()
	fmt.Fprintln(deps.Stdout, dim.Render(fmt.Sprintf("%d ok, %d warnings, %d errors",
		counts[models.StatusSuccess], counts[models.StatusWarning], counts[models.StatusError])))
}
