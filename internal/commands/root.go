// Package commands provides CLI commands for sbchat.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/danitzn/sb-frontend/internal/tui"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// queryFlags are the root command's local flags
type queryFlags struct {
	output string
	file   string
	raw    bool
}

// NewRootCmd builds the command tree around deps
func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps == nil {
		deps = NewDependencies()
	}
	var qf queryFlags

	cmd := &cobra.Command{
		Use:   "sbchat [message]",
		Short: "Terminal client for the store assistant chat API",
		Long: `sbchat talks to the store assistant chat API and diagnoses why a client
cannot reach it.

Examples:
  sbchat chat                           Start interactive chat
  sbchat "Do you have oat milk?"        Send a single message
  sbchat -f question.md                 Read the message from a file
  cat question.md | sbchat              Read the message from stdin
  sbchat "Opening hours?" -o reply.md   Save the reply to a file
  sbchat ping                           Check the connection
  sbchat diagnose                       Run the CORS diagnostics`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(deps.Stdout, "sbchat %s (built %s)\n", Version, BuildTime)
				return nil
			}

			if qf.file != "" {
				data, err := os.ReadFile(qf.file)
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
				return runQuery(cmd.Context(), deps, string(data), qf)
			}

			if len(args) > 0 {
				return runQuery(cmd.Context(), deps, args[0], qf)
			}

			if hasPipedInput(deps.Stdin) {
				data, err := io.ReadAll(deps.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				return runQuery(cmd.Context(), deps, string(data), qf)
			}

			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&deps.Flags.BaseURL, "base-url", "", "Chat API base URL")
	cmd.PersistentFlags().StringVar(&deps.Flags.Path, "path", "", "Chat endpoint path")
	cmd.PersistentFlags().BoolVar(&deps.Flags.Verbose, "verbose", false, "Enable debug logging")
	cmd.Flags().StringVarP(&qf.output, "output", "o", "", "Save reply to file")
	cmd.Flags().StringVarP(&qf.file, "file", "f", "", "Read message from file")
	cmd.Flags().BoolVar(&qf.raw, "raw", false, "Print only the reply text")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	cmd.SetIn(deps.Stdin)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	cmd.AddCommand(NewChatCmd(deps))
	cmd.AddCommand(NewPingCmd(deps))
	cmd.AddCommand(NewDiagnoseCmd(deps))
	cmd.AddCommand(NewConfigCmd(deps))

	return cmd
}

// hasPipedInput reports whether r is a pipe or file rather than a terminal
func hasPipedInput(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	deps := NewDependencies()
	if err := NewRootCmd(deps).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(deps.Stderr, tui.FormatError(err))
		}
		stop()
		os.Exit(1)
	}
}
