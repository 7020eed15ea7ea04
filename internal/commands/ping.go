package commands

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/danitzn/sb-frontend/internal/render"
)

// NewPingCmd creates the connection test command
func NewPingCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the chat API answers",
		Long: `Send a fixed test message to the chat API with a short timeout.

Exits non-zero when the API cannot be reached or answers with an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := deps.settings()
			logger := deps.logger(cfg)
			palette, _ := render.PaletteByName(cfg.TUITheme)

			ctrl, err := deps.chatController(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			spin := deps.startProgress(true, palette, "Connecting to "+ctrl.Endpoint())
			reply, err := ctrl.TestConnection(cmd.Context())
			if err != nil {
				spin.fail()
				return err
			}
			if failure := ctrl.LastError(); failure != nil {
				spin.fail()
				printFailure(deps, palette, reply.Text, false)
				return failure
			}
			spin.success("Connected")

			fmt.Fprintln(deps.Stdout, lipgloss.NewStyle().Foreground(palette.Success).Render(reply.Text))
			return nil
		},
	}
}
