package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danitzn/sb-frontend/internal/render"
	"github.com/danitzn/sb-frontend/internal/tui"
)

// NewChatCmd creates the interactive chat command
func NewChatCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with the store assistant.

Enter sends, Ctrl+T tests the connection, Ctrl+L clears the conversation,
Ctrl+Y copies the last reply. Type /quit or press Esc to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := deps.settings()
			logger, closeLog := deps.tuiLogger(cfg)
			defer closeLog()

			ctrl, err := deps.chatController(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			tui.UpdateTheme(cfg.TUITheme)
			return deps.TUI.RunChat(cmd.Context(), ctrl, render.OptionsFromConfig(cfg))
		},
	}
}
