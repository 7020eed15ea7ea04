package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/danitzn/sb-frontend/internal/chat"
	"github.com/danitzn/sb-frontend/internal/config"
	"github.com/danitzn/sb-frontend/internal/diagnostics"
	"github.com/danitzn/sb-frontend/internal/logging"
	"github.com/danitzn/sb-frontend/internal/probe"
	"github.com/danitzn/sb-frontend/internal/render"
	"github.com/danitzn/sb-frontend/internal/tui"
)

// Prober is the outbound HTTP capability shared by both controllers
type Prober interface {
	Do(ctx context.Context, r probe.Request) (*probe.Response, error)
}

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(ctx context.Context, ctrl tui.ChatController, opts render.Options) error
	RunDiagnostics(ctx context.Context, ctrl tui.DiagnosticsController) error
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (DefaultTUI) RunChat(ctx context.Context, ctrl tui.ChatController, opts render.Options) error {
	return tui.RunChat(ctx, ctrl, opts)
}

func (DefaultTUI) RunDiagnostics(ctx context.Context, ctrl tui.DiagnosticsController) error {
	return tui.RunDiagnostics(ctx, ctrl)
}

// GlobalFlags are the persistent flags shared by every command
type GlobalFlags struct {
	BaseURL string
	Path    string
	Verbose bool
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// Prober overrides the TLS client; nil builds one on first use.
	Prober Prober

	TUI        TUIInterface
	LoadConfig func() (config.Config, error)
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer

	// IsTTY reports whether stdout is a terminal
	IsTTY func() bool

	Flags GlobalFlags
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		TUI:        DefaultTUI{},
		LoadConfig: config.LoadConfig,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		IsTTY:      isStdoutTTY,
	}
}

// settings loads the config file and applies flag overrides. A broken
// config file is reported and the defaults are used.
func (d *Dependencies) settings() config.Config {
	cfg, err := d.LoadConfig()
	if err != nil {
		d.logger(cfg).Warn("using default configuration", "error", err)
		cfg = config.DefaultConfig()
	}

	if d.Flags.BaseURL != "" {
		cfg.BaseURL = d.Flags.BaseURL
	}
	if d.Flags.Path != "" {
		cfg.ChatPath = d.Flags.Path
	}
	if d.Flags.Verbose {
		cfg.Verbose = true
	}
	return cfg
}

func (d *Dependencies) logger(cfg config.Config) *slog.Logger {
	return logging.New(d.Stderr, cfg.Verbose || d.Flags.Verbose)
}

// tuiLogger sends logs to a file in the config directory when verbose,
// since stderr belongs to the TUI.
func (d *Dependencies) tuiLogger(cfg config.Config) (*slog.Logger, func()) {
	if !cfg.Verbose {
		return logging.Discard(), func() {}
	}
	dir, err := config.EnsureConfigDir()
	if err != nil {
		return logging.Discard(), func() {}
	}
	logger, closer, err := logging.OpenFile(filepath.Join(dir, "sbchat.log"), true)
	if err != nil {
		return logging.Discard(), func() {}
	}
	return logger, func() { _ = closer.Close() }
}

func (d *Dependencies) prober(logger *slog.Logger) (Prober, error) {
	if d.Prober != nil {
		return d.Prober, nil
	}
	return probe.New(probe.WithLogger(logger))
}

func (d *Dependencies) chatController(cfg config.Config, logger *slog.Logger) (*chat.Controller, error) {
	p, err := d.prober(logger)
	if err != nil {
		return nil, err
	}
	return chat.New(p,
		chat.WithBaseURL(cfg.BaseURL),
		chat.WithPath(cfg.ChatPath),
		chat.WithChatTimeout(cfg.ChatTimeout()),
		chat.WithConnectionTimeout(cfg.ConnectionTimeout()),
		chat.WithLogger(logger),
	), nil
}

func (d *Dependencies) diagnosticsController(cfg config.Config, target string, logger *slog.Logger) (*diagnostics.Controller, error) {
	p, err := d.prober(logger)
	if err != nil {
		return nil, err
	}
	if target == "" {
		target = cfg.DiagnosticURL
	}
	return diagnostics.New(p,
		diagnostics.WithTarget(target),
		diagnostics.WithProbeTimeout(cfg.ProbeTimeout()),
		diagnostics.WithLogger(logger),
	), nil
}
