package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/danitzn/sb-frontend/internal/config"
	"github.com/danitzn/sb-frontend/internal/render"
)

// errReported signals a failure whose details were already printed
var errReported = errors.New("failure already reported")

// copyToClipboard is swapped out in tests
var copyToClipboard = clipboard.WriteAll

// Gradient colors for animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"),
	lipgloss.Color("#feca57"),
	lipgloss.Color("#48dbfb"),
	lipgloss.Color("#ff9ff3"),
	lipgloss.Color("#54a0ff"),
	lipgloss.Color("#5f27cd"),
	lipgloss.Color("#00d2d3"),
	lipgloss.Color("#1dd1a1"),
}

// spinner handles the animated loading indicator
type spinner struct {
	w       io.Writer
	palette render.Palette
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool
}

func newSpinner(w io.Writer, p render.Palette, message string) *spinner {
	return &spinner{
		w:       w,
		palette: p,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start begins the animation
func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// Hide cursor
		fmt.Fprint(s.w, "\033[?25l")

		for {
			select {
			case <-s.stop:
				fmt.Fprint(s.w, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

// render draws the current animation frame
func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

	spinColor := gradientColors[s.frame%len(gradientColors)]
	spinnerChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[s.frame%len(chars)])

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dotColor := gradientColors[(s.frame+i)%len(gradientColors)]
			dots.WriteString(lipgloss.NewStyle().Foreground(dotColor).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(s.palette.TextDim).Render("○"))
		}
	}

	msg := lipgloss.NewStyle().Foreground(s.palette.Text).Render(s.message)
	fmt.Fprintf(s.w, "\r\033[K%s %s %s", spinnerChar, msg, dots.String())
}

// stopOnce safely closes the stop channel only once
func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

func (s *spinner) stopWithSuccess(message string) {
	s.stopOnce()
	<-s.done

	style := lipgloss.NewStyle().Foreground(s.palette.Success)
	fmt.Fprintf(s.w, "%s %s\n", style.Bold(true).Render("✓"), style.Render(message))
}

func (s *spinner) stopWithError() {
	s.stopOnce()
	<-s.done
}

// progress wraps an optional spinner so callers need no nil checks
type progress struct {
	spin *spinner
}

func (d *Dependencies) startProgress(enabled bool, p render.Palette, message string) progress {
	if !enabled || !d.IsTTY() {
		return progress{}
	}
	s := newSpinner(d.Stderr, p, message)
	s.start()
	return progress{spin: s}
}

func (p progress) success(message string) {
	if p.spin != nil {
		p.spin.stopWithSuccess(message)
	}
}

func (p progress) fail() {
	if p.spin != nil {
		p.spin.stopWithError()
	}
}

// stop clears the spinner line without a status message
func (p progress) stop() {
	p.fail()
}

// runQuery sends one message and prints the reply. A failed exchange prints
// the bot's failure text on stderr and exits non-zero.
func runQuery(ctx context.Context, deps *Dependencies, message string, qf queryFlags) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("message cannot be empty")
	}

	cfg := deps.settings()
	logger := deps.logger(cfg)
	palette, _ := render.PaletteByName(cfg.TUITheme)

	ctrl, err := deps.chatController(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	logger.Debug("sending message", "endpoint", ctrl.Endpoint(), "length", len(message))

	spin := deps.startProgress(!qf.raw, palette, "Waiting for the assistant")
	startTime := time.Now()
	reply, err := ctrl.Submit(ctx, message)
	if err != nil {
		spin.fail()
		return err
	}
	logger.Debug("request settled", "elapsed", time.Since(startTime).Round(time.Millisecond))

	if failure := ctrl.LastError(); failure != nil {
		spin.fail()
		printFailure(deps, palette, reply.Text, qf.raw)
		return failure
	}
	spin.success("Done")

	return writeReply(deps, cfg, palette, reply.Text, qf)
}

func writeReply(deps *Dependencies, cfg config.Config, palette render.Palette, text string, qf queryFlags) error {
	if qf.raw {
		if qf.output != "" {
			return writeOutputFile(qf.output, text)
		}
		fmt.Fprint(deps.Stdout, text)
		return nil
	}

	success := lipgloss.NewStyle().Foreground(palette.Success)
	if cfg.CopyToClipboard {
		if err := copyToClipboard(text); err != nil {
			warn := lipgloss.NewStyle().Foreground(palette.Warning)
			fmt.Fprintln(deps.Stderr, warn.Render(fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err)))
		} else {
			fmt.Fprintln(deps.Stderr, success.Render("✓ Copied to clipboard"))
		}
	}

	if qf.output != "" {
		if err := writeOutputFile(qf.output, text); err != nil {
			return err
		}
		fmt.Fprintln(deps.Stderr, success.Render(fmt.Sprintf("✓ Reply saved to %s", qf.output)))
		return nil
	}

	bubbleWidth := clampWidth(getTerminalWidth()-4, 40, 120)
	contentWidth := bubbleWidth - 4

	label := lipgloss.NewStyle().Foreground(palette.Primary).Bold(true)
	bubble := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(palette.Primary).
		Foreground(palette.Text).
		Padding(0, 1).
		MarginTop(1).
		MarginBottom(1)

	opts := render.OptionsFromConfig(cfg).WithWidth(contentWidth)
	fmt.Fprintln(deps.Stdout, label.Render("✦ Assistant"))
	fmt.Fprintln(deps.Stdout, bubble.Width(bubbleWidth).Render(render.Reply(text, opts)))
	return nil
}

// printFailure shows a failure reply on stderr, boxed unless raw
func printFailure(deps *Dependencies, palette render.Palette, text string, raw bool) {
	if raw {
		fmt.Fprintln(deps.Stderr, text)
		return
	}
	bubble := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(palette.Error).
		Foreground(palette.Text).
		Padding(0, 1).
		Width(clampWidth(getTerminalWidth()-4, 40, 120))
	fmt.Fprintln(deps.Stderr, bubble.Render(text))
}

func writeOutputFile(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func clampWidth(width, lo, hi int) int {
	if width < lo {
		return lo
	}
	if width > hi {
		return hi
	}
	return width
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
