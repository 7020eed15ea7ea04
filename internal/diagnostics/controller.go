// Package diagnostics runs sequential HTTP probes against a chat endpoint to
// explain why a browser or terminal client cannot reach it.
package diagnostics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apierrors "github.com/danitzn/sb-frontend/internal/errors"
	"github.com/danitzn/sb-frontend/internal/logging"
	"github.com/danitzn/sb-frontend/internal/models"
	"github.com/danitzn/sb-frontend/internal/probe"
)

// Prober performs one bounded HTTP call
type Prober interface {
	Do(ctx context.Context, r probe.Request) (*probe.Response, error)
}

// Observer receives a report snapshot after every change
type Observer func([]models.ProbeResult)

// Controller owns the diagnostics report and the editable target URL
type Controller struct {
	prober  Prober
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	// deliverMu orders observer calls so snapshots arrive in the order they
	// were taken. It is always acquired before mu.
	deliverMu sync.Mutex

	mu        sync.Mutex
	target    string
	observer  Observer
	results   []models.ProbeResult
	busy      bool
	runID     string
	startedAt time.Time
}

// Option configures a Controller
type Option func(*Controller)

// WithTarget sets the initial target URL
func WithTarget(target string) Option {
	return func(c *Controller) {
		if target != "" {
			c.target = target
		}
	}
}

// WithProbeTimeout sets the per-probe budget
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers a report observer
func WithObserver(fn Observer) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Controller bound to the given prober
func New(p Prober, opts ...Option) *Controller {
	c := &Controller{
		prober:  p,
		target:  models.DefaultDiagnosticURL,
		timeout: models.ProbeTimeout,
		logger:  logging.Discard(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetObserver replaces the observer
func (c *Controller) SetObserver(fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = fn
}

// TargetURL returns the current target
func (c *Controller) TargetURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// SetTargetURL replaces the target. Empty values are ignored.
func (c *Controller) SetTargetURL(target string) {
	target = strings.TrimSpace(target)
	if target == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
}

// Busy reports whether a run is in progress
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Results returns a copy of the report
func (c *Controller) Results() []models.ProbeResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// ClearResults empties the report
func (c *Controller) ClearResults() {
	_ = c.publish(func() error {
		c.results = nil
		return nil
	})
}

// RunFullDiagnostics clears the report and runs every probe in order against
// the target. A failing probe never stops the ones after it. The report
// always ends with a summary entry.
func (c *Controller) RunFullDiagnostics(ctx context.Context) ([]models.ProbeResult, error) {
	target, err := c.begin("")
	if err != nil {
		return nil, err
	}
	defer c.finish()

	start := c.now()
	c.logger.Debug("diagnostics started", "target", target)

	for _, s := range fullRun {
		c.runStep(ctx, s, target)
	}

	total := c.now().Sub(start).Milliseconds()
	c.appendResult(models.ProbeResult{
		Name:      NameSummary,
		Status:    models.StatusSuccess,
		Message:   fmt.Sprintf("Diagnostics finished in %dms", total),
		Details:   "See the individual results above",
		ElapsedMs: models.Millis(total),
	})

	return c.Results(), nil
}

// TestSpecificEndpoint runs only the POST probe. A non-empty url replaces the
// target first, unless another run is in progress.
func (c *Controller) TestSpecificEndpoint(ctx context.Context, url string) ([]models.ProbeResult, error) {
	target, err := c.begin(url)
	if err != nil {
		return nil, err
	}
	defer c.finish()

	c.runStep(ctx, endpointStep, target)
	return c.Results(), nil
}

// Report returns the current run with its identity
func (c *Controller) Report() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Report{
		RunID:     c.runID,
		Target:    c.target,
		StartedAt: c.startedAt,
		Results:   c.snapshotLocked(),
	}
}

// begin marks the controller busy, switches to newTarget when it is not
// empty, clears the report and stamps a new run. A busy controller is left
// untouched.
func (c *Controller) begin(newTarget string) (string, error) {
	newTarget = strings.TrimSpace(newTarget)

	var target string
	err := c.publish(func() error {
		if c.busy {
			return apierrors.ErrBusy
		}
		c.busy = true
		if newTarget != "" {
			c.target = newTarget
		}
		c.results = nil
		c.runID = uuid.NewString()
		c.startedAt = c.now()
		target = c.target
		return nil
	})
	if err != nil {
		return "", err
	}
	return target, nil
}

func (c *Controller) finish() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// runStep shows the loading placeholder, runs the probe and replaces the
// placeholder with its outcome. Panics become an error result.
func (c *Controller) runStep(ctx context.Context, s step, target string) {
	c.appendResult(pending(s, target))

	start := c.now()
	result := c.execute(ctx, s, target)
	result.Name = s.name
	result.ElapsedMs = models.Millis(c.now().Sub(start).Milliseconds())

	if result.Status != models.StatusSuccess {
		c.logger.Warn("diagnostic probe did not succeed", "probe", s.name, "status", string(result.Status), "message", result.Message)
	}
	c.replaceLast(result)
}

func (c *Controller) execute(ctx context.Context, s step, target string) (result models.ProbeResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failure(s.name, fmt.Errorf("unexpected failure: %v", r))
		}
	}()

	req, err := s.request(target)
	if err != nil {
		return failure(s.name, err)
	}
	req.Timeout = c.timeout

	resp, err := c.prober.Do(ctx, req)
	if resp == nil {
		if err == nil {
			err = apierrors.NewNetworkError(req.Method, req.URL, fmt.Errorf("no response"))
		}
		return failure(s.name, err)
	}
	// HTTP and decode errors still carry a response; the step judges it.
	return s.judge(resp)
}

func (c *Controller) appendResult(r models.ProbeResult) {
	_ = c.publish(func() error {
		c.results = append(c.results, r)
		return nil
	})
}

// replaceLast swaps the loading placeholder for the final result
func (c *Controller) replaceLast(r models.ProbeResult) {
	_ = c.publish(func() error {
		if n := len(c.results); n > 0 && c.results[n-1].Status == models.StatusLoading {
			c.results[n-1] = r
		} else {
			c.results = append(c.results, r)
		}
		return nil
	})
}

// publish applies change under mu and hands the resulting snapshot to the
// observer before any later change can deliver its own. A change that fails
// is not delivered.
func (c *Controller) publish(change func() error) error {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	if err := change(); err != nil {
		c.mu.Unlock()
		return err
	}
	snapshot := c.snapshotLocked()
	observer := c.observer
	c.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
	return nil
}

func (c *Controller) snapshotLocked() []models.ProbeResult {
	out := make([]models.ProbeResult, len(c.results))
	copy(out, c.results)
	return out
}
