// Package chat owns the chat transcript and turns user input into calls to
// the chat API.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	apierrors "github.com/danitzn/sb-frontend/internal/errors"
	"github.com/danitzn/sb-frontend/internal/logging"
	"github.com/danitzn/sb-frontend/internal/models"
	"github.com/danitzn/sb-frontend/internal/probe"
)

// Prober performs one bounded HTTP call
type Prober interface {
	Do(ctx context.Context, r probe.Request) (*probe.Response, error)
}

// Observer receives a transcript snapshot after every change
type Observer func([]models.Message)

// Controller is the chat state machine. It is idle or awaiting a response;
// at most one request is in flight at a time.
type Controller struct {
	prober            Prober
	baseURL           string
	path              string
	chatTimeout       time.Duration
	connectionTimeout time.Duration
	logger            *slog.Logger
	now               func() time.Time

	// deliverMu orders observer calls so snapshots arrive in the order they
	// were taken. It is always acquired before mu.
	deliverMu sync.Mutex

	mu       sync.Mutex
	observer Observer
	messages []models.Message
	busy     bool
	lastID   int64
	lastErr  error
}

// Option configures a Controller
type Option func(*Controller)

// WithBaseURL sets the API base URL
func WithBaseURL(baseURL string) Option {
	return func(c *Controller) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithPath sets the chat endpoint path
func WithPath(path string) Option {
	return func(c *Controller) {
		if path != "" {
			c.path = path
		}
	}
}

// WithChatTimeout sets the Submit budget
func WithChatTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.chatTimeout = d
		}
	}
}

// WithConnectionTimeout sets the TestConnection budget
func WithConnectionTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.connectionTimeout = d
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

// WithObserver registers a transcript observer
func WithObserver(fn Observer) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// WithClock replaces time.Now for message ids
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
		prober:            p,
		baseURL:           models.DefaultBaseURL,
		path:              models.ChatPath,
		chatTimeout:       models.ChatTimeout,
		connectionTimeout: models.ConnectionTimeout,
		logger:            logging.Discard(),
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetObserver replaces the observer. The TUI registers itself after the
// program is created.
func (c *Controller) SetObserver(fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = fn
}

// Endpoint returns the full chat URL
func (c *Controller) Endpoint() string {
	return models.ChatURL(c.baseURL, c.path)
}

// BaseURL returns the configured base URL
func (c *Controller) BaseURL() string {
	return c.baseURL
}

// Path returns the configured chat path
func (c *Controller) Path() string {
	return c.path
}

// Busy reports whether a request is awaiting its response
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Transcript returns a copy of the transcript
func (c *Controller) Transcript() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Len returns the number of messages
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// LastError returns the classified error of the most recently settled
// request, or nil when it succeeded.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Submit sends text to the chat API. The user message is appended before the
// call; exactly one bot message is appended once it settles, whatever the
// outcome. Empty text and calls made while busy return ErrEmptyMessage and
// ErrBusy without touching the transcript or the network.
func (c *Controller) Submit(ctx context.Context, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, apierrors.ErrEmptyMessage
	}
	if !c.acquire() {
		return models.Message{}, apierrors.ErrBusy
	}

	c.append(models.SenderUser, text, 0)
	c.logger.Debug("chat submit", "endpoint", c.Endpoint(), "length", len(text))

	req := probe.Request{
		Method:  "POST",
		URL:     c.Endpoint(),
		Header:  models.JSONHeaders(),
		Body:    models.ChatRequest{Message: text},
		Timeout: c.chatTimeout,
	}

	return c.exchange(ctx, req, decodeReply, c.describeFailure), nil
}

// TestConnection posts a fixed probe payload with a shorter budget. Success
// appends a confirmation message; no user message is appended.
func (c *Controller) TestConnection(ctx context.Context) (models.Message, error) {
	if !c.acquire() {
		return models.Message{}, apierrors.ErrBusy
	}

	headers := models.JSONHeaders()
	headers[models.HeaderSkipBrowserWarn] = "1"

	req := probe.Request{
		Method:  "POST",
		URL:     c.Endpoint(),
		Header:  headers,
		Body:    models.ChatRequest{Message: models.TestConnectionPrompt},
		Timeout: c.connectionTimeout,
	}

	return c.exchange(ctx, req, confirmConnection, c.describeConnectionFailure), nil
}

// Clear empties the transcript. In-flight requests are not cancelled; their
// replies are appended to the emptied transcript when they settle.
func (c *Controller) Clear() {
	c.publish(func() {
		c.messages = nil
	})
}

// acceptFunc turns a probe outcome into reply text
type acceptFunc func(resp *probe.Response, err error) (string, error)

func decodeReply(resp *probe.Response, err error) (string, error) {
	if err != nil {
		return "", err
	}
	var decoded models.ChatResponse
	if err := resp.Decode(&decoded); err != nil {
		return "", err
	}
	return decoded.Response, nil
}

func confirmConnection(resp *probe.Response, err error) (string, error) {
	// Any 2xx counts, JSON or not.
	if resp != nil && resp.OK() {
		return ConnectedText, nil
	}
	return "", err
}

// exchange runs req and appends exactly one bot message. The busy flag is
// released on every path, panics included.
func (c *Controller) exchange(ctx context.Context, req probe.Request, accept acceptFunc, describe func(error) string) (reply models.Message) {
	defer c.release()

	var text string
	var failure error
	defer func() {
		if r := recover(); r != nil {
			failure = fmt.Errorf("unexpected failure: %v", r)
			text = describe(failure)
		}
		if failure != nil {
			c.logger.Warn("chat request failed", "endpoint", req.URL, "kind", apierrors.Classify(failure).String(), "error", failure)
		}
		reply = c.settle(text, failure)
	}()

	resp, err := c.prober.Do(ctx, req)
	text, failure = accept(resp, err)
	if failure != nil {
		text = describe(failure)
	}
	return reply
}

func (c *Controller) describeFailure(err error) string {
	switch {
	case apierrors.IsTimeoutError(err):
		return TimeoutText
	case apierrors.IsNetworkError(err):
		return UnreachableText(c.baseURL, c.path)
	default:
		return errorPrefix + err.Error()
	}
}

func (c *Controller) describeConnectionFailure(err error) string {
	switch {
	case apierrors.IsTimeoutError(err):
		return TimeoutText
	case apierrors.IsNetworkError(err):
		return UnreachableText(c.baseURL, c.path)
	default:
		return connFailedPrefix + err.Error()
	}
}

func (c *Controller) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.busy = true
	return true
}

func (c *Controller) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// settle records the outcome and appends the bot reply
func (c *Controller) settle(text string, failure error) models.Message {
	c.mu.Lock()
	c.lastErr = failure
	c.mu.Unlock()
	return c.append(models.SenderBot, text, 1)
}

// append adds a message and notifies the observer. Bot
// replies are offset by one so they never share the triggering message's id.
func (c *Controller) append(sender models.Sender, text string, offset int64) models.Message {
	var msg models.Message
	c.publish(func() {
		msg = models.Message{
			ID:     c.nextIDLocked(offset),
			Text:   text,
			Sender: sender,
		}
		c.messages = append(c.messages, msg)
	})
	return msg
}

// publish applies change under mu and hands the resulting snapshot to the
// observer before any later change can deliver its own.
func (c *Controller) publish(change func()) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	change()
	snapshot := c.snapshotLocked()
	observer := c.observer
	c.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
}

func (c *Controller) nextIDLocked(offset int64) int64 {
	id := c.now().UnixMilli() + offset
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id
	return id
}

func (c *Controller) snapshotLocked() []models.Message {
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}
