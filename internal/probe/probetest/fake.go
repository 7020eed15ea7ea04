// Package probetest provides an in-memory transport for tests of code built
// on probe.Prober.
package probetest

import (
	"fmt"
	"io"
	"strings"
	"sync"

	http "github.com/bogdanfinn/fhttp"
)

// HandlerFunc answers one request
type HandlerFunc func(req *http.Request) (*http.Response, error)

// Recorded is a captured request
type Recorded struct {
	Method string
	URL    string
	Header http.Header
	Body   string
}

// Doer is a fake transport that records requests and delegates to Handler
type Doer struct {
	Handler HandlerFunc

	mu       sync.Mutex
	requests []Recorded
}

// NewDoer creates a Doer with the given handler
func NewDoer(handler HandlerFunc) *Doer {
	return &Doer{Handler: handler}
}

// Do implements probe.Doer
func (d *Doer) Do(req *http.Request) (*http.Response, error) {
	rec := Recorded{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
	}
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		rec.Body = string(data)
	}

	d.mu.Lock()
	d.requests = append(d.requests, rec)
	d.mu.Unlock()

	if d.Handler == nil {
		return Respond(req, http.StatusOK, `{}`, nil), nil
	}
	return d.Handler(req)
}

// Calls returns how many requests were made
func (d *Doer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

// Requests returns a copy of the captured requests
func (d *Doer) Requests() []Recorded {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Recorded, len(d.requests))
	copy(out, d.requests)
	return out
}

// Respond builds a response for req
func Respond(req *http.Request, status int, body string, header map[string]string) *http.Response {
	h := http.Header{}
	for k, v := range header {
		h.Set(k, v)
	}
	return &http.Response{
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

// Static always answers with the same status, body and headers
func Static(status int, body string, header map[string]string) HandlerFunc {
	return func(req *http.Request) (*http.Response, error) {
		return Respond(req, status, body, header), nil
	}
}

// ByMethod dispatches on the request method; unknown methods get 405
func ByMethod(handlers map[string]HandlerFunc) HandlerFunc {
	return func(req *http.Request) (*http.Response, error) {
		if h, ok := handlers[req.Method]; ok {
			return h(req)
		}
		return Respond(req, http.StatusMethodNotAllowed, "", nil), nil
	}
}

// Fail returns err without a response
func Fail(err error) HandlerFunc {
	return func(req *http.Request) (*http.Response, error) {
		return nil, err
	}
}

// Hang blocks until the request context is done. When done is non-nil it is
// closed once the context fires.
func Hang(done chan struct{}) HandlerFunc {
	return func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		if done != nil {
			close(done)
		}
		return nil, req.Context().Err()
	}
}

// Hold blocks until release is closed and then delegates to next
func Hold(release <-chan struct{}, next HandlerFunc) HandlerFunc {
	return func(req *http.Request) (*http.Response, error) {
		select {
		case <-release:
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
		return next(req)
	}
}
