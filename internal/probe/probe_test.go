package probe

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/danitzn/sb-frontend/internal/errors"
	"github.com/danitzn/sb-frontend/internal/models"
	"github.com/danitzn/sb-frontend/internal/probe/probetest"
)

func newTestProber(t *testing.T, handler probetest.HandlerFunc) (*Prober, *probetest.Doer) {
	t.Helper()
	doer := probetest.NewDoer(handler)
	p, err := New(WithHTTPClient(doer))
	require.NoError(t, err)
	return p, doer
}

func TestProber_Success(t *testing.T) {
	p, doer := newTestProber(t, probetest.Static(200, `{"response":"hi there","model_used":"x","context_used":"y"}`, map[string]string{
		"Access-Control-Allow-Origin": "*",
	}))

	resp, err := p.Do(context.Background(), Request{
		Method:  "post",
		URL:     "https://api.test/api/chat/cloud/",
		Header:  map[string]string{models.HeaderContentType: models.ContentTypeJSON},
		Body:    models.ChatRequest{Message: "hello"},
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, resp.OK())
	assert.True(t, resp.HasCORS())
	assert.Equal(t, "*", resp.HeaderValue("ACCESS-CONTROL-ALLOW-ORIGIN"))
	assert.Equal(t, "hi there", resp.JSON().Get("response").String())

	var decoded models.ChatResponse
	require.NoError(t, resp.Decode(&decoded))
	assert.Equal(t, "hi there", decoded.Response)

	reqs := doer.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "POST", reqs[0].Method)
	assert.Equal(t, models.ContentTypeJSON, reqs[0].Header.Get("Content-Type"))
	assert.JSONEq(t, `{"message":"hello"}`, reqs[0].Body)
}

func TestProber_DefaultMethodIsGet(t *testing.T) {
	p, doer := newTestProber(t, probetest.Static(200, `{}`, nil))

	_, err := p.Do(context.Background(), Request{URL: "http://api.test"})
	require.NoError(t, err)
	assert.Equal(t, "GET", doer.Requests()[0].Method)
	assert.Empty(t, doer.Requests()[0].Body)
}

func TestProber_HTTPError(t *testing.T) {
	p, _ := newTestProber(t, probetest.Static(500, "internal failure", nil))

	resp, err := p.Do(context.Background(), Request{Method: "POST", URL: "https://api.test/x"})
	require.Error(t, err)
	require.NotNil(t, resp, "response must be returned alongside an HTTP error")

	assert.True(t, apierrors.IsHTTPError(err))
	assert.Equal(t, 500, apierrors.GetHTTPStatus(err))
	assert.Equal(t, "internal failure", apierrors.GetResponseBody(err))
	assert.Equal(t, apierrors.KindHTTP, apierrors.Classify(err))
	assert.False(t, resp.HasCORS())
}

func TestProber_Forbidden(t *testing.T) {
	p, _ := newTestProber(t, probetest.Static(403, "CSRF verification failed", nil))

	_, err := p.Do(context.Background(), Request{Method: "POST", URL: "https://api.test/x"})
	assert.ErrorIs(t, err, apierrors.ErrCrossSite)
}

func TestProber_DecodeError(t *testing.T) {
	p, _ := newTestProber(t, probetest.Static(200, "<html>tunnel</html>", nil))

	resp, err := p.Do(context.Background(), Request{URL: "https://api.test"})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.True(t, apierrors.IsDecodeError(err))
	assert.Equal(t, "<html>tunnel</html>", resp.PrettyBody())
}

func TestProber_Timeout(t *testing.T) {
	aborted := make(chan struct{})
	p, _ := newTestProber(t, probetest.Hang(aborted))

	start := time.Now()
	resp, err := p.Do(context.Background(), Request{URL: "https://api.test", Timeout: 30 * time.Millisecond})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, apierrors.IsTimeoutError(err), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)

	select {
	case <-aborted:
	case <-time.After(time.Second):
		t.Fatal("request context was not cancelled")
	}
}

func TestProber_NetworkError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	p, _ := newTestProber(t, probetest.Fail(cause))

	_, err := p.Do(context.Background(), Request{Method: "OPTIONS", URL: "https://api.test"})
	require.Error(t, err)
	assert.True(t, apierrors.IsNetworkError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "OPTIONS")
}

func TestProber_ParentCancelIsNetworkError(t *testing.T) {
	p, _ := newTestProber(t, probetest.Hang(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Do(ctx, Request{URL: "https://api.test", Timeout: time.Second})
	require.Error(t, err)
	assert.False(t, apierrors.IsTimeoutError(err))
	assert.True(t, apierrors.IsNetworkError(err))
}

func TestProber_InvalidURL(t *testing.T) {
	p, doer := newTestProber(t, nil)

	for _, raw := range []string{"ftp://api.test", "not a url", "http://", "://"} {
		_, err := p.Do(context.Background(), Request{URL: raw})
		require.Error(t, err, raw)
		assert.ErrorIs(t, err, apierrors.ErrInvalidURL, raw)
	}
	assert.Equal(t, 0, doer.Calls())
}

func TestProber_MaxBody(t *testing.T) {
	doer := probetest.NewDoer(probetest.Static(200, strings.Repeat("a", 100), nil))
	p, err := New(WithHTTPClient(doer), WithMaxBody(10))
	require.NoError(t, err)

	resp, _ := p.Do(context.Background(), Request{URL: "https://api.test"})
	require.NotNil(t, resp)
	assert.Len(t, resp.Body, 10)
}

func TestProber_UnencodableBody(t *testing.T) {
	p, doer := newTestProber(t, nil)

	_, err := p.Do(context.Background(), Request{Method: "POST", URL: "https://api.test", Body: make(chan int)})
	require.Error(t, err)
	assert.Equal(t, 0, doer.Calls())
}

func TestResponse_Helpers(t *testing.T) {
	resp := &Response{
		StatusCode: 200,
		Header:     map[string]string{"content-type": "application/json", models.HeaderAllowOrigin: "*"},
		Body:       []byte(`{"b":1,"a":[1,2]}`),
	}

	pretty := resp.PrettyBody()
	assert.Contains(t, pretty, "\n")
	assert.False(t, strings.HasSuffix(pretty, "\n"))

	var headers map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp.HeadersJSON()), &headers))
	assert.Equal(t, "*", headers[models.HeaderAllowOrigin])

	var v struct{ B int }
	require.NoError(t, resp.Decode(&v))
	assert.Equal(t, 1, v.B)

	bad := &Response{StatusCode: 200, Body: []byte("nope")}
	assert.True(t, apierrors.IsDecodeError(bad.Decode(&v)))
}

func TestProber_ResponseKeepsURL(t *testing.T) {
	p, _ := newTestProber(t, probetest.Static(200, `[]`, nil))

	resp, err := p.Do(context.Background(), Request{Method: "POST", URL: "https://api.test/chat"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.test/chat", resp.URL)

	var v struct{ Response string }
	err = resp.Decode(&v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from https://api.test/chat:")
}

func TestOrigin(t *testing.T) {
	got, err := Origin("https://api.test:8443/api/chat/cloud/?x=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "https://api.test:8443", got)

	_, err = Origin("mailto:someone@example.com")
	assert.ErrorIs(t, err, apierrors.ErrInvalidURL)
}
