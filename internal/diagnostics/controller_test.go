package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/danitzn/sb-frontend/internal/errors"
	"github.com/danitzn/sb-frontend/internal/models"
	"github.com/danitzn/sb-frontend/internal/probe"
	"github.com/danitzn/sb-frontend/internal/probe/probetest"
)

const target = "https://api.test/api/chat/cloud/"

var corsHeader = map[string]string{"Access-Control-Allow-Origin": "*"}

func newController(t *testing.T, handler probetest.HandlerFunc, opts ...Option) (*Controller, *probetest.Doer) {
	t.Helper()
	doer := probetest.NewDoer(handler)
	p, err := probe.New(probe.WithHTTPClient(doer))
	require.NoError(t, err)
	opts = append([]Option{WithTarget(target)}, opts...)
	return New(p, opts...), doer
}

func statuses(results []models.ProbeResult) []models.Status {
	out := make([]models.Status, len(results))
	for i, r := range results {
		out[i] = r.Status
	}
	return out
}

func TestRunFullDiagnostics_Healthy(t *testing.T) {
	c, doer := newController(t, probetest.ByMethod(map[string]probetest.HandlerFunc{
		"OPTIONS": probetest.Static(204, "", corsHeader),
		"POST":    probetest.Static(200, `{"response":"ok"}`, corsHeader),
		"GET":     probetest.Static(200, "<html></html>", nil),
	}))

	results, err := c.RunFullDiagnostics(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 6)

	for _, r := range results {
		assert.Equal(t, models.StatusSuccess, r.Status, r.Name)
		assert.NotNil(t, r.ElapsedMs, r.Name)
	}
	assert.Equal(t, []string{NamePreflight, NamePost, NameCSRF, NameOrigin, NameReachability, NameSummary},
		[]string{results[0].Name, results[1].Name, results[2].Name, results[3].Name, results[4].Name, results[5].Name})
	assert.Contains(t, results[1].Details, "CORS headers: yes")
	assert.Contains(t, results[1].Details, `"response": "ok"`)

	reqs := doer.Requests()
	require.Len(t, reqs, 5)
	assert.Equal(t, "OPTIONS", reqs[0].Method)
	assert.Equal(t, models.LocalOrigin, reqs[0].Header.Get("Origin"))
	assert.JSONEq(t, `{"message":"test CORS"}`, reqs[1].Body)
	assert.JSONEq(t, `{"message":"csrf test"}`, reqs[2].Body)
	assert.Equal(t, models.ForeignOrigin, reqs[3].Header.Get("Origin"))
	assert.Equal(t, "GET", reqs[4].Method)
	assert.Equal(t, "https://api.test", reqs[4].URL)

	assert.False(t, c.Busy())
}

func TestRunFullDiagnostics_ForbiddenEverywhere(t *testing.T) {
	c, _ := newController(t, probetest.Static(403, "Forbidden", nil))

	results, err := c.RunFullDiagnostics(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 6)

	assert.Equal(t, []models.Status{
		models.StatusError,   // preflight
		models.StatusError,   // post
		models.StatusWarning, // csrf
		models.StatusWarning, // origin
		models.StatusWarning, // reachability
		models.StatusSuccess, // summary
	}, statuses(results))
	assert.Contains(t, results[1].Details, "CORS headers: no")
}

func TestRunFullDiagnostics_Unreachable(t *testing.T) {
	c, _ := newController(t, probetest.Fail(errors.New("dial tcp: no such host")))

	results, err := c.RunFullDiagnostics(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 6)

	for _, r := range results[:5] {
		assert.Equal(t, models.StatusError, r.Status, r.Name)
		assert.Contains(t, r.Message, "network-unreachable")
		assert.Contains(t, r.Details, "no such host")
	}
	assert.Equal(t, models.StatusSuccess, results[5].Status)
}

func TestRunFullDiagnostics_InvalidTarget(t *testing.T) {
	c, doer := newController(t, nil, WithTarget("ftp://files.example/x"))

	results, err := c.RunFullDiagnostics(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 6)
	for _, r := range results {
		assert.True(t, r.Status.IsTerminal())
	}
	assert.Equal(t, 0, doer.Calls())
}

func TestRunFullDiagnostics_NonJSONPost(t *testing.T) {
	c, _ := newController(t, probetest.ByMethod(map[string]probetest.HandlerFunc{
		"OPTIONS": probetest.Static(200, "", corsHeader),
		"POST":    probetest.Static(200, "<html>challenge</html>", nil),
		"GET":     probetest.Static(200, "", nil),
	}))

	results, err := c.RunFullDiagnostics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, results[0].Status)
	assert.Equal(t, models.StatusWarning, results[1].Status)
	assert.Equal(t, models.StatusSuccess, results[2].Status)
}

func TestRunFullDiagnostics_Timeout(t *testing.T) {
	c, _ := newController(t, probetest.Hang(nil), WithProbeTimeout(10*time.Millisecond))

	results, err := c.RunFullDiagnostics(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 6)
	for _, r := range results[:5] {
		assert.Equal(t, models.StatusError, r.Status)
		assert.Contains(t, r.Message, "timed out")
	}
}

func TestRunFullDiagnostics_PanicIsolated(t *testing.T) {
	calls := 0
	c, _ := newController(t, func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 2 {
			panic("boom")
		}
		return probetest.Respond(req, 200, `{}`, corsHeader), nil
	})

	results, err := c.RunFullDiagnostics(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 6)
	assert.Equal(t, models.StatusSuccess, results[0].Status)
	assert.Equal(t, models.StatusError, results[1].Status)
	assert.Contains(t, results[1].Details, "boom")
	assert.Equal(t, models.StatusSuccess, results[2].Status)
	assert.False(t, c.Busy())
}

func TestRunFullDiagnostics_LoadingThenTerminal(t *testing.T) {
	var mu sync.Mutex
	var snapshots [][]models.ProbeResult
	c, _ := newController(t, probetest.Static(200, `{}`, corsHeader), WithObserver(func(r []models.ProbeResult) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, r)
	}))

	_, err := c.RunFullDiagnostics(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	// clear, then placeholder and final for each probe, then the summary
	require.Len(t, snapshots, 1+2*5+1)
	assert.Empty(t, snapshots[0])
	for i := 0; i < 5; i++ {
		placeholder := snapshots[1+2*i]
		final := snapshots[2+2*i]
		require.Len(t, placeholder, i+1)
		require.Len(t, final, i+1)
		assert.Equal(t, models.StatusLoading, placeholder[i].Status)
		assert.True(t, final[i].Status.IsTerminal())
	}
}

func TestRunFullDiagnostics_Busy(t *testing.T) {
	release := make(chan struct{})
	c, doer := newController(t, probetest.Hold(release, probetest.Static(200, `{}`, corsHeader)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.RunFullDiagnostics(context.Background())
	}()

	require.Eventually(t, func() bool { return doer.Calls() == 1 }, time.Second, time.Millisecond)

	_, err := c.RunFullDiagnostics(context.Background())
	assert.ErrorIs(t, err, apierrors.ErrBusy)
	_, err = c.TestSpecificEndpoint(context.Background(), "")
	assert.ErrorIs(t, err, apierrors.ErrBusy)

	close(release)
	<-done
	assert.Len(t, c.Results(), 6)
}

func TestTestSpecificEndpoint_BusyKeepsTarget(t *testing.T) {
	release := make(chan struct{})
	c, doer := newController(t, probetest.Hold(release, probetest.Static(200, `{}`, corsHeader)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.RunFullDiagnostics(context.Background())
	}()
	require.Eventually(t, func() bool { return doer.Calls() == 1 }, time.Second, time.Millisecond)

	_, err := c.TestSpecificEndpoint(context.Background(), "https://other.test/chat")
	assert.ErrorIs(t, err, apierrors.ErrBusy)
	assert.Equal(t, target, c.TargetURL())
	assert.Equal(t, target, c.Report().Target)

	close(release)
	<-done
	assert.Equal(t, target, c.Report().Target)
	for _, r := range doer.Requests()[:4] {
		assert.Equal(t, target, r.URL)
	}
}

func TestObserver_LastDeliveryMatchesResults(t *testing.T) {
	var mu sync.Mutex
	var last []models.ProbeResult
	observer := func(results []models.ProbeResult) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		last = results
	}

	c, _ := newController(t, probetest.Static(200, `{}`, corsHeader), WithObserver(observer))

	for i := 0; i < 10; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = c.TestSpecificEndpoint(context.Background(), "")
		}()
		go func() {
			defer wg.Done()
			c.ClearResults()
		}()
		wg.Wait()

		mu.Lock()
		delivered := last
		mu.Unlock()
		require.Equal(t, c.Results(), delivered, "iteration %d", i)
	}
}

func TestRunFullDiagnostics_ClearsPreviousRun(t *testing.T) {
	c, _ := newController(t, probetest.Static(200, `{}`, corsHeader))

	_, err := c.RunFullDiagnostics(context.Background())
	require.NoError(t, err)
	firstRun := c.Report().RunID

	results, err := c.RunFullDiagnostics(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 6)
	assert.NotEqual(t, firstRun, c.Report().RunID)
}

func TestTestSpecificEndpoint(t *testing.T) {
	c, doer := newController(t, probetest.Static(200, `{"response":"ok"}`, nil))

	results, err := c.TestSpecificEndpoint(context.Background(), "https://other.test/chat")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, NameEndpoint, results[0].Name)
	assert.Equal(t, models.StatusSuccess, results[0].Status)
	assert.Equal(t, "https://other.test/chat", c.TargetURL())
	assert.Equal(t, "https://other.test/chat", doer.Requests()[0].URL)
}

func TestTestSpecificEndpoint_KeepsTargetWhenEmpty(t *testing.T) {
	c, doer := newController(t, probetest.Static(500, "down", nil))

	results, err := c.TestSpecificEndpoint(context.Background(), "  ")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.StatusError, results[0].Status)
	assert.Equal(t, target, doer.Requests()[0].URL)
}

func TestClearResults(t *testing.T) {
	c, _ := newController(t, probetest.Static(200, `{}`, corsHeader))

	_, err := c.RunFullDiagnostics(context.Background())
	require.NoError(t, err)

	c.ClearResults()
	assert.Empty(t, c.Results())
	c.ClearResults()
	assert.Empty(t, c.Results())
}

func TestReport(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c, _ := newController(t, probetest.Static(403, "", nil), WithClock(func() time.Time { return started }))

	_, err := c.RunFullDiagnostics(context.Background())
	require.NoError(t, err)

	report := c.Report()
	_, err = uuid.Parse(report.RunID)
	assert.NoError(t, err)
	assert.Equal(t, target, report.Target)
	assert.Equal(t, started, report.StartedAt)
	assert.False(t, report.Healthy())
	assert.Equal(t, 2, report.Counts()[models.StatusError])
	assert.Equal(t, 3, report.Counts()[models.StatusWarning])

	data, err := report.JSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.RunID, decoded["run_id"])
	assert.Len(t, decoded["results"], 6)
}

func TestDefaults(t *testing.T) {
	c := New(nil)
	assert.Equal(t, models.DefaultDiagnosticURL, c.TargetURL())
	assert.Equal(t, 10*time.Second, c.timeout)
}
