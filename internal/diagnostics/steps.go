package diagnostics

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	apierrors "github.com/danitzn/sb-frontend/internal/errors"
	"github.com/danitzn/sb-frontend/internal/models"
	"github.com/danitzn/sb-frontend/internal/probe"
)

// Step names as they appear in a report
const (
	NamePreflight    = "1. Preflight OPTIONS"
	NamePost         = "2. POST request"
	NameCSRF         = "3. CSRF check"
	NameOrigin       = "4. Foreign origin"
	NameReachability = "5. Edge reachability"
	NameSummary      = "Summary"
	NameEndpoint     = "Endpoint test"
)

// Payloads sent by the POST-based steps
const (
	postPayload     = "test CORS"
	csrfPayload     = "csrf test"
	originPayload   = "different origin"
	endpointPayload = "specific test"
)

// step is one probe of a diagnostic run. run only sees the response when the
// server answered; transport failures are turned into an error result by the
// controller.
type step struct {
	name    string
	pending string
	request func(target string) (probe.Request, error)
	judge   func(resp *probe.Response) models.ProbeResult
}

func jsonPost(target, message string, extra map[string]string) probe.Request {
	header := map[string]string{models.HeaderContentType: models.ContentTypeJSON}
	for k, v := range extra {
		header[k] = v
	}
	return probe.Request{
		Method: "POST",
		URL:    target,
		Header: header,
		Body:   models.ChatRequest{Message: message},
	}
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

var preflightStep = step{
	name:    NamePreflight,
	pending: "Sending OPTIONS request...",
	request: func(target string) (probe.Request, error) {
		return probe.Request{
			Method: "OPTIONS",
			URL:    target,
			Header: map[string]string{
				models.HeaderContentType: models.ContentTypeJSON,
				models.HeaderOrigin:      models.LocalOrigin,
			},
		}, nil
	},
	judge: func(resp *probe.Response) models.ProbeResult {
		status := models.StatusError
		if resp.HasCORS() {
			status = models.StatusSuccess
		}
		return models.ProbeResult{
			Name:    NamePreflight,
			Status:  status,
			Message: fmt.Sprintf("Status: %d - CORS: %s", resp.StatusCode, yesNo(resp.HasCORS())),
			Details: "Headers: " + resp.HeadersJSON(),
		}
	},
}

var postStep = step{
	name:    NamePost,
	pending: "Sending POST request...",
	request: func(target string) (probe.Request, error) {
		return jsonPost(target, postPayload, nil), nil
	},
	judge: func(resp *probe.Response) models.ProbeResult {
		return judgePost(NamePost, resp)
	},
}

// judgePost is shared by the full run and the single endpoint test
func judgePost(name string, resp *probe.Response) models.ProbeResult {
	cors := "CORS headers: " + yesNo(resp.HasCORS())
	switch {
	case !resp.OK():
		return models.ProbeResult{
			Name:    name,
			Status:  models.StatusError,
			Message: fmt.Sprintf("POST failed - Status: %d", resp.StatusCode),
			Details: cors + "\nHeaders: " + resp.HeadersJSON(),
		}
	case !gjson.ValidBytes(resp.Body):
		return models.ProbeResult{
			Name:    name,
			Status:  models.StatusWarning,
			Message: fmt.Sprintf("POST returned %d but the body is not JSON", resp.StatusCode),
			Details: cors + "\nHeaders: " + resp.HeadersJSON(),
		}
	default:
		return models.ProbeResult{
			Name:    name,
			Status:  models.StatusSuccess,
			Message: fmt.Sprintf("POST succeeded - Status: %d", resp.StatusCode),
			Details: "Response: " + resp.PrettyBody() + "\n" + cors,
		}
	}
}

var csrfStep = step{
	name:    NameCSRF,
	pending: "Posting without a CSRF token...",
	request: func(target string) (probe.Request, error) {
		return jsonPost(target, csrfPayload, nil), nil
	},
	judge: func(resp *probe.Response) models.ProbeResult {
		r := models.ProbeResult{
			Name:    NameCSRF,
			Status:  models.StatusSuccess,
			Message: "CSRF protection is not blocking requests",
			Details: fmt.Sprintf("Status: %d", resp.StatusCode),
		}
		if resp.StatusCode == 403 {
			r.Status = models.StatusWarning
			r.Message = "CSRF protection may be blocking requests (403)"
		}
		return r
	},
}

var originStep = step{
	name:    NameOrigin,
	pending: "Posting with a foreign Origin...",
	request: func(target string) (probe.Request, error) {
		return jsonPost(target, originPayload, map[string]string{models.HeaderOrigin: models.ForeignOrigin}), nil
	},
	judge: func(resp *probe.Response) models.ProbeResult {
		r := models.ProbeResult{
			Name:    NameOrigin,
			Status:  models.StatusSuccess,
			Message: "Foreign origin accepted",
			Details: fmt.Sprintf("Status: %d", resp.StatusCode),
		}
		if !resp.OK() {
			r.Status = models.StatusWarning
			r.Message = "Foreign origin rejected"
		}
		return r
	},
}

var reachabilityStep = step{
	name:    NameReachability,
	pending: "Checking the edge network...",
	request: func(target string) (probe.Request, error) {
		origin, err := probe.Origin(target)
		if err != nil {
			return probe.Request{}, apierrors.NewNetworkError("GET", target, err)
		}
		return probe.Request{Method: "GET", URL: origin}, nil
	},
	judge: func(resp *probe.Response) models.ProbeResult {
		r := models.ProbeResult{
			Name:    NameReachability,
			Status:  models.StatusSuccess,
			Message: "Edge network reachable",
			Details: fmt.Sprintf("Status: %d", resp.StatusCode),
		}
		if resp.StatusCode == 403 {
			r.Status = models.StatusWarning
			r.Message = "Edge network may be blocking requests (403)"
		}
		return r
	},
}

var endpointStep = step{
	name:    NameEndpoint,
	pending: "Testing endpoint...",
	request: func(target string) (probe.Request, error) {
		return jsonPost(target, endpointPayload, nil), nil
	},
	judge: func(resp *probe.Response) models.ProbeResult {
		return judgePost(NameEndpoint, resp)
	},
}

// fullRun lists the probes of RunFullDiagnostics in order
var fullRun = []step{preflightStep, postStep, csrfStep, originStep, reachabilityStep}

// failure builds the result for a probe that got no response
func failure(name string, err error) models.ProbeResult {
	kind := apierrors.Classify(err)
	msg := "Request failed"
	switch kind {
	case apierrors.KindTimeout:
		msg = "Request timed out"
	case apierrors.KindNetwork:
		msg = "Could not reach the target"
	}
	return models.ProbeResult{
		Name:    name,
		Status:  models.StatusError,
		Message: msg + " (" + kind.String() + ")",
		Details: strings.TrimSpace(err.Error()),
	}
}

func pending(s step, target string) models.ProbeResult {
	msg := s.pending
	if s.name == NameEndpoint {
		msg = "Testing: " + target
	}
	return models.ProbeResult{Name: s.name, Status: models.StatusLoading, Message: msg}
}
