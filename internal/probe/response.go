package probe

import (
	"encoding/json"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	apierrors "github.com/danitzn/sb-frontend/internal/errors"
	"github.com/danitzn/sb-frontend/internal/models"
)

// Response is what came back from the server
type Response struct {
	URL        string // the requested URL
	StatusCode int
	Header     map[string]string // lower-cased names
	Body       []byte
	Elapsed    time.Duration
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HasCORS reports whether the response carries an allow-origin header
func (r *Response) HasCORS() bool {
	_, ok := r.Header[models.HeaderAllowOrigin]
	return ok
}

// HeaderValue looks up a header case-insensitively
func (r *Response) HeaderValue(name string) string {
	return r.Header[strings.ToLower(name)]
}

// Text returns the raw body
func (r *Response) Text() string {
	return string(r.Body)
}

// JSON returns a gjson view of the body
func (r *Response) JSON() gjson.Result {
	return gjson.ParseBytes(r.Body)
}

// Decode unmarshals the body into v
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return apierrors.NewDecodeError(r.StatusCode, r.URL, string(r.Body), err)
	}
	return nil
}

// PrettyBody returns the body indented when it is JSON, raw otherwise
func (r *Response) PrettyBody() string {
	if !gjson.ValidBytes(r.Body) {
		return string(r.Body)
	}
	return strings.TrimRight(string(pretty.Pretty(r.Body)), "\n")
}

// HeadersJSON renders the header map as indented JSON
func (r *Response) HeadersJSON() string {
	data, err := json.MarshalIndent(r.Header, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return out
}
