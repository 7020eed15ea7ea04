// Package models contains data types and constants for the store chat API.
package models

import "time"

// Endpoints for the chat API
const (
	DefaultBaseURL = "https://did-delhi-processor-historical.trycloudflare.com"
	ChatPath       = "/api/chat/cloud/"

	// DefaultDiagnosticURL seeds the editable diagnostics target
	DefaultDiagnosticURL = DefaultBaseURL + ChatPath
)

// Request budgets
const (
	ChatTimeout       = 10 * time.Second
	ConnectionTimeout = 5 * time.Second
	ProbeTimeout      = 10 * time.Second
)

// Origins used by the diagnostics probes
const (
	LocalOrigin   = "http://localhost:3000"
	ForeignOrigin = "https://other-origin.example"
)

// Header names
const (
	HeaderContentType     = "Content-Type"
	HeaderOrigin          = "Origin"
	HeaderAllowOrigin     = "access-control-allow-origin"
	HeaderSkipBrowserWarn = "Cloudflare-skip-browser-warning"
	ContentTypeJSON       = "application/json"
)

// TestConnectionPrompt is the fixed payload sent by a connection test
const TestConnectionPrompt = "test connection"

// JSONHeaders returns the headers sent with every JSON POST
func JSONHeaders() map[string]string {
	return map[string]string{
		HeaderContentType: ContentTypeJSON,
		"Accept":          "application/json, text/plain, */*",
		"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// ChatURL joins a base URL and a path without doubling the slash
func ChatURL(baseURL, path string) string {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	if path != "" && path[0] != '/' {
		path = "/" + path
	}
	return baseURL + path
}
