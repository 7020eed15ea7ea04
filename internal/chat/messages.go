package chat

import (
	"fmt"
	"strings"
)

// Fixed reply texts
const (
	TimeoutText   = "⏰ The request took too long. Please try again."
	ConnectedText = "✅ Connected to the chat API"
)

// UnreachableText explains a network failure and what to check
func UnreachableText(baseURL, path string) string {
	return fmt.Sprintf("🌐 Could not reach the chat API\n\n"+
		"• URL: %s\n"+
		"• Path: %s\n\n"+
		"Check:\n"+
		"• Your internet connection\n"+
		"• That the Cloudflare tunnel is running\n"+
		"• That the URL is reachable", baseURL, path)
}

// Prefixes of the generic failure replies
const (
	errorPrefix      = "❌ Error: "
	connFailedPrefix = "❌ Connection failed: "
	unreachableMark  = "🌐 "
)

// IsFailureText reports whether a bot reply describes a failed request
func IsFailureText(text string) bool {
	return text == TimeoutText ||
		strings.HasPrefix(text, errorPrefix) ||
		strings.HasPrefix(text, connFailedPrefix) ||
		strings.HasPrefix(text, unreachableMark)
}
