package provider

import "strings"

// IsRateLimited reports whether err represents an HTTP 429 from a provider's
// API. The Anthropic, OpenAI, and Google SDKs each wrap transport failures in
// their own error types; rather than import-and-assert against all three
// here, detection matches on what every one of them puts in Error(): the
// status code and/or the phrase the API uses for it.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}
