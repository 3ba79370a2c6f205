package probe

import "context"

// CheckResult is the unified result of a single probe.
//
// Fields:
//   - StatusCode: HTTP status code when a response arrived; 0 for transport/DNS errors.
//   - Message: response status text, or the transport error.
//   - Snippet, FinalURL, Redirected, DNSClass: only filled in debug mode; they
//     never influence Success.
type CheckResult struct {
	Success    bool
	StatusCode int
	Status     string
	LatencyMS  float64
	Message    string
	TimedOut   bool

	Redirected bool
	FinalURL   string
	Snippet    string
	DNSClass   string
}

// Checker performs a single check for a given target URL.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}
