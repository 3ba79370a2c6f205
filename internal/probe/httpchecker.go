package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// DefaultUserAgent mimics a desktop browser; some sites refuse bare Go clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const (
	defaultTimeout      = 10 * time.Second
	defaultSnippetBytes = 2000
)

// HTTPChecker issues one GET per check. Only a 2xx final status within the
// timeout counts as up.
type HTTPChecker struct {
	Client       *http.Client
	Timeout      time.Duration
	UserAgent    string
	Debug        bool
	SnippetBytes int

	// Resolve classifies DNS for failed probes in debug mode.
	Resolve func(ctx context.Context, host string) DNSStatus
}

type Option func(*HTTPChecker)

// WithDebug captures a bounded body prefix and DNS diagnostics.
func WithDebug(snippetBytes int) Option {
	return func(h *HTTPChecker) {
		h.Debug = true
		if snippetBytes > 0 {
			h.SnippetBytes = snippetBytes
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(h *HTTPChecker) {
		if ua != "" {
			h.UserAgent = ua
		}
	}
}

func NewHTTPChecker(timeout time.Duration, opts ...Option) *HTTPChecker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	h := &HTTPChecker{
		Client: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		Timeout:      timeout,
		UserAgent:    DefaultUserAgent,
		SnippetBytes: defaultSnippetBytes,
		Resolve:      CheckDNS,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Check probes target with the checker's configured timeout.
func (h *HTTPChecker) Check(ctx context.Context, target string) CheckResult {
	return h.check(ctx, target, h.Timeout)
}

// Probe reports whether target answered 2xx within timeout. It never fails:
// every error collapses to false.
func (h *HTTPChecker) Probe(ctx context.Context, target string, timeout time.Duration) bool {
	return h.check(ctx, target, timeout).Success
}

// WithDebugSnippet returns a copy of the checker with debug capture on.
func (h *HTTPChecker) WithDebugSnippet() *HTTPChecker {
	cp := *h
	cp.Debug = true
	return &cp
}

func (h *HTTPChecker) check(ctx context.Context, target string, timeout time.Duration) CheckResult {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	// The deadline covers dial, TLS, headers and any body read, and tears
	// the connection down when it fires.
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return CheckResult{Message: err.Error()}
	}
	req.Header.Set("User-Agent", h.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := h.Client.Do(req)
	latency := time.Since(start).Seconds() * 1000 // ms
	if err != nil {
		out := CheckResult{
			Message:   err.Error(),
			LatencyMS: latency,
			TimedOut:  isTimeout(err),
		}
		if h.Debug && !out.TimedOut {
			out.DNSClass = h.diagnose(ctx, target)
		}
		return out
	}
	defer resp.Body.Close()

	out := CheckResult{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		Message:    resp.Status,
		LatencyMS:  latency,
	}
	if h.Debug {
		out.FinalURL = resp.Request.URL.String()
		out.Redirected = out.FinalURL != req.URL.String()
		out.Snippet = readSnippet(resp.Body, h.SnippetBytes)
	}
	return out
}

func (h *HTTPChecker) diagnose(ctx context.Context, target string) string {
	if h.Resolve == nil || errors.Is(ctx.Err(), context.Canceled) {
		return ""
	}
	// A probe deadline may have nearly spent ctx; DNS gets its own budget.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dnsTimeout)
	defer cancel()
	return h.Resolve(dctx, extractHost(target)).Class
}

func readSnippet(r io.Reader, limit int) string {
	if limit <= 0 {
		limit = defaultSnippetBytes
	}
	b, err := io.ReadAll(io.LimitReader(r, int64(limit)))
	if err != nil {
		return fmt.Sprintf("failed to read body: %v", err)
	}
	return string(b)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// extractHost pulls the hostname from a URL string.
func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
