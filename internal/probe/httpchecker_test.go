package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPChecker_StatusOK(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	chk := NewHTTPChecker(2 * time.Second)
	out := chk.Check(context.Background(), s.URL)
	if !out.Success {
		t.Fatalf("want success, got %+v", out)
	}
	if out.StatusCode != 200 {
		t.Fatalf("want status 200, got %d", out.StatusCode)
	}
	if !strings.HasPrefix(out.Message, "200") {
		t.Fatalf("want message to start with 200, got %q", out.Message)
	}
	if out.LatencyMS < 0 {
		t.Fatalf("latency should be >= 0, got %f", out.LatencyMS)
	}
}

func TestHTTPChecker_Status500(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 500)
	}))
	defer s.Close()

	chk := NewHTTPChecker(2 * time.Second)
	out := chk.Check(context.Background(), s.URL)
	if out.Success {
		t.Fatalf("want failure, got %+v", out)
	}
	if out.StatusCode != 500 {
		t.Fatalf("want status 500, got %d", out.StatusCode)
	}
	if !strings.HasPrefix(out.Message, "500") {
		t.Fatalf("want message to start with 500, got %q", out.Message)
	}
}

func TestHTTPChecker_TimeoutSetsStatusZero(t *testing.T) {
	// Server sleeps longer than client timeout
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	chk := NewHTTPChecker(50 * time.Millisecond)
	out := chk.Check(context.Background(), s.URL)
	if out.Success {
		t.Fatalf("want failure due to timeout, got %+v", out)
	}
	if out.StatusCode != 0 {
		t.Fatalf("want status 0 on transport error, got %d", out.StatusCode)
	}
	if out.Message == "" {
		t.Fatalf("want non-empty error message")
	}
}

func TestHTTPChecker_OnlyTwoHundredsAreUp(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, true},
		{204, true},
		{299, true},
		{300, false},
		{404, false},
		{500, false},
	}
	for _, c := range cases {
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.code)
		}))
		got := NewHTTPChecker(2*time.Second).Probe(context.Background(), s.URL, 2*time.Second)
		s.Close()
		if got != c.want {
			t.Fatalf("status %d: want %v, got %v", c.code, c.want, got)
		}
	}
}

func TestHTTPChecker_FollowsRedirects(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
			return
		}
		w.Write([]byte("moved here"))
	}))
	defer s.Close()

	chk := NewHTTPChecker(2*time.Second, WithDebug(0))
	out := chk.Check(context.Background(), s.URL+"/old")
	if !out.Success || out.StatusCode != 200 {
		t.Fatalf("want redirect to land on 200, got %+v", out)
	}
	if !out.Redirected || !strings.HasSuffix(out.FinalURL, "/new") {
		t.Fatalf("want redirected to /new, got redirected=%v final=%q", out.Redirected, out.FinalURL)
	}
}

func TestHTTPChecker_ProbeTimeoutIsBounded(t *testing.T) {
	release := make(chan struct{})
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer s.Close()
	defer close(release)

	start := time.Now()
	got := NewHTTPChecker(0).Probe(context.Background(), s.URL, 100*time.Millisecond)
	if got {
		t.Fatalf("want false for a hung server")
	}
	if el := time.Since(start); el > time.Second {
		t.Fatalf("probe not bounded by its timeout: took %s", el)
	}
}

func TestHTTPChecker_UnreachableAndInvalid(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closed := s.URL
	s.Close()

	chk := NewHTTPChecker(time.Second)
	for _, target := range []string{closed, "://not a url", "ftp://example.invalid/x", ""} {
		if chk.Probe(context.Background(), target, time.Second) {
			t.Fatalf("want false for %q", target)
		}
	}
}

func TestHTTPChecker_SendsBrowserHeaders(t *testing.T) {
	var ua, accept string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		accept = r.Header.Get("Accept")
	}))
	defer s.Close()

	NewHTTPChecker(time.Second).Check(context.Background(), s.URL)
	if ua != DefaultUserAgent {
		t.Fatalf("want browser user agent, got %q", ua)
	}
	if !strings.Contains(accept, "text/html") {
		t.Fatalf("want html accept header, got %q", accept)
	}
}

func TestHTTPChecker_DebugSnippetIsLimited(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 5000)))
	}))
	defer s.Close()

	out := NewHTTPChecker(time.Second, WithDebug(16)).Check(context.Background(), s.URL)
	if len(out.Snippet) != 16 {
		t.Fatalf("want 16 byte snippet, got %d", len(out.Snippet))
	}

	plain := NewHTTPChecker(time.Second).Check(context.Background(), s.URL)
	if plain.Snippet != "" || plain.Redirected {
		t.Fatalf("non-debug checks must not capture diagnostics: %+v", plain)
	}
}

func TestHTTPChecker_DebugClassifiesDNSOnTransportError(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := s.URL
	s.Close()

	chk := NewHTTPChecker(time.Second, WithDebug(0))
	var asked string
	chk.Resolve = func(ctx context.Context, host string) DNSStatus {
		asked = host
		return DNSStatus{Domain: host, Class: DNSLiteralIPAdr}
	}
	out := chk.Check(context.Background(), target)
	if out.Success {
		t.Fatalf("closed server should be down")
	}
	if asked != "127.0.0.1" || out.DNSClass != DNSLiteralIPAdr {
		t.Fatalf("want dns class for 127.0.0.1, got host=%q class=%q", asked, out.DNSClass)
	}
}

func TestHTTPChecker_DebugSkipsDNSWhenCancelled(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := s.URL
	s.Close()

	chk := NewHTTPChecker(time.Second, WithDebug(0))
	called := false
	chk.Resolve = func(ctx context.Context, host string) DNSStatus {
		called = true
		return DNSStatus{Domain: host, Class: DNSResolves}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := chk.Check(ctx, target)
	if out.Success || out.TimedOut {
		t.Fatalf("cancelled check should be down without a timeout: %+v", out)
	}
	if called || out.DNSClass != "" {
		t.Fatalf("dns lookup ran after cancellation (class=%q)", out.DNSClass)
	}
}

func TestCheckDNS_LiteralAndInvalid(t *testing.T) {
	if s := CheckDNS(context.Background(), "10.0.0.1"); s.Class != DNSLiteralIPAdr || !s.HasAOrAAAA {
		t.Fatalf("want ip literal, got %+v", s)
	}
	for _, bad := range []string{"", "http://x", "a b"} {
		if s := CheckDNS(context.Background(), bad); s.Class != DNSInvalidName {
			t.Fatalf("%q: want invalid name, got %s", bad, s.Class)
		}
	}
}

func TestExtractHost(t *testing.T) {
	if h := extractHost("https://example.com:8443/path"); h != "example.com" {
		t.Fatalf("got %q", h)
	}
	if h := extractHost("bare-host"); h != "bare-host" {
		t.Fatalf("got %q", h)
	}
}
