package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tmater/pulse/internal/config"
	"github.com/tmater/pulse/internal/proto"
	"github.com/tmater/pulse/internal/result"
)

type stubResolver struct {
	addrs []string
	err   error
}

func (s stubResolver) LookupHost(context.Context, string) ([]string, error) {
	return s.addrs, s.err
}

func newTestServer(t *testing.T, cfg *config.ServerConfig, resolver stubResolver) *httptest.Server {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	srv := httptest.NewServer(New(cfg, resolver).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postLookup(t *testing.T, srv *httptest.Server, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/lookup", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/lookup: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func TestLookup_AllChecks(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer target.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	srv := newTestServer(t, nil, stubResolver{})

	body := fmt.Sprintf(`{"query":%q,"checks":["http","tcp","dns"],"tcp":{"port":%d},"http":{"method":"GET","follow_redirects":true,"timeout_ms":2000}}`,
		target.URL, port)

	resp, raw := postLookup(t, srv, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", resp.StatusCode, raw)
	}

	var got proto.LookupResponse
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Normalized != target.URL {
		t.Errorf("normalized = %q, want %q", got.Normalized, target.URL)
	}
	// The target is an IP literal, so DNS is skipped rather than failed.
	if got.DNS.Attempted || got.DNS.Error == nil || got.DNS.Error.Type != proto.ErrInvalidTarget {
		t.Errorf("dns = %+v, want not attempted with InvalidTarget", got.DNS)
	}
	if !got.TCP.OK || got.TCP.Port != port {
		t.Errorf("tcp = %+v, want ok on port %d", got.TCP, port)
	}
	if !got.HTTP.OK || got.HTTP.Status != http.StatusNoContent {
		t.Errorf("http = %+v, want ok with status 204", got.HTTP)
	}
	if got.Overall != proto.Up {
		t.Errorf("overall = %q, want %q", got.Overall, proto.Up)
	}

	in := result.Interpret(raw)
	if in.Overall != result.OK {
		t.Errorf("interpreted overall = %q, want ok (errors %v)", in.Overall, in.Errors)
	}
	if in.Panel(proto.CheckDNS).State() != result.Neutral {
		t.Errorf("dns panel = %q, want neutral", in.Panel(proto.CheckDNS).State())
	}
}

func TestLookup_DNS(t *testing.T) {
	srv := newTestServer(t, nil, stubResolver{addrs: []string{"192.0.2.1", "2001:db8::1"}})

	resp, raw := postLookup(t, srv, `{"query":"Example.com","checks":["dns"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", resp.StatusCode, raw)
	}

	var got proto.LookupResponse
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Host != "example.com" {
		t.Errorf("host = %q, want example.com", got.Host)
	}
	if diff := cmp.Diff([]string{"192.0.2.1"}, got.DNS.A); diff != "" {
		t.Errorf("dns a mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2001:db8::1"}, got.DNS.AAAA); diff != "" {
		t.Errorf("dns aaaa mismatch (-want +got):\n%s", diff)
	}
	if got.Overall != proto.Up {
		t.Errorf("overall = %q, want %q", got.Overall, proto.Up)
	}
}

func TestLookup_OnlyRequestedChecksRun(t *testing.T) {
	srv := newTestServer(t, nil, stubResolver{err: errors.New("nxdomain")})

	resp, raw := postLookup(t, srv, `{"query":"example.invalid","checks":["dns"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", resp.StatusCode, raw)
	}

	var got proto.LookupResponse
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.TCP.Attempted || got.HTTP.Attempted {
		t.Errorf("unrequested checks ran: tcp=%+v http=%+v", got.TCP, got.HTTP)
	}
	if got.DNS.Error == nil || got.DNS.Error.Type != proto.ErrResolveFailed {
		t.Errorf("dns error = %+v, want ResolveFailed", got.DNS.Error)
	}
	if got.Overall != proto.Down {
		t.Errorf("overall = %q, want %q", got.Overall, proto.Down)
	}

	in := result.Interpret(raw)
	if diff := cmp.Diff([]string{"DNS: ResolveFailed - unable to look up dns"}, in.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestLookup_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"not json", `checks=dns`, "request body is in an unreadable form"},
		{"no checks", `{"query":"example.com","checks":[]}`, "no checks requested"},
		{"unknown check", `{"query":"example.com","checks":["icmp"]}`, `invalid check: "icmp"`},
		{"missing tcp options", `{"query":"example.com","checks":["tcp"]}`, "missing tcp options"},
		{"port out of range", `{"query":"example.com","checks":["tcp"],"tcp":{"port":70000}}`, "tcp port out of range: 70000"},
		{"missing http options", `{"query":"example.com","checks":["http"]}`, "missing http options"},
		{"bad method", `{"query":"example.com","checks":["http"],"http":{"method":"TRACE"}}`, `invalid http method: "TRACE"`},
		{"timeout out of range", `{"query":"example.com","checks":["http"],"http":{"method":"GET","timeout_ms":9000}}`, "http timeout_ms out of range: 9000"},
		{"empty query", `{"query":"  ","checks":["dns"]}`, "invalid url: empty query"},
		{"bad scheme", `{"query":"ftp://example.com","checks":["dns"]}`, `invalid url: unsupported scheme "ftp"`},
	}

	srv := newTestServer(t, nil, stubResolver{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := postLookup(t, srv, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			var apiErr proto.APIError
			if err := json.Unmarshal(raw, &apiErr); err != nil {
				t.Fatalf("decode error body %q: %v", raw, err)
			}
			if apiErr.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", apiErr.Error, tt.wantErr)
			}

			in := result.Interpret(raw)
			if in.Overall != result.Fail || len(in.Errors) != 1 || in.Errors[0] != tt.wantErr {
				t.Errorf("interpretation = %+v, want request-level failure %q", in, tt.wantErr)
			}
		})
	}
}

func TestLookup_BodyTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.MaxBodyBytes = 16
	srv := newTestServer(t, cfg, stubResolver{})

	resp, _ := postLookup(t, srv, `{"query":"example.com","checks":["dns"]}`)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
}

func TestLookup_RateLimited(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.Requests = 1
	srv := newTestServer(t, cfg, stubResolver{addrs: []string{"192.0.2.1"}})

	body := `{"query":"example.com","checks":["dns"]}`
	if resp, raw := postLookup(t, srv, body); resp.StatusCode != http.StatusOK {
		t.Fatalf("first status = %d, want 200 (body %s)", resp.StatusCode, raw)
	}
	resp, raw := postLookup(t, srv, body)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", resp.StatusCode)
	}
	if in := result.Interpret(raw); len(in.Errors) != 1 || in.Errors[0] != "too many requests" {
		t.Errorf("errors = %v, want [too many requests]", in.Errors)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := config.Default()
	cfg.AllowedOrigin = "https://dash.example.com"
	srv := newTestServer(t, cfg, stubResolver{})

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/lookup", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != cfg.AllowedOrigin {
		t.Errorf("allow origin = %q, want %q", got, cfg.AllowedOrigin)
	}
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t, nil, stubResolver{})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(headerRequestID); got != "abc-123" {
		t.Errorf("echoed request id = %q, want abc-123", got)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get(headerRequestID); len(got) != 36 {
		t.Errorf("generated request id = %q, want a uuid", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		query    string
		url      string
		hostname string
		wantErr  bool
	}{
		{query: "example.com", url: "https://example.com", hostname: "example.com"},
		{query: "  Example.COM/Path/ ", url: "https://example.com/Path", hostname: "example.com"},
		{query: "http://example.com:8080/", url: "http://example.com:8080", hostname: "example.com"},
		{query: "bücher.example", url: "https://xn--bcher-kva.example", hostname: "xn--bcher-kva.example"},
		{query: "my_host.example.com", url: "https://my_host.example.com", hostname: "my_host.example.com"},
		{query: "_dmarc.example.com", url: "https://_dmarc.example.com", hostname: "_dmarc.example.com"},
		{query: "192.0.2.7", url: "https://192.0.2.7", hostname: "192.0.2.7"},
		{query: "http://[2001:db8::1]:81/x", url: "http://[2001:db8::1]:81/x", hostname: "2001:db8::1"},
		{query: "https://", wantErr: true},
		{query: "ftp://example.com", wantErr: true},
		{query: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := normalize(tt.query)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("normalize(%q) = %+v, want error", tt.query, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalize(%q): %v", tt.query, err)
			}
			if got.url != tt.url || got.hostname != tt.hostname {
				t.Errorf("normalize(%q) = %+v, want url=%q hostname=%q", tt.query, got, tt.url, tt.hostname)
			}
		})
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	now := time.Now()

	if !rl.allow("10.0.0.1", now) || !rl.allow("10.0.0.1", now) {
		t.Fatal("expected first two requests to be allowed")
	}
	if rl.allow("10.0.0.1", now) {
		t.Fatal("expected third request in window to be rejected")
	}
	if !rl.allow("10.0.0.2", now) {
		t.Error("expected a different IP to be allowed")
	}
	if !rl.allow("10.0.0.1", now.Add(2*time.Minute)) {
		t.Error("expected request after window to be allowed")
	}
}
