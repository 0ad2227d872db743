package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/idna"
	"golang.org/x/sync/errgroup"

	"github.com/tmater/pulse/internal/check"
	"github.com/tmater/pulse/internal/overall"
	"github.com/tmater/pulse/internal/proto"
)

// handleLookup runs the requested checks against the query and returns every
// result in one response.
func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	id := requestID(r)
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes)

	var req proto.LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("server: failed to decode lookup request_id=%s: %s", id, err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "request body is in an unreadable form")
		return
	}

	if err := validateRequest(req); err != nil {
		log.Printf("server: rejected lookup request_id=%s: %s", id, err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := normalize(req.Query)
	if err != nil {
		log.Printf("server: rejected lookup request_id=%s query=%q: %s", id, req.Query, err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid url: %s", err))
		return
	}

	log.Printf("server: lookup request_id=%s url=%s checks=%v", id, t.url, req.Checks)
	resp := h.lookup(r.Context(), req, t)
	log.Printf("server: lookup done request_id=%s overall=%s", id, resp.Overall)

	writeJSON(w, http.StatusOK, resp)
}

// validateRequest rejects what the checks cannot run with. Option ranges are
// enforced here too; clients clamp, but the service does not rely on it.
func validateRequest(req proto.LookupRequest) error {
	if len(req.Checks) == 0 {
		return errors.New("no checks requested")
	}
	for _, kind := range req.Checks {
		if !kind.IsValid() {
			return fmt.Errorf("invalid check: %q", kind)
		}
	}

	if req.Has(proto.CheckTCP) {
		if req.TCP == nil {
			return errors.New("missing tcp options")
		}
		if req.TCP.Port < 0 || req.TCP.Port > proto.MaxPort {
			return fmt.Errorf("tcp port out of range: %d", req.TCP.Port)
		}
	}

	if req.Has(proto.CheckHTTP) {
		if req.HTTP == nil {
			return errors.New("missing http options")
		}
		if !proto.ValidHTTPMethod(req.HTTP.Method) {
			return fmt.Errorf("invalid http method: %q", req.HTTP.Method)
		}
		if req.HTTP.TimeoutMS < 0 || req.HTTP.TimeoutMS > proto.MaxTimeoutMS {
			return fmt.Errorf("http timeout_ms out of range: %d", req.HTTP.TimeoutMS)
		}
	}
	return nil
}

// lookup runs each requested check once, concurrently, each under its own
// timeout. Unrequested checks stay at their zero value: not attempted.
func (h *Handler) lookup(ctx context.Context, req proto.LookupRequest, t target) proto.LookupResponse {
	resp := proto.LookupResponse{
		Query:      req.Query,
		Normalized: t.url,
		Host:       t.authority,
		Timestamp:  time.Now().UTC(),
	}

	var g errgroup.Group
	if req.Has(proto.CheckDNS) {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, h.config.Timeouts.DNS)
			defer cancel()
			resp.DNS = check.DNS(ctx, h.resolver, t.hostname)
			return nil
		})
	}
	if req.Has(proto.CheckTCP) {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, h.config.Timeouts.TCP)
			defer cancel()
			resp.TCP = check.TCP(ctx, t.hostname, req.TCP.Port)
			return nil
		})
	}
	if req.Has(proto.CheckHTTP) {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, h.config.Timeouts.HTTP)
			defer cancel()
			resp.HTTP = check.HTTP(ctx, t.url, *req.HTTP)
			return nil
		})
	}
	g.Wait()

	resp.Overall = overall.Evaluate(resp.DNS.Outcome(), resp.TCP.Outcome(), resp.HTTP.Outcome())
	return resp
}

// hostProfile maps hostnames for lookup without the STD3 rules, so labels
// such as "_dmarc" or "my_host" pass as they do with the system resolver.
var hostProfile = idna.New(idna.MapForLookup(), idna.StrictDomainName(false))

// target is a query resolved into the forms the checks need.
type target struct {
	url       string // full URL for the HTTP check
	authority string // host[:port] as it appears in the URL
	hostname  string // bare host for DNS and TCP
}

// normalize turns a user query such as "Example.com/path/" into a URL. A
// missing scheme defaults to https, the host is lower-cased and IDNA-encoded,
// and trailing slashes are dropped from the path.
func normalize(query string) (target, error) {
	raw := strings.TrimSpace(query)
	if raw == "" {
		return target{}, errors.New("empty query")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return target{}, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return target{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return target{}, errors.New("missing host")
	}

	if net.ParseIP(hostname) == nil {
		hostname, err = hostProfile.ToASCII(hostname)
		if err != nil {
			return target{}, fmt.Errorf("invalid host: %w", err)
		}
	}

	host := hostname
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" {
		host = net.JoinHostPort(hostname, port)
	}
	u.Host = host
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")

	return target{url: u.String(), authority: u.Host, hostname: hostname}, nil
}
