// Package request turns raw dashboard form state into a lookup payload.
package request

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/tmater/pulse/internal/proto"
)

// Validation errors. They block submission and are never sent to the service.
var (
	ErrEmptyQuery       = errors.New("request: query is empty")
	ErrNoChecksSelected = errors.New("request: no checks selected")
	ErrUnknownCheck     = errors.New("request: unknown check")
)

// Options is the raw per-check form state. Numeric fields hold the text as
// typed, so they may be empty or not numeric at all. Options for checks that
// are not selected are kept here but never reach the payload.
type Options struct {
	Port            string
	Method          string
	FollowRedirects bool
	TimeoutMS       string
}

// DefaultOptions returns the values a fresh form starts with.
func DefaultOptions() Options {
	return Options{
		Port:            "443",
		Method:          http.MethodGet,
		FollowRedirects: true,
		TimeoutMS:       strconv.Itoa(proto.MaxTimeoutMS),
	}
}

// Build validates query and selection and returns the payload to send.
// Selection order and duplicates do not matter; the payload always lists the
// checks in canonical order. Out-of-range numbers are clamped, not rejected.
func Build(query string, selection []proto.CheckKind, opts Options) (proto.LookupRequest, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return proto.LookupRequest{}, ErrEmptyQuery
	}

	selected := make(map[proto.CheckKind]bool, len(selection))
	for _, k := range selection {
		if !k.IsValid() {
			return proto.LookupRequest{}, fmt.Errorf("%w: %q", ErrUnknownCheck, k)
		}
		selected[k] = true
	}
	if len(selected) == 0 {
		return proto.LookupRequest{}, ErrNoChecksSelected
	}

	req := proto.LookupRequest{Query: query}
	for _, k := range proto.Kinds {
		if selected[k] {
			req.Checks = append(req.Checks, k)
		}
	}

	if selected[proto.CheckTCP] {
		req.TCP = &proto.TCPOptions{
			Port: clampInt(opts.Port, 0, proto.MaxPort),
		}
	}
	if selected[proto.CheckHTTP] {
		req.HTTP = &proto.HTTPOptions{
			Method:          normalizeMethod(opts.Method),
			FollowRedirects: opts.FollowRedirects,
			TimeoutMS:       clampInt(opts.TimeoutMS, 0, proto.MaxTimeoutMS),
		}
	}
	return req, nil
}

// clampInt reads raw as a number the way a numeric form field does: blank is
// zero, anything unparsable is zero, fractions are truncated. The result is
// clamped to [lo, hi].
func clampInt(raw string, lo, hi int) int {
	f := parseNumber(raw)
	if math.IsNaN(f) {
		f = 0
	}
	f = math.Trunc(f)
	switch {
	case f < float64(lo):
		return lo
	case f > float64(hi):
		return hi
	default:
		return int(f)
	}
}

// parseNumber converts form text to a number, or NaN when the text is not
// one. Blank is zero. Accepted: decimal with optional sign, fraction and
// exponent; unsigned 0x, 0o and 0b integers; "Infinity" with optional sign.
// Words like "inf" and digit separators are not numbers.
func parseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			digits := s[2:]
			if strings.ContainsRune(digits, '_') {
				return math.NaN()
			}
			n, err := strconv.ParseUint(digits, base, 64)
			if errors.Is(err, strconv.ErrRange) {
				return math.Inf(1)
			}
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}

	if strings.IndexFunc(s, func(r rune) bool {
		return !strings.ContainsRune("0123456789.eE+-", r)
	}) != -1 {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

func normalizeMethod(m string) string {
	m = strings.ToUpper(strings.TrimSpace(m))
	if !proto.ValidHTTPMethod(m) {
		return http.MethodGet
	}
	return m
}
