package proto

import (
	"net/http"
	"time"
)

// CheckKind identifies what kind of check is requested or was performed.
type CheckKind string

const (
	CheckDNS  CheckKind = "dns"
	CheckTCP  CheckKind = "tcp"
	CheckHTTP CheckKind = "http"
)

// Kinds lists every check kind in canonical order. Payloads, result panels and
// error messages all follow this order.
var Kinds = []CheckKind{CheckDNS, CheckTCP, CheckHTTP}

// IsValid reports whether k is one of the known check kinds.
func (k CheckKind) IsValid() bool {
	switch k {
	case CheckDNS, CheckTCP, CheckHTTP:
		return true
	default:
		return false
	}
}

// Label is the upper-case name used in error messages, e.g. "HTTP".
func (k CheckKind) Label() string {
	switch k {
	case CheckDNS:
		return "DNS"
	case CheckTCP:
		return "TCP"
	case CheckHTTP:
		return "HTTP"
	default:
		return string(k)
	}
}

const (
	MaxPort      = 65535
	MaxTimeoutMS = 5000
)

// HTTPMethods is the closed set of methods an HTTP check may use.
var HTTPMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodPut,
}

// ValidHTTPMethod reports whether m is in HTTPMethods.
func ValidHTTPMethod(m string) bool {
	for _, v := range HTTPMethods {
		if v == m {
			return true
		}
	}
	return false
}

// LookupRequest is the body the dashboard POSTs to the lookup endpoint.
// TCP and HTTP are set only when the matching kind is in Checks.
type LookupRequest struct {
	Query  string       `json:"query"`
	Checks []CheckKind  `json:"checks"`
	TCP    *TCPOptions  `json:"tcp,omitempty"`
	HTTP   *HTTPOptions `json:"http,omitempty"`
}

// Has reports whether kind is among the requested checks.
func (r LookupRequest) Has(kind CheckKind) bool {
	for _, k := range r.Checks {
		if k == kind {
			return true
		}
	}
	return false
}

// TCPOptions configures the TCP check.
type TCPOptions struct {
	Port int `json:"port"`
}

// HTTPOptions configures the HTTP check. TimeoutMS of 0 means the service
// default applies.
type HTTPOptions struct {
	Method          string `json:"method"`
	FollowRedirects bool   `json:"follow_redirects"`
	TimeoutMS       int    `json:"timeout_ms"`
}

// Overall is the service's own summary of a lookup. Dashboards derive their
// status from the individual checks and treat this as informational.
type Overall string

const (
	Up       Overall = "UP"
	Degraded Overall = "DEGRADED"
	Down     Overall = "DOWN"
)

// LookupResponse is what the lookup endpoint returns for a successful request.
type LookupResponse struct {
	Query      string    `json:"query"`
	Normalized string    `json:"normalized"`
	Host       string    `json:"host"`
	Timestamp  time.Time `json:"timestamp"`
	Overall    Overall   `json:"overall,omitempty"`

	DNS  DNSResult  `json:"dns"`
	TCP  TCPResult  `json:"tcp"`
	HTTP HTTPResult `json:"http"`
}

// DNSResult is the outcome of the DNS check, with addresses split by family.
type DNSResult struct {
	Attempted bool     `json:"attempted"`
	OK        bool     `json:"ok"`
	MS        int      `json:"ms"`
	A         []string `json:"a,omitempty"`
	AAAA      []string `json:"aaaa,omitempty"`
	Error     *ErrInfo `json:"error,omitempty"`
}

// TCPResult is the outcome of the TCP check.
type TCPResult struct {
	Attempted bool     `json:"attempted"`
	OK        bool     `json:"ok"`
	MS        int      `json:"ms"`
	Port      int      `json:"port,omitempty"`
	Error     *ErrInfo `json:"error,omitempty"`
}

// HTTPResult is the outcome of the HTTP check. FinalURL is the URL after
// any redirects that were followed.
type HTTPResult struct {
	Attempted bool     `json:"attempted"`
	OK        bool     `json:"ok"`
	MS        int      `json:"ms"`
	Status    int      `json:"status,omitempty"`
	FinalURL  string   `json:"final_url,omitempty"`
	Error     *ErrInfo `json:"error,omitempty"`
}

// Outcome is the attempted/ok pair every check result exposes.
type Outcome struct {
	Attempted bool
	OK        bool
}

func (r DNSResult) Outcome() Outcome  { return Outcome{r.Attempted, r.OK && r.Error == nil} }
func (r TCPResult) Outcome() Outcome  { return Outcome{r.Attempted, r.OK && r.Error == nil} }
func (r HTTPResult) Outcome() Outcome { return Outcome{r.Attempted, r.OK && r.Error == nil} }

// ErrType classifies a check failure, e.g. "Timeout" or "ConnectFailed".
type ErrType string

const (
	ErrInvalidTarget ErrType = "InvalidTarget"
	ErrInvalidMethod ErrType = "InvalidMethod"
	ErrResolveFailed ErrType = "ResolveFailed"
	ErrNoAddresses   ErrType = "NoAddresses"
	ErrConnectFailed ErrType = "ConnectFailed"
	ErrRequestFailed ErrType = "RequestFailed"
	ErrTimeout       ErrType = "Timeout"
)

// ErrInfo describes why a check failed. On the wire it is an object with
// exactly the string members "type" and "message".
type ErrInfo struct {
	Type    ErrType `json:"type"`
	Message string  `json:"message"`
}

// APIError is the body returned when the request itself is rejected.
type APIError struct {
	Error string `json:"error"`
}
