package result

import "github.com/tmater/pulse/internal/proto"

// Status is the tri-state shown for each panel and for the lookup as a whole.
type Status string

const (
	Neutral Status = "neutral"
	OK      Status = "ok"
	Fail    Status = "fail"
)

// CheckResult is one check's outcome: NotAttempted, Succeeded or Failed.
type CheckResult interface {
	status() Status
}

// NotAttempted means the check was not requested or did not run.
type NotAttempted struct{}

// Succeeded means the check ran and passed.
type Succeeded struct {
	Fields []Field
}

// Failed means the check ran and failed. Err is always set, falling back to
// type "Error" when the service gave no detail.
type Failed struct {
	Err    proto.ErrInfo
	Fields []Field
}

func (NotAttempted) status() Status { return Neutral }
func (Succeeded) status() Status    { return OK }
func (Failed) status() Status       { return Fail }

// Field is one informational key/value pair of a check, rendered as text.
// IsError marks values that carry an error, which are shown as such even
// inside a passing check.
type Field struct {
	Key     string
	Text    string
	IsError bool
}

// Panel is the rendering unit for one check.
type Panel struct {
	Kind   proto.CheckKind
	Result CheckResult
}

// State returns the panel's tri-state.
func (p Panel) State() Status {
	if p.Result == nil {
		return Neutral
	}
	return p.Result.status()
}

// Fields returns the informational fields of an attempted check, or nil.
func (p Panel) Fields() []Field {
	switch r := p.Result.(type) {
	case Succeeded:
		return r.Fields
	case Failed:
		return r.Fields
	default:
		return nil
	}
}

// Interpretation is everything a dashboard needs to render one response.
type Interpretation struct {
	Query   string
	Overall Status
	// Panels holds one entry per check kind, in canonical order.
	Panels []Panel
	// Errors is the alert text, one line per failure. Empty means no alert.
	Errors []string
}

// Panel returns the panel for kind. Unknown kinds yield a neutral panel.
func (in Interpretation) Panel(kind proto.CheckKind) Panel {
	for _, p := range in.Panels {
		if p.Kind == kind {
			return p
		}
	}
	return Panel{Kind: kind, Result: NotAttempted{}}
}
