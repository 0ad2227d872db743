// Package dashboard holds the state of one lookup form: what is typed and
// selected, whether a run is in flight, and the last interpreted result.
package dashboard

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/tmater/pulse/internal/client"
	"github.com/tmater/pulse/internal/proto"
	"github.com/tmater/pulse/internal/request"
	"github.com/tmater/pulse/internal/result"
)

// ErrBusy is returned by Submit while an earlier run has not settled.
var ErrBusy = errors.New("dashboard: a lookup is already running")

// Transport sends a lookup and returns the raw response.
type Transport interface {
	Lookup(ctx context.Context, req proto.LookupRequest) (client.Response, error)
}

// Labels for the submit action.
const (
	LabelIdle    = "idle"
	LabelTesting = "testing"
	LabelReady   = "ready"
)

// Controller allows one outstanding lookup at a time. Query, Selection and
// Options are the form state and may be edited between runs.
type Controller struct {
	Query     string
	Selection []proto.CheckKind
	Options   request.Options

	transport Transport

	mu   sync.Mutex
	busy bool
	last *result.Interpretation
}

// New returns a Controller with every check selected and default options.
func New(t Transport) *Controller {
	return &Controller{
		Selection: append([]proto.CheckKind(nil), proto.Kinds...),
		Options:   request.DefaultOptions(),
		transport: t,
	}
}

// Submit builds the payload from the form state, sends it and interprets the
// answer. Validation errors and ErrBusy are returned without contacting the
// service. A transport failure is not an error here: it is reported through
// the returned Interpretation like any other failed run.
func (c *Controller) Submit(ctx context.Context) (result.Interpretation, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return result.Interpretation{}, ErrBusy
	}
	req, err := request.Build(c.Query, c.Selection, c.Options)
	if err != nil {
		c.mu.Unlock()
		return result.Interpretation{}, err
	}
	c.busy = true
	c.mu.Unlock()

	var in result.Interpretation
	resp, err := c.transport.Lookup(ctx, req)
	if err != nil {
		log.Printf("dashboard: lookup failed query=%q: %s", req.Query, err)
		in = result.TransportError(err)
	} else {
		in = result.Interpret(resp.Body)
		log.Printf("dashboard: lookup settled query=%q status=%d overall=%s", req.Query, resp.Status, in.Overall)
	}

	c.mu.Lock()
	c.busy = false
	c.last = &in
	c.mu.Unlock()
	return in, nil
}

// Reset drops the last result. The form state is kept.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = nil
}

// Busy reports whether a run is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Last returns the most recent interpretation, if any.
func (c *Controller) Last() (result.Interpretation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return result.Interpretation{}, false
	}
	return *c.last, true
}

// Label returns the submit action's state: testing while a run is in flight,
// ready once a result is shown, idle otherwise.
func (c *Controller) Label() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.busy:
		return LabelTesting
	case c.last != nil:
		return LabelReady
	default:
		return LabelIdle
	}
}
