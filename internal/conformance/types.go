package conformance

import (
	"sync"

	"github.com/roach88/sanctum"
)

// Step outcome values carried in step traces.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// StepTrace records the observed outcome of one scenario step.
type StepTrace struct {
	Op      string   `json:"op"`
	Target  string   `json:"target,omitempty"`
	Attr    string   `json:"attr,omitempty"`
	Outcome string   `json:"outcome"`
	Code    string   `json:"code,omitempty"`
	Error   string   `json:"error,omitempty"`
	Value   any      `json:"value,omitempty"`
	Values  []string `json:"values,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause matched.
	Pass bool `json:"pass"`

	// Steps traces each executed step in order.
	Steps []StepTrace `json:"steps"`

	// AccessLog holds every audit event the run emitted, in emission
	// order.
	AccessLog []sanctum.AccessEvent `json:"access_log"`

	// Errors lists expectation failures. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result to accumulate into.
func NewResult() *Result {
	return &Result{
		Pass:  true,
		Steps: []StepTrace{},
	}
}

// AddError records an expectation failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// collector buffers audit events in memory for the run snapshot.
type collector struct {
	mu     sync.Mutex
	events []sanctum.AccessEvent
}

func (c *collector) Record(ev sanctum.AccessEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *collector) snapshot() []sanctum.AccessEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sanctum.AccessEvent, len(c.events))
	copy(out, c.events)
	return out
}
