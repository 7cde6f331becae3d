package harness

import (
	"github.com/roach88/guardvault/internal/ir"
)

// Trace phases.
const (
	PhaseSetup = "setup"
	PhaseFlow  = "flow"
)

// TraceEvent is one journaled call of a scenario.
type TraceEvent struct {
	Phase     string      `json:"phase"`
	Step      int         `json:"step"`
	Action    string      `json:"action"`
	Sender    string      `json:"sender"`
	BlockTime int64       `json:"block_time"`
	Seq       int64       `json:"seq"`
	Case      string      `json:"case"`
	Result    ir.IRObject `json:"result,omitempty"`
	Signals   []ir.Signal `json:"signals,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held and the
	// journal replayed cleanly.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors explains each failure. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Signals returns every emitted signal in seq order.
func (r *Result) Signals() []ir.Signal {
	var out []ir.Signal
	for _, ev := range r.Trace {
		out = append(out, ev.Signals...)
	}
	return out
}
