package harness

// Outcome of a step that returned no error.
const OutcomeOK = "ok"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Op      string `json:"op"`
	Entity  string `json:"entity,omitempty"`
	ID      int64  `json:"id,omitempty"`
	Outcome string `json:"outcome"` // "ok" or a catalog error code

	// Count and IDs are set for queries.
	Count *int    `json:"count,omitempty"`
	IDs   []int64 `json:"ids,omitempty"`

	// Data is set for dataset reads.
	Data []float64 `json:"data,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains one event per setup and flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failed expectations and assertions.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event and assigns its sequence number.
func (r *Result) AddTrace(event TraceEvent) TraceEvent {
	event.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, event)
	return event
}
