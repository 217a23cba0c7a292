package harness

// Trace event types.
const (
	EventCall   = "call"
	EventChange = "change"
)

// TraceEvent is one entry of a scenario trace: either a router call with
// its outcome, or a change event the call published.
type TraceEvent struct {
	Seq       int            `json:"seq"`
	Type      string         `json:"type"`
	Op        string         `json:"op"`
	Locator   string         `json:"locator"`
	Values    map[string]any `json:"values,omitempty"`
	Columns   []string       `json:"columns,omitempty"`
	Selection string         `json:"selection,omitempty"`
	Args      []any          `json:"args,omitempty"`
	Sort      string         `json:"sort,omitempty"`
	Result    any            `json:"result,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
	Error     string         `json:"error,omitempty"`
	ChangeID  string         `json:"change_id,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if every expectation and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains every call and change event in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failed expectation and assertion messages.
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

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addEvent appends e with the next sequence number.
func (r *Result) addEvent(e TraceEvent) {
	e.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, e)
}
