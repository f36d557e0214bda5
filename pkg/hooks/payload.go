package hooks

// BasePayload carries the fields common to every hook invocation.
type BasePayload struct {
	Event    HookType `json:"event"`
	RunID    string   `json:"run_id"`
	Workflow string   `json:"workflow"`
	CWD      string   `json:"cwd"`
}

// GatePayload is sent to gate hooks before a risky step executes.
type GatePayload struct {
	BasePayload
	Capability string `json:"capability"`
	Risk       string `json:"risk"`
	Payload    string `json:"payload"` // rendered invocation, matched by pattern gates
}

// StepPayload is sent to pre_step and post_step hooks.
type StepPayload struct {
	BasePayload
	Capability string `json:"capability"`
	Risk       string `json:"risk"`
	Outcome    string `json:"outcome,omitempty"` // post_step only
}

// RunEndPayload is sent to run_end hooks after a workflow finishes.
type RunEndPayload struct {
	BasePayload
	Outcome string `json:"outcome"`
	Steps   int    `json:"steps"`
}

// Decision is the verdict of a gate evaluation.
type Decision struct {
	Allowed bool
	Reason  string
	// Gate identifies the hook or rule that produced the verdict.
	Gate string
}

// Allow is the default open verdict.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Block produces a closed verdict with the given reason.
func Block(gate, reason string) Decision {
	return Decision{Allowed: false, Gate: gate, Reason: reason}
}
