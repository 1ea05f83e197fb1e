package hook

import "strings"

// Kind is the outcome class of a validator invocation.
type Kind int

const (
	// KindAllow lets the host continue.
	KindAllow Kind = iota

	// KindBlock is a deliberate policy rejection.
	KindBlock

	// KindError is a validator failure or a fail-closed judgement.
	KindError
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindAllow:
		return "allow"
	case KindBlock:
		return "block"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Structured decision values a validator may print.
const (
	ResponseDecisionAllow = "allow"
	ResponseDecisionBlock = "block"
	ResponseStatusError   = "error"
)

// Outcome is what one validator process produced.
type Outcome struct {
	// ExitStatus is the process exit code, -1 when the process was killed.
	ExitStatus int

	// Output is everything written to standard output.
	Output string

	// ErrorText is everything written to standard error.
	ErrorText string
}

// Response is the structured body a validator prints on standard output.
// Every field is optional.
type Response struct {
	Decision          string `json:"decision,omitempty"`
	Status            string `json:"status,omitempty"`
	Reason            string `json:"reason,omitempty"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// IsEmpty returns true when no field was set.
func (r Response) IsEmpty() bool {
	return r == Response{}
}

// Decision is the single judgement derived from one invocation.
type Decision struct {
	Kind Kind

	// Reason is the user-visible message for Block and Error.
	Reason string

	// AdditionalContext is passed through on Allow.
	AdditionalContext string

	// Response is the parsed validator body the decision was derived from.
	Response Response
}

// Allow returns an Allow decision.
func Allow(resp Response) Decision {
	return Decision{
		Kind:              KindAllow,
		AdditionalContext: strings.TrimSpace(resp.AdditionalContext),
		Response:          resp,
	}
}

// Block returns a Block decision with the given reason.
func Block(reason string, resp Response) Decision {
	return Decision{Kind: KindBlock, Reason: reason, Response: resp}
}

// Error returns an Error decision with the given reason.
func Error(reason string, resp Response) Decision {
	return Decision{Kind: KindError, Reason: reason, Response: resp}
}
