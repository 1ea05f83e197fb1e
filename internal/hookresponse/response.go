// Package hookresponse builds structured JSON responses for Claude Code hooks.
package hookresponse

// Permission decisions understood by Claude Code.
const (
	PermissionAllow = "allow"
	PermissionDeny  = "deny"
)

// DecisionBlock is the top-level decision that prevents a stop.
const DecisionBlock = "block"

// HookResponse is the top-level JSON structure written to stdout.
type HookResponse struct {
	// Decision and Reason reject stop events.
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`

	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
	SystemMessage      string              `json:"systemMessage,omitempty"`
}

// HookSpecificOutput carries the permission decision and context for Claude.
type HookSpecificOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision,omitempty"`       // "allow" or "deny"
	PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"` // shown to Claude
	AdditionalContext        string `json:"additionalContext,omitempty"`
}
