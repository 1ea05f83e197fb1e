package hookresponse

import (
	"strings"

	"github.com/smykla-skalski/desgate/pkg/hook"
)

// systemMessagePrefix marks messages shown to the user.
const systemMessagePrefix = "DES: "

// Deny builds the rejection for a hook event. Tool events get a permission
// denial, stop events a top-level block.
func Deny(eventName string, cmd hook.Command, reason string) *HookResponse {
	reason = strings.TrimSpace(reason)

	if cmd == hook.CommandStop {
		return &HookResponse{
			Decision: DecisionBlock,
			Reason:   reason,
		}
	}

	return &HookResponse{
		HookSpecificOutput: &HookSpecificOutput{
			HookEventName:            eventName,
			PermissionDecision:       PermissionDeny,
			PermissionDecisionReason: reason,
		},
		SystemMessage: systemMessagePrefix + firstLine(reason),
	}
}

// Context builds a response that injects additional context into the
// conversation. Returns nil when there is nothing to inject.
func Context(eventName, text string) *HookResponse {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	return &HookResponse{
		HookSpecificOutput: &HookSpecificOutput{
			HookEventName:     eventName,
			AdditionalContext: text,
		},
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")

	return line
}
