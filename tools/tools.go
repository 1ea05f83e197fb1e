//go:build tools

// Package tools pins the code generators behind desgate's go:generate
// directives: enumer for the hook command and arbiter action enums, and
// mockgen for the exec runner and tool checker mocks.
package tools

import (
	_ "github.com/dmarkham/enumer"
	_ "go.uber.org/mock/mockgen"
)
