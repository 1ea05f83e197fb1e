// Package hook provides the core types shared by the DES hook bridge.
package hook

//go:generate enumer -type=Command -trimprefix=Command -transform=kebab -json -text -output=command_enumer.go
//go:generate go run github.com/smykla-skalski/desgate/tools/enumerfix command_enumer.go

// Command identifies which canonical protocol variant a hook invocation uses.
// Its string form is the positional argument passed to the validator.
type Command int

const (
	// CommandUnknown represents an event that does not map to a command.
	CommandUnknown Command = iota

	// CommandPreToolUse is raised before a governed tool executes.
	CommandPreToolUse

	// CommandPostToolUse is raised after a governed tool executed.
	CommandPostToolUse

	// CommandStop is raised when an agent session or sub-task stops.
	CommandStop
)

// ParseCommand parses a canonical command string ("pre-tool-use",
// "post-tool-use" or "stop"). CommandUnknown is never returned without error.
func ParseCommand(s string) (Command, error) {
	cmd, err := CommandString(s)
	if err != nil {
		return CommandUnknown, err
	}

	if cmd == CommandUnknown {
		return CommandUnknown, ErrUnknownCommand
	}

	return cmd, nil
}

// IsToolEvent returns true for commands that carry tool identity and arguments.
func (c Command) IsToolEvent() bool {
	return c == CommandPreToolUse || c == CommandPostToolUse
}
