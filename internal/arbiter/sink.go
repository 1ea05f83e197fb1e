package arbiter

import (
	"context"
	"strings"
	"sync"

	"github.com/smykla-skalski/desgate/pkg/hook"
	"github.com/smykla-skalski/desgate/pkg/logger"
)

// ContextSink receives additional context the validator wants the agent to see.
type ContextSink interface {
	Add(ctx context.Context, cmd hook.Command, text string)
}

// BufferSink collects context for injection into the host conversation.
type BufferSink struct {
	mu    sync.Mutex
	parts []string
}

// NewBufferSink creates an empty BufferSink.
func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

// Add appends text.
func (s *BufferSink) Add(_ context.Context, _ hook.Command, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.parts = append(s.parts, text)
}

// Text returns everything added so far, separated by blank lines.
func (s *BufferSink) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return strings.Join(s.parts, "\n\n")
}

// LogSink logs context for hosts with no in-band channel.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

// Add logs text.
func (s *LogSink) Add(_ context.Context, cmd hook.Command, text string) {
	s.log.Info("additional context (no host channel)",
		"command", cmd.String(),
		"context", text,
	)
}
