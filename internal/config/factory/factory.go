// Package factory builds the hook bridge and its collaborators from configuration.
package factory

import (
	"github.com/smykla-skalski/desgate/internal/audit"
	"github.com/smykla-skalski/desgate/internal/bridge"
	"github.com/smykla-skalski/desgate/internal/codec"
	"github.com/smykla-skalski/desgate/internal/exec"
	"github.com/smykla-skalski/desgate/internal/session"
	"github.com/smykla-skalski/desgate/pkg/config"
	"github.com/smykla-skalski/desgate/pkg/logger"
)

// BridgeFactory creates bridges from configuration.
type BridgeFactory interface {
	// CreateCodec creates the codec with built-in and configured host tables.
	CreateCodec(cfg *config.Config) (*codec.Codec, error)

	// CreateAudit creates the audit recorder.
	CreateAudit(cfg *config.Config) audit.Recorder

	// CreateTracker creates the session tracker, nil when tracking is disabled.
	CreateTracker(cfg *config.Config) *session.Tracker

	// CreateBridge creates a fully wired bridge.
	CreateBridge(cfg *config.Config) (*bridge.Bridge, error)
}

// DefaultBridgeFactory is the default implementation of BridgeFactory.
type DefaultBridgeFactory struct {
	log     logger.Logger
	workDir string
	runner  exec.CommandRunner
}

// Option configures a DefaultBridgeFactory.
type Option func(*DefaultBridgeFactory)

// WithWorkDir sets the fallback working directory for stop requests.
func WithWorkDir(dir string) Option {
	return func(f *DefaultBridgeFactory) {
		f.workDir = dir
	}
}

// WithRunner replaces the validator process runner.
func WithRunner(runner exec.CommandRunner) Option {
	return func(f *DefaultBridgeFactory) {
		f.runner = runner
	}
}

// NewBridgeFactory creates a new DefaultBridgeFactory.
func NewBridgeFactory(log logger.Logger, opts ...Option) *DefaultBridgeFactory {
	f := &DefaultBridgeFactory{log: log}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateCodec creates the codec with built-in and configured host tables.
func (f *DefaultBridgeFactory) CreateCodec(cfg *config.Config) (*codec.Codec, error) {
	opts := []codec.Option{codec.WithGovernedTools(cfg.GetBridge().GetGovernedTools())}

	if f.workDir != "" {
		opts = append(opts, codec.WithWorkDir(f.workDir))
	}

	return codec.New(cfg.Hosts, opts...)
}

// CreateAudit creates the audit recorder.
func (f *DefaultBridgeFactory) CreateAudit(cfg *config.Config) audit.Recorder {
	if !cfg.GetAudit().IsEnabled() {
		return audit.Nop{}
	}

	return audit.New(cfg.GetAudit(), audit.WithLogger(f.log))
}

// CreateTracker creates the session tracker, nil when tracking is disabled.
func (f *DefaultBridgeFactory) CreateTracker(cfg *config.Config) *session.Tracker {
	if !cfg.GetSession().IsEnabled() {
		return nil
	}

	return session.NewTracker(cfg.GetSession(), session.WithLogger(f.log))
}

// CreateBridge creates a fully wired bridge.
func (f *DefaultBridgeFactory) CreateBridge(cfg *config.Config) (*bridge.Bridge, error) {
	c, err := f.CreateCodec(cfg)
	if err != nil {
		return nil, err
	}

	opts := []bridge.Option{
		bridge.WithAudit(f.CreateAudit(cfg)),
		bridge.WithTracker(f.CreateTracker(cfg)),
		bridge.WithLogger(f.log),
	}

	if f.runner != nil {
		opts = append(opts, bridge.WithRunner(f.runner))
	}

	return bridge.New(cfg, c, opts...), nil
}
