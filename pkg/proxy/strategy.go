//go:generate mockgen -destination=./mocks/proxy.go . Strategy,CommandRunner
package proxy

import (
	"context"
	"os/exec"
)

// Strategy discovers proxy settings from one place (environment, desktop
// settings, browser profile, OS store).
type Strategy interface {
	// Name identifies the strategy in logs and in Config.Source
	Name() string

	// Find returns the configuration found, or nil when this source has
	// nothing configured. An error means the source could not be read.
	Find(ctx context.Context) (*Config, error)
}

// CommandRunner runs a helper program and returns its standard output
type CommandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

// NewExecRunner returns a CommandRunner backed by os/exec
func NewExecRunner() CommandRunner {
	return execRunner{}
}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output() //nolint:gosec
}

// StrategyFunc adapts a function to the Strategy interface
type StrategyFunc struct {
	StrategyName string
	Fn           func(ctx context.Context) (*Config, error)
}

func (s StrategyFunc) Name() string {
	return s.StrategyName
}

func (s StrategyFunc) Find(ctx context.Context) (*Config, error) {
	return s.Fn(ctx)
}
