package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/aretw0/stagegate/pkg/domain"
)

// EnvPrefix prefixes every variable handed to a provider process.
const EnvPrefix = "STAGEGATE_"

// Executor carries out mandated actions by running local provider commands.
// Only registered commands run (allow-listing); collected travel data reaches
// the process as environment variables, never as command-line flags.
type Executor struct {
	registry map[domain.ActionType]ProviderConfig
	baseDir  string
}

// ExecutorOption configures the executor.
type ExecutorOption func(*Executor)

// WithProviders populates the allow-list from a loaded config.
func WithProviders(providers map[domain.ActionType]ProviderConfig) ExecutorOption {
	return func(e *Executor) {
		for _, p := range providers {
			e.registry[p.Action] = p
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) ExecutorOption {
	return func(e *Executor) {
		e.baseDir = dir
	}
}

// NewExecutor creates a new process Executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{registry: make(map[domain.ActionType]ProviderConfig)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds a trusted command for action to the allow-list.
func (e *Executor) Register(action domain.ActionType, command string, args ...string) {
	e.registry[action] = ProviderConfig{Action: action, Command: command, Args: args}
}

// Len returns the number of registered providers.
func (e *Executor) Len() int {
	return len(e.registry)
}

// Execute runs the provider registered for action. The process reads the
// travel data from STAGEGATE_* variables and prints its results as JSON,
// either {"count": n, "data": ...} or a bare array whose length is the count.
// Failures of the process are reported in the status, not as an error;
// the error return is reserved for actions that cannot be attempted at all.
func (e *Executor) Execute(ctx context.Context, data domain.TravelData, action domain.ActionType) (domain.ExecutionStatus, error) {
	status := domain.ExecutionStatus{ActionType: action}
	if !action.Executes() {
		return status, fmt.Errorf("%q is not an executable action", action)
	}
	p, ok := e.registry[action]
	if !ok {
		return status, fmt.Errorf("no provider registered for %s", action)
	}

	cmd := exec.CommandContext(ctx, p.Command, p.Args...)
	cmd.Dir = e.baseDir
	cmd.Env = append(cmd.Environ(), environment(p, data, action)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		status.Error = fmt.Sprintf("execution failed: %v. Stderr: %s", err, strings.TrimSpace(stderr.String()))
		return status, nil
	}

	results, err := parseResults(stdout.Bytes())
	if err != nil {
		status.Error = err.Error()
		return status, nil
	}
	status.ActionExecuted = true
	status.Results = results
	return status, nil
}

func environment(p ProviderConfig, data domain.TravelData, action domain.ActionType) []string {
	env := []string{
		EnvPrefix + "ACTION=" + string(action),
		EnvPrefix + "LANGUAGE=" + string(data.Language),
	}
	for _, name := range data.Names() {
		env = append(env, fmt.Sprintf("%sSLOT_%s=%s", EnvPrefix, strings.ToUpper(string(name)), data.Value(name)))
	}
	for k, v := range p.Environment {
		env = append(env, k+"="+v)
	}
	return env
}

func parseResults(out []byte) (*domain.SearchResults, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return &domain.SearchResults{}, nil
	}

	switch trimmed[0] {
	case '[':
		var items []any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("invalid provider output: %w", err)
		}
		return &domain.SearchResults{Count: len(items), Data: items}, nil
	case '{':
		var results domain.SearchResults
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, fmt.Errorf("invalid provider output: %w", err)
		}
		return &results, nil
	}
	return nil, fmt.Errorf("invalid provider output: expected JSON, got %q", truncate(string(trimmed), 64))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
