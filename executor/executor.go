// Package executor runs external programs and captures their output.
//
// Every invocation is a single blocking call: there is no retry logic here,
// callers decide what a failed command means. Environment overrides are
// applied to the child process only and never leak into the parent.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"
)

// Result holds the output and error from a command execution
type Result struct {
	Program  string
	Args     []string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	Err      error
}

// Executor defines the interface for command execution
type Executor interface {
	// Execute runs a command with the given options
	Execute(ctx context.Context, opts ...Option) (*Result, error)
}

// CommandExecutor implements the Executor interface
type CommandExecutor struct {
	program string
	args    []string
	options *Options
}

// Options configures command execution behavior
type Options struct {
	// Working directory
	WorkingDir string

	// Environment variables (appended to current env)
	Env map[string]string
}

// Option is a function that modifies Options
type Option func(*Options)

// DefaultOptions returns default execution options
func DefaultOptions() *Options {
	return &Options{
		Env: make(map[string]string),
	}
}

// New creates a new CommandExecutor
func New(program string, args ...string) *CommandExecutor {
	return &CommandExecutor{
		program: program,
		args:    args,
		options: DefaultOptions(),
	}
}

// NewWrappedExecutor creates an executor for a specific program
func NewWrappedExecutor(program string) *WrappedExecutor {
	return &WrappedExecutor{
		program: program,
		options: DefaultOptions(),
	}
}

// WrappedExecutor provides a clean interface for a specific program
type WrappedExecutor struct {
	program string
	options *Options
}

// Command creates a new executor for the wrapped program with specific arguments
func (w *WrappedExecutor) Command(args ...string) *CommandExecutor {
	return &CommandExecutor{
		program: w.program,
		args:    args,
		options: w.options,
	}
}

// Execute runs the command with the wrapped program
func (w *WrappedExecutor) Execute(
	ctx context.Context,
	args []string,
	opts ...Option,
) (*Result, error) {
	result, err := w.Command(args...).Execute(ctx, opts...)
	if err != nil {
		return result, fmt.Errorf("failed to execute command with args %v: %w", args, err)
	}
	return result, nil
}

// Execute implements the Executor interface
func (c *CommandExecutor) Execute(ctx context.Context, opts ...Option) (*Result, error) {
	options := c.mergeOptions(opts...)

	cmd := exec.CommandContext(ctx, c.program, c.args...)
	c.setupCommand(cmd, options)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	start := time.Now()
	err := cmd.Run()

	result := &Result{
		Program:  c.program,
		Args:     append([]string(nil), c.args...),
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: time.Since(start),
		Err:      err,
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
	}

	if err != nil {
		return result, fmt.Errorf("command execution failed: %w", err)
	}
	return result, nil
}

// setupCommand configures the exec.Cmd with working directory and environment
func (c *CommandExecutor) setupCommand(cmd *exec.Cmd, options *Options) {
	if options.WorkingDir != "" {
		cmd.Dir = options.WorkingDir
	}

	if len(options.Env) > 0 {
		keys := make([]string, 0, len(options.Env))
		for k := range options.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		cmd.Env = os.Environ()
		for _, k := range keys {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, options.Env[k]))
		}
	}
}

func (c *CommandExecutor) mergeOptions(opts ...Option) *Options {
	// Copy base options; the env map is cloned so per-call overrides never
	// write back into a shared executor.
	merged := *c.options
	merged.Env = make(map[string]string, len(c.options.Env))
	for k, v := range c.options.Env {
		merged.Env[k] = v
	}

	for _, opt := range opts {
		opt(&merged)
	}

	return &merged
}

// WithWorkingDir sets the working directory
func WithWorkingDir(dir string) Option {
	return func(o *Options) {
		o.WorkingDir = dir
	}
}

// WithEnv adds environment variables
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithEnvVar adds a single environment variable
func WithEnvVar(key, value string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		o.Env[key] = value
	}
}
