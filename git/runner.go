package git

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/executor"
)

// IndexEnv is the environment variable that points git at an alternate index file.
const IndexEnv = "GIT_INDEX_FILE"

// Code is the normalized result of one git invocation.
type Code int

const (
	// CodeOK means the command exited with status 0.
	CodeOK Code = iota

	// CodeFalse means a predicate command answered "no" (exit status 1 with
	// no conflict or rejection marker), e.g. diff --quiet or merge-base --is-ancestor.
	CodeFalse

	// CodeRejected means the remote or git refused a non-fast-forward update.
	CodeRejected

	// CodeConflict means a merge, cherry-pick or merge-tree reported conflicts.
	CodeConflict

	// CodeFailed covers every other failure, including a process that never started.
	CodeFailed
)

// String returns a lowercase name for the code.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeFalse:
		return "false"
	case CodeRejected:
		return "rejected"
	case CodeConflict:
		return "conflict"
	case CodeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// rejectionMarkers are substrings git prints when it refuses a non-fast-forward update.
var rejectionMarkers = []string{
	"non-fast-forward",
	"[rejected]",
	"fetch first",
	"Not possible to fast-forward",
	"Diverging branches",
}

const conflictMarker = "CONFLICT"

// Invocation describes one git process.
type Invocation struct {
	// Dir is the working directory of the process (the repository root).
	Dir string

	// Index selects an isolated index. Nil means the repository's real index.
	Index *Index

	// Args are the git arguments, without the program name.
	Args []string
}

// Result is the captured, normalized outcome of one invocation.
type Result struct {
	// Op is the git subcommand, e.g. "push".
	Op string

	Args      []string
	Succeeded bool
	Code      Code

	// ExitCode is -1 when the process could not be started.
	ExitCode int

	Stdout string
	Stderr string

	// Err is the start or wait error, if any.
	Err error
}

// Output returns stdout with surrounding whitespace removed.
func (r Result) Output() string {
	return strings.TrimSpace(r.Stdout)
}

// Detail returns a one-line description of a failed invocation for outcome reports.
func (r Result) Detail() string {
	if line := FirstLine(r.Stderr); line != "" {
		return line
	}
	if line := FirstLine(r.Stdout); line != "" {
		return line
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return "git " + r.Op + " failed"
}

// Failure converts a failed invocation into a coded error. The git detail
// becomes the cause; op and exit status are attached as context.
func (r Result) Failure(code errors.Code, message string) *errors.Error {
	return errors.WrapWithContext(stderrors.New(r.Detail()), code, message, map[string]interface{}{
		"op":   r.Op,
		"exit": r.ExitCode,
		"code": r.Code.String(),
	})
}

// Runner executes git invocations. Implementations never retry.
type Runner interface {
	Run(ctx context.Context, inv Invocation) Result
}

// CLI runs the git binary through an executor.
type CLI struct {
	exec   *executor.WrappedExecutor
	logger zerolog.Logger
}

// CLIOption configures a CLI.
type CLIOption func(*CLI)

// WithProgram overrides the git binary, e.g. an absolute path.
func WithProgram(program string) CLIOption {
	return func(c *CLI) {
		c.exec = executor.NewWrappedExecutor(program)
	}
}

// WithLogger sets the logger used for per-invocation debug events.
func WithLogger(logger zerolog.Logger) CLIOption {
	return func(c *CLI) {
		c.logger = logger
	}
}

// NewCLI returns a Runner backed by the git found on PATH.
func NewCLI(opts ...CLIOption) *CLI {
	c := &CLI{
		exec:   executor.NewWrappedExecutor("git"),
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the invocation. An isolated index is passed to the child
// through IndexEnv and never through the parent environment.
func (c *CLI) Run(ctx context.Context, inv Invocation) Result {
	res := Result{
		Args:     append([]string(nil), inv.Args...),
		ExitCode: -1,
	}
	if len(inv.Args) > 0 {
		res.Op = inv.Args[0]
	}

	opts := []executor.Option{executor.WithWorkingDir(inv.Dir)}
	if inv.Index != nil {
		path := inv.Index.Path()
		if path == "" {
			res.Code = CodeFailed
			res.Err = ErrIndexClosed
			return res
		}
		opts = append(opts, executor.WithEnvVar(IndexEnv, path))
	}

	started := time.Now()
	out, err := c.exec.Execute(ctx, inv.Args, opts...)
	if out != nil {
		res.Stdout = out.Stdout
		res.Stderr = out.Stderr
		res.ExitCode = out.ExitCode
	}
	res.Err = err
	res.Code = Classify(res.ExitCode, res.Stdout, res.Stderr)
	res.Succeeded = res.Code == CodeOK

	c.logger.Debug().
		Str("dir", inv.Dir).
		Strs("args", inv.Args).
		Bool("isolated_index", inv.Index != nil).
		Int("exit", res.ExitCode).
		Stringer("code", res.Code).
		Dur("took", time.Since(started)).
		Msg("git")

	return res
}

// Classify maps an exit status and captured output to a Code.
// A negative exit code means the process never started.
func Classify(exitCode int, stdout, stderr string) Code {
	switch {
	case exitCode == 0:
		return CodeOK
	case exitCode < 0:
		return CodeFailed
	}

	combined := stdout + "\n" + stderr
	for _, marker := range rejectionMarkers {
		if strings.Contains(combined, marker) {
			return CodeRejected
		}
	}
	if strings.Contains(combined, conflictMarker) {
		return CodeConflict
	}
	if exitCode == 1 {
		return CodeFalse
	}
	return CodeFailed
}
