// Package gittest provides a scripted git.Runner for unit tests.
package gittest

import (
	"context"
	"strings"
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/git"
)

// Call records one invocation seen by a Fake.
type Call struct {
	Dir      string
	Isolated bool
	Args     []string
}

// Line returns the arguments joined by spaces.
func (c Call) Line() string {
	return strings.Join(c.Args, " ")
}

// Response is a scripted result.
type Response struct {
	Code   git.Code
	Stdout string
	Stderr string
}

// OK returns a successful response with the given stdout.
func OK(stdout string) Response {
	return Response{Code: git.CodeOK, Stdout: stdout}
}

// False returns a predicate "no" response.
func False() Response {
	return Response{Code: git.CodeFalse}
}

// Rejected returns a non-fast-forward refusal.
func Rejected(stderr string) Response {
	return Response{Code: git.CodeRejected, Stderr: stderr}
}

// Conflict returns a conflict response with the given stdout.
func Conflict(stdout string) Response {
	return Response{Code: git.CodeConflict, Stdout: stdout}
}

// Failed returns a generic failure with the given stderr.
func Failed(stderr string) Response {
	return Response{Code: git.CodeFailed, Stderr: stderr}
}

type rule struct {
	prefix    string
	responses []Response
}

// Fake is a git.Runner that answers from scripted rules and records every call.
// Unmatched invocations succeed with empty output.
type Fake struct {
	mu    sync.Mutex
	rules []*rule
	calls []Call
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{}
}

// On scripts the responses for invocations whose space-joined arguments start
// with prefix. Responses are consumed in order and the last one repeats.
// The longest matching prefix wins.
func (f *Fake) On(prefix string, responses ...Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, &rule{prefix: prefix, responses: responses})
	return f
}

// Run implements git.Runner.
func (f *Fake) Run(_ context.Context, inv git.Invocation) git.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := Call{Dir: inv.Dir, Isolated: inv.Index != nil, Args: append([]string(nil), inv.Args...)}
	f.calls = append(f.calls, call)

	resp := OK("")
	if r := f.match(call.Line()); r != nil && len(r.responses) > 0 {
		resp = r.responses[0]
		if len(r.responses) > 1 {
			r.responses = r.responses[1:]
		}
	}

	res := git.Result{
		Args:      call.Args,
		Code:      resp.Code,
		Succeeded: resp.Code == git.CodeOK,
		Stdout:    resp.Stdout,
		Stderr:    resp.Stderr,
	}
	if len(call.Args) > 0 {
		res.Op = call.Args[0]
	}
	switch resp.Code {
	case git.CodeOK:
		res.ExitCode = 0
	case git.CodeFalse, git.CodeRejected, git.CodeConflict:
		res.ExitCode = 1
	default:
		res.ExitCode = 128
	}
	return res
}

func (f *Fake) match(line string) *rule {
	var best *rule
	for _, r := range f.rules {
		if !strings.HasPrefix(line, r.prefix) {
			continue
		}
		if best == nil || len(r.prefix) > len(best.prefix) {
			best = r
		}
	}
	return best
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Lines returns the recorded calls as space-joined argument strings.
func (f *Fake) Lines() []string {
	calls := f.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.Line()
	}
	return lines
}

// Count returns how many recorded calls start with prefix.
func (f *Fake) Count(prefix string) int {
	n := 0
	for _, line := range f.Lines() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}
