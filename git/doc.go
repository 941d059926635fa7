// Package git is the command gateway between reposync and a repository.
//
// Every mutation and query that must be bit-exact with the git CLI goes
// through the git binary: a Runner executes one Invocation and returns a
// Result whose Code normalizes the exit status and output markers. Gateway
// wraps a Runner with the fixed vocabulary of operations the engines use.
//
// go-git is used for read-only inspection: OpenTarget canonicalizes a path and
// verifies it hosts a non-bare working copy, and Inspect captures the branch,
// HEAD and index fingerprint that side-channel sync must leave untouched.
//
// # Design Principles
//
//   - No retries and no caching: callers decide what a failed command means
//   - Explicit state: an isolated index is passed per invocation, never through
//     the process environment
//   - Testability by construction: the Runner interface is the only seam,
//     package gittest provides a scripted implementation
//
// # Basic Usage
//
//	gw := git.NewGateway(git.NewCLI(), target.Path)
//
//	idx, err := git.NewIndex()
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//
//	if res := gw.ReadTree(ctx, idx, "HEAD"); !res.Succeeded {
//	    return fmt.Errorf("read-tree: %s", res.Detail())
//	}
//	gw.StageAll(ctx, idx)
//	tree := gw.WriteTree(ctx, idx).Output()
//
// # Result Codes
//
//   - CodeOK: exit status 0
//   - CodeFalse: a predicate answered no (diff --quiet, merge-base --is-ancestor,
//     rev-parse --verify --quiet)
//   - CodeRejected: a non-fast-forward update was refused
//   - CodeConflict: a merge reported conflicts
//   - CodeFailed: anything else, including a binary that could not be started
//
// # Error Handling
//
// Sentinel errors (ErrNotWorkingCopy, ErrResolveFailed, ErrIndexClosed) are
// returned wrapped with context and can be checked with errors.Is().
package git
