package git

import (
	"context"
	"fmt"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/domain"
)

// Gateway issues the fixed vocabulary of git operations against one repository.
// Every method blocks until git exits and returns the normalized Result.
// Methods taking an *Index operate on the repository's real index when it is nil.
type Gateway struct {
	runner Runner
	dir    string
}

// NewGateway returns a Gateway running git in dir through runner.
func NewGateway(runner Runner, dir string) *Gateway {
	return &Gateway{runner: runner, dir: dir}
}

func (g *Gateway) run(ctx context.Context, idx *Index, args ...string) Result {
	return g.runner.Run(ctx, Invocation{Dir: g.dir, Index: idx, Args: args})
}

// PullFFOnly runs "pull --ff-only".
func (g *Gateway) PullFFOnly(ctx context.Context) Result {
	return g.run(ctx, nil, "pull", "--ff-only")
}

// RemoteURL runs "remote get-url <remote>".
func (g *Gateway) RemoteURL(ctx context.Context, remote string) Result {
	return g.run(ctx, nil, "remote", "get-url", remote)
}

// FetchPrune runs "fetch <remote> --prune".
func (g *Gateway) FetchPrune(ctx context.Context, remote string) Result {
	return g.run(ctx, nil, "fetch", remote, "--prune")
}

// ReadTree runs "read-tree <rev>".
func (g *Gateway) ReadTree(ctx context.Context, idx *Index, rev string) Result {
	return g.run(ctx, idx, "read-tree", rev)
}

// StageTracked runs "add -u".
func (g *Gateway) StageTracked(ctx context.Context, idx *Index) Result {
	return g.run(ctx, idx, "add", "-u")
}

// StageAll runs "add -A".
func (g *Gateway) StageAll(ctx context.Context, idx *Index) Result {
	return g.run(ctx, idx, "add", "-A")
}

// Stage stages the changes selected by scope.
func (g *Gateway) Stage(ctx context.Context, idx *Index, scope domain.CommitScope) Result {
	switch scope {
	case domain.ScopeTrackedOnly:
		return g.StageTracked(ctx, idx)
	case domain.ScopeIncludeUntracked:
		return g.StageAll(ctx, idx)
	default:
		return Result{
			Op:       "add",
			Code:     CodeFailed,
			ExitCode: -1,
			Err:      fmt.Errorf("unknown commit scope %v", scope),
		}
	}
}

// DiffCachedQuiet runs "diff --cached --quiet". CodeOK means nothing is staged,
// CodeFalse means staged changes exist.
func (g *Gateway) DiffCachedQuiet(ctx context.Context, idx *Index) Result {
	return g.run(ctx, idx, "diff", "--cached", "--quiet")
}

// WriteTree runs "write-tree"; stdout is the tree id.
func (g *Gateway) WriteTree(ctx context.Context, idx *Index) Result {
	return g.run(ctx, idx, "write-tree")
}

// RevParse runs "rev-parse <rev>".
func (g *Gateway) RevParse(ctx context.Context, rev string) Result {
	return g.run(ctx, nil, "rev-parse", rev)
}

// RevParseVerify runs "rev-parse --verify --quiet <rev>". CodeFalse means the rev does not exist.
func (g *Gateway) RevParseVerify(ctx context.Context, rev string) Result {
	return g.run(ctx, nil, "rev-parse", "--verify", "--quiet", rev)
}

// IsAncestor runs "merge-base --is-ancestor <ancestor> <descendant>".
// CodeOK means yes, CodeFalse means no.
func (g *Gateway) IsAncestor(ctx context.Context, ancestor, descendant string) Result {
	return g.run(ctx, nil, "merge-base", "--is-ancestor", ancestor, descendant)
}

// MergeBase runs "merge-base <a> <b>".
func (g *Gateway) MergeBase(ctx context.Context, a, b string) Result {
	return g.run(ctx, nil, "merge-base", a, b)
}

// MergeTree runs "merge-tree --write-tree --merge-base <base> <ours> <theirs>".
// The first stdout line is the resulting tree; CodeConflict carries the conflicted entries.
func (g *Gateway) MergeTree(ctx context.Context, base, ours, theirs string) Result {
	return g.run(ctx, nil, "merge-tree", "--write-tree", "--merge-base", base, ours, theirs)
}

// CommitTree runs "commit-tree <tree> [-p <parent>]... -m <message>"; stdout is the commit id.
func (g *Gateway) CommitTree(ctx context.Context, tree string, parents []string, message string) Result {
	args := []string{"commit-tree", tree}
	for _, p := range parents {
		args = append(args, "-p", p)
	}
	args = append(args, "-m", message)
	return g.run(ctx, nil, args...)
}

// PushRef runs "push <remote> <src>:<dst>".
func (g *Gateway) PushRef(ctx context.Context, remote, src, dst string) Result {
	return g.run(ctx, nil, "push", remote, src+":"+dst)
}

// Push runs "push" for the current branch and its upstream.
func (g *Gateway) Push(ctx context.Context) Result {
	return g.run(ctx, nil, "push")
}

// Commit runs "commit -m <message>" on the real index.
func (g *Gateway) Commit(ctx context.Context, message string) Result {
	return g.run(ctx, nil, "commit", "-m", message)
}

// MergeFFOnly runs "merge --ff-only <ref>".
func (g *Gateway) MergeFFOnly(ctx context.Context, ref string) Result {
	return g.run(ctx, nil, "merge", "--ff-only", ref)
}

// CherryPick runs "cherry-pick <commit>".
func (g *Gateway) CherryPick(ctx context.Context, commit string) Result {
	return g.run(ctx, nil, "cherry-pick", commit)
}

// MergeSquash runs "merge --squash <ref>".
func (g *Gateway) MergeSquash(ctx context.Context, ref string) Result {
	return g.run(ctx, nil, "merge", "--squash", ref)
}

// UnmergedPaths runs "diff --name-only --diff-filter=U".
func (g *Gateway) UnmergedPaths(ctx context.Context) Result {
	return g.run(ctx, nil, "diff", "--name-only", "--diff-filter=U")
}
