// Package apply reconciles a side-channel branch tip into the current branch.
//
// On conflict the repository is left in git's conflicted state for the user
// to resolve; apply never aborts or resets on their behalf.
package apply

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/domain"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/git"
)

// Engine applies side-channel tips.
type Engine struct {
	runner git.Runner
}

// NewEngine returns an Engine issuing git commands through runner.
func NewEngine(runner git.Runner) *Engine {
	return &Engine{runner: runner}
}

// Apply fetches the side-channel remote and integrates its tip using req.Method.
// A tip already contained in HEAD is a no-op for every method.
func (e *Engine) Apply(ctx context.Context, req domain.ApplyRequest) domain.ApplyOutcome {
	logger := zerolog.Ctx(ctx).With().
		Str("repo", req.Target.Path).
		Str("method", req.Method.String()).
		Stringer("ref", req.Ref).
		Logger()

	out := e.apply(ctx, req)
	out.Target = req.Target
	out.Method = req.Method

	if out.Failed() {
		logger.Error().Str("kind", out.Kind.String()).Strs("paths", out.Paths).Msg(out.Detail)
	} else {
		logger.Info().Str("status", out.Status.String()).Str("tip", out.Tip).Str("head", out.Head).Msg("apply finished")
	}
	return out
}

func (e *Engine) apply(ctx context.Context, req domain.ApplyRequest) domain.ApplyOutcome {
	gw := git.NewGateway(e.runner, req.Target.Path)
	ref := req.Ref
	tracking := ref.TrackingRef()

	if res := gw.RemoteURL(ctx, ref.Remote); !res.Succeeded {
		return failed(res.Failure(errors.CodeRemoteMissing, fmt.Sprintf("missing side-channel remote '%s'", ref.Remote)))
	}
	if res := gw.FetchPrune(ctx, ref.Remote); !res.Succeeded {
		return failed(res.Failure(errors.CodeFetchFailed, fmt.Sprintf("failed to fetch side-channel remote '%s'", ref.Remote)))
	}

	tipRes := gw.RevParseVerify(ctx, tracking)
	switch tipRes.Code {
	case git.CodeOK:
	case git.CodeFalse:
		return failed(errors.Newf(errors.CodeSideBranchMissing, "side-channel branch %s does not exist", tracking))
	default:
		return failed(tipRes.Failure(errors.CodeApplyFailed, "failed to resolve side-channel tip"))
	}
	tip := tipRes.Output()

	anc := gw.IsAncestor(ctx, tip, "HEAD")
	switch anc.Code {
	case git.CodeOK:
		return domain.ApplyOutcome{Status: domain.StatusNoOp, Tip: tip, Head: e.head(ctx, gw)}
	case git.CodeFalse:
	default:
		return failed(anc.Failure(errors.CodeApplyFailed, "failed to compare side-channel tip with HEAD"))
	}

	var failure *errors.Error
	switch req.Method {
	case domain.MethodMerge:
		failure = e.merge(ctx, gw, tracking)
	case domain.MethodCherryPick:
		failure = e.cherryPick(ctx, gw, tip)
	case domain.MethodSquash:
		failure = e.squash(ctx, gw, tracking)
	default:
		failure = errors.Newf(errors.CodeInvalidInput, "unknown apply method %q", req.Method)
	}
	if failure != nil {
		out := failed(failure)
		out.Tip = tip
		return out
	}

	return domain.ApplyOutcome{Status: domain.StatusSucceeded, Tip: tip, Head: e.head(ctx, gw)}
}

func (e *Engine) merge(ctx context.Context, gw *git.Gateway, tracking string) *errors.Error {
	res := gw.MergeFFOnly(ctx, tracking)
	switch res.Code {
	case git.CodeOK:
		return nil
	case git.CodeRejected:
		return res.Failure(errors.CodeNotFastForward, "current branch cannot be fast-forwarded to the side channel")
	default:
		return res.Failure(errors.CodeApplyFailed, "fast-forward merge failed")
	}
}

func (e *Engine) cherryPick(ctx context.Context, gw *git.Gateway, tip string) *errors.Error {
	res := gw.CherryPick(ctx, tip)
	switch res.Code {
	case git.CodeOK:
		return nil
	case git.CodeConflict:
		return errors.New(errors.CodeCherryPickConflict, "cherry-pick has conflicts").
			WithPaths(e.unmerged(ctx, gw))
	default:
		return res.Failure(errors.CodeApplyFailed, "cherry-pick failed")
	}
}

func (e *Engine) squash(ctx context.Context, gw *git.Gateway, tracking string) *errors.Error {
	res := gw.MergeSquash(ctx, tracking)
	switch res.Code {
	case git.CodeOK:
		return nil
	case git.CodeConflict:
		return errors.New(errors.CodeSquashConflict, "squash merge has conflicts").
			WithPaths(e.unmerged(ctx, gw))
	default:
		return res.Failure(errors.CodeApplyFailed, "squash merge failed")
	}
}

func (e *Engine) unmerged(ctx context.Context, gw *git.Gateway) []string {
	res := gw.UnmergedPaths(ctx)
	if !res.Succeeded {
		zerolog.Ctx(ctx).Warn().Str("detail", res.Detail()).Msg("failed to list unmerged paths")
		return nil
	}
	return git.Lines(res.Stdout)
}

func (e *Engine) head(ctx context.Context, gw *git.Gateway) string {
	if res := gw.RevParse(ctx, "HEAD"); res.Succeeded {
		return res.Output()
	}
	return ""
}

func failed(err *errors.Error) domain.ApplyOutcome {
	return domain.ApplyOutcome{
		Status: domain.StatusFailed,
		Kind:   err.Code,
		Detail: err.Error(),
		Paths:  err.Paths,
	}
}
