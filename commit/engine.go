package commit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/domain"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/git"
)

// Engine commits working-tree changes directly on the checked-out branch.
type Engine struct {
	runner git.Runner
}

// NewEngine returns an Engine issuing git commands through runner.
func NewEngine(runner git.Runner) *Engine {
	return &Engine{runner: runner}
}

// Commit stages the changes selected by cfg.Scope on the real index and
// commits them with message. It returns StepReady with the new HEAD, or
// StepNoOp when nothing was staged.
func (e *Engine) Commit(ctx context.Context, cfg domain.EffectiveRepoConfig, message string) domain.Step {
	logger := zerolog.Ctx(ctx)
	gw := git.NewGateway(e.runner, cfg.Target.Path)

	if res := gw.Stage(ctx, nil, cfg.Scope); !res.Succeeded {
		return domain.FailedStep(res.Failure(errors.CodeStageFailed, "failed to stage changes"))
	}

	diff := gw.DiffCachedQuiet(ctx, nil)
	switch diff.Code {
	case git.CodeOK:
		logger.Debug().Msg("no staged changes")
		return domain.Step{Kind: domain.StepNoOp, Message: "nothing to commit"}
	case git.CodeFalse:
	default:
		return domain.FailedStep(diff.Failure(errors.CodeStageFailed, "failed to inspect staged changes"))
	}

	if res := gw.Commit(ctx, message); !res.Succeeded {
		return domain.FailedStep(res.Failure(errors.CodeCommitFailed, "failed to commit"))
	}

	head := gw.RevParse(ctx, "HEAD")
	if !head.Succeeded {
		return domain.FailedStep(head.Failure(errors.CodeCommitFailed, "failed to resolve new HEAD"))
	}

	logger.Debug().Str("commit", head.Output()).Stringer("scope", cfg.Scope).Msg("committed")
	return domain.Step{Kind: domain.StepReady, Commit: head.Output(), Message: "committed " + git.Short(head.Output())}
}
