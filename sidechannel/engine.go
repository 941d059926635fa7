// Package sidechannel publishes working-tree snapshots to a side-channel
// branch without touching the checked-out branch, the real index or the
// working tree.
//
// A sync stages changes into an isolated index, writes the resulting tree,
// and commits it on top of the side-channel tip (or the local HEAD when the
// branch does not exist yet). When the tip has diverged from HEAD, the snapshot
// is three-way merged with the tip so changes from several hosts accumulate.
// A rejected push triggers exactly one refetch and rebuild.
package sidechannel

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/domain"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/git"
)

// maxAttempts bounds commit construction and push: one attempt plus one retry.
const maxAttempts = 2

// Engine performs side-channel syncs.
type Engine struct {
	runner   git.Runner
	newIndex func() (*git.Index, error)
	inspect  func(path string) (git.LiveState, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithIndexFactory overrides how isolated indexes are allocated.
func WithIndexFactory(fn func() (*git.Index, error)) Option {
	return func(e *Engine) {
		e.newIndex = fn
	}
}

// WithInspector overrides how the live working-copy state is read for the post-condition check.
func WithInspector(fn func(path string) (git.LiveState, error)) Option {
	return func(e *Engine) {
		e.inspect = fn
	}
}

// NewEngine returns an Engine issuing git commands through runner.
func NewEngine(runner git.Runner, opts ...Option) *Engine {
	e := &Engine{
		runner:   runner,
		newIndex: git.NewIndex,
		inspect:  git.Inspect,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync snapshots the working copy described by cfg and publishes it to the
// side-channel branch with message. The returned step is StepPublished,
// StepNoOp or StepFailed.
//
// The live branch, HEAD and index are compared before and after; any change
// turns the result into INVARIANT_VIOLATED. The check is skipped with a
// warning when the state cannot be read.
func (e *Engine) Sync(ctx context.Context, cfg domain.EffectiveRepoConfig, message string) domain.Step {
	logger := zerolog.Ctx(ctx)
	path := cfg.Target.Path

	before, err := e.inspect(path)
	if err != nil {
		logger.Warn().Err(err).Msg("cannot read live state, skipping post-condition check")
		return e.sync(ctx, cfg, message)
	}

	step := e.sync(ctx, cfg, message)

	after, err := e.inspect(path)
	if err != nil {
		logger.Warn().Err(err).Msg("cannot read live state after sync, skipping post-condition check")
		return step
	}
	if changes := before.Changes(after); len(changes) > 0 {
		logger.Error().Strs("changes", changes).Msg("side-channel sync changed the working copy")
		return domain.FailedStep(errors.Newf(errors.CodeInvariantViolated,
			"side-channel sync changed the working copy: %s", strings.Join(changes, ", ")).
			WithContext("before", before).
			WithContext("after", after))
	}
	return step
}

func (e *Engine) sync(ctx context.Context, cfg domain.EffectiveRepoConfig, message string) domain.Step {
	logger := zerolog.Ctx(ctx)
	gw := git.NewGateway(e.runner, cfg.Target.Path)
	ref := cfg.SideChannel.Ref()

	if res := gw.RemoteURL(ctx, ref.Remote); !res.Succeeded {
		return domain.FailedStep(res.Failure(errors.CodeRemoteMissing,
			fmt.Sprintf("missing side-channel remote '%s'", ref.Remote)))
	}
	if res := gw.FetchPrune(ctx, ref.Remote); !res.Succeeded {
		return domain.FailedStep(res.Failure(errors.CodeFetchFailed,
			fmt.Sprintf("failed to fetch side-channel remote '%s'", ref.Remote)))
	}

	idx, err := e.newIndex()
	if err != nil {
		return domain.FailedStep(errors.Wrap(err, errors.CodeSnapshotFailed, "failed to allocate isolated index"))
	}
	defer func() {
		if err := idx.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to remove isolated index")
		}
	}()

	snap, failed := e.snapshot(ctx, gw, idx, cfg.Scope)
	if failed != nil {
		return domain.FailedStep(failed)
	}
	if snap.tree == "" {
		logger.Debug().Msg("isolated index matches HEAD")
		return domain.Step{Kind: domain.StepNoOp, Message: "no local changes"}
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retried := attempt > 1
		if retried {
			if res := gw.FetchPrune(ctx, ref.Remote); !res.Succeeded {
				return domain.FailedStep(res.Failure(errors.CodeFetchFailed,
					fmt.Sprintf("failed to refetch side-channel remote '%s'", ref.Remote)))
			}
		}

		commit, failed := e.buildCommit(ctx, gw, ref, snap, message)
		if failed != nil {
			return domain.FailedStep(failed)
		}
		if commit == "" {
			logger.Debug().Str("ref", ref.TrackingRef()).Msg("side channel already contains snapshot")
			return domain.Step{Kind: domain.StepNoOp, Retried: retried, Message: "side channel already up to date"}
		}

		push := gw.PushRef(ctx, ref.Remote, commit, ref.DestinationRef())
		switch push.Code {
		case git.CodeOK:
			logger.Debug().Str("commit", commit).Str("ref", ref.DestinationRef()).Bool("retried", retried).Msg("side-channel commit pushed")
			return domain.Step{
				Kind:    domain.StepPublished,
				Commit:  commit,
				Retried: retried,
				Message: fmt.Sprintf("pushed %s to %s", git.Short(commit), ref),
			}
		case git.CodeRejected:
			if attempt < maxAttempts {
				logger.Info().Str("ref", ref.DestinationRef()).Msg("side-channel push rejected, refetching and retrying once")
				continue
			}
			return domain.FailedStep(push.Failure(errors.CodePushRetryExhausted,
				"side-channel push rejected after retry because branch advanced concurrently"))
		default:
			return domain.FailedStep(push.Failure(errors.CodePushRejected, "side-channel push failed"))
		}
	}

	// unreachable: every loop iteration returns
	return domain.FailedStep(errors.New(errors.CodeInternal, "side-channel retry loop exited"))
}

// snapshot is the working copy captured in the isolated index.
type snapshot struct {
	// tree is "" when the isolated index has no changes against HEAD.
	tree string
	head string
}

func (e *Engine) snapshot(ctx context.Context, gw *git.Gateway, idx *git.Index, scope domain.CommitScope) (snapshot, *errors.Error) {
	if res := gw.ReadTree(ctx, idx, "HEAD"); !res.Succeeded {
		return snapshot{}, res.Failure(errors.CodeSnapshotFailed, "failed to load HEAD into isolated index")
	}
	if res := gw.Stage(ctx, idx, scope); !res.Succeeded {
		return snapshot{}, res.Failure(errors.CodeSnapshotFailed, "failed to stage changes into isolated index")
	}

	diff := gw.DiffCachedQuiet(ctx, idx)
	switch diff.Code {
	case git.CodeOK:
		return snapshot{}, nil
	case git.CodeFalse:
	default:
		return snapshot{}, diff.Failure(errors.CodeSnapshotFailed, "failed to compare isolated index with HEAD")
	}

	tree := gw.WriteTree(ctx, idx)
	if !tree.Succeeded || tree.Output() == "" {
		return snapshot{}, tree.Failure(errors.CodeSnapshotFailed, "failed to write snapshot tree")
	}
	head := gw.RevParse(ctx, "HEAD")
	if !head.Succeeded {
		return snapshot{}, head.Failure(errors.CodeSnapshotFailed, "failed to resolve HEAD")
	}

	return snapshot{tree: tree.Output(), head: head.Output()}, nil
}

// buildCommit creates the side commit for snap against the current tip.
// It returns "" when the candidate tree equals the parent's tree.
func (e *Engine) buildCommit(
	ctx context.Context,
	gw *git.Gateway,
	ref domain.SideChannelRef,
	snap snapshot,
	message string,
) (string, *errors.Error) {
	parent, tree := snap.head, snap.tree

	tip := gw.RevParseVerify(ctx, ref.TrackingRef())
	switch tip.Code {
	case git.CodeOK:
		parent = tip.Output()
		merged, failed := e.mergeWithTip(ctx, gw, snap, parent, message)
		if failed != nil {
			return "", failed
		}
		tree = merged
	case git.CodeFalse:
		// branch does not exist yet; start it from HEAD
	default:
		return "", tip.Failure(errors.CodeSnapshotFailed, "failed to resolve side-channel tip")
	}

	parentTree := gw.RevParse(ctx, parent+"^{tree}")
	if !parentTree.Succeeded {
		return "", parentTree.Failure(errors.CodeSnapshotFailed, "failed to resolve parent tree")
	}
	if parentTree.Output() == tree {
		return "", nil
	}

	created := gw.CommitTree(ctx, tree, []string{parent}, message)
	if !created.Succeeded || created.Output() == "" {
		return "", created.Failure(errors.CodeSnapshotFailed, "failed to create side-channel commit")
	}
	return created.Output(), nil
}

// mergeWithTip returns the tree to commit on top of tip. When tip is already
// contained in HEAD the snapshot tree is used as-is; otherwise the snapshot is
// three-way merged with tip.
func (e *Engine) mergeWithTip(ctx context.Context, gw *git.Gateway, snap snapshot, tip, message string) (string, *errors.Error) {
	anc := gw.IsAncestor(ctx, tip, snap.head)
	switch anc.Code {
	case git.CodeOK:
		return snap.tree, nil
	case git.CodeFalse:
	default:
		return "", anc.Failure(errors.CodeSnapshotFailed, "failed to compare side-channel tip with HEAD")
	}

	base := gw.MergeBase(ctx, snap.head, tip)
	if !base.Succeeded {
		return "", base.Failure(errors.CodeSnapshotFailed, "failed to find merge base with side-channel tip")
	}

	local := gw.CommitTree(ctx, snap.tree, []string{snap.head}, message)
	if !local.Succeeded || local.Output() == "" {
		return "", local.Failure(errors.CodeSnapshotFailed, "failed to create snapshot commit")
	}

	merged := gw.MergeTree(ctx, base.Output(), local.Output(), tip)
	switch merged.Code {
	case git.CodeOK:
		tree := git.FirstLine(merged.Stdout)
		if tree == "" {
			return "", merged.Failure(errors.CodeSnapshotFailed, "merge-tree produced no tree")
		}
		return tree, nil
	case git.CodeConflict:
		return "", errors.New(errors.CodeSideChannelConflict, "side channel has conflicting changes").
			WithPaths(git.ConflictPaths(merged.Stdout))
	default:
		return "", merged.Failure(errors.CodeSnapshotFailed, "failed to merge snapshot with side-channel tip")
	}
}
