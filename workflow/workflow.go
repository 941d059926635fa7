// Package workflow drives each repository through pull, commit routing and
// push, and collects exactly one outcome per repository.
package workflow

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/commit"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/domain"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/git"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/sidechannel"
)

// Committer commits changes directly on the checked-out branch.
type Committer interface {
	Commit(ctx context.Context, cfg domain.EffectiveRepoConfig, message string) domain.Step
}

// Syncer publishes changes to a side channel.
type Syncer interface {
	Sync(ctx context.Context, cfg domain.EffectiveRepoConfig, message string) domain.Step
}

// MessageRenderer renders commit message templates.
type MessageRenderer interface {
	Render(template string, scope domain.CommitScope) string
}

// Orchestrator runs the workflow over a list of repositories.
type Orchestrator struct {
	runner   git.Runner
	direct   Committer
	side     Syncer
	messages MessageRenderer
	logger   zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCommitter overrides the direct commit engine.
func WithCommitter(c Committer) Option {
	return func(o *Orchestrator) {
		o.direct = c
	}
}

// WithSyncer overrides the side-channel engine.
func WithSyncer(s Syncer) Option {
	return func(o *Orchestrator) {
		o.side = s
	}
}

// WithRenderer overrides commit message rendering.
func WithRenderer(r MessageRenderer) Option {
	return func(o *Orchestrator) {
		o.messages = r
	}
}

// WithLogger sets the parent logger; each repository gets a child with a repo field.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New returns an Orchestrator whose engines share runner.
func New(runner git.Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner:   runner,
		direct:   commit.NewEngine(runner),
		side:     sidechannel.NewEngine(runner),
		messages: commit.NewRenderer(),
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes every repository in order and returns one outcome per entry.
// A failure never stops the loop. Cancellation is checked before each
// repository; repositories not started get a CANCELLED outcome.
func (o *Orchestrator) Run(ctx context.Context, cfgs []domain.EffectiveRepoConfig) []domain.RepoOutcome {
	outcomes := make([]domain.RepoOutcome, 0, len(cfgs))
	for _, cfg := range cfgs {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, failedOutcome(cfg.Target,
				errors.Wrap(err, errors.CodeCancelled, "run cancelled before repository was started")))
			continue
		}
		outcomes = append(outcomes, o.RunRepo(ctx, cfg))
	}
	return outcomes
}

// RunRepo runs the state machine for a single repository to completion.
// Cancelling ctx does not interrupt it; git commands already started for the
// repository are never killed.
func (o *Orchestrator) RunRepo(ctx context.Context, cfg domain.EffectiveRepoConfig) domain.RepoOutcome {
	logger := o.logger.With().Str("repo", cfg.Target.Path).Logger()
	ctx = logger.WithContext(context.WithoutCancel(ctx))

	m := &machine{
		o:       o,
		cfg:     cfg,
		gw:      git.NewGateway(o.runner, cfg.Target.Path),
		logger:  logger,
		state:   StateStart,
		outcome: domain.RepoOutcome{Target: cfg.Target},
	}

	started := time.Now()
	out := m.run(ctx)
	out.Duration = time.Since(started)

	event := logger.Info()
	if out.Failed() {
		event = logger.Error().Str("kind", out.Kind.String())
		if out.Kind.IsConflict() {
			event = event.Strs("paths", out.Paths)
		}
	}
	event.
		Str("status", out.Status.String()).
		Str("pull", out.Pull.String()).
		Str("commit", out.Commit).
		Dur("took", out.Duration).
		Msg(out.Message)

	return out
}

func failedOutcome(target domain.RepositoryTarget, err *errors.Error) domain.RepoOutcome {
	return domain.RepoOutcome{
		Target:  target,
		Status:  domain.StatusFailed,
		Kind:    err.Code,
		Detail:  err.Error(),
		Paths:   err.Paths,
		Message: err.Message,
	}
}
