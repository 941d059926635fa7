package workflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/domain"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/git"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/git/gittest"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/workflow"
)

type stubEngine struct {
	step  domain.Step
	calls []string
}

func (s *stubEngine) Commit(_ context.Context, cfg domain.EffectiveRepoConfig, message string) domain.Step {
	s.calls = append(s.calls, "commit:"+message)
	return s.step
}

func (s *stubEngine) Sync(_ context.Context, cfg domain.EffectiveRepoConfig, message string) domain.Step {
	s.calls = append(s.calls, "sync:"+message)
	return s.step
}

type fixedRenderer string

func (r fixedRenderer) Render(template string, scope domain.CommitScope) string {
	return string(r)
}

func repoConfig(path string, push, side bool) domain.EffectiveRepoConfig {
	return domain.EffectiveRepoConfig{
		Target:          domain.RepositoryTarget{Path: path},
		PushEnabled:     push,
		SideChannel:     domain.SideChannelConfig{Enabled: side, Remote: "backup", Branch: "reposync/sync"},
		MessageTemplate: "tmpl",
	}
}

func TestRunRepo(t *testing.T) {
	tests := []struct {
		name     string
		cfg      domain.EffectiveRepoConfig
		setup    func(f *gittest.Fake)
		direct   domain.Step
		side     domain.Step
		validate func(t *testing.T, out domain.RepoOutcome, f *gittest.Fake, direct, side *stubEngine)
	}{
		{
			name: "pull rejected stops before commit",
			cfg:  repoConfig("/r", true, false),
			setup: func(f *gittest.Fake) {
				f.On("pull", gittest.Rejected("fatal: Not possible to fast-forward, aborting."))
			},
			validate: func(t *testing.T, out domain.RepoOutcome, f *gittest.Fake, direct, side *stubEngine) {
				assert.Equal(t, domain.StatusFailed, out.Status)
				assert.Equal(t, errors.CodePullRejected, out.Kind)
				assert.Equal(t, domain.PullRejected, out.Pull)
				assert.Contains(t, out.Detail, "Not possible to fast-forward")
				assert.Empty(t, direct.calls)
				assert.Zero(t, f.Count("push"))
			},
		},
		{
			name: "direct commit is pushed",
			cfg:  repoConfig("/r", true, false),
			setup: func(f *gittest.Fake) {
				f.On("rev-parse HEAD", gittest.OK("h1\n"), gittest.OK("h2\n"))
			},
			direct: domain.Step{Kind: domain.StepReady, Commit: "c1", Message: "committed c1"},
			validate: func(t *testing.T, out domain.RepoOutcome, f *gittest.Fake, direct, side *stubEngine) {
				assert.Equal(t, domain.StatusSucceeded, out.Status)
				assert.Equal(t, domain.PullAdvanced, out.Pull)
				assert.Equal(t, "c1", out.Commit)
				assert.Equal(t, []string{"commit:rendered"}, direct.calls)
				assert.Empty(t, side.calls)
				assert.Equal(t, []string{"rev-parse HEAD", "pull --ff-only", "rev-parse HEAD", "push"}, f.Lines())
			},
		},
		{
			name: "unborn HEAD before pull counts as advanced",
			cfg:  repoConfig("/r", true, false),
			setup: func(f *gittest.Fake) {
				f.On("rev-parse HEAD", gittest.Failed("fatal: ambiguous argument 'HEAD'"), gittest.OK("h1\n"))
			},
			direct: domain.Step{Kind: domain.StepNoOp, Message: "nothing to commit"},
			validate: func(t *testing.T, out domain.RepoOutcome, f *gittest.Fake, direct, side *stubEngine) {
				assert.Equal(t, domain.StatusNoOp, out.Status)
				assert.Equal(t, domain.PullAdvanced, out.Pull)
			},
		},
		{
			name: "unresolvable HEAD after pull stays up to date",
			cfg:  repoConfig("/r", true, false),
			setup: func(f *gittest.Fake) {
				f.On("rev-parse HEAD", gittest.OK("h1\n"), gittest.Failed("fatal: bad object HEAD"))
			},
			direct: domain.Step{Kind: domain.StepNoOp, Message: "nothing to commit"},
			validate: func(t *testing.T, out domain.RepoOutcome, f *gittest.Fake, direct, side *stubEngine) {
				assert.Equal(t, domain.PullUpToDate, out.Pull)
			},
		},
		{
			name:   "direct no-op does not push",
			cfg:    repoConfig("/r", true, false),
			direct: domain.Step{Kind: domain.StepNoOp, Message: "nothing to commit"},
			validate: func(t *testing.T, out domain.RepoOutcome, f *gittest.Fake, direct, side *stubEngine) {
				assert.Equal(t, domain.StatusNoOp, out.Status)
				assert.Equal(t, domain.PullUpToDate, out.Pull)
				assert.Zero(t, f.Count("push"))
			},
		},
		{
			name:   "push disabled pulls without committing",
			cfg:    repoConfig("/r", false, false),
			direct: domain.Step{Kind: domain.StepReady, Commit: "c1", Message: "committed c1"},
			validate: func(t *testing.T, out domain.RepoOutcome, f *gittest.Fake, direct, side *stubEngine) {
				assert.Equal(t, domain.StatusSucceeded, out.Status)
				assert.Equal(t, "pull ok, push disabled", out.Message)
				assert.Empty(t, out.Commit)
				assert.Empty(t, direct.calls)
				assert.Equal(t, []string{"rev-parse HEAD", "pull --ff-only", "rev-parse HEAD"}, f.Lines())
			},
		},
		{
			name: "push failure",
			cfg:  repoConfig("/r", true, false),
			setup: func(f *gittest.Fake) {
				f.On("push", gittest.Rejected("! [rejected] main -> main (non-fast-forward)"))
			},
			direct: domain.Step{Kind: domain.StepReady, Commit: "c1", Message: "committed c1"},
			validate: func(t *testing.T, out domain.RepoOutcome, f *gittest.Fake, direct, side *stubEngine) {
				assert.Equal(t, domain.StatusFailed, out.Status)
				assert.Equal(t, errors.CodePushRejected, out.Kind)
				assert.Equal(t, "c1", out.Commit)
				assert.Equal(t, 1, f.Count("push"), "no gateway retries")
			},
		},
		{
			name:   "commit failure",
			cfg:    repoConfig("/r", true, false),
			direct: domain.FailedStep(errors.New(errors.CodeCommitFailed, "failed to commit")),
			validate: func(t *testing.T, out domain.RepoOutcome, f *gittest.Fake, direct, side *stubEngine) {
				assert.Equal(t, errors.CodeCommitFailed, out.Kind)
				assert.Zero(t, f.Count("push"))
			},
		},
		{
			name: "side channel published skips plain push",
			cfg:  repoConfig("/r", true, true),
			side: domain.Step{Kind: domain.StepPublished, Commit: "s1", Retried: true, Message: "pushed s1"},
			validate: func(t *testing.T, out domain.RepoOutcome, f *gittest.Fake, direct, side *stubEngine) {
				assert.Equal(t, domain.StatusSucceeded, out.Status)
				assert.True(t, out.Retried)
				assert.Equal(t, "s1", out.Commit)
				assert.Equal(t, []string{"sync:rendered"}, side.calls)
				assert.Empty(t, direct.calls)
				assert.Zero(t, f.Count("push"))
			},
		},
		{
			name: "side channel conflict carries paths",
			cfg:  repoConfig("/r", true, true),
			side: domain.FailedStep(errors.New(errors.CodeSideChannelConflict, "side channel has conflicting changes").
				WithPaths([]string{"b", "a"})),
			validate: func(t *testing.T, out domain.RepoOutcome, f *gittest.Fake, direct, side *stubEngine) {
				assert.Equal(t, errors.CodeSideChannelConflict, out.Kind)
				assert.Equal(t, []string{"a", "b"}, out.Paths)
				assert.Equal(t, "side channel has conflicting changes", out.Message)
			},
		},
		{
			name: "side channel with push disabled is skipped",
			cfg:  repoConfig("/r", false, true),
			validate: func(t *testing.T, out domain.RepoOutcome, f *gittest.Fake, direct, side *stubEngine) {
				assert.Equal(t, domain.StatusSucceeded, out.Status)
				assert.Equal(t, "pull ok, push disabled", out.Message)
				assert.Empty(t, side.calls)
				assert.Empty(t, direct.calls)
				assert.Equal(t, []string{"rev-parse HEAD", "pull --ff-only", "rev-parse HEAD"}, f.Lines())
			},
		},
		{
			name: "side channel no-op",
			cfg:  repoConfig("/r", true, true),
			side: domain.Step{Kind: domain.StepNoOp, Message: "no local changes"},
			validate: func(t *testing.T, out domain.RepoOutcome, f *gittest.Fake, direct, side *stubEngine) {
				assert.Equal(t, domain.StatusNoOp, out.Status)
				assert.Empty(t, out.Kind)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := gittest.New()
			if tt.setup != nil {
				tt.setup(fake)
			}
			direct := &stubEngine{step: tt.direct}
			side := &stubEngine{step: tt.side}

			o := workflow.New(fake,
				workflow.WithCommitter(direct),
				workflow.WithSyncer(side),
				workflow.WithRenderer(fixedRenderer("rendered")),
			)
			out := o.RunRepo(context.Background(), tt.cfg)

			assert.Equal(t, tt.cfg.Target, out.Target)
			if out.Status != domain.StatusFailed {
				assert.Empty(t, out.Kind)
				assert.Empty(t, out.Detail)
			}
			tt.validate(t, out, fake, direct, side)
		})
	}
}

func TestRun_OneOutcomePerRepositoryInOrder(t *testing.T) {
	fake := gittest.New()
	// every pull in /b fails
	runner := &dirRunner{Fake: fake, failPullIn: "/b"}

	o := workflow.New(runner,
		workflow.WithCommitter(&stubEngine{step: domain.Step{Kind: domain.StepNoOp, Message: "nothing"}}),
		workflow.WithRenderer(fixedRenderer("m")),
	)
	cfgs := []domain.EffectiveRepoConfig{
		repoConfig("/a", true, false),
		repoConfig("/b", true, false),
		repoConfig("/c", true, false),
	}

	outcomes := o.Run(context.Background(), cfgs)

	require.Len(t, outcomes, 3)
	assert.Equal(t, "/a", outcomes[0].Target.Path)
	assert.Equal(t, domain.StatusNoOp, outcomes[0].Status)
	assert.Equal(t, "/b", outcomes[1].Target.Path)
	assert.Equal(t, domain.StatusFailed, outcomes[1].Status)
	assert.Equal(t, "/c", outcomes[2].Target.Path)
	assert.Equal(t, domain.StatusNoOp, outcomes[2].Status, "failure does not stop the run")
}

func TestRun_Cancelled(t *testing.T) {
	fake := gittest.New()
	ctx, cancel := context.WithCancel(context.Background())

	stub := &cancellingEngine{cancel: cancel}
	o := workflow.New(fake, workflow.WithCommitter(stub), workflow.WithRenderer(fixedRenderer("m")))

	outcomes := o.Run(ctx, []domain.EffectiveRepoConfig{
		repoConfig("/a", true, false),
		repoConfig("/b", true, false),
		repoConfig("/c", true, false),
	})

	require.Len(t, outcomes, 3)
	assert.Equal(t, domain.StatusNoOp, outcomes[0].Status, "in-flight repository completes")
	for _, out := range outcomes[1:] {
		assert.Equal(t, domain.StatusFailed, out.Status)
		assert.Equal(t, errors.CodeCancelled, out.Kind)
	}
	assert.Equal(t, 1, stub.calls)
}

func TestRunRepo_CancellationWaitsForRepository(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &cancelAfterPull{Fake: gittest.New(), cancel: cancel}
	runner.On("rev-parse HEAD", gittest.OK("h1\n"), gittest.OK("h2\n"))
	direct := &ctxEngine{step: domain.Step{Kind: domain.StepReady, Commit: "c1", Message: "committed c1"}}

	o := workflow.New(runner, workflow.WithCommitter(direct), workflow.WithRenderer(fixedRenderer("m")))
	outcomes := o.Run(ctx, []domain.EffectiveRepoConfig{
		repoConfig("/a", true, false),
		repoConfig("/b", true, false),
	})

	require.Len(t, outcomes, 2)
	assert.Equal(t, domain.StatusSucceeded, outcomes[0].Status, outcomes[0].Detail)
	assert.Equal(t, domain.PullAdvanced, outcomes[0].Pull)
	assert.NoError(t, direct.err, "engine sees a live context")
	for _, err := range runner.errs {
		assert.NoError(t, err, "git calls after the pull are not cancelled")
	}
	assert.Equal(t, errors.CodeCancelled, outcomes[1].Kind)
}

func TestState(t *testing.T) {
	terminal := map[workflow.State]bool{
		workflow.StateStart:         false,
		workflow.StatePulling:       false,
		workflow.StateCommitRouting: false,
		workflow.StatePushing:       false,
		workflow.StateSucceeded:     true,
		workflow.StateNoOp:          true,
		workflow.StateFailed:        true,
	}
	for s, want := range terminal {
		assert.Equal(t, want, s.Terminal(), s.String())
		assert.NotEqual(t, "unknown", s.String())
	}
	assert.Equal(t, "unknown", workflow.State(99).String())
}

// dirRunner fails pulls in one directory and delegates everything else.
type dirRunner struct {
	*gittest.Fake
	failPullIn string
}

func (r *dirRunner) Run(ctx context.Context, inv git.Invocation) git.Result {
	res := r.Fake.Run(ctx, inv)
	if inv.Dir == r.failPullIn && len(inv.Args) > 0 && inv.Args[0] == "pull" {
		res.Code = git.CodeFailed
		res.Succeeded = false
		res.ExitCode = 1
		res.Stderr = "fatal: no upstream"
	}
	return res
}

type cancellingEngine struct {
	cancel func()
	calls  int
}

func (c *cancellingEngine) Commit(context.Context, domain.EffectiveRepoConfig, string) domain.Step {
	c.calls++
	c.cancel()
	return domain.Step{Kind: domain.StepNoOp, Message: "nothing"}
}

// cancelAfterPull cancels the run as soon as the first pull returns and
// records the context state of every later call.
type cancelAfterPull struct {
	*gittest.Fake
	cancel func()
	pulled bool
	errs   []error
}

func (r *cancelAfterPull) Run(ctx context.Context, inv git.Invocation) git.Result {
	if r.pulled {
		r.errs = append(r.errs, ctx.Err())
	}
	res := r.Fake.Run(ctx, inv)
	if len(inv.Args) > 0 && inv.Args[0] == "pull" {
		r.pulled = true
		r.cancel()
	}
	return res
}

type ctxEngine struct {
	step domain.Step
	err  error
}

func (c *ctxEngine) Commit(ctx context.Context, _ domain.EffectiveRepoConfig, _ string) domain.Step {
	c.err = ctx.Err()
	return c.step
}
