package workflow

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/domain"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/git"
)

// machine is the state of one repository's workflow.
type machine struct {
	o      *Orchestrator
	cfg    domain.EffectiveRepoConfig
	gw     *git.Gateway
	logger zerolog.Logger

	state   State
	head    string
	step    domain.Step
	outcome domain.RepoOutcome
}

func (m *machine) run(ctx context.Context) domain.RepoOutcome {
	for !m.state.Terminal() {
		next := m.transition(ctx)
		m.logger.Debug().Stringer("from", m.state).Stringer("to", next).Msg("transition")
		m.state = next
	}
	return m.outcome
}

func (m *machine) transition(ctx context.Context) State {
	switch m.state {
	case StateStart:
		return m.start(ctx)
	case StatePulling:
		return m.pull(ctx)
	case StateCommitRouting:
		return m.route(ctx)
	case StatePushing:
		return m.push(ctx)
	default:
		return m.fail(errors.Newf(errors.CodeInternal, "no transition from state %s", m.state))
	}
}

func (m *machine) start(ctx context.Context) State {
	res := m.gw.RevParse(ctx, "HEAD")
	if !res.Succeeded {
		// unborn or unreadable HEAD: any HEAD after the pull counts as advanced
		m.logger.Debug().Str("detail", res.Detail()).Msg("HEAD not resolvable before pull")
		return StatePulling
	}
	m.head = res.Output()
	return StatePulling
}

func (m *machine) pull(ctx context.Context) State {
	res := m.gw.PullFFOnly(ctx)
	if !res.Succeeded {
		m.outcome.Pull = domain.PullRejected
		return m.fail(res.Failure(errors.CodePullRejected, "pull failed"))
	}

	m.outcome.Pull = domain.PullUpToDate
	after := m.gw.RevParse(ctx, "HEAD")
	switch {
	case !after.Succeeded:
		m.logger.Debug().Str("detail", after.Detail()).Msg("HEAD not resolvable after pull")
	case after.Output() != m.head:
		m.outcome.Pull = domain.PullAdvanced
	}
	return StateCommitRouting
}

func (m *machine) route(ctx context.Context) State {
	if !m.cfg.PushEnabled {
		return m.succeed("pull ok, push disabled")
	}

	message := m.o.messages.Render(m.cfg.MessageTemplate, m.cfg.Scope)
	if m.cfg.SideChannel.Enabled {
		m.step = m.o.side.Sync(ctx, m.cfg, message)
	} else {
		m.step = m.o.direct.Commit(ctx, m.cfg, message)
	}

	m.outcome.Commit = m.step.Commit
	m.outcome.Retried = m.step.Retried

	switch m.step.Kind {
	case domain.StepFailed:
		if m.step.Err == nil {
			return m.fail(errors.New(errors.CodeInternal, "commit step failed without an error"))
		}
		return m.fail(m.step.Err)
	case domain.StepNoOp:
		m.outcome.Status = domain.StatusNoOp
		m.outcome.Message = "pull ok, " + m.step.Message
		return StateNoOp
	case domain.StepPublished:
		return m.succeed("pull ok, " + m.step.Message)
	case domain.StepReady:
		return StatePushing
	default:
		return m.fail(errors.Newf(errors.CodeInternal, "unknown step kind %s", m.step.Kind))
	}
}

func (m *machine) push(ctx context.Context) State {
	res := m.gw.Push(ctx)
	if !res.Succeeded {
		return m.fail(res.Failure(errors.CodePushRejected, "push failed"))
	}
	return m.succeed("pull ok, " + m.step.Message + ", pushed")
}

func (m *machine) succeed(message string) State {
	m.outcome.Status = domain.StatusSucceeded
	m.outcome.Message = message
	return StateSucceeded
}

func (m *machine) fail(err *errors.Error) State {
	pull, commit, retried := m.outcome.Pull, m.outcome.Commit, m.outcome.Retried
	m.outcome = failedOutcome(m.cfg.Target, err)
	m.outcome.Pull, m.outcome.Commit, m.outcome.Retried = pull, commit, retried
	return StateFailed
}
