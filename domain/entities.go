package domain

import (
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
)

// RepositoryTarget is a working copy selected for a run.
// Identity is the canonicalized absolute path.
type RepositoryTarget struct {
	// Path is the absolute, symlink-resolved working tree root.
	Path string `json:"path" yaml:"path"`
}

// String returns the target path.
func (t RepositoryTarget) String() string {
	return t.Path
}

// SideChannelConfig holds the side-channel settings of one repository.
type SideChannelConfig struct {
	// Enabled routes commits through the side channel instead of the current branch.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Remote is the name of the git remote receiving side-channel commits.
	Remote string `json:"remote" yaml:"remote"`

	// Branch is the remote branch name (or full ref) receiving side-channel commits.
	Branch string `json:"branch" yaml:"branch"`
}

// Ref returns the side-channel destination of this configuration.
func (c SideChannelConfig) Ref() SideChannelRef {
	return SideChannelRef{Remote: c.Remote, Branch: c.Branch}
}

// SideChannelRef identifies the side-channel destination: a remote and a branch.
type SideChannelRef struct {
	Remote string `json:"remote" yaml:"remote"`
	Branch string `json:"branch" yaml:"branch"`
}

// TrackingRef returns the remote-tracking name of the branch, e.g. "backup/reposync/sync".
func (r SideChannelRef) TrackingRef() string {
	return r.Remote + "/" + strings.TrimPrefix(r.Branch, "refs/heads/")
}

// DestinationRef returns the fully qualified ref to push to.
func (r SideChannelRef) DestinationRef() string {
	if strings.HasPrefix(r.Branch, "refs/") {
		return r.Branch
	}
	return "refs/heads/" + r.Branch
}

// String returns "<remote>/<branch>".
func (r SideChannelRef) String() string {
	return r.TrackingRef()
}

// EffectiveRepoConfig is the fully merged configuration of one repository.
// It is built once before orchestration and never mutated by the engines.
type EffectiveRepoConfig struct {
	// Target is the repository to process.
	Target RepositoryTarget `json:"target" yaml:"target"`

	// Scope selects tracked-only or tracked plus untracked changes.
	Scope CommitScope `json:"scope" yaml:"scope"`

	// PushEnabled allows the workflow to publish commits.
	PushEnabled bool `json:"push_enabled" yaml:"push_enabled"`

	// SideChannel holds the side-channel settings.
	SideChannel SideChannelConfig `json:"side_channel" yaml:"side_channel"`

	// MessageTemplate is the commit message template ({timestamp}, {hostname}, {scope}).
	MessageTemplate string `json:"message_template" yaml:"message_template"`
}

// RepoOutcome is the terminal result for one repository in one run.
type RepoOutcome struct {
	// Target is the processed repository.
	Target RepositoryTarget `json:"target" yaml:"target"`

	// Status is the terminal state.
	Status RepoStatus `json:"status" yaml:"status"`

	// Kind is the failure code. Empty unless Status is StatusFailed.
	Kind errors.Code `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Detail is the failure description. Empty unless Status is StatusFailed.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`

	// Paths lists conflicting paths for conflict failures.
	Paths []string `json:"paths,omitempty" yaml:"paths,omitempty"`

	// Pull is the result of the pull step.
	Pull PullOutcome `json:"pull,omitempty" yaml:"pull,omitempty"`

	// Commit is the commit created or published, if any.
	Commit string `json:"commit,omitempty" yaml:"commit,omitempty"`

	// Retried is true when the side-channel push needed its retry.
	Retried bool `json:"retried,omitempty" yaml:"retried,omitempty"`

	// Message is a short human-readable summary of what happened.
	Message string `json:"message" yaml:"message"`

	// Duration is the wall time spent on this repository.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Failed reports whether the outcome is a failure.
func (o RepoOutcome) Failed() bool {
	return o.Status == StatusFailed
}

// Summary counts repository outcomes by status.
type Summary struct {
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	NoOp      int `json:"no_op" yaml:"no_op"`
	Failed    int `json:"failed" yaml:"failed"`
}

// Total returns the number of counted outcomes.
func (s Summary) Total() int {
	return s.Succeeded + s.NoOp + s.Failed
}

// RunOutcome is the ordered collection of outcomes of one run.
// Status and Summary are derived solely from Outcomes.
type RunOutcome struct {
	Outcomes []RepoOutcome `json:"outcomes" yaml:"outcomes"`
	Status   RunStatus     `json:"status" yaml:"status"`
	Summary  Summary       `json:"summary" yaml:"summary"`
}

// ApplyRequest asks the apply engine to reconcile a side-channel tip into a repository.
type ApplyRequest struct {
	Target RepositoryTarget `json:"target" yaml:"target"`
	Method ApplyMethod      `json:"method" yaml:"method"`
	Ref    SideChannelRef   `json:"ref" yaml:"ref"`
}

// ApplyOutcome is the result of one apply attempt.
type ApplyOutcome struct {
	Target RepositoryTarget `json:"target" yaml:"target"`
	Method ApplyMethod      `json:"method" yaml:"method"`

	// Status is StatusSucceeded, StatusNoOp (already integrated) or StatusFailed.
	Status RepoStatus `json:"status" yaml:"status"`

	Kind   errors.Code `json:"kind,omitempty" yaml:"kind,omitempty"`
	Detail string      `json:"detail,omitempty" yaml:"detail,omitempty"`
	Paths  []string    `json:"paths,omitempty" yaml:"paths,omitempty"`

	// Tip is the side-channel tip that was reconciled.
	Tip string `json:"tip,omitempty" yaml:"tip,omitempty"`

	// Head is the current branch tip after the apply.
	Head string `json:"head,omitempty" yaml:"head,omitempty"`
}

// Failed reports whether the apply failed.
func (o ApplyOutcome) Failed() bool {
	return o.Status == StatusFailed
}

// StepKind classifies the result of the commit-routing step of a workflow.
type StepKind int

const (
	// StepNoOp means there was nothing to commit or publish.
	StepNoOp StepKind = iota

	// StepReady means a commit exists locally and still needs publishing.
	StepReady

	// StepPublished means the engine already published its commit.
	StepPublished

	// StepFailed means the engine stopped on a failure; Step.Err is set.
	StepFailed
)

// String returns a lowercase name for the step kind.
func (k StepKind) String() string {
	switch k {
	case StepNoOp:
		return "no-op"
	case StepReady:
		return "ready"
	case StepPublished:
		return "published"
	case StepFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Step is the result a commit engine hands back to the workflow.
type Step struct {
	Kind StepKind

	// Commit is the commit created or published, if any.
	Commit string

	// Retried is true when publication needed its single retry.
	Retried bool

	// Message summarizes the step for the outcome report.
	Message string

	// Err describes the failure when Kind is StepFailed.
	Err *errors.Error
}

// FailedStep returns a StepFailed carrying err.
func FailedStep(err *errors.Error) Step {
	return Step{Kind: StepFailed, Err: err, Message: err.Message}
}
