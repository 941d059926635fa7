package domain

import "fmt"

// CommitScope selects which working-tree changes are staged for a commit.
// It is a closed set: every switch over it must handle both variants.
type CommitScope int

const (
	// ScopeTrackedOnly stages updates to files git already tracks.
	ScopeTrackedOnly CommitScope = iota

	// ScopeIncludeUntracked additionally stages new, non-ignored files.
	ScopeIncludeUntracked
)

// String returns the template value for the scope ("tracked" or "all").
func (s CommitScope) String() string {
	switch s {
	case ScopeTrackedOnly:
		return "tracked"
	case ScopeIncludeUntracked:
		return "all"
	default:
		return fmt.Sprintf("CommitScope(%d)", int(s))
	}
}

// MarshalText encodes the scope as its template value.
func (s CommitScope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes "tracked" or "all".
func (s *CommitScope) UnmarshalText(text []byte) error {
	switch string(text) {
	case "tracked":
		*s = ScopeTrackedOnly
	case "all":
		*s = ScopeIncludeUntracked
	default:
		return fmt.Errorf("unknown commit scope %q", string(text))
	}
	return nil
}

// ScopeFor maps the include-untracked flag used by configuration onto a CommitScope.
func ScopeFor(includeUntracked bool) CommitScope {
	if includeUntracked {
		return ScopeIncludeUntracked
	}
	return ScopeTrackedOnly
}

// PullOutcome is the result of the mandatory fast-forward-only pull.
type PullOutcome string

const (
	// PullNotAttempted indicates the workflow stopped before pulling.
	PullNotAttempted PullOutcome = ""

	// PullUpToDate indicates the branch tip did not move.
	PullUpToDate PullOutcome = "UP_TO_DATE"

	// PullAdvanced indicates the branch was fast-forwarded.
	PullAdvanced PullOutcome = "ADVANCED"

	// PullRejected indicates the pull was refused or failed.
	PullRejected PullOutcome = "REJECTED"
)

// String returns the string representation of the PullOutcome.
func (p PullOutcome) String() string {
	return string(p)
}

// RepoStatus is the terminal status of one repository in one run.
type RepoStatus string

const (
	// StatusSucceeded indicates the workflow completed and did work.
	StatusSucceeded RepoStatus = "SUCCEEDED"

	// StatusNoOp indicates the workflow completed with nothing to commit or apply.
	StatusNoOp RepoStatus = "NO_OP"

	// StatusFailed indicates the workflow stopped on a failure.
	StatusFailed RepoStatus = "FAILED"
)

// String returns the string representation of the RepoStatus.
func (s RepoStatus) String() string {
	return string(s)
}

// RunStatus is the overall status of a run, derived from its repository outcomes.
type RunStatus string

const (
	// RunClean indicates every repository succeeded or was a no-op.
	RunClean RunStatus = "CLEAN"

	// RunFailed indicates at least one repository failed.
	RunFailed RunStatus = "FAILED"
)

// String returns the string representation of the RunStatus.
func (s RunStatus) String() string {
	return string(s)
}

// ApplyMethod selects how a side-channel tip is reconciled into the current branch.
type ApplyMethod string

const (
	// MethodMerge fast-forwards the current branch to the side-channel tip.
	MethodMerge ApplyMethod = "merge"

	// MethodCherryPick replays the side-channel tip commit onto the current branch.
	MethodCherryPick ApplyMethod = "cherry-pick"

	// MethodSquash stages the side-channel changes without committing.
	MethodSquash ApplyMethod = "squash"
)

// String returns the string representation of the ApplyMethod.
func (m ApplyMethod) String() string {
	return string(m)
}

// ParseApplyMethod parses "merge", "cherry-pick" or "squash".
func ParseApplyMethod(s string) (ApplyMethod, error) {
	switch m := ApplyMethod(s); m {
	case MethodMerge, MethodCherryPick, MethodSquash:
		return m, nil
	default:
		return "", fmt.Errorf("unknown apply method %q (want merge, cherry-pick or squash)", s)
	}
}
