// Package errors provides the failure taxonomy for repository synchronization.
// It extends Go's standard error handling with structured error codes, conflict
// path lists and context preservation, so that every per-repository failure can
// be reported as data instead of aborting a run.
package errors

// Code represents a specific failure condition of a sync or apply step.
// Codes are string-based for debuggability and natural JSON serialization.
type Code string

const (
	// Workflow errors.

	// CodePullRejected indicates the fast-forward-only pull failed or was refused.
	CodePullRejected Code = "PULL_REJECTED"

	// CodeStageFailed indicates changes could not be staged into an index.
	CodeStageFailed Code = "STAGE_FAILED"

	// CodeCommitFailed indicates a direct commit on the current branch failed.
	CodeCommitFailed Code = "COMMIT_FAILED"

	// CodePushRejected indicates a push was refused by the remote.
	CodePushRejected Code = "PUSH_REJECTED"

	// CodeCancelled indicates the run was stopped before this repository started.
	CodeCancelled Code = "CANCELLED"

	// Side-channel errors.

	// CodeRemoteMissing indicates the configured side-channel remote is unknown.
	CodeRemoteMissing Code = "REMOTE_MISSING"

	// CodeFetchFailed indicates fetching the side-channel remote failed.
	CodeFetchFailed Code = "FETCH_FAILED"

	// CodeSnapshotFailed indicates the isolated index or snapshot objects could not be built.
	CodeSnapshotFailed Code = "SNAPSHOT_FAILED"

	// CodeSideChannelConflict indicates the virtual three-way combination reported conflicts.
	CodeSideChannelConflict Code = "SIDE_CHANNEL_CONFLICT"

	// CodePushRetryExhausted indicates the side-channel push was rejected again after its retry.
	CodePushRetryExhausted Code = "PUSH_RETRY_EXHAUSTED"

	// CodeInvariantViolated indicates the caller's branch, head or index changed during a sync.
	CodeInvariantViolated Code = "INVARIANT_VIOLATED"

	// Apply errors.

	// CodeSideBranchMissing indicates the side-channel branch does not exist on the remote.
	CodeSideBranchMissing Code = "SIDE_BRANCH_MISSING"

	// CodeNotFastForward indicates the current branch diverged from the side-channel tip.
	CodeNotFastForward Code = "NOT_FAST_FORWARD"

	// CodeCherryPickConflict indicates replaying the side-channel tip produced conflicts.
	CodeCherryPickConflict Code = "CHERRY_PICK_CONFLICT"

	// CodeSquashConflict indicates the squash merge produced conflicts.
	CodeSquashConflict Code = "SQUASH_CONFLICT"

	// CodeApplyFailed indicates an apply method failed for a reason other than a conflict.
	CodeApplyFailed Code = "APPLY_FAILED"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig Code = "INVALID_CONFIGURATION"

	// System errors.

	// CodeInternal indicates an internal system error occurred.
	CodeInternal Code = "INTERNAL_ERROR"
)

// String returns the string representation of the Code.
func (c Code) String() string {
	return string(c)
}

// IsConflict reports whether the code carries a conflicting path list.
func (c Code) IsConflict() bool {
	switch c {
	case CodeSideChannelConflict, CodeCherryPickConflict, CodeSquashConflict:
		return true
	default:
		return false
	}
}

