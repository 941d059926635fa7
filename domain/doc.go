// Package domain provides canonical type definitions for repository synchronization.
//
// This package contains the value types shared by the commit, side-channel,
// workflow, apply and report packages: repository targets, commit scopes,
// side-channel destinations, per-repository configuration and the outcomes
// produced by a run.
//
// # Design Principles
//
//   - Value types only: no behavior beyond small derivations and String methods
//   - Immutable after construction: engines receive configuration by value
//   - Serializable: every outcome carries json and yaml tags for reporting
//   - Minimal imports: only the reposync errors package for failure codes
//
// # Configuration
//
// EffectiveRepoConfig is the fully resolved configuration of one repository,
// produced by the config package from file defaults, per-repository entries
// and command-line overrides:
//
//	cfg := domain.EffectiveRepoConfig{
//	    Target:      domain.RepositoryTarget{Path: "/home/me/notes"},
//	    Scope:       domain.ScopeTrackedOnly,
//	    PushEnabled: true,
//	    SideChannel: domain.SideChannelConfig{
//	        Enabled: true,
//	        Remote:  "backup",
//	        Branch:  "reposync/sync",
//	    },
//	}
//
//	ref := cfg.SideChannel.Ref()
//	ref.TrackingRef()    // "backup/reposync/sync"
//	ref.DestinationRef() // "refs/heads/reposync/sync"
//
// # Outcomes
//
// Each processed repository yields exactly one RepoOutcome. A RunOutcome
// collects them in input order together with a Summary and an overall
// RunStatus derived from the outcomes alone.
//
// Available enumerations:
//
//   - CommitScope: tracked, all
//   - PullOutcome: UP_TO_DATE, ADVANCED, REJECTED
//   - RepoStatus: SUCCEEDED, NO_OP, FAILED
//   - RunStatus: CLEAN, FAILED
//   - ApplyMethod: merge, cherry-pick, squash
package domain
