package config

import (
	"github.com/input-output-hk/catalyst-forge-libs/reposync/domain"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
)

// Overrides are run-time settings that take precedence over the file.
// Each pair is mutually exclusive; a false field leaves the setting alone.
// Push selects ModeSyncAll, which keeps the file's push_enabled.
type Overrides struct {
	PullOnly bool
	Push     bool

	IncludeUntracked bool
	TrackedOnly      bool

	SideChannel   bool
	NoSideChannel bool
}

// Validate rejects contradictory overrides.
func (o Overrides) Validate() error {
	switch {
	case o.PullOnly && o.Push:
		return errors.New(errors.CodeInvalidInput, "--pull-only and --push are mutually exclusive")
	case o.IncludeUntracked && o.TrackedOnly:
		return errors.New(errors.CodeInvalidInput, "--include-untracked and --tracked-only are mutually exclusive")
	case o.SideChannel && o.NoSideChannel:
		return errors.New(errors.CodeInvalidInput, "--side-channel and --no-side-channel are mutually exclusive")
	}
	return nil
}

// mode applies --pull-only and --push to the file's default mode.
func (o Overrides) mode(def Mode) Mode {
	switch {
	case o.PullOnly:
		return ModePullOnly
	case o.Push:
		return ModeSyncAll
	case def == "":
		return ModeSyncAll
	default:
		return def
	}
}

// Resolve builds one EffectiveRepoConfig per target, in target order.
// Targets without a repository entry use the file's global settings.
func Resolve(f *File, o Overrides, targets []domain.RepositoryTarget) ([]domain.EffectiveRepoConfig, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if f == nil {
		f = Defaults()
	}

	cfgs := make([]domain.EffectiveRepoConfig, 0, len(targets))
	for _, target := range targets {
		entry, _ := f.Entry(target.Path)

		includeUntracked := f.IncludeUntracked
		if entry.IncludeUntracked != nil {
			includeUntracked = *entry.IncludeUntracked
		}
		switch {
		case o.IncludeUntracked:
			includeUntracked = true
		case o.TrackedOnly:
			includeUntracked = false
		}

		push := f.PushEnabled && o.mode(f.DefaultMode) == ModeSyncAll

		side := sideChannel(f, entry)
		switch {
		case o.SideChannel:
			side.Enabled = true
		case o.NoSideChannel:
			side.Enabled = false
		}

		cfgs = append(cfgs, domain.EffectiveRepoConfig{
			Target:          target,
			Scope:           domain.ScopeFor(includeUntracked),
			PushEnabled:     push,
			SideChannel:     side,
			MessageTemplate: f.Commit.MessageTemplate,
		})
	}
	return cfgs, nil
}

// ApplySideChannel returns the side-channel settings used to apply commits
// into target. The Enabled flag is irrelevant to apply and left as configured.
func ApplySideChannel(f *File, target domain.RepositoryTarget) domain.SideChannelConfig {
	if f == nil {
		f = Defaults()
	}
	entry, _ := f.Entry(target.Path)
	return sideChannel(f, entry)
}

func sideChannel(f *File, entry Repository) domain.SideChannelConfig {
	cfg := domain.SideChannelConfig{
		Enabled: f.SideChannel.Enabled,
		Remote:  f.SideChannel.RemoteName,
		Branch:  f.SideChannel.BranchName,
	}
	if o := entry.SideChannel; o != nil {
		if o.Enabled != nil {
			cfg.Enabled = *o.Enabled
		}
		if o.RemoteName != nil {
			cfg.Remote = *o.RemoteName
		}
		if o.BranchName != nil {
			cfg.Branch = *o.BranchName
		}
	}
	return cfg
}
