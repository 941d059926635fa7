package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/domain"
	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
)

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func target(p string) domain.RepositoryTarget { return domain.RepositoryTarget{Path: p} }

func TestOverrides_Validate(t *testing.T) {
	tests := []struct {
		name      string
		overrides Overrides
		wantErr   bool
	}{
		{name: "none", overrides: Overrides{}},
		{name: "compatible", overrides: Overrides{PullOnly: true, IncludeUntracked: true, NoSideChannel: true}},
		{name: "push conflict", overrides: Overrides{PullOnly: true, Push: true}, wantErr: true},
		{name: "scope conflict", overrides: Overrides{IncludeUntracked: true, TrackedOnly: true}, wantErr: true},
		{name: "side channel conflict", overrides: Overrides{SideChannel: true, NoSideChannel: true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.overrides.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, errors.CodeInvalidInput, errors.CodeOf(err))
		})
	}
}

func TestResolve(t *testing.T) {
	file := &File{
		PushEnabled:      true,
		IncludeUntracked: false,
		SideChannel:      SideChannel{Enabled: false, RemoteName: "backup", BranchName: "reposync/sync"},
		Commit:           Commit{MessageTemplate: "custom {scope}"},
		Repositories: []Repository{
			{Path: "/work/a", Enabled: true, IncludeUntracked: boolPtr(true)},
			{Path: "/work/b", Enabled: true, SideChannel: &SideChannelOverride{
				Enabled:    boolPtr(true),
				RemoteName: strPtr("mirror"),
			}},
		},
	}

	tests := []struct {
		name      string
		file      *File
		overrides Overrides
		target    string
		validate  func(t *testing.T, cfg domain.EffectiveRepoConfig)
	}{
		{
			name:   "defaults without a file",
			target: "/any",
			validate: func(t *testing.T, cfg domain.EffectiveRepoConfig) {
				assert.Equal(t, domain.ScopeTrackedOnly, cfg.Scope)
				assert.True(t, cfg.PushEnabled)
				assert.Equal(t, domain.SideChannelConfig{Remote: DefaultRemote, Branch: DefaultBranch}, cfg.SideChannel)
				assert.Equal(t, DefaultTemplate, cfg.MessageTemplate)
			},
		},
		{
			name:   "unlisted target uses globals",
			file:   file,
			target: "/elsewhere",
			validate: func(t *testing.T, cfg domain.EffectiveRepoConfig) {
				assert.Equal(t, domain.ScopeTrackedOnly, cfg.Scope)
				assert.Equal(t, "backup", cfg.SideChannel.Remote)
				assert.False(t, cfg.SideChannel.Enabled)
				assert.Equal(t, "custom {scope}", cfg.MessageTemplate)
			},
		},
		{
			name:   "entry scope beats global",
			file:   file,
			target: "/work/a",
			validate: func(t *testing.T, cfg domain.EffectiveRepoConfig) {
				assert.Equal(t, domain.ScopeIncludeUntracked, cfg.Scope)
			},
		},
		{
			name:      "override beats entry scope",
			file:      file,
			overrides: Overrides{TrackedOnly: true},
			target:    "/work/a",
			validate: func(t *testing.T, cfg domain.EffectiveRepoConfig) {
				assert.Equal(t, domain.ScopeTrackedOnly, cfg.Scope)
			},
		},
		{
			name:   "entry side channel merges with globals",
			file:   file,
			target: "/work/b",
			validate: func(t *testing.T, cfg domain.EffectiveRepoConfig) {
				assert.Equal(t, domain.SideChannelConfig{Enabled: true, Remote: "mirror", Branch: "reposync/sync"}, cfg.SideChannel)
			},
		},
		{
			name:      "no-side-channel beats entry",
			file:      file,
			overrides: Overrides{NoSideChannel: true},
			target:    "/work/b",
			validate: func(t *testing.T, cfg domain.EffectiveRepoConfig) {
				assert.False(t, cfg.SideChannel.Enabled)
				assert.Equal(t, "mirror", cfg.SideChannel.Remote)
			},
		},
		{
			name:      "side-channel and pull-only overrides",
			file:      file,
			overrides: Overrides{SideChannel: true, PullOnly: true},
			target:    "/elsewhere",
			validate: func(t *testing.T, cfg domain.EffectiveRepoConfig) {
				assert.True(t, cfg.SideChannel.Enabled)
				assert.False(t, cfg.PushEnabled)
			},
		},
		{
			name:      "push override restores sync_all",
			file:      &File{DefaultMode: ModePullOnly, PushEnabled: true, SideChannel: SideChannel{RemoteName: "r", BranchName: "b"}},
			overrides: Overrides{Push: true},
			target:    "/any",
			validate: func(t *testing.T, cfg domain.EffectiveRepoConfig) {
				assert.True(t, cfg.PushEnabled)
			},
		},
		{
			name:      "push override keeps push_enabled false",
			file:      &File{DefaultMode: ModeSyncAll, PushEnabled: false, SideChannel: SideChannel{RemoteName: "r", BranchName: "b"}},
			overrides: Overrides{Push: true},
			target:    "/any",
			validate: func(t *testing.T, cfg domain.EffectiveRepoConfig) {
				assert.False(t, cfg.PushEnabled)
			},
		},
		{
			name:   "pull_only default mode disables push",
			file:   &File{DefaultMode: ModePullOnly, PushEnabled: true, SideChannel: SideChannel{RemoteName: "r", BranchName: "b"}},
			target: "/any",
			validate: func(t *testing.T, cfg domain.EffectiveRepoConfig) {
				assert.False(t, cfg.PushEnabled)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgs, err := Resolve(tt.file, tt.overrides, []domain.RepositoryTarget{target(tt.target)})
			require.NoError(t, err)
			require.Len(t, cfgs, 1)
			assert.Equal(t, tt.target, cfgs[0].Target.Path)
			tt.validate(t, cfgs[0])
		})
	}
}

func TestResolve_PreservesTargetOrder(t *testing.T) {
	targets := []domain.RepositoryTarget{target("/c"), target("/a"), target("/b")}

	cfgs, err := Resolve(Defaults(), Overrides{}, targets)
	require.NoError(t, err)

	var got []domain.RepositoryTarget
	for _, c := range cfgs {
		got = append(got, c.Target)
	}
	assert.Equal(t, targets, got)
}

func TestResolve_RejectsConflictingOverrides(t *testing.T) {
	_, err := Resolve(Defaults(), Overrides{Push: true, PullOnly: true}, []domain.RepositoryTarget{target("/a")})
	assert.Equal(t, errors.CodeInvalidInput, errors.CodeOf(err))
}

func TestApplySideChannel(t *testing.T) {
	file := Defaults()
	file.Repositories = []Repository{
		{Path: "/work/a", Enabled: true, SideChannel: &SideChannelOverride{BranchName: strPtr("a/sync")}},
	}

	assert.Equal(t,
		domain.SideChannelConfig{Remote: DefaultRemote, Branch: "a/sync"},
		ApplySideChannel(file, target("/work/a")))
	assert.Equal(t,
		domain.SideChannelConfig{Remote: DefaultRemote, Branch: DefaultBranch},
		ApplySideChannel(nil, target("/work/a")))
}

func TestEntry_MatchesThroughSymlink(t *testing.T) {
	dir := t.TempDir()
	realDir := filepath.Join(dir, "real")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Mkdir(realDir, 0o755))
	require.NoError(t, os.Symlink(realDir, link))

	file := &File{Repositories: []Repository{{Path: link, Enabled: true}}}

	entry, ok := file.Entry(realDir)
	require.True(t, ok)
	assert.Equal(t, link, entry.Path)

	_, ok = file.Entry(filepath.Join(dir, "other"))
	assert.False(t, ok)
}
