// Package config provides loading, validation and resolution of reposync
// configuration defined in CUE format.
//
// A configuration file sets global defaults and lists repositories, each of
// which may override the commit scope and side-channel settings:
//
//	default_mode: "sync_all"
//	push_enabled: true
//	side_channel: {
//	    enabled:     true
//	    remote_name: "backup"
//	}
//	repositories: [
//	    {path: "~/notes"},
//	    {path: "work/site", include_untracked: true},
//	    {path: "scratch", enabled: false},
//	]
//
// The file is unified with an embedded CUE schema, so unknown fields, wrong
// types and empty names are rejected before decoding and omitted fields take
// their defaults.
//
// # Basic Usage
//
//	file, err := config.LoadDefault()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	overrides := config.Overrides{IncludeUntracked: true}
//	cfgs, err := config.Resolve(file, overrides, targets)
//
// Precedence, lowest to highest: built-in defaults, file globals, the
// repository entry, run-time overrides.
package config

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/commit"
)

const (
	// DefaultRemote is the side-channel remote name used when none is configured.
	DefaultRemote = "reposync"

	// DefaultBranch is the side-channel branch used when none is configured.
	DefaultBranch = "reposync/sync"

	// DefaultTemplate is the commit message template used when none is configured.
	DefaultTemplate = commit.DefaultTemplate

	// appDir and fileName locate the configuration under the XDG config home.
	appDir   = "reposync"
	fileName = "config.cue"
)

// Mode selects what a run does after pulling.
type Mode string

const (
	// ModeSyncAll commits and, when push_enabled is set, publishes.
	ModeSyncAll Mode = "sync_all"

	// ModePullOnly pulls and stops.
	ModePullOnly Mode = "pull_only"
)

// File is a decoded configuration file.
type File struct {
	// DefaultMode is the run mode used when neither --pull-only nor --push is given.
	DefaultMode Mode `json:"default_mode"`

	// PushEnabled allows workflows to publish commits.
	PushEnabled bool `json:"push_enabled"`

	// IncludeUntracked stages new files in addition to tracked changes.
	IncludeUntracked bool `json:"include_untracked"`

	// SideChannel holds the global side-channel settings.
	SideChannel SideChannel `json:"side_channel"`

	// Commit holds commit message settings.
	Commit Commit `json:"commit"`

	// Repositories lists configured working copies in file order.
	Repositories []Repository `json:"repositories"`

	// Path is the file the configuration was loaded from, "" for built-in defaults.
	Path string `json:"-"`
}

// SideChannel holds side-channel settings.
type SideChannel struct {
	Enabled    bool   `json:"enabled"`
	RemoteName string `json:"remote_name"`
	BranchName string `json:"branch_name"`
}

// Commit holds commit message settings.
type Commit struct {
	MessageTemplate string `json:"message_template"`
}

// Repository is one configured working copy. Nil fields inherit the global value.
type Repository struct {
	// Path is absolute once loaded; relative entries are resolved against the file's directory.
	Path             string               `json:"path"`
	Enabled          bool                 `json:"enabled"`
	IncludeUntracked *bool                `json:"include_untracked,omitempty"`
	SideChannel      *SideChannelOverride `json:"side_channel,omitempty"`
}

// SideChannelOverride overrides individual global side-channel settings.
type SideChannelOverride struct {
	Enabled    *bool   `json:"enabled,omitempty"`
	RemoteName *string `json:"remote_name,omitempty"`
	BranchName *string `json:"branch_name,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() *File {
	return &File{
		DefaultMode:      ModeSyncAll,
		PushEnabled:      true,
		IncludeUntracked: false,
		SideChannel: SideChannel{
			Enabled:    false,
			RemoteName: DefaultRemote,
			BranchName: DefaultBranch,
		},
		Commit:       Commit{MessageTemplate: DefaultTemplate},
		Repositories: []Repository{},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/reposync/config.cue.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appDir, fileName)
}

// EnabledPaths returns the paths of enabled repositories in file order.
func (f *File) EnabledPaths() []string {
	var paths []string
	for _, r := range f.Repositories {
		if r.Enabled {
			paths = append(paths, r.Path)
		}
	}
	return paths
}

// Entry returns the repository entry whose path resolves to path.
func (f *File) Entry(path string) (Repository, bool) {
	want := canonical(path)
	for _, r := range f.Repositories {
		if canonical(r.Path) == want {
			return r, true
		}
	}
	return Repository{}, false
}

// canonical cleans path and resolves symlinks when the path exists.
func canonical(path string) string {
	path = filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}
