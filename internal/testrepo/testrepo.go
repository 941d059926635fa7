// Package testrepo builds throwaway git repositories for integration tests.
//
// All fixtures run the real git binary. Tests that use them call Setup first,
// which skips the test when git is not installed and points git at a private
// global configuration so the host's settings cannot leak into results.
package testrepo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/executor"
)

const gitConfig = `[user]
	name = Reposync Test
	email = reposync@example.com
[init]
	defaultBranch = main
[commit]
	gpgsign = false
[advice]
	detachedHead = false
`

// Setup skips the test when git is unavailable and isolates git configuration
// for the remainder of the test.
func Setup(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	home := t.TempDir()
	cfg := filepath.Join(home, "gitconfig")
	require.NoError(t, os.WriteFile(cfg, []byte(gitConfig), 0o600))

	t.Setenv("GIT_CONFIG_GLOBAL", cfg)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_TERMINAL_PROMPT", "0")
}

// Repo is a repository on disk.
type Repo struct {
	t   *testing.T
	Dir string
}

// Git runs git in the repository and fails the test on error. It returns trimmed stdout.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()
	out, err := r.TryGit(args...)
	require.NoError(r.t, err, "git %s failed: %s", strings.Join(args, " "), out)
	return out
}

// TryGit runs git in the repository and returns trimmed combined output.
func (r *Repo) TryGit(args ...string) (string, error) {
	r.t.Helper()
	res, err := executor.NewWrappedExecutor("git").Execute(
		context.Background(), args, executor.WithWorkingDir(r.Dir))
	if res == nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout + res.Stderr), err
}

// Write creates or replaces a file relative to the repository root.
func (r *Repo) Write(path, content string) {
	r.t.Helper()
	full := filepath.Join(r.Dir, path)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(r.t, os.WriteFile(full, []byte(content), 0o644))
}

// Read returns the contents of a file relative to the repository root.
func (r *Repo) Read(path string) string {
	r.t.Helper()
	data, err := os.ReadFile(filepath.Join(r.Dir, path))
	require.NoError(r.t, err)
	return string(data)
}

// Exists reports whether a path exists relative to the repository root.
func (r *Repo) Exists(path string) bool {
	_, err := os.Stat(filepath.Join(r.Dir, path))
	return err == nil
}

// CommitFile writes path, commits it and returns the new HEAD.
func (r *Repo) CommitFile(path, content, message string) string {
	r.t.Helper()
	r.Write(path, content)
	r.Git("add", path)
	r.Git("commit", "-m", message)
	return r.Head()
}

// Head returns the commit HEAD resolves to.
func (r *Repo) Head() string {
	r.t.Helper()
	return r.Git("rev-parse", "HEAD")
}

// Rev resolves rev in the repository.
func (r *Repo) Rev(rev string) string {
	r.t.Helper()
	return r.Git("rev-parse", rev)
}

// Branch returns the checked-out branch name.
func (r *Repo) Branch() string {
	r.t.Helper()
	return r.Git("symbolic-ref", "--short", "HEAD")
}

// Status returns porcelain status output, "" for a clean tree.
func (r *Repo) Status() string {
	r.t.Helper()
	return r.Git("status", "--porcelain")
}

// AddRemote registers remote under name.
func (r *Repo) AddRemote(name string, remote *Repo) {
	r.t.Helper()
	r.Git("remote", "add", name, remote.Dir)
}

// NewBare creates an empty bare repository.
func NewBare(t *testing.T) *Repo {
	t.Helper()
	dir := canonical(t, t.TempDir())
	r := &Repo{t: t, Dir: dir}
	r.Git("init", "--bare", "--initial-branch=main")
	return r
}

// Clone clones remote into a fresh directory.
func Clone(t *testing.T, remote *Repo) *Repo {
	t.Helper()
	dir := filepath.Join(canonical(t, t.TempDir()), "work")
	parent := &Repo{t: t, Dir: filepath.Dir(dir)}
	parent.Git("clone", remote.Dir, dir)
	return &Repo{t: t, Dir: dir}
}

// Workspace is an origin remote, a side-channel remote and a clone tracking origin.
type Workspace struct {
	Origin *Repo
	Side   *Repo
	Local  *Repo
}

// SideRemote is the remote name under which Workspace registers the side repository.
const SideRemote = "backup"

// NewWorkspace creates origin with one commit on main, an empty side remote
// registered as SideRemote, and a local clone of origin.
func NewWorkspace(t *testing.T) *Workspace {
	t.Helper()
	Setup(t)

	origin := NewBare(t)
	seed := Clone(t, origin)
	seed.CommitFile("README.md", "seed\n", "initial")
	seed.Git("push", "origin", "HEAD:main")

	side := NewBare(t)
	local := Clone(t, origin)
	local.AddRemote(SideRemote, side)

	return &Workspace{Origin: origin, Side: side, Local: local}
}

// Host returns another clone of Origin with the side remote registered,
// standing in for a second machine.
func (w *Workspace) Host(t *testing.T) *Repo {
	t.Helper()
	r := Clone(t, w.Origin)
	r.AddRemote(SideRemote, w.Side)
	return r
}

func canonical(t *testing.T, dir string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	return resolved
}
