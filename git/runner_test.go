package git

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/internal/testrepo"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		stdout   string
		stderr   string
		want     Code
	}{
		{name: "success", exitCode: 0, want: CodeOK},
		{name: "success ignores markers", exitCode: 0, stdout: "CONFLICT", want: CodeOK},
		{name: "not started", exitCode: -1, want: CodeFailed},
		{name: "predicate false", exitCode: 1, want: CodeFalse},
		{
			name:     "push non-fast-forward",
			exitCode: 1,
			stderr:   " ! [rejected]        abc -> refs/heads/x (non-fast-forward)",
			want:     CodeRejected,
		},
		{
			name:     "push fetch first",
			exitCode: 1,
			stderr:   " ! [rejected]        abc -> refs/heads/x (fetch first)",
			want:     CodeRejected,
		},
		{
			name:     "pull diverged",
			exitCode: 128,
			stderr:   "hint: Diverging branches can't be fast-forwarded\nfatal: Not possible to fast-forward, aborting.",
			want:     CodeRejected,
		},
		{
			name:     "merge conflict",
			exitCode: 1,
			stdout:   "Auto-merging a.txt\nCONFLICT (content): Merge conflict in a.txt",
			want:     CodeConflict,
		},
		{
			name:     "fatal",
			exitCode: 128,
			stderr:   "fatal: not a git repository",
			want:     CodeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.exitCode, tt.stdout, tt.stderr))
		})
	}
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "ok", CodeOK.String())
	assert.Equal(t, "false", CodeFalse.String())
	assert.Equal(t, "rejected", CodeRejected.String())
	assert.Equal(t, "conflict", CodeConflict.String())
	assert.Equal(t, "failed", CodeFailed.String())
	assert.Equal(t, "unknown", Code(42).String())
}

func TestResultDetail(t *testing.T) {
	assert.Equal(t, "fatal: boom", Result{Stderr: "\nfatal: boom\nmore"}.Detail())
	assert.Equal(t, "out", Result{Stdout: "out\n"}.Detail())
	assert.Equal(t, "git push failed", Result{Op: "push"}.Detail())
}

func TestCLI_ProgramNotFound(t *testing.T) {
	cli := NewCLI(WithProgram("reposync-no-such-git"))

	res := cli.Run(context.Background(), Invocation{Dir: t.TempDir(), Args: []string{"status"}})

	assert.False(t, res.Succeeded)
	assert.Equal(t, CodeFailed, res.Code)
	assert.Equal(t, -1, res.ExitCode)
	assert.Equal(t, "status", res.Op)
	assert.Error(t, res.Err)
}

func TestCLI_ClosedIndexIsNotExecuted(t *testing.T) {
	idx, err := NewIndexIn(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	cli := NewCLI(WithProgram("reposync-no-such-git"))
	res := cli.Run(context.Background(), Invocation{Dir: t.TempDir(), Index: idx, Args: []string{"write-tree"}})

	assert.Equal(t, CodeFailed, res.Code)
	assert.ErrorIs(t, res.Err, ErrIndexClosed)
}

func TestCLI_IsolatedIndex(t *testing.T) {
	ws := testrepo.NewWorkspace(t)
	cli := NewCLI()
	ctx := context.Background()

	idx, err := NewIndex()
	require.NoError(t, err)
	defer idx.Close()

	_, statErr := os.Stat(idx.Path())
	require.True(t, os.IsNotExist(statErr), "index file must not exist before read-tree")

	res := cli.Run(ctx, Invocation{Dir: ws.Local.Dir, Index: idx, Args: []string{"read-tree", "HEAD"}})
	require.True(t, res.Succeeded, res.Stderr)
	assert.FileExists(t, idx.Path())
	assert.Empty(t, os.Getenv(IndexEnv), "parent environment must not change")

	ws.Local.Write("extra.txt", "x\n")
	res = cli.Run(ctx, Invocation{Dir: ws.Local.Dir, Index: idx, Args: []string{"add", "-A"}})
	require.True(t, res.Succeeded, res.Stderr)

	res = cli.Run(ctx, Invocation{Dir: ws.Local.Dir, Index: idx, Args: []string{"ls-files"}})
	require.True(t, res.Succeeded)
	assert.Equal(t, []string{"README.md", "extra.txt"}, Lines(res.Stdout))

	assert.Equal(t, "?? extra.txt", ws.Local.Status(), "real index must not see the staged file")
}

func TestCLI_PredicateFalse(t *testing.T) {
	ws := testrepo.NewWorkspace(t)
	cli := NewCLI()

	res := cli.Run(context.Background(), Invocation{
		Dir:  ws.Local.Dir,
		Args: []string{"rev-parse", "--verify", "--quiet", "refs/heads/does-not-exist"},
	})

	assert.Equal(t, CodeFalse, res.Code)
	assert.Equal(t, 1, res.ExitCode)
}
