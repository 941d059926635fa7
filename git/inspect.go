package git

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/domain"
)

// LiveState is the observable state of a working copy that side-channel sync must preserve.
type LiveState struct {
	// Branch is the short name HEAD points at, or "" when detached.
	Branch string `json:"branch"`

	// Head is the commit HEAD resolves to, or "" on an unborn branch.
	Head string `json:"head"`

	// IndexDigest fingerprints the path, mode, stage and blob of every index entry.
	IndexDigest string `json:"index_digest"`
}

// Changes lists the fields that differ between s and after.
func (s LiveState) Changes(after LiveState) []string {
	var changed []string
	if s.Branch != after.Branch {
		changed = append(changed, fmt.Sprintf("branch %q -> %q", s.Branch, after.Branch))
	}
	if s.Head != after.Head {
		changed = append(changed, fmt.Sprintf("head %s -> %s", s.Head, after.Head))
	}
	if s.IndexDigest != after.IndexDigest {
		changed = append(changed, "index contents")
	}
	return changed
}

// OpenTarget canonicalizes path and verifies that it is inside a non-bare
// working copy. The returned target is the working tree root.
func OpenTarget(path string) (domain.RepositoryTarget, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.RepositoryTarget{}, WrapErrorf(err, "failed to resolve %s", path)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return domain.RepositoryTarget{}, WrapErrorf(err, "failed to resolve %s", path)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return domain.RepositoryTarget{}, WrapErrorf(err, "failed to stat %s", abs)
	}
	if !info.IsDir() {
		return domain.RepositoryTarget{}, WrapErrorf(ErrNotWorkingCopy, "%s is not a directory", abs)
	}

	repo, err := gogit.PlainOpenWithOptions(abs, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return domain.RepositoryTarget{}, openError(abs, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, gogit.ErrIsBareRepository) {
			return domain.RepositoryTarget{}, WrapErrorf(ErrNotWorkingCopy, "%s is a bare repository", abs)
		}
		return domain.RepositoryTarget{}, WrapErrorf(err, "failed to open worktree of %s", abs)
	}

	root, err := filepath.EvalSymlinks(wt.Filesystem.Root())
	if err != nil {
		return domain.RepositoryTarget{}, WrapErrorf(err, "failed to resolve worktree root of %s", abs)
	}

	return domain.RepositoryTarget{Path: root}, nil
}

// Inspect reads the live branch, HEAD and index of the working copy at path.
func Inspect(path string) (LiveState, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return LiveState{}, openError(path, err)
	}

	var state LiveState

	head, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return LiveState{}, WrapErrorf(ErrResolveFailed, "failed to read HEAD of %s: %v", path, err)
	}

	if head.Type() == plumbing.SymbolicReference {
		state.Branch = head.Target().Short()

		resolved, err := repo.Reference(head.Target(), true)
		switch {
		case err == nil:
			state.Head = resolved.Hash().String()
		case errors.Is(err, plumbing.ErrReferenceNotFound):
			// unborn branch
		default:
			return LiveState{}, WrapErrorf(ErrResolveFailed, "failed to resolve %s in %s: %v", head.Target(), path, err)
		}
	} else {
		state.Head = head.Hash().String()
	}

	idx, err := repo.Storer.Index()
	if err != nil {
		return LiveState{}, WrapErrorf(ErrResolveFailed, "failed to read index of %s: %v", path, err)
	}

	h := sha256.New()
	for _, e := range idx.Entries {
		fmt.Fprintf(h, "%s %o %d %s\n", e.Hash, uint32(e.Mode), e.Stage, e.Name)
	}
	state.IndexDigest = hex.EncodeToString(h.Sum(nil))

	return state, nil
}

func openError(path string, err error) error {
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return WrapErrorf(ErrNotWorkingCopy, "%s", path)
	}
	return WrapErrorf(err, "failed to open repository at %s", path)
}
