package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
)

// validate resolves repository paths against dir and checks the file.
// Every problem is collected so a single error reports all of them.
func validate(f *File, dir string) error {
	var problems []string

	switch f.DefaultMode {
	case ModeSyncAll, ModePullOnly:
	default:
		problems = append(problems, fmt.Sprintf("default_mode must be %q or %q", ModeSyncAll, ModePullOnly))
	}

	if strings.TrimSpace(f.SideChannel.RemoteName) == "" {
		problems = append(problems, "side_channel.remote_name must not be empty")
	}
	if strings.TrimSpace(f.SideChannel.BranchName) == "" {
		problems = append(problems, "side_channel.branch_name must not be empty")
	} else if msg := checkBranch(f.SideChannel.BranchName); msg != "" {
		problems = append(problems, "side_channel.branch_name "+msg)
	}
	if strings.TrimSpace(f.Commit.MessageTemplate) == "" {
		problems = append(problems, "commit.message_template must not be empty")
	}

	seen := make(map[string]int, len(f.Repositories))
	for i := range f.Repositories {
		repo := &f.Repositories[i]
		if strings.TrimSpace(repo.Path) == "" {
			problems = append(problems, fmt.Sprintf("repositories[%d].path must not be empty", i))
			continue
		}

		resolved, err := resolvePath(repo.Path, dir)
		if err != nil {
			problems = append(problems, fmt.Sprintf("repositories[%d].path: %v", i, err))
			continue
		}
		repo.Path = resolved

		if o := repo.SideChannel; o != nil && o.BranchName != nil {
			if msg := checkBranch(*o.BranchName); msg != "" {
				problems = append(problems, fmt.Sprintf("repositories[%d].side_channel.branch_name %s", i, msg))
			}
		}

		key := canonical(resolved)
		if first, dup := seen[key]; dup {
			problems = append(problems,
				fmt.Sprintf("repositories[%d].path duplicates repositories[%d]: %s", i, first, resolved))
			continue
		}
		seen[key] = i
	}

	if len(problems) > 0 {
		return errors.New(errors.CodeInvalidConfig,
			fmt.Sprintf("configuration validation failed: %s", strings.Join(problems, "; ")))
	}
	return nil
}

// resolvePath expands a leading "~" and makes path absolute relative to dir.
func resolvePath(path, dir string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot expand home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return filepath.Clean(path), nil
}

// checkBranch accepts a short branch name or a refs/heads/ ref. Other ref
// namespaces have no remote-tracking ref under the default fetch refspec.
func checkBranch(branch string) string {
	if strings.HasPrefix(branch, "refs/") && !strings.HasPrefix(branch, "refs/heads/") {
		return fmt.Sprintf("must be a branch name or refs/heads/ ref, got %q", branch)
	}
	if branch == "refs/heads/" {
		return "must name a branch"
	}
	return ""
}
