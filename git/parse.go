package git

import (
	"sort"
	"strings"
)

// FirstLine returns the first non-blank line of s, trimmed.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// Lines returns the non-blank lines of s, trimmed.
func Lines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ConflictPaths extracts the conflicted paths from merge-tree --write-tree output.
// Conflicted file entries have the form "<mode> <oid> <stage>\t<path>"; the
// result is sorted and de-duplicated.
func ConflictPaths(mergeTreeOutput string) []string {
	seen := make(map[string]struct{})
	for _, line := range strings.Split(mergeTreeOutput, "\n") {
		_, path, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		seen[path] = struct{}{}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Short abbreviates a commit id to 12 characters for messages.
func Short(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
