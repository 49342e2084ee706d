// Package gitx reads the inputs of working-tree diffs from a git repository.
package gitx

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// FileChange represents a changed file in the repo.
type FileChange struct {
	Path      string
	Staged    bool
	Unstaged  bool
	Untracked bool
	Binary    bool
	Deleted   bool
}

// Status is a one-letter summary for file lists.
func (f FileChange) Status() string {
	switch {
	case f.Deleted:
		return "D"
	case f.Untracked:
		return "?"
	case f.Binary:
		return "B"
	}
	return "M"
}

// RepoRoot resolves the git repository root from a given path (or current dir).
func RepoRoot(path string) (string, error) {
	if path == "" {
		path = "."
	}
	out, err := exec.Command("git", "-C", path, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("rev-parse: %w", err)
	}
	root := strings.TrimSpace(string(out))
	if root == "" {
		return "", errors.New("empty git root")
	}
	return root, nil
}

// ChangedFiles lists files changed relative to HEAD, combining staged, unstaged, and untracked.
func ChangedFiles(repoRoot string) ([]FileChange, error) {
	unstaged, err := listNames(repoRoot, "diff", "--name-only", "--diff-filter=ACDMRTUXB")
	if err != nil {
		return nil, err
	}
	staged, err := listNames(repoRoot, "diff", "--name-only", "--cached", "--diff-filter=ACDMRTUXB")
	if err != nil {
		return nil, err
	}
	untracked, err := listNames(repoRoot, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}
	deletedUnstaged, _ := listNames(repoRoot, "ls-files", "-d")
	deletedStaged, _ := listNames(repoRoot, "diff", "--cached", "--name-only", "--diff-filter=D")

	m := map[string]*FileChange{}
	mark := func(paths []string, fn func(fc *FileChange)) {
		for _, p := range paths {
			fc := m[p]
			if fc == nil {
				fc = &FileChange{Path: p}
				m[p] = fc
			}
			fn(fc)
		}
	}
	mark(unstaged, func(fc *FileChange) { fc.Unstaged = true })
	mark(staged, func(fc *FileChange) { fc.Staged = true })
	mark(untracked, func(fc *FileChange) { fc.Untracked = true })
	mark(deletedUnstaged, func(fc *FileChange) { fc.Deleted = true; fc.Unstaged = true })
	mark(deletedStaged, func(fc *FileChange) { fc.Deleted = true; fc.Staged = true })

	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	out := make([]FileChange, 0, len(paths))
	for _, p := range paths {
		fc := m[p]
		fc.Binary = isBinary(repoRoot, p)
		out = append(out, *fc)
	}
	return out, nil
}

func listNames(repoRoot string, args ...string) ([]string, error) {
	b, err := exec.Command("git", append([]string{"-C", repoRoot}, args...)...).Output()
	if err != nil {
		return nil, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	var out []string
	for _, l := range strings.Split(string(b), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

// ShowHEAD returns the content of path at HEAD. A file that is not in HEAD (new, or a repo without commits) yields
// empty content.
func ShowHEAD(repoRoot, path string) ([]byte, error) {
	if !inHEAD(repoRoot, path) {
		return nil, nil
	}
	var stderr bytes.Buffer
	cmd := exec.Command("git", "-C", repoRoot, "show", "HEAD:"+filepath.ToSlash(path))
	cmd.Stderr = &stderr
	b, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git show HEAD:%s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return b, nil
}

// ReadWorktree returns the working-tree content of path. A deleted file yields empty content.
func ReadWorktree(repoRoot, path string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(repoRoot, path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

func inHEAD(repoRoot, path string) bool {
	return exec.Command("git", "-C", repoRoot, "cat-file", "-e", "HEAD:"+filepath.ToSlash(path)).Run() == nil
}

func isBinary(repoRoot, path string) bool {
	var args []string
	if isTracked(repoRoot, path) {
		args = []string{"-C", repoRoot, "diff", "--numstat", "HEAD", "--", path}
	} else {
		args = []string{"-C", repoRoot, "diff", "--numstat", "--no-index", "/dev/null", path}
	}
	// --no-index exits 1 when files differ, so the output matters, not the status.
	b, _ := exec.Command("git", args...).Output()
	line := strings.TrimSpace(string(b))
	if line == "" {
		return false
	}
	// numstat returns "-\t-\tpath" for binary files
	parts := strings.Split(line, "\t")
	return len(parts) >= 2 && (parts[0] == "-" || parts[1] == "-")
}

func isTracked(repoRoot, path string) bool {
	return exec.Command("git", "-C", repoRoot, "ls-files", "--error-unmatch", "--", path).Run() == nil
}

// LastCommitSummary returns short hash and subject of last commit.
func LastCommitSummary(repoRoot string) (string, error) {
	b, err := exec.Command("git", "-C", repoRoot, "log", "-1", "--pretty=format:%h %s").Output()
	if err != nil {
		return "", fmt.Errorf("git log: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
