package gitx

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestChangedFiles_AndContents(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()

	mustRun(t, dir, "git", "init", "-q")
	mustRun(t, dir, "git", "config", "user.email", "test@example.com")
	mustRun(t, dir, "git", "config", "user.name", "Test User")

	// initial commit
	write(t, filepath.Join(dir, "f1.txt"), "one\nline\n")
	write(t, filepath.Join(dir, "del.txt"), "to delete\n")
	mustRun(t, dir, "git", "add", ".")
	mustRun(t, dir, "git", "commit", "-q", "-m", "init")

	// modify f1 (unstaged), create new (untracked), delete del.txt (unstaged)
	write(t, filepath.Join(dir, "f1.txt"), "one\nline changed\n")
	write(t, filepath.Join(dir, "new.txt"), "brand new\n")
	if err := os.Remove(filepath.Join(dir, "del.txt")); err != nil {
		t.Fatal(err)
	}

	files, err := ChangedFiles(dir)
	if err != nil {
		t.Fatalf("ChangedFiles error: %v", err)
	}
	m := map[string]FileChange{}
	for _, f := range files {
		m[f.Path] = f
	}
	if !m["f1.txt"].Unstaged || m["f1.txt"].Status() != "M" {
		t.Fatalf("expected f1.txt to be unstaged modified, got %+v", m["f1.txt"])
	}
	if !m["new.txt"].Untracked || m["new.txt"].Status() != "?" {
		t.Fatalf("expected new.txt to be untracked, got %+v", m["new.txt"])
	}
	if !(m["del.txt"].Deleted && m["del.txt"].Unstaged) || m["del.txt"].Status() != "D" {
		t.Fatalf("expected del.txt to be deleted unstaged, got %+v", m["del.txt"])
	}

	cases := []struct {
		path, head, wt string
	}{
		{"f1.txt", "one\nline\n", "one\nline changed\n"},
		{"new.txt", "", "brand new\n"},
		{"del.txt", "to delete\n", ""},
	}
	for _, c := range cases {
		head, err := ShowHEAD(dir, c.path)
		if err != nil {
			t.Fatalf("ShowHEAD(%s): %v", c.path, err)
		}
		if string(head) != c.head {
			t.Fatalf("ShowHEAD(%s) = %q, want %q", c.path, head, c.head)
		}
		wt, err := ReadWorktree(dir, c.path)
		if err != nil {
			t.Fatalf("ReadWorktree(%s): %v", c.path, err)
		}
		if string(wt) != c.wt {
			t.Fatalf("ReadWorktree(%s) = %q, want %q", c.path, wt, c.wt)
		}
	}

	if _, err := RepoRoot(dir); err != nil {
		t.Fatalf("RepoRoot: %v", err)
	}
	if s, err := LastCommitSummary(dir); err != nil || s == "" {
		t.Fatalf("LastCommitSummary = %q, %v", s, err)
	}
}

func TestShowHEAD_NoCommits(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	mustRun(t, dir, "git", "init", "-q")
	write(t, filepath.Join(dir, "a.txt"), "x\n")
	b, err := ShowHEAD(dir, "a.txt")
	if err != nil || len(b) != 0 {
		t.Fatalf("expected empty content without commits, got %q, %v", b, err)
	}
}

func mustRun(t *testing.T, dir string, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("command %s %v failed: %v\n%s", name, args, err, out)
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
