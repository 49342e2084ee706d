package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/interpretive-systems/diffkit/internal/diffmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DIFFKIT_CONFIG", filepath.Join(t.TempDir(), "config.toml"))
	t.Setenv("DIFFKIT_LOG_FILE", "")
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func pair(t *testing.T, old, new string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	a, b := filepath.Join(dir, "old.txt"), filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(a, []byte(old), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(new), 0o644))
	return a, b
}

func TestDiff_Unified(t *testing.T) {
	a, b := pair(t, "a\nb\nc\n", "a\nx\nc\nd\n")
	out, err := run(t, "", "diff", "--color", "never", "-U", "1", "--stat", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "--- a/"+a+"\n+++ b/"+b+"\n")
	assert.Contains(t, out, "@@ -1,3 +1,4 @@\n a\n-b\n+x\n c\n+d\n1 hunk, +2 -1\n")
}

func TestDiff_ExitCode(t *testing.T) {
	a, b := pair(t, "same\n", "same\n")
	_, err := run(t, "", "diff", "--exit-code", a, b)
	require.NoError(t, err)

	a, b = pair(t, "one\n", "two\n")
	_, err = run(t, "", "diff", "--exit-code", "--color", "never", a, b)
	var ee *ExitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 1, ee.Code)
}

func TestDiff_JSONFromStdin(t *testing.T) {
	_, b := pair(t, "", "a\nb\n")
	out, err := run(t, "a\n", "diff", "--json", "-", b)
	require.NoError(t, err)
	m, err := diffmodel.Unmarshal([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, 1, m.Stats.Additions)
	assert.Equal(t, 0, m.Stats.Deletions)
	assert.Equal(t, "-", m.Old.Path)
}

func TestDiff_InvalidColor(t *testing.T) {
	a, b := pair(t, "a\n", "b\n")
	_, err := run(t, "", "diff", "--color", "sometimes", a, b)
	require.ErrorContains(t, err, "invalid --color")
}

func TestStat(t *testing.T) {
	a, b := pair(t, "a\nb\nc\n", "a\nx\nc\nd\n")
	out, err := run(t, "", "stat", a, b)
	require.NoError(t, err)
	assert.Equal(t, "@@ -1,3 +1,4 @@ +2 -1\n1 hunk, +2 -1\n", out)
}

func TestDecorations(t *testing.T) {
	a, b := pair(t, "a\nb\n", "a\nB\nc\n")
	out, err := run(t, "", "decorations", "--buffer-version", "7", a, b)
	require.NoError(t, err)
	var got struct {
		Version uint64 `json:"version"`
		Gutter  []struct {
			Line   int    `json:"line"`
			Marker string `json:"marker"`
		} `json:"gutter"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, uint64(7), got.Version)
	require.Len(t, got.Gutter, 2)
	assert.Equal(t, "modified", got.Gutter[0].Marker)
	assert.Equal(t, "added", got.Gutter[1].Marker)
}

func TestView_PatchFromStdin(t *testing.T) {
	patch := "--- a/f\n+++ b/f\n@@ -1,2 +1,2 @@\n keep\n-old\n+new\n"
	out, err := run(t, patch, "view", "--color", "never", "-W", "41")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	var found bool
	for _, l := range lines {
		if strings.Contains(l, "old") && strings.Contains(l, "│") && strings.Contains(l, "new") {
			found = true
		}
	}
	assert.True(t, found, "old and new should share a line:\n%s", out)
}

func TestConfig_InitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diffkit.toml")
	out, err := run(t, "", "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	_, err = run(t, "", "--config", path, "config", "init")
	require.ErrorContains(t, err, "already exists")

	require.NoError(t, os.WriteFile(path, []byte("[diff]\ncontext_size = 5\n"), 0o644))
	out, err = run(t, "", "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "context_size = 5")
}
