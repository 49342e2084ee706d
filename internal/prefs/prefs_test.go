package prefs

import (
	"os/exec"
	"testing"

	"github.com/interpretive-systems/diffkit/internal/config"
)

func TestSaveLoadApply(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	if out, err := exec.Command("git", "-C", dir, "init", "-q").CombinedOutput(); err != nil {
		t.Fatalf("git init: %v\n%s", err, out)
	}

	if p := Load(dir); p.WrapSet || p.SideSet || p.LeftSet || p.ContextSet {
		t.Fatalf("expected nothing stored, got %+v", p)
	}
	if err := SaveWrap(dir, true); err != nil {
		t.Fatal(err)
	}
	if err := SaveSideBySide(dir, true); err != nil {
		t.Fatal(err)
	}
	if err := SaveLeftWidth(dir, 30); err != nil {
		t.Fatal(err)
	}
	if err := SaveContext(dir, 7); err != nil {
		t.Fatal(err)
	}
	if err := SaveLeftWidth(dir, 0); err == nil {
		t.Fatal("expected error for zero width")
	}

	p := Load(dir)
	if !p.Wrap || !p.SideBySide || p.LeftWidth != 30 || p.Context != 7 {
		t.Fatalf("unexpected prefs %+v", p)
	}
	c := config.Default()
	p.Apply(c)
	if !c.View.Wrap || !c.View.SideBySide || c.Diff.ContextSize != 7 {
		t.Fatalf("prefs not applied: %+v", c)
	}
}
