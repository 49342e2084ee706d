// Package prefs persists per-repository viewer preferences in the local git config.
package prefs

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/interpretive-systems/diffkit/internal/config"
)

// Prefs represents persisted UI preferences. The *Set fields record which values the repo config actually holds.
type Prefs struct {
	Wrap       bool
	WrapSet    bool
	SideBySide bool
	SideSet    bool
	LeftWidth  int
	LeftSet    bool
	Context    int
	ContextSet bool
}

const (
	keyWrap       = "diffkit.wrap"
	keySideBySide = "diffkit.sideBySide"
	keyLeftWidth  = "diffkit.leftWidth"
	keyContext    = "diffkit.contextSize"
)

// Load reads preferences from git local config.
func Load(repoRoot string) Prefs {
	var p Prefs
	if s, ok := get(repoRoot, keyWrap); ok {
		p.WrapSet = true
		p.Wrap = config.ParseBool(s)
	}
	if s, ok := get(repoRoot, keySideBySide); ok {
		p.SideSet = true
		p.SideBySide = config.ParseBool(s)
	}
	if s, ok := get(repoRoot, keyLeftWidth); ok {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			p.LeftSet = true
			p.LeftWidth = n
		}
	}
	if s, ok := get(repoRoot, keyContext); ok {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			p.ContextSet = true
			p.Context = n
		}
	}
	return p
}

// Apply overlays the stored preferences on c.
func (p Prefs) Apply(c *config.Config) {
	if p.WrapSet {
		c.View.Wrap = p.Wrap
	}
	if p.SideSet {
		c.View.SideBySide = p.SideBySide
	}
	if p.ContextSet {
		c.Diff.ContextSize = p.Context
	}
	c.Normalize()
}

// SaveWrap persists wrap pref.
func SaveWrap(repoRoot string, v bool) error {
	return set(repoRoot, keyWrap, strconv.FormatBool(v))
}

// SaveSideBySide persists side-by-side pref.
func SaveSideBySide(repoRoot string, v bool) error {
	return set(repoRoot, keySideBySide, strconv.FormatBool(v))
}

// SaveLeftWidth persists left column width.
func SaveLeftWidth(repoRoot string, w int) error {
	if w <= 0 {
		return fmt.Errorf("invalid left width: %d", w)
	}
	return set(repoRoot, keyLeftWidth, strconv.Itoa(w))
}

// SaveContext persists the number of context lines.
func SaveContext(repoRoot string, n int) error {
	if n < 0 {
		return fmt.Errorf("invalid context size: %d", n)
	}
	return set(repoRoot, keyContext, strconv.Itoa(n))
}

func get(repoRoot, key string) (string, bool) {
	b, err := exec.Command("git", "-C", repoRoot, "config", "--get", key).Output()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(b)), true
}

func set(repoRoot, key, value string) error {
	cmd := exec.Command("git", "-C", repoRoot, "config", "--local", key, value)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git config %s: %w: %s", key, err, string(out))
	}
	return nil
}
