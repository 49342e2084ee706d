// Package config loads diffkit settings.
//
// Settings come from built-in defaults, then an optional TOML file, then DIFFKIT_* environment variables. Values out
// of range are clamped rather than rejected, so a bad setting degrades the diff instead of failing it.
//
// The file is read from $DIFFKIT_CONFIG when set, else from <user config dir>/diffkit/config.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/interpretive-systems/diffkit/internal/editscript"
	"github.com/interpretive-systems/diffkit/internal/refine"
	"github.com/interpretive-systems/diffkit/internal/segment"
)

const (
	DefaultContextSize = 3
	MaxContextSize     = 1000
	DefaultWrapWidth   = 0
	DefaultConcurrency = 4
	DefaultQueueSize   = 64
	DefaultTimeout     = 10 * time.Second
)

// Config is the complete configuration.
type Config struct {
	Diff      Diff      `toml:"diff" json:"diff"`
	View      View      `toml:"view" json:"view"`
	Scheduler Scheduler `toml:"scheduler" json:"scheduler"`
	// Keys rebinds TUI actions by name, e.g. next_hunk = ["n"].
	Keys map[string][]string `toml:"keys,omitempty" json:"keys,omitempty"`
}

// Diff tunes the diff pipeline. It is carried on every model so results can be reproduced.
type Diff struct {
	ContextSize         int            `toml:"context_size" json:"context_size"`
	EditBudget          int            `toml:"edit_budget" json:"edit_budget"`
	SimilarityThreshold float64        `toml:"similarity_threshold" json:"similarity_threshold"`
	PairRatio           float64        `toml:"pair_ratio" json:"pair_ratio"`
	CharLevel           bool           `toml:"char_level" json:"char_level"`
	InsertsFirst        bool           `toml:"inserts_first" json:"inserts_first"`
	LineEndingPolicy    segment.Policy `toml:"line_ending_policy" json:"line_ending_policy"`
}

// View holds presentation defaults. Per-repository preferences in git config take precedence in the TUI.
type View struct {
	SideBySide bool   `toml:"side_by_side" json:"side_by_side"`
	Wrap       bool   `toml:"wrap" json:"wrap"`
	WrapWidth  int    `toml:"wrap_width" json:"wrap_width"`
	Theme      string `toml:"theme" json:"theme"`
}

// Scheduler bounds background computation.
type Scheduler struct {
	MaxConcurrent int `toml:"max_concurrent" json:"max_concurrent"`
	QueueSize     int `toml:"queue_size" json:"queue_size"`
	TimeoutMillis int `toml:"timeout_ms" json:"timeout_ms"` // 0 disables the deadline
}

// Timeout returns the per-computation deadline, zero when disabled.
func (s Scheduler) Timeout() time.Duration {
	return time.Duration(s.TimeoutMillis) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Diff: DefaultDiff(),
		View: View{Theme: "default"},
		Scheduler: Scheduler{
			MaxConcurrent: DefaultConcurrency,
			QueueSize:     DefaultQueueSize,
			TimeoutMillis: int(DefaultTimeout / time.Millisecond),
		},
	}
}

// DefaultDiff returns the built-in diff settings.
func DefaultDiff() Diff {
	return Diff{
		ContextSize:         DefaultContextSize,
		EditBudget:          editscript.DefaultBudget,
		SimilarityThreshold: refine.DefaultThreshold,
		PairRatio:           editscript.DefaultPairRatio,
		CharLevel:           true,
		LineEndingPolicy:    segment.PolicyPreserve,
	}
}

// Normalize clamps every field into its valid range.
func (d Diff) Normalize() Diff {
	d.ContextSize = clampInt(d.ContextSize, 0, MaxContextSize)
	d.EditBudget = max(d.EditBudget, 0)
	d.SimilarityThreshold = clampUnit(d.SimilarityThreshold, refine.DefaultThreshold)
	d.PairRatio = clampUnit(d.PairRatio, editscript.DefaultPairRatio)
	if d.LineEndingPolicy != segment.PolicyNormalize {
		d.LineEndingPolicy = segment.PolicyPreserve
	}
	return d
}

// ScriptOptions returns the edit-script options for d.
func (d Diff) ScriptOptions() editscript.Options {
	opts := editscript.Options{Budget: d.EditBudget, PairRatio: d.PairRatio}
	if d.InsertsFirst {
		opts.TieBreak = editscript.InsertsFirst
	}
	return opts
}

// RefineOptions returns the refiner options for d.
func (d Diff) RefineOptions() refine.Options {
	return refine.Options{Threshold: d.SimilarityThreshold, CharLevel: d.CharLevel}
}

// Normalize clamps every section of c in place.
func (c *Config) Normalize() {
	c.Diff = c.Diff.Normalize()
	c.View.WrapWidth = max(c.View.WrapWidth, 0)
	if strings.TrimSpace(c.View.Theme) == "" {
		c.View.Theme = "default"
	}
	c.Scheduler.MaxConcurrent = clampInt(c.Scheduler.MaxConcurrent, 1, 64)
	c.Scheduler.QueueSize = clampInt(c.Scheduler.QueueSize, 1, 4096)
	c.Scheduler.TimeoutMillis = max(c.Scheduler.TimeoutMillis, 0)
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func clampUnit(v, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return min(max(v, 0), 1)
}

// Path returns the configuration file location.
func Path() (string, error) {
	if p := os.Getenv("DIFFKIT_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "diffkit", "config.toml"), nil
}

// Load reads the configuration from Path. A missing file is not an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		cfg.Normalize()
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from path over the defaults, applies environment overrides and normalizes it.
// A missing file yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	cfg.ApplyEnvOverrides()
	cfg.Normalize()
	return cfg, nil
}

// Parse decodes TOML text over the defaults without consulting the environment.
func Parse(data string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides:
//   - DIFFKIT_CONTEXT: diff.context_size
//   - DIFFKIT_EDIT_BUDGET: diff.edit_budget
//   - DIFFKIT_SIMILARITY: diff.similarity_threshold
//   - DIFFKIT_LINE_ENDINGS: diff.line_ending_policy ("preserve" or "normalize")
//   - DIFFKIT_SIDE_BY_SIDE: view.side_by_side
//   - DIFFKIT_THEME: view.theme
//   - DIFFKIT_MAX_CONCURRENT: scheduler.max_concurrent
//
// Unparsable values are ignored.
func (c *Config) ApplyEnvOverrides() {
	if n, ok := envInt("DIFFKIT_CONTEXT"); ok {
		c.Diff.ContextSize = n
	}
	if n, ok := envInt("DIFFKIT_EDIT_BUDGET"); ok {
		c.Diff.EditBudget = n
	}
	if v := os.Getenv("DIFFKIT_SIMILARITY"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			c.Diff.SimilarityThreshold = f
		}
	}
	if v := os.Getenv("DIFFKIT_LINE_ENDINGS"); v != "" {
		var p segment.Policy
		if err := p.UnmarshalText([]byte(v)); err == nil {
			c.Diff.LineEndingPolicy = p
		}
	}
	if v := os.Getenv("DIFFKIT_SIDE_BY_SIDE"); v != "" {
		c.View.SideBySide = ParseBool(v)
	}
	if v := os.Getenv("DIFFKIT_THEME"); v != "" {
		c.View.Theme = v
	}
	if n, ok := envInt("DIFFKIT_MAX_CONCURRENT"); ok {
		c.Scheduler.MaxConcurrent = n
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseBool accepts the usual spellings of true; anything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Save writes c to path as TOML, creating the parent directory.
func Save(c *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}
