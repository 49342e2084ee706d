// Package theme defines the colors used to render diffs.
package theme

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines customizable colors for rendering.
type Theme struct {
	AddColor     string `json:"addColor"`
	DelColor     string `json:"delColor"`
	MetaColor    string `json:"metaColor"`
	DividerColor string `json:"dividerColor"`
	GutterColor  string `json:"gutterColor"`
	// Line backgrounds, and the stronger backgrounds of intra-line changes.
	AddBgColor     string `json:"addBgColor"`
	DelBgColor     string `json:"delBgColor"`
	AddSpanBgColor string `json:"addSpanBgColor"`
	DelSpanBgColor string `json:"delSpanBgColor"`
}

func darkTheme() Theme {
	return Theme{
		AddColor:       "34",
		DelColor:       "196",
		MetaColor:      "63",
		DividerColor:   "240",
		GutterColor:    "244",
		AddBgColor:     "235",
		DelBgColor:     "235",
		AddSpanBgColor: "22",
		DelSpanBgColor: "52",
	}
}

func lightTheme() Theme {
	return Theme{
		AddColor:       "22",
		DelColor:       "9",
		MetaColor:      "27",
		DividerColor:   "244",
		GutterColor:    "245",
		AddBgColor:     "255",
		DelBgColor:     "255",
		AddSpanBgColor: "157",
		DelSpanBgColor: "217",
	}
}

// Named returns the requested base theme. Unknown names get the dark theme.
func Named(name string) Theme {
	switch name {
	case "light":
		return lightTheme()
	default: // "dark", "default" or any other value
		return darkTheme()
	}
}

// Default returns the dark theme.
func Default() Theme {
	return darkTheme()
}

// LoadFromRepo starts from the named base theme and merges .diffkit/theme.json at repoRoot over it, keeping the base
// for fields the file leaves empty. A missing or malformed file yields the base theme.
func LoadFromRepo(repoRoot, base string) Theme {
	t := Named(base)
	b, err := os.ReadFile(filepath.Join(repoRoot, ".diffkit", "theme.json"))
	if err != nil {
		return t
	}
	var u Theme
	if err := json.Unmarshal(b, &u); err != nil {
		return t
	}
	merge(&t.AddColor, u.AddColor)
	merge(&t.DelColor, u.DelColor)
	merge(&t.MetaColor, u.MetaColor)
	merge(&t.DividerColor, u.DividerColor)
	merge(&t.GutterColor, u.GutterColor)
	merge(&t.AddBgColor, u.AddBgColor)
	merge(&t.DelBgColor, u.DelBgColor)
	merge(&t.AddSpanBgColor, u.AddSpanBgColor)
	merge(&t.DelSpanBgColor, u.DelSpanBgColor)
	return t
}

func merge(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (t Theme) fg(c string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
}

func (t Theme) AddText(s string) string {
	return t.fg(t.AddColor).Render(s)
}

func (t Theme) DelText(s string) string {
	return t.fg(t.DelColor).Render(s)
}

func (t Theme) MetaText(s string) string {
	return t.fg(t.MetaColor).Render(s)
}

func (t Theme) DividerText(s string) string {
	return t.fg(t.DividerColor).Render(s)
}

func (t Theme) GutterText(s string) string {
	return t.fg(t.GutterColor).Render(s)
}

// AddLine applies both foreground and background color to a whole added line.
func (t Theme) AddLine(s string) string {
	return t.fg(t.AddColor).Background(lipgloss.Color(t.AddBgColor)).Render(s)
}

// DelLine applies both foreground and background color to a whole removed line.
func (t Theme) DelLine(s string) string {
	return t.fg(t.DelColor).Background(lipgloss.Color(t.DelBgColor)).Render(s)
}

// AddSpan highlights an added range inside a modified line.
func (t Theme) AddSpan(s string) string {
	return t.fg(t.AddColor).Background(lipgloss.Color(t.AddSpanBgColor)).Bold(true).Render(s)
}

// DelSpan highlights a removed range inside a modified line.
func (t Theme) DelSpan(s string) string {
	return t.fg(t.DelColor).Background(lipgloss.Color(t.DelSpanBgColor)).Bold(true).Render(s)
}
