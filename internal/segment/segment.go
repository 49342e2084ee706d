// Package segment splits text into line records.
//
// Lines keep their original terminator so that Join reconstructs the input byte for byte. Comparison between two texts
// goes through Policy.Key, which decides whether terminators (and Unicode normalization form) are significant.
package segment

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LineEnding is the terminator a line had in its source text.
type LineEnding int

const (
	EndingNone LineEnding = iota // last line of a text without a final newline
	EndingLF
	EndingCRLF
	EndingCR
)

// String returns the literal terminator.
func (e LineEnding) String() string {
	switch e {
	case EndingLF:
		return "\n"
	case EndingCRLF:
		return "\r\n"
	case EndingCR:
		return "\r"
	default:
		return ""
	}
}

// Line is one line of a text. Text never contains the terminator.
type Line struct {
	Index  int        `json:"index"`
	Text   string     `json:"text"`
	Ending LineEnding `json:"ending"`
	Offset int        `json:"offset"` // byte offset of the line start in the decoded text
}

// EndsWithNewline reports whether the line had any terminator.
func (l Line) EndsWithNewline() bool {
	return l.Ending != EndingNone
}

// Raw returns the line including its terminator.
func (l Line) Raw() string {
	return l.Text + l.Ending.String()
}

// EncodingError reports input that cannot be decoded as text.
type EncodingError struct {
	Offset int
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error at byte %d: %s", e.Offset, e.Reason)
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode turns raw bytes into a string. A UTF-8 BOM is dropped and BOM-marked UTF-16 is transcoded; anything else must
// already be valid UTF-8.
func Decode(b []byte) (string, error) {
	switch {
	case bytes.HasPrefix(b, bomUTF8):
		b = b[len(bomUTF8):]
	case bytes.HasPrefix(b, bomUTF16LE), bytes.HasPrefix(b, bomUTF16BE):
		if len(b)%2 != 0 {
			return "", &EncodingError{Offset: len(b) - 1, Reason: "truncated UTF-16 code unit"}
		}
		dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		out, _, err := transform.Bytes(dec, b)
		if err != nil {
			return "", &EncodingError{Offset: 0, Reason: err.Error()}
		}
		b = out
	}
	if off := invalidOffset(b); off >= 0 {
		return "", &EncodingError{Offset: off, Reason: "invalid UTF-8"}
	}
	return string(b), nil
}

// invalidOffset returns the offset of the first invalid UTF-8 sequence in b, or -1.
func invalidOffset(b []byte) int {
	if utf8.Valid(b) {
		return -1
	}
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}

// Split splits text on "\n", "\r\n" and lone "\r". An empty text has no lines.
func Split(text string) []Line {
	if text == "" {
		return nil
	}
	lines := make([]Line, 0, strings.Count(text, "\n")+1)
	start := 0
	for i := 0; i < len(text); i++ {
		var ending LineEnding
		next := i + 1
		switch text[i] {
		case '\n':
			ending = EndingLF
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				ending = EndingCRLF
				next = i + 2
			} else {
				ending = EndingCR
			}
		default:
			continue
		}
		lines = append(lines, Line{Index: len(lines), Text: text[start:i], Ending: ending, Offset: start})
		start = next
		i = next - 1
	}
	if start < len(text) {
		lines = append(lines, Line{Index: len(lines), Text: text[start:], Ending: EndingNone, Offset: start})
	}
	return lines
}

// Segment decodes b and splits it into lines.
func Segment(b []byte) ([]Line, error) {
	text, err := Decode(b)
	if err != nil {
		return nil, err
	}
	return Split(text), nil
}

// Join reconstructs the text lines were split from.
func Join(lines []Line) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Text)
		sb.WriteString(l.Ending.String())
	}
	return sb.String()
}

// Texts returns the Text of every line.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

// Policy controls how line terminators take part in comparison.
type Policy int

const (
	// PolicyPreserve compares lines including their terminator.
	PolicyPreserve Policy = iota
	// PolicyNormalize ignores terminators and compares NFC-normalized text.
	PolicyNormalize
)

func (p Policy) String() string {
	if p == PolicyNormalize {
		return "normalize"
	}
	return "preserve"
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "preserve":
		*p = PolicyPreserve
	case "normalize":
		*p = PolicyNormalize
	default:
		return fmt.Errorf("unknown line ending policy %q", string(b))
	}
	return nil
}

// Key returns the comparison key of l under p.
func (p Policy) Key(l Line) string {
	if p == PolicyNormalize {
		return norm.NFC.String(l.Text)
	}
	return l.Raw()
}

// Keys returns the comparison key of every line.
func (p Policy) Keys(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = p.Key(l)
	}
	return out
}
