package ansi

import "testing"

func TestPadExact(t *testing.T) {
	colored := "\x1b[31mred\x1b[0m"
	got := PadExact(colored, 5)
	if Strip(got) != "red  " {
		t.Fatalf("expected padded text, got %q", Strip(got))
	}
	if VisualWidth(PadExact("abcdef", 3)) != 3 {
		t.Fatalf("expected clip to 3 columns")
	}
	if VisualWidth("漢字") != 4 {
		t.Fatalf("expected wide runes to count double")
	}
}

func TestWrapLines(t *testing.T) {
	got := WrapLines([]string{"abcdef", "xy"}, 4)
	if len(got) != 3 || got[0] != "abcd" || got[1] != "ef" || got[2] != "xy" {
		t.Fatalf("unexpected wrap: %q", got)
	}
}

func TestSkipColumns(t *testing.T) {
	if got := Strip(SkipColumns("\x1b[32mabcdef\x1b[0m", 4)); got != "ef" {
		t.Fatalf("expected ef, got %q", got)
	}
	if got := SkipColumns("abc", 0); got != "abc" {
		t.Fatalf("expected unchanged string, got %q", got)
	}
}
