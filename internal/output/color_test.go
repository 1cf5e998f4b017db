package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/distillog/distill/internal/config"
)

func TestShouldColorize(t *testing.T) {
	var buf bytes.Buffer

	if shouldColorize(ColorNever, &buf) {
		t.Error("ColorNever should never colorize")
	}
	if !shouldColorize(ColorAlways, &buf) {
		t.Error("ColorAlways should always colorize")
	}
	// Auto mode with a non-file writer stays plain.
	if shouldColorize(ColorAuto, &buf) {
		t.Error("ColorAuto should not colorize a buffer")
	}
}

func TestColorizeSeverity(t *testing.T) {
	if got := colorizeSeverity("[ERROR]"); !strings.Contains(got, colorRed) {
		t.Errorf("error tag not red: %q", got)
	}
	if got := colorizeSeverity("[FATAL]"); !strings.Contains(got, colorBold) {
		t.Errorf("fatal tag not bold: %q", got)
	}
	if got := colorizeSeverity("[INFO]"); got != "[INFO]" {
		t.Errorf("info tag changed: %q", got)
	}
	if got := colorizeSeverity("[UNKNOWN]"); got != "[UNKNOWN]" {
		t.Errorf("unknown tag changed: %q", got)
	}
}

func TestColorizeLine(t *testing.T) {
	line := "something went wrong"
	got := ColorizeLine(config.LevelWarn, line)
	if !strings.HasPrefix(got, colorYellow) || !strings.HasSuffix(got, colorReset) {
		t.Errorf("warn line not wrapped in yellow: %q", got)
	}
	if ColorizeLine(config.LevelUnknown, line) != line {
		t.Error("unknown level should leave the line untouched")
	}
}
