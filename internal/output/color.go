package output

import (
	"os"

	"github.com/distillog/distill/internal/config"
	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // Auto-detect based on TTY
	ColorAlways                  // Always use colors
	ColorNever                   // Never use colors
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// shouldColorize determines if output should be colorized based on mode
// and TTY detection.
func shouldColorize(mode ColorMode, w interface{}) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		if f, ok := w.(*os.File); ok {
			return isTerminal(f)
		}
		return false
	}
	return false
}

// colorizeSeverity colors a "[LEVEL]" tag according to its severity.
func colorizeSeverity(tag string) string {
	level := config.ParseLevel(trimTag(tag))
	return colorizeLevel(level, tag)
}

func trimTag(tag string) string {
	if len(tag) >= 2 && tag[0] == '[' && tag[len(tag)-1] == ']' {
		return tag[1 : len(tag)-1]
	}
	return tag
}

// colorizeLevel adds color to text based on severity.
func colorizeLevel(level config.LogLevel, text string) string {
	switch level {
	case config.LevelDebug:
		return colorGray + text + colorReset
	case config.LevelWarn:
		return colorYellow + text + colorReset
	case config.LevelError:
		return colorRed + text + colorReset
	case config.LevelFatal:
		return colorBold + colorRed + text + colorReset
	default:
		return text
	}
}

// ColorizeLine applies color to an entire log line based on its level.
func ColorizeLine(level config.LogLevel, line string) string {
	return colorizeLevel(level, line)
}
