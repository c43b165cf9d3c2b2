package cli

import (
	"fmt"
	"io"
	"os"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

var (
	// NoColor disables ANSI colors in user-facing messages.
	NoColor bool
	// Stderr receives user-facing messages.
	Stderr io.Writer = os.Stderr
)

func Colorize(color, text string) string {
	if NoColor {
		return text
	}
	return color + text + colorReset
}

// Bold highlights a label.
func Bold(text string) string {
	return Colorize(colorBold, text)
}

func PrintSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(Stderr, Colorize(colorGreen, "✓ "+msg))
}

func PrintError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(Stderr, Colorize(colorRed, "✗ "+msg))
}

func PrintWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(Stderr, Colorize(colorYellow, "⚠ "+msg))
}

func PrintStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := Colorize(colorBold, label+":")
	fmt.Fprintf(Stderr, "  %s %s\n", l, val)
}

func PrintStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(Stderr, Colorize(colorCyan, "→ "+msg))
}
