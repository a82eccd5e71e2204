package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

func success(w io.Writer, format string, a ...any) {
	_, _ = green.Fprintf(w, "✓ "+format+"\n", a...)
}

func warning(w io.Writer, format string, a ...any) {
	_, _ = yellow.Fprintf(w, format+"\n", a...)
}

// failure prints title and detail to w and returns an error for cobra.
func failure(w io.Writer, title string, err error) error {
	_, _ = red.Fprintf(w, "%s\n", title)
	_, _ = fmt.Fprintf(w, "  %v\n", err)
	return fmt.Errorf("%s: %w", title, err)
}
