package logger

import (
	"io"
	"os"

	"golang.org/x/term"
)

// colorFor reports whether output written to w should be colored.
func colorFor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
