package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps, filtered at level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

var (
	clrDim     = color.New(color.FgHiBlack)
	clrSubtle  = color.New(color.FgWhite)
	clrAccent  = color.New(color.FgCyan, color.Bold)
	clrSuccess = color.New(color.FgGreen)
	clrError   = color.New(color.FgRed)
	clrWarning = color.New(color.FgYellow)
	clrInfo    = color.New(color.FgBlue)
)

// status prints a one-line, human-oriented status message to stderr. Categories are
// success, error, warning and info.
func (c *CLI) status(category, message string) {
	ts := clrDim.Sprint(time.Now().Format("15:04:05"))

	var icon, styled string
	switch category {
	case "success":
		icon, styled = clrSuccess.Sprint("✔"), clrSuccess.Sprint(message)
	case "error":
		icon, styled = clrError.Sprint("✖"), clrError.Sprint(message)
	case "warning":
		icon, styled = clrWarning.Sprint("⚠"), clrWarning.Sprint(message)
	case "info":
		icon, styled = clrInfo.Sprint("ℹ"), clrSubtle.Sprint(message)
	default:
		icon, styled = clrDim.Sprint("●"), clrSubtle.Sprint(message)
	}

	fmt.Fprintf(c.stderr, "%s  %s  %s\n", ts, icon, styled)
}
