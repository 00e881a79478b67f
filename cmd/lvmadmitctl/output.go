package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Color variables for consistent styling across all commands.
var (
	colorHeader  = color.New(color.FgWhite, color.Bold)
	colorSuccess = color.New(color.FgGreen)
	colorError   = color.New(color.FgRed)
	colorWarning = color.New(color.FgYellow)
	colorMuted   = color.New(color.Faint)
)

// admissionBadge returns a colored pass/reject marker.
func admissionBadge(pass bool) string {
	if pass {
		return colorSuccess.Sprint("PASS")
	}
	return colorError.Sprint("REJECT")
}

// polarityBadge returns a colored accept/reject polarity marker.
func polarityBadge(accept bool) string {
	if accept {
		return colorSuccess.Sprint("accept")
	}
	return colorWarning.Sprint("reject")
}

// newStyledTable creates a pre-configured go-pretty table with StyleLight base,
// bold white headers, and no row separators.
func newStyledTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)

	style := table.StyleLight
	style.Options.SeparateRows = false
	style.Options.DrawBorder = false
	style.Options.SeparateColumns = true
	style.Format.Header = text.FormatUpper
	style.Format.HeaderAlign = text.AlignLeft
	t.SetStyle(style)

	return t
}
