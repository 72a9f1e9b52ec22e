// Package diag renders a *comperr.Error as a human-facing report: a
// phase-tagged header, the offending span, and an optional fix
// suggestion, colorized the way the teacher's cmd/ailang renders its own
// diagnostics.
package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/PeterShinners/comp-sub000/internal/comperr"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// Format renders err for terminal display: "Error[PAR001] (parse): msg"
// plus a span line and, if present, a "Fix:" suggestion.
func Format(err *comperr.Error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s] (%s): %s\n", red("Error"), err.Code, err.Phase(), err.Message)
	if err.Span != "" {
		fmt.Fprintf(&b, "  %s %s\n", cyan("at"), err.Span)
	}
	if err.Fix != "" {
		fmt.Fprintf(&b, "  %s %s\n", yellow("Fix:"), err.Fix)
	}
	return b.String()
}

// FormatDiagnostic renders a non-fatal fold.Diagnostic-shaped warning
// (span + message, no code) in the same visual register as Format but
// under a "Warning" header rather than "Error".
func FormatDiagnostic(span, message string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", yellow("Warning"), message)
	if span != "" {
		fmt.Fprintf(&b, "  %s %s\n", cyan("at"), span)
	}
	return b.String()
}

// FormatSuccess renders a short positive status line (e.g. a module that
// built and ran cleanly), matching the teacher's green-checkmark style.
func FormatSuccess(msg string) string {
	return fmt.Sprintf("%s %s\n", color.New(color.FgGreen).SprintFunc()("✓"), msg)
}

// Title renders msg bold, used for the CLI's top banner line.
func Title(msg string) string {
	return bold(msg)
}
