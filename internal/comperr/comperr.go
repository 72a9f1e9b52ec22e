// Package comperr centralizes the build-time error taxonomy (§7 pathway
// 1): every phase from lexing through module finalization raises a
// *comperr.Error carrying a stable code, in the shape of the teacher's
// own internal/errors package.
package comperr

import (
	"fmt"
	"strings"
)

// Code identifies one build-time failure condition. Codes are grouped by
// phase prefix: LEX lexer, PAR parser, RSV resolver, NS namespace, SRC
// module-source loading, MOD module preparation.
type Code string

const (
	LEX001UnterminatedString Code = "LEX001"
	LEX002InvalidEscape      Code = "LEX002"
	LEX003InvalidNumber      Code = "LEX003"

	PAR001UnexpectedToken  Code = "PAR001"
	PAR002MissingDelimiter Code = "PAR002"
	PAR003InvalidImport    Code = "PAR003"
	PAR004InvalidNamefield Code = "PAR004"
	PAR005InvalidBlock     Code = "PAR005"

	RSV001UndefinedReference Code = "RSV001"
	RSV002AmbiguousReference Code = "RSV002"

	NS001DuplicateDefinition Code = "NS001"

	MOD001InvalidPkgAssignment Code = "MOD001"
	MOD002InvalidStartupValue  Code = "MOD002"
	MOD003InvalidTagAssignment Code = "MOD003"
	MOD004DecoratorOnNonBody   Code = "MOD004"

	SRC001UnsupportedScheme Code = "SRC001"
	SRC002NotFound          Code = "SRC002"
	SRC003TooLarge          Code = "SRC003"
)

// phaseOf maps a code's three-letter prefix to a human phase name, used
// by diag.Format for the diagnostic header.
var phaseOf = map[string]string{
	"LEX": "lex",
	"PAR": "parse",
	"RSV": "resolve",
	"NS":  "namespace",
	"MOD": "module",
	"SRC": "source",
}

// Error is a structured build-time error (§7): a code, the offending
// source span (rendered as a plain string so this package has no
// dependency on internal/cop), a message, and an optional fix suggestion.
type Error struct {
	Code    Code
	Span    string
	Message string
	Fix     string
}

func (e *Error) Error() string {
	if e.Span != "" {
		return fmt.Sprintf("%s at %s: %s", e.Code, e.Span, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Phase returns the error's phase name ("parse", "resolve", ...).
func (e *Error) Phase() string {
	if len(e.Code) < 3 {
		return "unknown"
	}
	return phaseOf[strings.TrimRight(string(e.Code), "0123456789")]
}

// New builds an Error with no fix suggestion.
func New(code Code, span, message string) *Error {
	return &Error{Code: code, Span: span, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(code Code, span, format string, args ...any) *Error {
	return New(code, span, fmt.Sprintf(format, args...))
}

// WithFix attaches a fix suggestion and returns e for chaining.
func (e *Error) WithFix(fix string) *Error {
	e.Fix = fix
	return e
}
