package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// ErrorReporter renders diagnostics against the text IR they came from. The
// offending line is quoted under its function header and block label.
type ErrorReporter struct {
	filename string
	lines    []string
}

// NewErrorReporter creates a reporter for one IR file
func NewErrorReporter(filename, source string) *ErrorReporter {
	return &ErrorReporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

var (
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	strong = color.New(color.Bold).SprintFunc()
)

// FormatError formats a diagnostic with its enclosing function and block
func (er *ErrorReporter) FormatError(err CompilerError) string {
	var b strings.Builder
	line := err.Position.Line
	gutter := strings.Repeat(" ", er.width(line))

	fmt.Fprintf(&b, "%s[%s]: %s\n", red("error"), err.Code, err.Message)
	fmt.Fprintf(&b, "%s %s %s:%d:%d\n", gutter, dim("┌─"), er.filename, line, err.Position.Column)
	fmt.Fprintf(&b, "%s %s\n", gutter, dim("│"))

	if line >= 1 && line <= len(er.lines) {
		last := 0
		for _, ctx := range er.context(line) {
			if last > 0 && ctx > last+1 {
				fmt.Fprintf(&b, "%s %s\n", gutter, dim("┆"))
			}
			fmt.Fprintf(&b, "%s %s %s\n", dim(er.number(ctx, line)), dim("│"), cyan(er.lines[ctx-1]))
			last = ctx
		}
		if last > 0 && line > last+1 {
			fmt.Fprintf(&b, "%s %s\n", gutter, dim("┆"))
		}
		fmt.Fprintf(&b, "%s %s %s\n", strong(er.number(line, line)), dim("│"), er.lines[line-1])
		fmt.Fprintf(&b, "%s %s %s%s\n", gutter, dim("│"),
			strings.Repeat(" ", max(0, err.Position.Column-1)), red(strings.Repeat("^", max(1, err.Length))))
	}

	if err.Suggestion != "" {
		fmt.Fprintf(&b, "%s %s %s\n", gutter, dim("="), green(err.Suggestion))
	}
	if err.HelpText != "" {
		fmt.Fprintf(&b, "%s %s %s %s\n", gutter, dim("="), green("help:"), err.HelpText)
	}
	b.WriteString("\n")
	return b.String()
}

// context returns the line numbers of the function header and block label
// enclosing line, in source order. Either may be missing.
func (er *ErrorReporter) context(line int) []int {
	var label, header int
	for i := line - 1; i >= 1; i-- {
		text := strings.TrimSpace(er.lines[i-1])
		if label == 0 && isLabel(text) {
			label = i
			continue
		}
		if strings.HasPrefix(text, "func ") {
			header = i
			break
		}
	}
	var out []int
	if header > 0 {
		out = append(out, header)
	}
	if label > 0 {
		out = append(out, label)
	}
	return out
}

// isLabel matches a block label line such as "bb3:" or "d0:"
func isLabel(text string) bool {
	name, ok := strings.CutSuffix(text, ":")
	if !ok || name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func (er *ErrorReporter) width(line int) int {
	return max(3, len(fmt.Sprint(line)))
}

func (er *ErrorReporter) number(n, widest int) string {
	return fmt.Sprintf("%*d", er.width(widest), n)
}

// FormatViolation formats a contract violation recovered at the top level.
// Violations carry no source position; the graph they refer to is printed
// separately by the caller.
func FormatViolation(v *Violation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]: %s\n", red("internal error"), v.Code, v.Message)
	fmt.Fprintf(&b, "    %s %s\n", dim("="), "this is a compiler bug, not an input error")
	return b.String()
}
