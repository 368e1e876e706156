// Package parser reads the textual IR used by tests and the pir-opt tool
// and lowers it into ir.Function graphs.
package parser

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"
	"tlog.app/go/errors"

	ierrors "lazyjit/internal/errors"
	"lazyjit/internal/ir"
)

var parser = buildParser()

func buildParser() *participle.Parser[File] {
	p, err := participle.Build[File](
		participle.Lexer(irLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.Unquote("String"),
		participle.UseLookahead(2),
	)
	if err != nil {
		panic(fmt.Errorf("failed to build parser: %w", err))
	}

	return p
}

// Errors collects the diagnostics produced while reading a file
type Errors []ierrors.CompilerError

func (e Errors) Error() string {
	switch len(e) {
	case 0:
		return "no errors"
	case 1:
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", e[0].Error(), len(e)-1)
}

// ParseFile reads and lowers every function in path
func ParseFile(path string) ([]*ir.Function, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read %s", path)
	}

	return ParseSource(path, string(source))
}

// ParseSource lowers every function in source. Syntax and resolution
// problems are returned as Errors.
func ParseSource(sourceName string, source string) ([]*ir.Function, error) {
	file, err := parser.ParseString(sourceName, source)
	if err != nil {
		return nil, Errors{syntaxError(sourceName, err)}
	}

	var (
		fns  []*ir.Function
		errs Errors
	)
	for _, decl := range file.Functions {
		fn, ferrs := lowerFunction(sourceName, decl)
		errs = append(errs, ferrs...)
		if fn != nil {
			fns = append(fns, fn)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return fns, nil
}

// MustParseFunction parses source holding exactly one function and panics
// on any error. Intended for tests.
func MustParseFunction(source string) *ir.Function {
	fns, err := ParseSource("<test>", source)
	if err != nil {
		panic(err)
	}
	if len(fns) != 1 {
		panic(fmt.Sprintf("expected one function, got %d", len(fns)))
	}
	return fns[0]
}

func syntaxError(sourceName string, err error) ierrors.CompilerError {
	pe, ok := err.(participle.Error)
	if !ok {
		return ierrors.SyntaxError(err.Error(), ierrors.Position{Filename: sourceName, Line: 1, Column: 1})
	}
	pos := pe.Position()
	return ierrors.SyntaxError(pe.Message(), position(sourceName, pos.Line, pos.Column))
}

func position(sourceName string, line, column int) ierrors.Position {
	return ierrors.Position{Filename: sourceName, Line: line, Column: column}
}

// similarOpcodes lists known mnemonics within edit distance 2 of name
func similarOpcodes(name string) []string {
	var similar []string
	for _, op := range ir.Opcodes() {
		if levenshteinDistance(name, op.String()) <= 2 {
			similar = append(similar, op.String())
		}
	}
	if levenshteinDistance(name, "goto") <= 2 {
		similar = append(similar, "goto")
	}
	return similar
}

func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	previous := make([]int, len(a)+1)
	for i := range previous {
		previous[i] = i
	}
	for i := 0; i < len(b); i++ {
		current := make([]int, len(a)+1)
		current[0] = i + 1
		for j := 0; j < len(a); j++ {
			cost := 0
			if a[j] != b[i] {
				cost = 1
			}
			current[j+1] = min(current[j]+1, previous[j+1]+1, previous[j]+cost)
		}
		previous = current
	}
	return previous[len(a)]
}
