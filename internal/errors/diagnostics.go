package errors

import "fmt"

// CompilerError is a diagnostic produced while reading text IR
type CompilerError struct {
	Code       string
	Message    string
	Position   Position
	Length     int    // width of the underlined region
	Suggestion string // "did you mean" text, if any
	HelpText   string
}

// Position is a location in a textual IR file
type Position struct {
	Filename string
	Line     int
	Column   int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// UndefinedValue reports a %n reference that no instruction defines
func UndefinedValue(name string, pos Position) CompilerError {
	return CompilerError{
		Code:     ErrorUndefinedValue,
		Message:  fmt.Sprintf("undefined value %s", name),
		Position: pos,
		Length:   len(name),
		HelpText: "values must be defined by an instruction somewhere in the same function",
	}
}

// UndefinedBlock reports a successor label without a matching block
func UndefinedBlock(label string, pos Position) CompilerError {
	return CompilerError{
		Code:     ErrorUndefinedBlock,
		Message:  fmt.Sprintf("undefined block %s", label),
		Position: pos,
		Length:   len(label),
	}
}

// UnknownOpcode reports an unrecognized instruction mnemonic
func UnknownOpcode(op string, pos Position, similar []string) CompilerError {
	err := CompilerError{
		Code:     ErrorUnknownOpcode,
		Message:  fmt.Sprintf("unknown opcode %q", op),
		Position: pos,
		Length:   len(op),
	}
	if len(similar) > 0 {
		err.Suggestion = fmt.Sprintf("did you mean '%s'?", similar[0])
	}
	return err
}

// BadOperand reports an operand of the wrong shape
func BadOperand(op string, detail string, pos Position) CompilerError {
	return CompilerError{
		Code:     ErrorBadOperand,
		Message:  fmt.Sprintf("invalid operands for %s: %s", op, detail),
		Position: pos,
		Length:   len(op),
	}
}

// DuplicateDefinition reports a value or label defined twice
func DuplicateDefinition(name string, pos Position) CompilerError {
	return CompilerError{
		Code:     ErrorDuplicateDefinition,
		Message:  fmt.Sprintf("%s is defined more than once", name),
		Position: pos,
		Length:   len(name),
	}
}

// SyntaxError wraps a parser failure
func SyntaxError(message string, pos Position) CompilerError {
	return CompilerError{
		Code:     ErrorSyntax,
		Message:  message,
		Position: pos,
		Length:   1,
	}
}

// CompilerError is also an error so callers can return it through the usual
// error paths.
func (e CompilerError) Error() string {
	return fmt.Sprintf("%s: error[%s]: %s", e.Position, e.Code, e.Message)
}
