package errors

import "fmt"

// Violation is the panic payload for a broken internal contract. The
// analyses and passes only ever see compiler-built graphs, so a violation is
// a bug in the compiler and is never recovered from inside the core.
type Violation struct {
	Code    string
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("contract violation[%s]: %s", v.Code, v.Message)
}

// Violationf panics with a Violation.
func Violationf(code, format string, args ...any) {
	panic(&Violation{Code: code, Message: fmt.Sprintf(format, args...)})
}

// Assert panics with a Violation when cond does not hold.
func Assert(cond bool, code, format string, args ...any) {
	if !cond {
		Violationf(code, format, args...)
	}
}

// AsViolation extracts a Violation from a recovered panic value.
func AsViolation(r any) (*Violation, bool) {
	v, ok := r.(*Violation)
	return v, ok
}
