// Package fatal reports engine invariant violations.
//
// A violation is never a user error: it means the engine or one of its
// callers broke a contract (mutating a frozen table, entering a symbol with
// mismatched flags, a mixin cycle, an out-of-range reference). Violations
// panic with *Violation and are not recovered inside the engine. Only the
// outermost driver may recover one, to dump diagnostics before exiting.
package fatal

import (
	"errors"
	"fmt"
)

// Violation is the panic payload for a broken engine invariant.
type Violation struct {
	Msg string
}

func (v *Violation) Error() string {
	return "invariant violation: " + v.Msg
}

// Raise panics with a formatted violation.
func Raise(format string, args ...any) {
	panic(&Violation{Msg: fmt.Sprintf(format, args...)})
}

// Check panics with a formatted violation when cond is false.
func Check(cond bool, format string, args ...any) {
	if !cond {
		Raise(format, args...)
	}
}

// Catch runs fn and converts a Violation panic into an error.
// Other panics are re-raised unchanged.
func Catch(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if v, ok := r.(*Violation); ok {
			err = v
			return
		}
		panic(r)
	}()
	fn()
	return nil
}

// IsViolation reports whether err wraps a *Violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}
