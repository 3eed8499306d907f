package strand

import (
	"fmt"
	"runtime/debug"
)

// A PanicError wraps a panic recovered from a task or thread body,
// together with the stack trace captured at the panic site.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", e.Value, e.Stack)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// capturePanic calls f, converting a panic into a *PanicError so that
// the carrier executing f survives.
func capturePanic(f func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	f()
	return nil
}
