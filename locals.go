package strand

// A Local is a typed slot of thread-scoped storage. Values are keyed by
// [Thread] identity, never by the carrier executing it, so a value
// written before a suspension reads back unchanged after resumption even
// when the thread resumes on a different carrier.
//
// Locals are accessed only from code running on the owning thread; the
// context's serialization makes that access race-free. A Local is
// typically a package-level variable shared by the code that needs the
// slot.
type Local[T any] struct {
	_ byte // distinct identity per allocation
}

// NewLocal creates a storage slot.
func NewLocal[T any]() *Local[T] {
	return new(Local[T])
}

// Get returns the value last set on th, or the zero value.
func (l *Local[T]) Get(th *Thread) T {
	v, _ := l.Lookup(th)
	return v
}

// Lookup returns the value last set on th and whether one was set.
func (l *Local[T]) Lookup(th *Thread) (T, bool) {
	th.mustBeRunning("Local.Lookup")
	if v, ok := th.locals[l]; ok {
		return v.(T), true
	}
	var zero T
	return zero, false
}

// Set stores v on th.
func (l *Local[T]) Set(th *Thread, v T) {
	th.mustBeRunning("Local.Set")
	if th.locals == nil {
		th.locals = make(map[any]any)
	}
	th.locals[l] = v
}

// Clear removes the slot's value from th.
func (l *Local[T]) Clear(th *Thread) {
	th.mustBeRunning("Local.Clear")
	delete(th.locals, l)
}
