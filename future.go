package strand

import (
	"sync"
	"time"
)

// A Future is an asynchronous result that [Await] can suspend on.
//
// A Future resolves exactly once, with either a value or a failure cause.
// It supports registering exactly one completion callback; registering
// a second one panics. The callback fires exactly once, possibly
// synchronously from OnComplete when the Future is already resolved at
// registration time.
//
// [Promise] is the reference implementation. Any producer of asynchronous
// results (network clients, timers, lock grants) can implement Future
// directly instead.
type Future[T any] interface {
	OnComplete(fn func(v T, err error))
}

// A Promise is a [Future] that is completed by its producer.
//
// A Promise starts out pending. The first call to Complete or Fail
// resolves it; later calls are no-ops that report false. A Promise is
// safe for concurrent use.
type Promise[T any] struct {
	mu    sync.Mutex
	done  bool
	value T
	err   error
	fn    func(v T, err error)
}

// NewPromise creates a pending [Promise].
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{}
}

// Complete resolves p with v.
// It reports whether p was still pending.
func (p *Promise[T]) Complete(v T) bool {
	return p.settle(v, nil)
}

// Fail resolves p with err, which must be non-nil.
// It reports whether p was still pending.
func (p *Promise[T]) Fail(err error) bool {
	if err == nil {
		panic("strand: Fail called with nil error")
	}
	var zero T
	return p.settle(zero, err)
}

func (p *Promise[T]) settle(v T, err error) bool {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return false
	}
	p.done = true
	p.value, p.err = v, err
	fn := p.fn
	p.fn = nil
	p.mu.Unlock()

	if fn != nil {
		fn(v, err)
	}
	return true
}

// OnComplete registers the completion callback of p.
// If p is already resolved, fn is called synchronously before OnComplete
// returns. Registering more than one callback panics.
func (p *Promise[T]) OnComplete(fn func(v T, err error)) {
	if fn == nil {
		panic("strand: OnComplete called with nil callback")
	}
	p.mu.Lock()
	if p.done {
		v, err := p.value, p.err
		p.mu.Unlock()
		fn(v, err)
		return
	}
	if p.fn != nil {
		p.mu.Unlock()
		panic("strand: completion callback already registered")
	}
	p.fn = fn
	p.mu.Unlock()
}

// Resolved returns a [Future] already resolved with v.
func Resolved[T any](v T) Future[T] {
	p := NewPromise[T]()
	p.Complete(v)
	return p
}

// Failed returns a [Future] already resolved with err.
func Failed[T any](err error) Future[T] {
	p := NewPromise[T]()
	p.Fail(err)
	return p
}

// After returns a [Future] that resolves with the current time once d has
// elapsed.
func After(d time.Duration) Future[time.Time] {
	p := NewPromise[time.Time]()
	time.AfterFunc(d, func() {
		p.Complete(time.Now())
	})
	return p
}
