package strand

import (
	"errors"
	"sync/atomic"
)

// ErrCanceled is the failure a canceled [Thread] observes at its await
// call site.
var ErrCanceled = errors.New("strand: thread canceled")

// ThreadState describes where a [Thread] is in its lifecycle.
type ThreadState int32

const (
	// ThreadRunnable: enqueued on its context, not yet running.
	ThreadRunnable ThreadState = iota
	// ThreadRunning: bound to a carrier, executing.
	ThreadRunning
	// ThreadSuspended: parked on an await point, carrier released.
	ThreadSuspended
	// ThreadTerminated: body returned or panicked.
	ThreadTerminated
)

func (s ThreadState) String() string {
	switch s {
	case ThreadRunnable:
		return "runnable"
	case ThreadRunning:
		return "running"
	case ThreadSuspended:
		return "suspended"
	case ThreadTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// A Thread is a suspendable logical unit of work: straight-line code
// running on its own goroutine, multiplexed onto carriers by its
// [Context] so that at most one unit per context is ever running.
//
// A thread executes only while a context drain turn has granted it a
// carrier. Calling [Await] parks the thread and hands the carrier back;
// when the awaited future resolves, the continuation re-enters the
// context queue ahead of work submitted during the suspension and the
// thread resumes exactly where it paused, possibly on a different
// carrier.
type Thread struct {
	id   string
	ctx  *Context
	body func(th *Thread)

	state    atomic.Int32
	canceled atomic.Bool
	awaiting atomic.Pointer[awaitPoint]

	// Carrier handoff. resume carries results carrier-to-thread; yield
	// signals thread-to-carrier that the carrier is free again.
	resume chan resumption
	yield  chan struct{}

	// carrier and locals are only touched during the thread's own
	// running phases; the context's serialization is their lock.
	carrier *Carrier
	locals  map[any]any

	done *Promise[struct{}]
}

type resumption struct {
	value any
	err   error
}

func newThread(c *Context, body func(th *Thread)) *Thread {
	return &Thread{
		id:     newID(),
		ctx:    c,
		body:   body,
		resume: make(chan resumption),
		yield:  make(chan struct{}),
		done:   NewPromise[struct{}](),
	}
}

// ID returns the thread's identity.
func (th *Thread) ID() string {
	return th.id
}

// Context returns the context that owns th.
func (th *Thread) Context() *Context {
	return th.ctx
}

// State returns the thread's current lifecycle state.
func (th *Thread) State() ThreadState {
	return ThreadState(th.state.Load())
}

// Carrier returns the carrier currently executing th.
// Only code running on th observes a consistent value.
func (th *Thread) Carrier() *Carrier {
	return th.carrier
}

// Join returns a future that resolves when th terminates. It fails with
// a [*PanicError] if the thread body panicked.
func (th *Thread) Join() Future[struct{}] {
	return th.done
}

// Canceled reports whether Cancel has been called on th.
func (th *Thread) Canceled() bool {
	return th.canceled.Load()
}

// Cancel requests cancellation of th. If th is suspended, its pending
// await resolves with [ErrCanceled]; otherwise the next await fails
// immediately. Cancellation is cooperative: the body decides whether to
// recover or unwind. Canceling a terminated thread is a no-op.
func (th *Thread) Cancel() {
	if th.State() == ThreadTerminated {
		return
	}
	if !th.canceled.CompareAndSwap(false, true) {
		return
	}
	if ap := th.awaiting.Load(); ap != nil {
		ap.resolve(nil, ErrCanceled)
	}
}

// main is the thread's goroutine: it waits for the first carrier grant,
// runs the body to completion, and reports the outcome.
func (th *Thread) main() {
	<-th.resume
	err := capturePanic(func() { th.body(th) })
	th.finish(err)
	th.yield <- struct{}{}
}

func (th *Thread) finish(err error) {
	th.state.Store(int32(ThreadTerminated))
	th.ctx.removeThread(th)
	if err != nil {
		th.ctx.log.Error("thread panicked",
			"context", th.ctx.id, "thread", th.id, "error", err)
		th.done.Fail(err)
		return
	}
	th.done.Complete(struct{}{})
}

// start is the task that gives th its first running phase.
func (th *Thread) start(cr *Carrier) {
	th.grant(cr, resumption{})
}

// grant binds cr to th, wakes the thread's goroutine, and blocks the
// carrier until the thread yields it back by suspending or terminating.
// grant runs inside the context's drain loop, so the context stays
// mutually exclusive while the thread runs.
func (th *Thread) grant(cr *Carrier, r resumption) {
	if th.State() == ThreadTerminated {
		return
	}
	th.carrier = cr
	cr.current = th
	th.state.Store(int32(ThreadRunning))

	th.resume <- r
	<-th.yield

	cr.current = nil
	th.carrier = nil
}

// park releases the carrier and blocks until the next grant. Called on
// the thread's own goroutine, with the continuation already arranged.
func (th *Thread) park() resumption {
	th.ctx.metrics.threadSuspended()
	th.state.Store(int32(ThreadSuspended))
	th.yield <- struct{}{}
	return <-th.resume
}

func (th *Thread) mustBeRunning(what string) {
	if th.State() != ThreadRunning {
		panic("strand: " + what + " outside a running thread")
	}
}
