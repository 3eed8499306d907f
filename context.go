package strand

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
)

// ErrClosed is returned when work is submitted to a closed [Context].
var ErrClosed = errors.New("strand: context closed")

// A Context serializes work: tasks submitted to one context never execute
// concurrently and run in submission order, except that continuations of
// resumed threads re-enter ahead of work queued while they were suspended.
// Different contexts run fully in parallel on different carriers.
//
// A Context owns no goroutine of its own. Whenever its queue becomes
// non-empty while it is idle, it dispatches a drain turn onto a carrier
// drawn from its [CarrierSource], runs queued tasks one at a time until
// the queue empties, and releases the carrier. A task that suspends also
// releases the carrier, so a suspended thread never stalls the rest of
// the context's queue.
type Context struct {
	id      string
	src     CarrierSource
	log     *slog.Logger
	metrics *Metrics

	mu       sync.Mutex
	q        taskQueue
	running  bool
	draining bool
	closed   bool
	threads  map[*Thread]struct{}
}

// NewContext creates a context. Without options it draws carriers from
// [DefaultPool] and discards logs.
func NewContext(opts ...Option) *Context {
	c := &Context{
		id:      newID(),
		log:     discardLogger(),
		threads: make(map[*Thread]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.src == nil {
		c.src = DefaultPool()
	}
	return c
}

// ID returns the context's identity.
func (c *Context) ID() string {
	return c.id
}

// Submit enqueues fn to run on c, after all previously submitted work.
// Submit is safe for concurrent use and never waits for fn to run.
func (c *Context) Submit(fn func()) error {
	if fn == nil {
		panic("strand: nil task")
	}
	return c.enqueue(laneSubmit, func(cr *Carrier) {
		c.metrics.taskRan()
		if err := capturePanic(fn); err != nil {
			c.log.Error("task panicked", "context", c.id, "error", err)
		}
	})
}

// Run starts a new [Thread] on c. The thread's first running phase is
// scheduled like any submitted task; body executes on the thread's own
// goroutine and may suspend with [Await] without stalling c.
func (c *Context) Run(body func(th *Thread)) (*Thread, error) {
	if body == nil {
		panic("strand: nil thread body")
	}
	th := newThread(c, body)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.threads[th] = struct{}{}
	c.mu.Unlock()

	if err := c.enqueue(laneSubmit, th.start); err != nil {
		c.removeThread(th)
		return nil, err
	}
	c.metrics.threadStarted()
	go th.main()
	return th, nil
}

// Close marks c closed. Later submissions fail with [ErrClosed], already
// queued work still drains, and suspended threads are canceled so that
// every thread terminates. Close is idempotent.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	threads := make([]*Thread, 0, len(c.threads))
	for th := range c.threads {
		threads = append(threads, th)
	}
	c.mu.Unlock()

	for _, th := range threads {
		th.Cancel()
	}
	c.log.Debug("context closed", "context", c.id)
	return nil
}

func (c *Context) enqueue(lane lane, t task) error {
	c.mu.Lock()
	// The resume lane stays open on a closed context: canceled threads
	// must still resume once to observe cancellation and terminate.
	if c.closed && lane == laneSubmit {
		c.mu.Unlock()
		return ErrClosed
	}
	c.q.Push(lane, t)
	dispatch := !c.running
	if dispatch {
		c.running = true
	}
	c.mu.Unlock()

	if dispatch {
		c.src.Dispatch(c.drain)
	}
	return nil
}

// drain pops and runs every queued task until the queue is emptied, then
// returns the carrier to its source. At most one drain turn is active per
// context at any instant.
func (c *Context) drain(cr *Carrier) {
	c.mu.Lock()
	if c.draining {
		panic("strand: internal error: concurrent drain on one context")
	}
	c.draining = true

	for {
		t, ok := c.q.Pop()
		if !ok {
			c.draining = false
			c.running = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		t(cr)
		c.mu.Lock()
	}
}

func (c *Context) removeThread(th *Thread) {
	c.mu.Lock()
	delete(c.threads, th)
	c.mu.Unlock()
}

// newID mints a ULID for contexts and threads.
func newID() string {
	return ulid.Make().String()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
