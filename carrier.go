package strand

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// A Carrier is a real scheduling resource on which context work executes.
// A carrier is bound to at most one [Thread] at a time; its lifetime is
// managed by the [CarrierSource] that owns it, independent of any thread.
type Carrier struct {
	id      uint64
	current *Thread
}

// ID returns the pool-wide identity of cr.
func (cr *Carrier) ID() uint64 {
	return cr.id
}

// Thread returns the thread currently bound to cr, or nil if cr is
// executing plain submitted work.
//
// Only code running on cr observes a consistent value.
func (cr *Carrier) Thread() *Thread {
	return cr.current
}

var carrierSeq atomic.Uint64

func newCarrier() *Carrier {
	return &Carrier{id: carrierSeq.Add(1)}
}

// A CarrierSource supplies carriers to execution contexts.
//
// Dispatch schedules a queue-drain turn to run on some carrier owned by
// the source. Dispatch must not run the turn on the calling goroutine and
// must not block the caller beyond brief internal synchronization.
//
// Two strategies are provided: [ElasticPool], a demand-elastic supply not
// tied to any particular goroutine, and [PinnedDispatcher], which funnels
// every turn through one designated carrier.
type CarrierSource interface {
	Dispatch(turn func(cr *Carrier))
}

// An ElasticPool is a [CarrierSource] that grows on demand and retires
// carriers that stay idle past their keep-alive. A single pool may be
// shared by any number of contexts; suspension and resumption may land on
// different carriers freely.
//
// The zero value is not usable; call [NewElasticPool].
type ElasticPool struct {
	keepAlive time.Duration
	max       int
	log       *slog.Logger
	metrics   *Metrics

	mu      sync.Mutex
	idle    []*idleCarrier
	pending ring[func(cr *Carrier)]
	live    int
	closed  bool
}

type idleCarrier struct {
	cr *Carrier
	ch chan func(cr *Carrier)
}

const defaultKeepAlive = 15 * time.Second

// NewElasticPool creates a pool. By default the pool is unbounded and
// keeps idle carriers alive for 15 seconds.
func NewElasticPool(opts ...PoolOption) *ElasticPool {
	p := &ElasticPool{
		keepAlive: defaultKeepAlive,
		log:       discardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultPool struct {
	once sync.Once
	pool *ElasticPool
}

// DefaultPool returns the process-wide [ElasticPool] used by contexts
// created without an explicit [CarrierSource].
func DefaultPool() *ElasticPool {
	defaultPool.once.Do(func() {
		defaultPool.pool = NewElasticPool()
	})
	return defaultPool.pool
}

// Dispatch implements [CarrierSource]. If an idle carrier is available it
// takes the turn; otherwise a new carrier is started, unless the pool is
// at its maximum, in which case the turn waits for a carrier to free up.
func (p *ElasticPool) Dispatch(turn func(cr *Carrier)) {
	if turn == nil {
		panic("strand: nil turn")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		panic("strand: dispatch on closed pool")
	}
	if n := len(p.idle); n != 0 {
		w := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		p.metrics.carrierIdle(-1)
		w.ch <- turn
		return
	}
	if p.max > 0 && p.live == p.max {
		p.pending.Push(turn)
		p.mu.Unlock()
		return
	}
	p.live++
	p.mu.Unlock()

	cr := newCarrier()
	p.metrics.carrierStarted()
	p.log.Debug("carrier started", "carrier", cr.id)
	go p.work(cr, turn)
}

func (p *ElasticPool) work(cr *Carrier, turn func(cr *Carrier)) {
	for turn != nil {
		turn(cr)
		turn = p.next(cr)
	}
	p.metrics.carrierStopped()
	p.log.Debug("carrier retired", "carrier", cr.id)
}

// next hands cr its next turn, or nil when cr should retire.
func (p *ElasticPool) next(cr *Carrier) func(cr *Carrier) {
	p.mu.Lock()
	if !p.pending.Empty() {
		t := p.pending.Pop()
		p.mu.Unlock()
		return t
	}
	if p.closed || p.keepAlive <= 0 {
		p.live--
		p.mu.Unlock()
		return nil
	}

	w := &idleCarrier{cr: cr, ch: make(chan func(cr *Carrier), 1)}
	p.idle = append(p.idle, w)
	p.mu.Unlock()
	p.metrics.carrierIdle(+1)

	tm := time.NewTimer(p.keepAlive)
	defer tm.Stop()

	select {
	case t := <-w.ch:
		if t == nil { // pool closed
			p.dropLive()
		}
		return t
	case <-tm.C:
		p.mu.Lock()
		if i := slices.Index(p.idle, w); i != -1 {
			p.idle = slices.Delete(p.idle, i, i+1)
			p.live--
			p.mu.Unlock()
			p.metrics.carrierIdle(-1)
			return nil
		}
		p.mu.Unlock()
		// A dispatch claimed this carrier concurrently with the timeout.
		t := <-w.ch
		if t == nil {
			p.dropLive()
		}
		return t
	}
}

func (p *ElasticPool) dropLive() {
	p.mu.Lock()
	p.live--
	p.mu.Unlock()
}

// Close retires idle carriers and marks the pool closed. Carriers still
// executing a turn retire once it finishes. Dispatching on a closed pool
// panics; close a pool only after every context using it has quiesced.
func (p *ElasticPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, w := range idle {
		p.metrics.carrierIdle(-1)
		w.ch <- nil
	}
}

// A PinnedDispatcher is a [CarrierSource] backed by exactly one carrier
// goroutine. Every turn dispatched to it, including resumptions of
// suspended threads, runs on that same dispatch resource, preserving the
// affinity assumptions some host integrations require.
type PinnedDispatcher struct {
	cr   *Carrier
	wake chan struct{}
	done chan struct{}

	mu     sync.Mutex
	q      ring[func(cr *Carrier)]
	closed bool
}

// NewPinnedDispatcher creates a dispatcher and starts its carrier
// goroutine.
func NewPinnedDispatcher() *PinnedDispatcher {
	d := &PinnedDispatcher{
		cr:   newCarrier(),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.loop()
	return d
}

// Carrier returns the dispatcher's sole carrier.
func (d *PinnedDispatcher) Carrier() *Carrier {
	return d.cr
}

// Dispatch implements [CarrierSource].
func (d *PinnedDispatcher) Dispatch(turn func(cr *Carrier)) {
	if turn == nil {
		panic("strand: nil turn")
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		panic("strand: dispatch on closed dispatcher")
	}
	d.q.Push(turn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *PinnedDispatcher) loop() {
	defer close(d.done)
	for {
		d.mu.Lock()
		if !d.q.Empty() {
			turn := d.q.Pop()
			d.mu.Unlock()
			turn(d.cr)
			continue
		}
		closed := d.closed
		d.mu.Unlock()
		if closed {
			return
		}
		<-d.wake
	}
}

// Close stops the dispatcher after draining queued turns and waits for
// its carrier goroutine to exit. Close a dispatcher only after every
// context using it has quiesced.
func (d *PinnedDispatcher) Close() {
	d.mu.Lock()
	already := d.closed
	d.closed = true
	d.mu.Unlock()

	if !already {
		select {
		case d.wake <- struct{}{}:
		default:
		}
	}
	<-d.done
}
