package strand

import (
	"slices"
	"sync"
)

// A Mutex is a mutual-exclusion lock for threads. Contended acquisition
// suspends the calling [Thread] through the same mechanism as [Await], so
// the carrier is released rather than held idle while waiting.
//
// A Mutex may guard state shared by threads on different contexts. The
// zero value is an unlocked Mutex.
type Mutex struct {
	mu      sync.Mutex
	locked  bool
	waiters []*Promise[struct{}]
}

// TryLock attempts non-blocking acquisition. It fails when the lock is
// held or when other threads are already waiting for it, so waiters are
// never barged past.
func (m *Mutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked || len(m.waiters) != 0 {
		return false
	}
	m.locked = true
	return true
}

// Lock acquires m, suspending th while the lock is contended. On a nil
// return the caller holds the lock. If th is canceled while waiting, Lock
// returns [ErrCanceled] and the caller does not hold the lock; a grant
// racing the cancellation is passed on, never leaked.
func (m *Mutex) Lock(th *Thread) error {
	th.mustBeRunning("Lock")

	m.mu.Lock()
	if !m.locked && len(m.waiters) == 0 {
		m.locked = true
		m.mu.Unlock()
		return nil
	}
	p := NewPromise[struct{}]()
	m.waiters = append(m.waiters, p)
	m.mu.Unlock()

	if _, err := Await[struct{}](th, p); err != nil {
		m.abandon(p)
		return err
	}
	return nil
}

// Unlock releases m. If threads are waiting, ownership transfers directly
// to the first waiter and the lock never becomes observably free in
// between. Unlocking an unlocked Mutex panics.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locked {
		panic("strand: unlock of unlocked Mutex")
	}
	m.unlockLocked()
}

func (m *Mutex) unlockLocked() {
	if len(m.waiters) == 0 {
		m.locked = false
		return
	}
	p := m.waiters[0]
	m.waiters = slices.Delete(m.waiters, 0, 1)
	// Ownership transfers; m.locked stays true for the waiter.
	p.Complete(struct{}{})
}

// abandon withdraws a waiter whose wait failed. If the grant already
// happened, the lock is handed on instead of leaking.
func (m *Mutex) abandon(p *Promise[struct{}]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := slices.Index(m.waiters, p); i != -1 {
		m.waiters = slices.Delete(m.waiters, i, i+1)
		return
	}
	m.unlockLocked()
}

// WithLock runs fn while holding m, releasing it on every exit path:
// normal return, panic, and failed acquisition alike.
func (m *Mutex) WithLock(th *Thread, fn func()) error {
	if err := m.Lock(th); err != nil {
		return err
	}
	defer m.Unlock()
	fn()
	return nil
}

// A Cond is a condition variable for threads: a wait point announcing
// some condition about state guarded by its [Mutex]. Waiting suspends the
// thread and releases its carrier, like any other await.
type Cond struct {
	// L is held by callers of Wait and by convention while changing the
	// condition.
	L *Mutex

	mu      sync.Mutex
	waiters []*Promise[struct{}]
}

// NewCond returns a condition variable with Mutex l.
func NewCond(l *Mutex) *Cond {
	if l == nil {
		panic("strand: nil Mutex")
	}
	return &Cond{L: l}
}

// Wait atomically releases c.L, suspends th until woken by [Cond.Signal]
// or [Cond.Broadcast], then re-acquires c.L before returning. Unlike with
// sync.Cond, spurious wakeups do not occur, but callers should still
// re-check the condition in a loop. If th is canceled while waiting, Wait
// still re-acquires c.L when possible and returns the cancellation.
func (c *Cond) Wait(th *Thread) error {
	th.mustBeRunning("Wait")

	p := NewPromise[struct{}]()
	c.mu.Lock()
	c.waiters = append(c.waiters, p)
	c.mu.Unlock()

	c.L.Unlock()
	_, werr := Await[struct{}](th, p)
	if werr != nil {
		c.abandon(p)
	}
	if err := c.L.Lock(th); err != nil {
		return err
	}
	return werr
}

// Signal wakes the longest-waiting thread, if any.
func (c *Cond) Signal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.waiters) == 0 {
		return
	}
	p := c.waiters[0]
	c.waiters = slices.Delete(c.waiters, 0, 1)
	p.Complete(struct{}{})
}

// Broadcast wakes all waiting threads.
func (c *Cond) Broadcast() {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()
	for _, p := range waiters {
		p.Complete(struct{}{})
	}
}

// abandon withdraws a waiter whose wait failed. A wakeup that already
// landed on it is re-delivered to the next waiter so no signal is lost.
func (c *Cond) abandon(p *Promise[struct{}]) {
	c.mu.Lock()
	if i := slices.Index(c.waiters, p); i != -1 {
		c.waiters = slices.Delete(c.waiters, i, i+1)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.Signal()
}
