package strand

import "sync"

// A WaitGroup is a counter that threads can wait on without holding a
// carrier. Add and Done adjust the counter; [WaitGroup.Wait] suspends the
// calling [Thread] until the counter reaches zero.
//
// Unlike sync.WaitGroup, waiting never blocks a carrier, so it is safe to
// wait from a thread whose context still has other work queued.
type WaitGroup struct {
	mu      sync.Mutex
	n       int
	waiters []*Promise[struct{}]
}

// Add adds delta, which may be negative, to the counter. If the counter
// reaches zero, all waiting threads resume. If the counter goes negative,
// Add panics.
func (wg *WaitGroup) Add(delta int) {
	wg.mu.Lock()
	wg.n += delta
	if wg.n < 0 {
		wg.mu.Unlock()
		panic("strand: negative WaitGroup counter")
	}
	if wg.n != 0 {
		wg.mu.Unlock()
		return
	}
	waiters := wg.waiters
	wg.waiters = nil
	wg.mu.Unlock()

	for _, p := range waiters {
		p.Complete(struct{}{})
	}
}

// Done decrements the counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Wait suspends th until the counter is zero.
func (wg *WaitGroup) Wait(th *Thread) error {
	th.mustBeRunning("Wait")

	wg.mu.Lock()
	if wg.n == 0 {
		wg.mu.Unlock()
		return nil
	}
	p := NewPromise[struct{}]()
	wg.waiters = append(wg.waiters, p)
	wg.mu.Unlock()

	_, err := Await[struct{}](th, p)
	return err
}
