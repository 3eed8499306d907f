package strand

import (
	"errors"
	"sync/atomic"
	"time"
)

// ErrTimeout is the failure observed at the await call site when
// [AwaitTimeout] loses the race against its deadline.
var ErrTimeout = errors.New("strand: await timed out")

// An awaitPoint pairs a pending future with the thread waiting on it.
// It is consumed by exactly one resolution; anything arriving after that
// first resolution, including completions of a thread that has since been
// canceled or terminated, is silently dropped.
type awaitPoint struct {
	th       *Thread
	consumed atomic.Bool
}

func (ap *awaitPoint) resolve(v any, err error) {
	if !ap.consumed.CompareAndSwap(false, true) {
		return
	}
	th := ap.th
	if th.State() == ThreadTerminated {
		return
	}
	th.ctx.metrics.threadResumed()
	_ = th.ctx.enqueue(laneResume, func(cr *Carrier) {
		th.grant(cr, resumption{value: v, err: err})
	})
}

// Await suspends th until f resolves, then returns f's value or failure.
//
// While suspended the thread holds no carrier, and its context keeps
// draining other work. Once f resolves, th's continuation runs ahead of
// any task submitted to the context during the suspension. If th is
// canceled, Await returns [ErrCanceled]; the future's eventual resolution
// is then dropped.
//
// Await must be called from code running on th.
func Await[T any](th *Thread, f Future[T]) (T, error) {
	th.mustBeRunning("Await")
	if f == nil {
		panic("strand: nil future")
	}
	return awaitOn[T](th, func(ap *awaitPoint) {
		f.OnComplete(func(v T, err error) {
			ap.resolve(v, err)
		})
	})
}

// AwaitTimeout is [Await] racing a deadline: whichever of f and the timer
// resolves first decides the outcome, and the loser is dropped. On
// timeout it returns [ErrTimeout].
func AwaitTimeout[T any](th *Thread, f Future[T], d time.Duration) (T, error) {
	th.mustBeRunning("AwaitTimeout")
	if f == nil {
		panic("strand: nil future")
	}
	var tm *time.Timer
	v, err := awaitOn[T](th, func(ap *awaitPoint) {
		tm = time.AfterFunc(d, func() {
			ap.resolve(nil, ErrTimeout)
		})
		f.OnComplete(func(v T, err error) {
			ap.resolve(v, err)
		})
	})
	tm.Stop()
	return v, err
}

// Sleep suspends th for at least d without holding a carrier.
func Sleep(th *Thread, d time.Duration) error {
	th.mustBeRunning("Sleep")
	_, err := awaitOn[time.Time](th, func(ap *awaitPoint) {
		After(d).OnComplete(func(v time.Time, err error) {
			ap.resolve(v, err)
		})
	})
	return err
}

func awaitOn[T any](th *Thread, register func(ap *awaitPoint)) (T, error) {
	var zero T
	if th.canceled.Load() {
		return zero, ErrCanceled
	}

	ap := &awaitPoint{th: th}
	th.awaiting.Store(ap)
	// Recheck after publishing the await point: a Cancel racing with this
	// call either sees the point and resolves it, or set the flag in time
	// for this check. The consumed CAS deduplicates.
	if th.canceled.Load() {
		ap.resolve(nil, ErrCanceled)
	}
	register(ap)

	r := th.park()
	th.awaiting.Store(nil)

	if r.err != nil {
		return zero, r.err
	}
	v, _ := r.value.(T)
	return v, nil
}
