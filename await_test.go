package strand_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostrand/strand"
)

func TestAwaitResolvedFuture(t *testing.T) {
	// Awaiting an already-resolved future suspends and resumes without
	// external involvement.
	ctx := strand.NewContext()
	defer ctx.Close()

	got := make(chan int, 1)
	th, err := ctx.Run(func(th *strand.Thread) {
		v, err := strand.Await(th, strand.Resolved(7))
		assert.NoError(t, err)
		got <- v
	})
	require.NoError(t, err)
	require.NoError(t, join(t, th))
	assert.Equal(t, 7, <-got)
}

func TestAwaitFailure(t *testing.T) {
	// A future failure surfaces as an error at the await call site and
	// leaves the thread free to continue.
	ctx := strand.NewContext()
	defer ctx.Close()

	boom := errors.New("boom")
	p := strand.NewPromise[int]()

	got := make(chan error, 1)
	after := make(chan int, 1)
	th, err := ctx.Run(func(th *strand.Thread) {
		_, err := strand.Await(th, p)
		got <- err
		v, err := strand.Await(th, strand.Resolved(1))
		assert.NoError(t, err)
		after <- v
	})
	require.NoError(t, err)
	waitState(t, th, strand.ThreadSuspended)

	p.Fail(boom)
	require.NoError(t, join(t, th))
	assert.ErrorIs(t, <-got, boom)
	assert.Equal(t, 1, <-after, "thread should participate normally after a failed await")
}

func TestAwaitTimeout(t *testing.T) {
	t.Run("InTime", func(t *testing.T) {
		ctx := strand.NewContext()
		defer ctx.Close()

		p := strand.NewPromise[string]()
		got := make(chan string, 1)
		th, err := ctx.Run(func(th *strand.Thread) {
			v, err := strand.AwaitTimeout(th, p, 5*time.Second)
			assert.NoError(t, err)
			got <- v
		})
		require.NoError(t, err)
		waitState(t, th, strand.ThreadSuspended)

		p.Complete("made it")
		require.NoError(t, join(t, th))
		assert.Equal(t, "made it", <-got)
	})

	t.Run("TimedOut", func(t *testing.T) {
		ctx := strand.NewContext()
		defer ctx.Close()

		p := strand.NewPromise[string]()
		got := make(chan error, 1)
		th, err := ctx.Run(func(th *strand.Thread) {
			_, err := strand.AwaitTimeout(th, p, 5*time.Millisecond)
			got <- err
		})
		require.NoError(t, err)
		require.NoError(t, join(t, th))
		assert.ErrorIs(t, <-got, strand.ErrTimeout)

		// The losing resolution arrives after the await point was
		// consumed: applied nowhere, raises nothing.
		assert.True(t, p.Complete("too late"))
	})
}

func TestStaleResolutionAfterTermination(t *testing.T) {
	ctx := strand.NewContext()
	defer ctx.Close()

	p := strand.NewPromise[int]()
	th, err := ctx.Run(func(th *strand.Thread) {
		_, _ = strand.Await(th, p)
	})
	require.NoError(t, err)
	waitState(t, th, strand.ThreadSuspended)

	th.Cancel()
	require.NoError(t, join(t, th))

	// Resolving after the thread terminated is silently dropped, and the
	// context keeps working.
	p.Complete(1)
	done := make(chan struct{})
	require.NoError(t, ctx.Submit(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("context unusable after stale resolution")
	}
}

func TestSleep(t *testing.T) {
	ctx := strand.NewContext()
	defer ctx.Close()

	const d = 20 * time.Millisecond

	start := time.Now()
	elapsed := make(chan time.Duration, 1)
	th, err := ctx.Run(func(th *strand.Thread) {
		assert.NoError(t, strand.Sleep(th, d))
		elapsed <- time.Since(start)
	})
	require.NoError(t, err)
	require.NoError(t, join(t, th))
	assert.GreaterOrEqual(t, <-elapsed, d)
}

func TestSleepDoesNotHoldCarrier(t *testing.T) {
	// With a pool of exactly one carrier, a sleeping thread must not
	// prevent other work from running.
	pool := strand.NewElasticPool(strand.WithMaxCarriers(1))
	ctx := strand.NewContext(strand.WithCarrierSource(pool))
	defer ctx.Close()

	th, err := ctx.Run(func(th *strand.Thread) {
		assert.NoError(t, strand.Sleep(th, 50*time.Millisecond))
	})
	require.NoError(t, err)
	waitState(t, th, strand.ThreadSuspended)

	done := make(chan struct{})
	require.NoError(t, ctx.Submit(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sole carrier held across a sleep")
	}
	require.NoError(t, join(t, th))
}

func TestAwaitOutsideThreadPanics(t *testing.T) {
	assert.Panics(t, func() {
		th := threadHandle(t)
		_, _ = strand.Await(th, strand.Resolved(0))
	})
}

// threadHandle returns a handle to a thread that has already terminated,
// for misuse tests.
func threadHandle(t *testing.T) *strand.Thread {
	t.Helper()
	ctx := strand.NewContext()
	t.Cleanup(func() { ctx.Close() })
	th, err := ctx.Run(func(th *strand.Thread) {})
	require.NoError(t, err)
	require.NoError(t, join(t, th))
	return th
}
