package strand_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostrand/strand"
)

func TestElasticPoolReusesIdleCarrier(t *testing.T) {
	pool := strand.NewElasticPool(strand.WithKeepAlive(time.Minute))
	defer pool.Close()

	ctx := strand.NewContext(strand.WithCarrierSource(pool))
	defer ctx.Close()

	runAndRecord := func() uint64 {
		ids := make(chan uint64, 1)
		th, err := ctx.Run(func(th *strand.Thread) {
			ids <- th.Carrier().ID()
		})
		require.NoError(t, err)
		require.NoError(t, join(t, th))
		return <-ids
	}

	first := runAndRecord()
	// Give the carrier a moment to finish its turn and register idle.
	time.Sleep(100 * time.Millisecond)
	second := runAndRecord()

	assert.Equal(t, first, second, "idle carrier should be reused within its keep-alive")
}

func TestElasticPoolMaxCarriers(t *testing.T) {
	// With the pool capped at one carrier, work from two contexts is
	// serialized: a turn dispatched while the sole carrier is busy waits
	// its turn instead of growing the pool.
	pool := strand.NewElasticPool(strand.WithMaxCarriers(1))
	defer pool.Close()

	ctx1 := strand.NewContext(strand.WithCarrierSource(pool))
	ctx2 := strand.NewContext(strand.WithCarrierSource(pool))
	defer ctx1.Close()
	defer ctx2.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, ctx1.Submit(func() {
		close(started)
		<-release
	}))
	<-started

	ran := make(chan struct{})
	require.NoError(t, ctx2.Submit(func() { close(ran) }))

	select {
	case <-ran:
		t.Fatal("second turn ran while the sole carrier was occupied")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("queued turn never ran after the carrier freed up")
	}
}

func TestElasticPoolRetiresOnZeroKeepAlive(t *testing.T) {
	pool := strand.NewElasticPool(strand.WithKeepAlive(0))
	defer pool.Close()

	ctx := strand.NewContext(strand.WithCarrierSource(pool))
	defer ctx.Close()

	ids := make(chan uint64, 2)
	for range 2 {
		th, err := ctx.Run(func(th *strand.Thread) {
			ids <- th.Carrier().ID()
		})
		require.NoError(t, err)
		require.NoError(t, join(t, th))
		time.Sleep(20 * time.Millisecond)
	}

	assert.NotEqual(t, <-ids, <-ids, "carriers should retire immediately with no keep-alive")
}

func TestElasticPoolDispatchAfterClosePanics(t *testing.T) {
	pool := strand.NewElasticPool()
	pool.Close()

	assert.Panics(t, func() {
		pool.Dispatch(func(cr *strand.Carrier) {})
	})
}

func TestElasticPoolCloseIdempotent(t *testing.T) {
	pool := strand.NewElasticPool()
	pool.Close()
	pool.Close()
}

func TestPinnedDispatcherAffinity(t *testing.T) {
	d := strand.NewPinnedDispatcher()
	defer d.Close()

	ctx := strand.NewContext(strand.WithCarrierSource(d))
	defer ctx.Close()

	ids := make(chan uint64, 3)
	th, err := ctx.Run(func(th *strand.Thread) {
		ids <- th.Carrier().ID()
		assert.NoError(t, strand.Sleep(th, time.Millisecond))
		ids <- th.Carrier().ID()
		assert.NoError(t, strand.Sleep(th, time.Millisecond))
		ids <- th.Carrier().ID()
	})
	require.NoError(t, err)
	require.NoError(t, join(t, th))

	want := d.Carrier().ID()
	for range 3 {
		assert.Equal(t, want, <-ids, "pinned thread migrated off its carrier")
	}
}

func TestPinnedDispatcherSharedByContexts(t *testing.T) {
	// Two contexts sharing one pinned dispatcher never run concurrently.
	d := strand.NewPinnedDispatcher()
	defer d.Close()

	ctx1 := strand.NewContext(strand.WithCarrierSource(d))
	ctx2 := strand.NewContext(strand.WithCarrierSource(d))
	defer ctx1.Close()
	defer ctx2.Close()

	var active atomic.Int32
	var overlap atomic.Bool
	body := func() {
		if active.Add(1) != 1 {
			overlap.Store(true)
		}
		time.Sleep(100 * time.Microsecond)
		active.Add(-1)
	}

	done := make(chan struct{}, 40)
	for range 20 {
		require.NoError(t, ctx1.Submit(func() { body(); done <- struct{}{} }))
		require.NoError(t, ctx2.Submit(func() { body(); done <- struct{}{} }))
	}
	for range 40 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("dispatcher stalled")
		}
	}
	assert.False(t, overlap.Load())
}

func TestPinnedDispatcherCloseDrains(t *testing.T) {
	d := strand.NewPinnedDispatcher()

	var ran atomic.Int32
	for range 10 {
		d.Dispatch(func(cr *strand.Carrier) {
			ran.Add(1)
		})
	}
	d.Close()

	assert.Equal(t, int32(10), ran.Load(), "Close should drain queued turns before stopping")
	assert.Panics(t, func() {
		d.Dispatch(func(cr *strand.Carrier) {})
	})
}
