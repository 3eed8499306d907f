// Package strand provides a synchronous-looking execution model over
// asynchronous, event-driven code.
//
// Code that reacts to asynchronous completions (network responses,
// timers, lock grants) can be written as straight-line logic on a
// [Thread], while a [Context] preserves the serialization and ordering
// guarantees of one-dispatch-at-a-time execution: tasks submitted to one
// context never run concurrently with each other, and a thread that
// suspends never stalls the rest of the context's queue.
//
// # Contexts and Carriers
//
// A [Context] owns an ordered queue of tasks. It has no goroutine of its
// own; whenever the queue becomes non-empty while the context is idle, it
// borrows a carrier from its [CarrierSource], drains the queue one task
// at a time, and gives the carrier back. Different contexts drain in
// parallel on different carriers; within one context there is never more
// than one task running.
//
// Two carrier supply strategies exist. An [ElasticPool] grows on demand
// and retires carriers that stay idle too long; successive tasks, and the
// phases of one thread before and after a suspension, may land on
// different carriers freely. A [PinnedDispatcher] funnels every turn
// through one designated carrier goroutine, for integrations that need
// all work for a context on a single dispatch resource. The strategy is
// chosen per context with [WithCarrierSource].
//
// # Threads and Suspension
//
// [Context.Run] starts a [Thread]: a logical unit of work on its own
// goroutine, scheduled like any other task. [Await] suspends the thread
// until a [Future] resolves. Suspension detaches the thread from its
// carrier and returns the carrier to the drain loop, so a timer or an
// unrelated event queued on the same context still fires and completes
// while the thread is parked.
//
// When the awaited future resolves, the thread's continuation re-enters
// the context queue ahead of tasks submitted during the suspension and
// runs to its next suspension point before the regular queue order
// resumes. The program reads as if nothing interleaved except the events
// it explicitly awaited past. When several awaited futures resolve at
// effectively the same instant, their continuations run in the order the
// completions were observed.
//
// A future failure surfaces as the error returned at the await call
// site; the thread may handle it and keep participating in the queue.
// Cancellation and timeouts are races: whichever resolution reaches the
// await point first wins, and the loser is dropped without effect.
//
// # Blocking Primitives
//
// [Mutex], [Cond] and [WaitGroup] route waiting through the same
// suspension mechanism, so a thread waiting on a contended lock releases
// its carrier instead of monopolizing it. [Mutex.WithLock] gives scoped
// acquisition with guaranteed release on every exit path.
//
// # Thread Locals
//
// A [Local] is storage keyed by thread identity. Values written before a
// suspension are visible after resumption regardless of which carrier
// executes each phase; the carrier is never the key.
//
// # Panics
//
// A panic in a task or a thread body does not take down the carrier: it
// is captured with its stack trace as a [*PanicError], logged through the
// context's logger, and, for threads, delivered to anyone joining via
// [Thread.Join].
package strand
