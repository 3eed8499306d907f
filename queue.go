package strand

// A ring is a growable FIFO queue backed by a circular slice.
type ring[E any] struct {
	buf  []E
	head int
	n    int
}

func (r *ring[E]) Empty() bool {
	return r.n == 0
}

func (r *ring[E]) Len() int {
	return r.n
}

func (r *ring[E]) Push(v E) {
	if r.n == len(r.buf) {
		r.grow()
	}
	r.buf[(r.head+r.n)%len(r.buf)] = v
	r.n++
}

func (r *ring[E]) Pop() E {
	if r.n == 0 {
		panic("strand: pop from empty queue")
	}
	var zero E
	v := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	return v
}

func (r *ring[E]) grow() {
	size := len(r.buf) * 2
	if size == 0 {
		size = 8
	}
	buf := make([]E, size)
	for i := range r.n {
		buf[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	r.buf = buf
	r.head = 0
}

// A taskQueue holds a context's pending work in two lanes.
//
// The resume lane carries continuations of suspended threads and always
// drains ahead of the submit lane. Within each lane, order is arrival
// order. When two awaited futures resolve at effectively the same instant,
// their continuations run in the order their completion callbacks
// enqueued them.
type taskQueue struct {
	resume ring[task]
	submit ring[task]
}

// A task is one unit of work bound to the carrier that executes it.
type task func(cr *Carrier)

func (q *taskQueue) Empty() bool {
	return q.resume.Empty() && q.submit.Empty()
}

func (q *taskQueue) Push(lane lane, t task) {
	switch lane {
	case laneResume:
		q.resume.Push(t)
	case laneSubmit:
		q.submit.Push(t)
	default:
		panic("strand: internal error: unknown lane")
	}
}

func (q *taskQueue) Pop() (task, bool) {
	if !q.resume.Empty() {
		return q.resume.Pop(), true
	}
	if !q.submit.Empty() {
		return q.submit.Pop(), true
	}
	return nil, false
}

type lane int

const (
	laneSubmit lane = iota
	laneResume
)
