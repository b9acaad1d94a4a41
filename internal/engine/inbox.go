package engine

// inbox is a bounded FIFO drained by the engine goroutine. Producers never
// block: a full inbox rejects the submission.
type inbox[T any] struct {
	queue chan T
}

func newInbox[T any](capacity int) *inbox[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &inbox[T]{queue: make(chan T, capacity)}
}

// Submit enqueues t without blocking (returns false if full).
func (q *inbox[T]) Submit(t T) bool {
	select {
	case q.queue <- t:
		return true
	default:
		return false
	}
}

// Drain hands every queued item to fn without waiting for new ones and
// returns how many it handled.
func (q *inbox[T]) Drain(fn func(T)) int {
	n := 0
	for {
		select {
		case t := <-q.queue:
			fn(t)
			n++
		default:
			return n
		}
	}
}

// Len returns how many items are currently queued.
func (q *inbox[T]) Len() int {
	return len(q.queue)
}

// Cap returns the total queue capacity.
func (q *inbox[T]) Cap() int {
	return cap(q.queue)
}
