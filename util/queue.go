package util

// Queue is a first-in-first-out buffer.
type Queue[T any] struct {
	items []T
}

// Push appends items to the back of the queue.
func (q *Queue[T]) Push(items ...T) {
	q.items = append(q.items, items...)
}

// Pop removes and returns the front item. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (item T, ok bool) {
	if len(q.items) == 0 {
		return
	}
	item, q.items = q.items[0], q.items[1:]
	return item, true
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}
