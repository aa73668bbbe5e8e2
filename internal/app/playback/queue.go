package playback

// Queue is an ordered, de-duplicated list of pending track IDs.
// Order is insertion order; MoveToTail is the only reordering operation.
// Queue is not safe for concurrent use; Session serializes access.
type Queue struct {
	ids []string
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ids: make([]string, 0)}
}

// Enqueue appends id unless it is already queued.
// Returns false, with no side effect, when id is already present.
func (q *Queue) Enqueue(id string) bool {
	if q.Contains(id) {
		return false
	}
	q.ids = append(q.ids, id)
	return true
}

// DequeueAt removes and returns the id at index.
func (q *Queue) DequeueAt(index int) (string, error) {
	if !q.isValidIndex(index) {
		return "", indexOutOfRange(index, len(q.ids))
	}
	id := q.ids[index]
	q.ids = append(q.ids[:index], q.ids[index+1:]...)
	return id, nil
}

// PeekAt returns the id at index without removing it.
func (q *Queue) PeekAt(index int) (string, error) {
	if !q.isValidIndex(index) {
		return "", indexOutOfRange(index, len(q.ids))
	}
	return q.ids[index], nil
}

// MoveToTail moves the entry at index to the end of the queue.
// Index 0 of an empty or single-entry queue is a no-op.
func (q *Queue) MoveToTail(index int) error {
	if index == 0 && len(q.ids) <= 1 {
		return nil
	}
	if !q.isValidIndex(index) {
		return indexOutOfRange(index, len(q.ids))
	}
	if index == len(q.ids)-1 {
		return nil
	}
	id := q.ids[index]
	q.ids = append(q.ids[:index], q.ids[index+1:]...)
	q.ids = append(q.ids, id)
	return nil
}

// Clear removes every entry.
func (q *Queue) Clear() {
	q.ids = make([]string, 0)
}

// Contains reports whether id is queued.
func (q *Queue) Contains(id string) bool {
	for _, queued := range q.ids {
		if queued == id {
			return true
		}
	}
	return false
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	return len(q.ids)
}

// IsEmpty returns true if nothing is queued.
func (q *Queue) IsEmpty() bool {
	return len(q.ids) == 0
}

// Snapshot returns a copy of the queued ids in order.
func (q *Queue) Snapshot() []string {
	result := make([]string, len(q.ids))
	copy(result, q.ids)
	return result
}

func (q *Queue) isValidIndex(index int) bool {
	return 0 <= index && index < len(q.ids)
}
