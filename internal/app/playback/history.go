package playback

// DefaultHistoryCapacity is the number of entries kept when no capacity is configured.
const DefaultHistoryCapacity = 50

// History is a bounded log of played track IDs, newest last.
// It never holds two identical consecutive entries.
type History struct {
	ids      []string
	capacity int
}

// NewHistory creates a history keeping at most capacity entries.
// A capacity <= 0 uses DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		ids:      make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Record appends id unless it equals the most recent entry,
// evicting the oldest entries once the capacity is exceeded.
func (h *History) Record(id string) {
	if last, ok := h.MostRecent(); ok && last == id {
		return
	}
	h.ids = append(h.ids, id)
	if len(h.ids) > h.capacity {
		excess := len(h.ids) - h.capacity
		h.ids = append(h.ids[:0], h.ids[excess:]...)
	}
}

// MostRecent returns the last recorded id.
func (h *History) MostRecent() (string, bool) {
	if len(h.ids) == 0 {
		return "", false
	}
	return h.ids[len(h.ids)-1], true
}

// At returns the entry at index, oldest first.
func (h *History) At(index int) (string, bool) {
	if index < 0 || index >= len(h.ids) {
		return "", false
	}
	return h.ids[index], true
}

// Clear empties the history.
func (h *History) Clear() {
	h.ids = h.ids[:0]
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.ids)
}

// Capacity returns the maximum number of entries kept.
func (h *History) Capacity() int {
	return h.capacity
}

// Snapshot returns a copy of the entries, oldest first.
func (h *History) Snapshot() []string {
	result := make([]string, len(h.ids))
	copy(result, h.ids)
	return result
}
