package review

// HistoryEntry captures the property bag of a feature immediately before a
// patch commits, so the edit can be reversed.
type HistoryEntry struct {
	FeatureID          string
	PreviousProperties map[string]any
}

// History is the LIFO undo stack for a session. It is unbounded for the
// session lifetime and not safe for concurrent use; callers hold the session
// store lock.
type History struct {
	entries []HistoryEntry
}

// Push appends an entry, snapshotting the property bag so later mutations of
// the live record cannot corrupt the captured state.
func (h *History) Push(entry HistoryEntry) {
	entry.PreviousProperties = cloneProperties(entry.PreviousProperties)
	h.entries = append(h.entries, entry)
}

// Pop removes and returns the most recent entry. The second return is false
// when the stack is empty.
func (h *History) Pop() (HistoryEntry, bool) {
	if len(h.entries) == 0 {
		return HistoryEntry{}, false
	}
	last := h.entries[len(h.entries)-1]
	h.entries = h.entries[:len(h.entries)-1]
	return last, true
}

// Len reports the number of undoable edits.
func (h *History) Len() int {
	return len(h.entries)
}

// Reset drops all entries.
func (h *History) Reset() {
	h.entries = nil
}
