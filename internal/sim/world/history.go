package world

// History is a bounded undo stack of change batches. Each entry is the
// full diff of one user command; undo and redo replay diffs through
// Store.Apply without re-recording, so the cursor alone tracks where
// the world sits between the two ends of the stack.
type History struct {
	store   *Store
	entries [][]Change
	cursor  int // entries[:cursor] are applied
	cap     int
}

const DefaultHistoryCap = 100

func NewHistory(s *Store, capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &History{store: s, cap: capacity}
}

// Record pushes a batch of changes that have already been applied to
// the store. Any redo tail past the cursor is discarded; when the
// stack is full the oldest entry falls off the bottom.
func (h *History) Record(batch []Change) {
	if len(batch) == 0 {
		return
	}
	h.entries = append(h.entries[:h.cursor], batch)
	if len(h.entries) > h.cap {
		h.entries = h.entries[1:]
	}
	h.cursor = len(h.entries)
}

// Undo reverts the most recent batch and returns the changes it made,
// or nil when there is nothing to undo.
func (h *History) Undo() []Change {
	if h.cursor == 0 {
		return nil
	}
	h.cursor--
	batch := h.entries[h.cursor]
	out := make([]Change, 0, len(batch))
	for i := len(batch) - 1; i >= 0; i-- {
		inv := h.store.Inverse(batch[i])
		h.store.Apply(inv)
		out = append(out, inv)
	}
	return out
}

// Redo re-applies the next undone batch, or returns nil at the top of
// the stack.
func (h *History) Redo() []Change {
	if h.cursor >= len(h.entries) {
		return nil
	}
	batch := h.entries[h.cursor]
	h.cursor++
	out := make([]Change, 0, len(batch))
	for _, ch := range batch {
		h.store.Apply(ch)
		out = append(out, ch)
	}
	return out
}

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.entries) }
func (h *History) Len() int      { return len(h.entries) }

// Reset drops all recorded entries (load and clear start fresh).
func (h *History) Reset() {
	h.entries = nil
	h.cursor = 0
}
