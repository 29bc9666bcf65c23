package core

// DefaultHistoryLimit is the number of snapshots kept on the undo stack.
const DefaultHistoryLimit = 100

// History is a bounded undo/redo stack of full-table snapshots.
//
// Every mutation pushes the pre-mutation state and clears the redo stack,
// so redo never branches. When the undo stack is full the oldest snapshot
// is evicted. History is not safe for concurrent use; its owner serializes
// access.
type History struct {
	limit int
	undo  []*Table
	redo  []*Table
}

// NewHistory returns an empty history keeping at most limit snapshots.
// A non-positive limit selects DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Push records state as the most recent undo point and clears redo.
// The table is deep-copied.
func (h *History) Push(state *Table) {
	h.undo = append(h.undo, state.Clone())
	if len(h.undo) > h.limit {
		drop := len(h.undo) - h.limit
		copy(h.undo, h.undo[drop:])
		for i := len(h.undo) - drop; i < len(h.undo); i++ {
			h.undo[i] = nil
		}
		h.undo = h.undo[:h.limit]
	}
	h.redo = nil
}

// Undo pops the most recent snapshot, moves current onto the redo stack and
// returns the restored state. It reports false and leaves both stacks
// untouched when there is nothing to undo.
func (h *History) Undo(current *Table) (*Table, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo[len(h.undo)-1] = nil
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current.Clone())
	return prev.Clone(), true
}

// Redo is the inverse of Undo.
func (h *History) Redo(current *Table) (*Table, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo[len(h.redo)-1] = nil
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, current.Clone())
	return next.Clone(), true
}

// Reset drops all snapshots.
func (h *History) Reset() {
	h.undo = nil
	h.redo = nil
}

func (h *History) CanUndo() bool  { return len(h.undo) > 0 }
func (h *History) CanRedo() bool  { return len(h.redo) > 0 }
func (h *History) UndoDepth() int { return len(h.undo) }
func (h *History) RedoDepth() int { return len(h.redo) }
func (h *History) Limit() int     { return h.limit }
