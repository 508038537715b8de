package keyvalue

// table is a bounded arena of open Store instances keyed by small integer
// handles. Handles are allocated from a wrapping counter that skips live
// ids, so a handle freed by remove is not handed out again until the
// counter wraps the full uint32 space. A stale handle therefore fails
// lookup instead of silently resolving to a newer occupant.
//
// table is not safe for concurrent use; Dispatch serializes access.
type table struct {
	capacity uint32
	next     uint32
	entries  map[uint32]Store
}

func newTable(capacity uint32) *table {
	return &table{
		capacity: capacity,
		entries:  make(map[uint32]Store),
	}
}

// push inserts s and returns its handle, or false when the table is at
// capacity. Nothing is inserted on failure.
func (t *table) push(s Store) (uint32, bool) {
	if uint32(len(t.entries)) >= t.capacity {
		return 0, false
	}
	for {
		id := t.next
		t.next++
		if _, live := t.entries[id]; !live {
			t.entries[id] = s
			return id, true
		}
	}
}

func (t *table) get(handle uint32) (Store, bool) {
	s, ok := t.entries[handle]
	return s, ok
}

// remove frees the handle and returns the store it referenced, if any.
func (t *table) remove(handle uint32) (Store, bool) {
	s, ok := t.entries[handle]
	if ok {
		delete(t.entries, handle)
	}
	return s, ok
}

func (t *table) len() int { return len(t.entries) }
