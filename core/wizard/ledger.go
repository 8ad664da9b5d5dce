package wizard

// DeletionLedger records, per entity kind, the server IDs of entities removed locally since the last
// successful submission of their step. Local-only entities (no ID) are never recorded.
type DeletionLedger struct {
	ids map[EntityKind][]string
}

func NewDeletionLedger() *DeletionLedger {
	return &DeletionLedger{ids: make(map[EntityKind][]string)}
}

// TrackDeleted records id for kind; empty and already recorded IDs are ignored.
func (l *DeletionLedger) TrackDeleted(kind EntityKind, id string) bool {
	if id == "" {
		return false
	}
	for _, existing := range l.ids[kind] {
		if existing == id {
			return false
		}
	}
	l.ids[kind] = append(l.ids[kind], id)
	return true
}

func (l *DeletionLedger) Pending(kind EntityKind) []string {
	ids := make([]string, len(l.ids[kind]))
	copy(ids, l.ids[kind])
	return ids
}

// Acknowledge drops the IDs the server confirmed as deleted.
// IDs tracked after the request was sent are kept for the next submission.
func (l *DeletionLedger) Acknowledge(kind EntityKind, sent []string) {
	if len(sent) == 0 {
		return
	}
	done := make(map[string]struct{}, len(sent))
	for _, id := range sent {
		done[id] = struct{}{}
	}
	kept := l.ids[kind][:0]
	for _, id := range l.ids[kind] {
		if _, ok := done[id]; !ok {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		delete(l.ids, kind)
		return
	}
	l.ids[kind] = kept
}

// All returns a copy of every non-empty kind.
func (l *DeletionLedger) All() map[EntityKind][]string {
	all := make(map[EntityKind][]string, len(l.ids))
	for kind := range l.ids {
		if ids := l.Pending(kind); len(ids) > 0 {
			all[kind] = ids
		}
	}
	return all
}

func (l *DeletionLedger) IsEmpty() bool {
	for _, ids := range l.ids {
		if len(ids) > 0 {
			return false
		}
	}
	return true
}

func (l *DeletionLedger) Reset() {
	l.ids = make(map[EntityKind][]string)
}
