package event

// Log is the ordered buffer of events an aggregate produced since the last commit.
// The zero value is ready to use. It is not safe for concurrent use.
type Log struct {
	pending []Event
}

// Append records an event. It never fails.
func (l *Log) Append(e Event) {
	l.pending = append(l.pending, e)
}

// Len is the number of uncommitted events.
func (l *Log) Len() int { return len(l.pending) }

// Pending returns a copy of the uncommitted events without draining them.
func (l *Log) Pending() []Event {
	out := make([]Event, len(l.pending))
	copy(out, l.pending)
	return out
}

// Commit drains the buffer and returns what it held. A second call without an
// intervening Append returns an empty slice.
func (l *Log) Commit() []Event {
	out := l.pending
	l.pending = nil
	if out == nil {
		return []Event{}
	}
	return out
}
