package session

import (
	"sync"

	"github.com/triageops/console/internal/domain"
)

// EventLog is the append-only, ordered sequence of task events for one
// session. Events are never mutated or reordered after acceptance; the
// server's emission order is authoritative. The received counter is the
// cursor used to compute which events were missed across a connection gap.
type EventLog struct {
	mu       sync.Mutex
	events   []domain.TaskEvent
	received int
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append accepts one live event and advances the cursor.
func (l *EventLog) Append(ev domain.TaskEvent) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.received++
	l.mu.Unlock()
}

// Received returns the number of events accepted so far.
func (l *EventLog) Received() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.received
}

// Events returns a copy of the log in acceptance order.
func (l *EventLog) Events() []domain.TaskEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.TaskEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Replay splices events missed during a connection gap into the log exactly
// once. history is the full server-side event list for the session;
// alreadySeen is the cursor value captured at the moment the reconnect
// began. Events that arrived live while the history fetch was in flight sit
// at the tail of both the log and the history, so the replayed slice is
// trimmed by that count and inserted just before them, preserving server
// emission order without duplicating either path.
//
// Returns the number of events spliced in.
func (l *EventLog) Replay(history []domain.TaskEvent, alreadySeen int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if alreadySeen < 0 {
		alreadySeen = 0
	}

	liveSince := l.received - alreadySeen
	if liveSince < 0 {
		liveSince = 0
	}

	if alreadySeen >= len(history) {
		return 0
	}

	missed := history[alreadySeen:]
	n := len(missed) - liveSince
	if n <= 0 {
		if len(history) > l.received {
			l.received = len(history)
		}
		return 0
	}

	tail := len(l.events) - liveSince
	if tail < 0 {
		tail = 0
	}

	spliced := make([]domain.TaskEvent, 0, len(l.events)+n)
	spliced = append(spliced, l.events[:tail]...)
	spliced = append(spliced, missed[:n]...)
	spliced = append(spliced, l.events[tail:]...)
	l.events = spliced

	l.received += n
	if len(history) > l.received {
		l.received = len(history)
	}
	return n
}
