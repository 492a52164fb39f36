package events

import "eventbacktester/types"

// Sink is the push side of the event queue handed to every component.
type Sink interface {
	Push(ev types.Event)
}

// Queue is the FIFO event queue of a single run. It is not safe for concurrent
// use; the backtest loop is its only reader.
type Queue struct {
	events []types.Event
}

func NewQueue() *Queue {
	return &Queue{events: make([]types.Event, 0, 16)}
}

func (q *Queue) Push(ev types.Event) {
	q.events = append(q.events, ev)
}

// Pop removes and returns the oldest event.
func (q *Queue) Pop() (types.Event, bool) {
	if len(q.events) == 0 {
		return nil, false
	}
	ev := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	return ev, true
}

func (q *Queue) Len() int {
	return len(q.events)
}

func (q *Queue) Empty() bool {
	return len(q.events) == 0
}
