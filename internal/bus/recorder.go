package bus

import (
	"encoding/json"
	"sync"
)

type Event struct {
	Subject string
	Data    json.RawMessage
}

// Recorder keeps published events in memory, encoded the same way Publisher
// sends them.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Subject: subject, Data: data})
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Subjects lists the subjects of recorded events in publish order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Subject)
	}
	return out
}
