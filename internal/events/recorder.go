package events

import (
	"context"
	"sync"
)

// Recorder keeps published events in memory for assertions.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, subject string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{Subject: subject, Data: payload})
	return nil
}

// Subjects returns the subjects published so far, in order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = m.Subject
	}
	return out
}

// Count returns how many events were published on subject.
func (r *Recorder) Count(subject string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.Messages {
		if m.Subject == subject {
			n++
		}
	}
	return n
}
