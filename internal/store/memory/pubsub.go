// Package memory is an in-process pub/sub used to fan session envelopes out
// to attached browser clients. The console holds all session state in
// memory for the lifetime of the process, so no external broker is
// involved.
package memory

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("memory: pubsub closed")

const subscriberBuffer = 64

type subscriber struct {
	ch chan []byte
}

// PubSub is a channel-keyed broadcast bus. Publish never blocks: a
// subscriber that cannot keep up has payloads dropped rather than stalling
// the sync core.
type PubSub struct {
	mu     sync.Mutex
	subs   map[string]map[int]*subscriber
	nextID int
	closed bool
}

func New() *PubSub {
	return &PubSub{subs: make(map[string]map[int]*subscriber)}
}

// Publish delivers payload to every subscriber of channel.
func (ps *PubSub) Publish(_ context.Context, channel string, payload []byte) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.closed {
		return ErrClosed
	}

	for _, sub := range ps.subs[channel] {
		select {
		case sub.ch <- payload:
		default:
			// Slow subscriber; drop rather than block the publisher.
		}
	}
	return nil
}

// Subscribe registers a listener on channel. The cleanup func removes the
// subscription and closes the returned channel; it is safe to call more
// than once.
func (ps *PubSub) Subscribe(_ context.Context, channel string) (<-chan []byte, func(), error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.closed {
		return nil, nil, ErrClosed
	}

	sub := &subscriber{ch: make(chan []byte, subscriberBuffer)}
	id := ps.nextID
	ps.nextID++

	if ps.subs[channel] == nil {
		ps.subs[channel] = make(map[int]*subscriber)
	}
	ps.subs[channel][id] = sub

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			ps.mu.Lock()
			defer ps.mu.Unlock()
			if subs, ok := ps.subs[channel]; ok {
				if _, live := subs[id]; live {
					delete(subs, id)
					close(sub.ch)
				}
				if len(subs) == 0 {
					delete(ps.subs, channel)
				}
			}
		})
	}

	return sub.ch, cleanup, nil
}

// Close shuts the bus down and closes all subscriber channels.
func (ps *PubSub) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.closed {
		return nil
	}
	ps.closed = true

	for channel, subs := range ps.subs {
		for id, sub := range subs {
			close(sub.ch)
			delete(subs, id)
		}
		delete(ps.subs, channel)
	}
	return nil
}
