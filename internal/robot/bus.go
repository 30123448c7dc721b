// SPDX-License-Identifier: MIT

package robot

import (
	"sync"

	"github.com/teletable/backend/internal/metrics"
)

// busCapacity is the per-subscriber buffer. A subscriber that falls this
// far behind is dropped rather than backpressuring the control path.
const busCapacity = 100

// CommandSink accepts commands for delivery to the robot. The production
// implementation is *Bus; tests may substitute a failing sink to exercise
// the dispatcher's reinsertion path.
type CommandSink interface {
	Publish(cmd Command) error
}

// Bus is a lossy broadcast fan-out of commands to all current subscribers.
// Publishing never blocks. Subscribers that join later do not see earlier
// commands.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Command
	closed bool
}

// NewBus creates an empty command bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Command)}
}

// Subscribe registers a new subscriber and returns its delivery channel
// together with a cancel function. The channel is closed when the
// subscriber is cancelled, dropped for falling behind, or the bus shuts
// down.
func (b *Bus) Subscribe() (<-chan Command, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Command)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan Command, busCapacity)
	b.subs[id] = ch
	metrics.BusSubscribers.Set(float64(len(b.subs)))

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
			metrics.BusSubscribers.Set(float64(len(b.subs)))
		}
	}
	return ch, cancel
}

// Publish broadcasts cmd to every subscriber without blocking. A
// subscriber whose buffer is full is removed and its channel closed; the
// socket serving it will observe the close and shut down. Publishing with
// no subscribers succeeds (the command is dropped).
func (b *Bus) Publish(cmd Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	for id, ch := range b.subs {
		select {
		case ch <- cmd:
		default:
			delete(b.subs, id)
			close(ch)
			metrics.BusDropped.Inc()
			metrics.BusSubscribers.Set(float64(len(b.subs)))
		}
	}
	metrics.CommandsEmitted.WithLabelValues(string(cmd.Type)).Inc()
	return nil
}

// Close drops all subscribers. Further publishes are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	metrics.BusSubscribers.Set(0)
}
