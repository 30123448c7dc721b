// SPDX-License-Identifier: MIT

package robot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_BroadcastToAllSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch1, cancel1 := bus.Subscribe()
	defer cancel1()
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()

	require.NoError(t, bus.Publish(Navigate("a", "b")))

	got1 := <-ch1
	got2 := <-ch2
	assert.Equal(t, Navigate("a", "b"), got1)
	assert.Equal(t, Navigate("a", "b"), got2)
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	// Commands with no listeners are dropped, never an error.
	assert.NoError(t, bus.Publish(Cancel()))
}

func TestBus_LateSubscriberMissesEarlierCommands(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	require.NoError(t, bus.Publish(Navigate("a", "b")))

	ch, cancel := bus.Subscribe()
	defer cancel()

	select {
	case cmd := <-ch:
		t.Fatalf("late subscriber received %v", cmd)
	default:
	}
}

func TestBus_SlowSubscriberDropped(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	slow, cancelSlow := bus.Subscribe()
	defer cancelSlow()
	fast, cancelFast := bus.Subscribe()
	defer cancelFast()

	// Fill the slow subscriber's buffer and push one over.
	for i := 0; i <= busCapacity; i++ {
		require.NoError(t, bus.Publish(Cancel()))
		// Keep the fast subscriber draining so only the slow one overflows.
		<-fast
	}

	// The slow channel must be closed after draining its buffer.
	drained := 0
	for range slow {
		drained++
	}
	assert.Equal(t, busCapacity, drained)

	// The fast subscriber keeps receiving.
	require.NoError(t, bus.Publish(Navigate("x", "y")))
	assert.Equal(t, Navigate("x", "y"), <-fast)
}

func TestBus_CancelIsIdempotent(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
}

func TestBus_CloseStopsDelivery(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Close()
	_, open := <-ch
	assert.False(t, open)

	assert.NoError(t, bus.Publish(Cancel()))

	// Subscribing after close yields an already-closed channel.
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()
	_, open = <-ch2
	assert.False(t, open)
}
