package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_DeliversInOrder(t *testing.T) {
	h := NewHub()
	defer h.Close()
	sub := h.Subscribe()

	h.Publish(StatusChange{Previous: StatusIdle, Current: StatusLoading})
	h.Publish(StatusChange{Previous: StatusLoading, Current: StatusPlaying})
	h.Publish(VolumeChange{Level: 0.5})

	e1 := (<-sub.Events).(StatusChange)
	e2 := (<-sub.Events).(StatusChange)
	e3 := (<-sub.Events).(VolumeChange)

	assert.Equal(t, StatusLoading, e1.Current)
	assert.Equal(t, StatusPlaying, e2.Current)
	assert.Equal(t, 0.5, e3.Level)

	// Publish stamps every event, in order.
	assert.False(t, e1.At.IsZero())
	assert.False(t, e1.At.After(e2.At))
}

func TestHub_MultipleSubscribersSeeSameEvents(t *testing.T) {
	h := NewHub()
	defer h.Close()
	a := h.Subscribe()
	b := h.Subscribe()

	h.Publish(Message{Level: LevelInfo, Text: "hello"})

	assert.Equal(t, "hello", (<-a.Events).(Message).Text)
	assert.Equal(t, "hello", (<-b.Events).(Message).Text)
}

func TestHub_SlowSubscriberDisconnected(t *testing.T) {
	h := NewHub()
	defer h.Close()
	slow := h.Subscribe()
	healthy := h.Subscribe()

	// Fill both buffers, then drain only the healthy subscriber.
	for i := 0; i < eventBufferSize; i++ {
		h.Publish(Message{Level: LevelInfo, Text: "x"})
	}
	for i := 0; i < eventBufferSize; i++ {
		<-healthy.Events
	}

	// The next event overflows the slow subscriber: it must be cut off
	// without delaying delivery to the healthy one.
	h.Publish(VolumeChange{Level: 1})

	select {
	case <-slow.Done:
	case <-time.After(time.Second):
		t.Fatal("slow subscriber was not disconnected")
	}
	assert.Equal(t, 1, h.Len())

	require.Equal(t, 1.0, (<-healthy.Events).(VolumeChange).Level)
	select {
	case <-healthy.Done:
		t.Fatal("healthy subscriber should stay connected")
	default:
	}
}

func TestHub_PositionTicksDroppedNotDisconnecting(t *testing.T) {
	h := NewHub()
	defer h.Close()
	sub := h.Subscribe()

	// Overflow with position ticks only: the subscriber must survive.
	for i := 0; i < eventBufferSize*3; i++ {
		h.Publish(PositionChange{Position: time.Duration(i) * time.Second})
	}

	select {
	case <-sub.Done:
		t.Fatal("subscriber disconnected by position ticks")
	default:
	}
	assert.Equal(t, 1, h.Len())

	// Exactly a buffer's worth got through; the rest were dropped.
	count := 0
	for {
		select {
		case <-sub.Events:
			count++
			continue
		default:
		}
		break
	}
	assert.Equal(t, eventBufferSize, count)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	defer h.Close()
	sub := h.Subscribe()

	h.Unsubscribe(sub)
	h.Unsubscribe(sub) // idempotent

	select {
	case <-sub.Done:
	default:
		t.Fatal("Done not closed after Unsubscribe")
	}
	assert.Equal(t, 0, h.Len())
}

func TestHub_CloseDisconnectsAll(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()

	h.Close()

	<-a.Done
	<-b.Done
	assert.Equal(t, 0, h.Len())

	// Subscribing after close yields an already-done subscription.
	c := h.Subscribe()
	select {
	case <-c.Done:
	default:
		t.Fatal("post-close subscription should be done")
	}
}
