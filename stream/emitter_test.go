package stream_test

import (
	"context"
	"testing"

	"github.com/effective-security/agentic/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ChannelEmitter_Order(t *testing.T) {
	ctx := context.Background()
	emitter := stream.NewChannelEmitter(16)

	sequence := []stream.Event{
		stream.TextDelta("Let me check"),
		stream.ToolStarted("roll_dice", `{"sides":6}`),
		stream.ToolFinished("roll_dice", `{"sides":6}`, `{"rolled":4}`, false),
		stream.TextDelta("You rolled a 4."),
		stream.TurnComplete("turn_1"),
	}
	for _, ev := range sequence {
		require.NoError(t, emitter.Emit(ctx, ev))
	}

	var received []stream.Event
	for ev := range emitter.Events() {
		received = append(received, ev)
	}
	assert.Equal(t, sequence, received)
}

func Test_ChannelEmitter_TerminalCloses(t *testing.T) {
	ctx := context.Background()
	emitter := stream.NewChannelEmitter(4)

	require.NoError(t, emitter.Emit(ctx, stream.Error("model stream failed")))
	// events after a terminal event are dropped, not delivered
	require.NoError(t, emitter.Emit(ctx, stream.TextDelta("late")))

	var received []stream.Event
	for ev := range emitter.Events() {
		received = append(received, ev)
	}
	require.Len(t, received, 1)
	assert.Equal(t, stream.EventError, received[0].Type)
	assert.True(t, received[0].Terminal())
}

func Test_ChannelEmitter_Close(t *testing.T) {
	emitter := stream.NewChannelEmitter(1)
	emitter.Close()
	emitter.Close() // idempotent

	_, open := <-emitter.Events()
	assert.False(t, open)

	// emits after close are dropped
	assert.NoError(t, emitter.Emit(context.Background(), stream.TextDelta("late")))
}

func Test_ChannelEmitter_ContextCanceled(t *testing.T) {
	// unbuffered with no reader: Emit must respect cancellation
	emitter := stream.NewChannelEmitter(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := emitter.Emit(ctx, stream.TextDelta("blocked"))
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Collector(t *testing.T) {
	ctx := context.Background()
	var c stream.Collector

	require.NoError(t, c.Emit(ctx, stream.TextDelta("hi")))
	require.NoError(t, c.Emit(ctx, stream.TurnComplete("turn_1")))
	require.NoError(t, c.Emit(ctx, stream.TextDelta("late")))

	events := c.Events()
	require.Len(t, events, 2)
	assert.Equal(t, stream.EventTextDelta, events[0].Type)
	assert.Equal(t, "turn_1", events[1].TurnID)
}
