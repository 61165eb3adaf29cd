package repeat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverLoopsAndCompletes(t *testing.T) {
	player := &fakePlayer{pos: 10.5}
	done := make(chan Event, 1)
	ctrl := NewController(player, track(), WithNotifier(func(e Event) {
		if e.Kind == EventCompleted {
			done <- e
		}
	}))
	driver := NewDriver(ctrl, player, time.Millisecond)

	ctx, cancel := context.WithCancel(t.Context())
	errc := make(chan error, 1)
	go func() { errc <- driver.Run(ctx) }()

	require.NoError(t, driver.StartRepeat(ctx, 2))
	st, err := driver.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateRepeating, st)

	// playhead past end+buffer; the driver seeks back to 10 each pass
	go func() {
		for range 200 {
			select {
			case <-ctx.Done():
				return
			default:
			}
			player.setPos(12.5)
			time.Sleep(2 * time.Millisecond)
		}
	}()

	select {
	case e := <-done:
		assert.Equal(t, 2, e.Total)
	case <-time.After(2 * time.Second):
		t.Fatal("repeat never completed")
	}

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.False(t, player.IsPlaying())
	assert.GreaterOrEqual(t, len(player.seekLog()), 2)
}

func TestDriverCommandsRefused(t *testing.T) {
	player := &fakePlayer{pos: 7}
	driver := NewDriver(NewController(player, track()), player, 0)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = driver.Run(ctx) }()

	assert.ErrorIs(t, driver.StartRepeat(ctx, 3), ErrNoSegment)
	require.NoError(t, driver.StopRepeat(ctx))

	seg, err := driver.SeekToSegment(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, seg.ID)
}

func TestDriverCommandAfterShutdown(t *testing.T) {
	player := &fakePlayer{}
	driver := NewDriver(NewController(player, track()), player, time.Millisecond)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.ErrorIs(t, driver.Run(ctx), context.Canceled)
	assert.ErrorIs(t, driver.StopRepeat(ctx), context.Canceled)
}
