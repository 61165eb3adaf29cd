package repeat

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgpai22/shadow/internal/config"
)

func TestNewFromConfigAppliesLoadedSettings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
repeat:
  buffer_time: 0.5
  poll_interval: 250ms
  counts: [2, 5]
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	player := &fakePlayer{pos: 10.5}
	ctrl, driver := NewFromConfig(player, track(), cfg.Repeat, nil)

	assert.Equal(t, 250*time.Millisecond, driver.Interval())
	assert.Equal(t, 0.5, ctrl.BufferTime())
	assert.Equal(t, []int{2, 5}, ctrl.Counts())

	require.NoError(t, ctrl.StartRepeat(2))
	// 12.4 clears the default 0.3 buffer but not the configured 0.5
	ctrl.OnPosition(12.4)
	_, completed, _, _ := ctrl.Session()
	assert.Zero(t, completed)

	ctrl.OnPosition(12.5)
	_, completed, _, _ = ctrl.Session()
	assert.Equal(t, 1, completed)
}

func TestNewFromConfigDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	ctrl, driver := NewFromConfig(&fakePlayer{}, track(), cfg.Repeat, nil)
	assert.Equal(t, DefaultPollInterval, driver.Interval())
	assert.Equal(t, DefaultBufferTime, ctrl.BufferTime())
	assert.Equal(t, []int{3, 10, 20}, ctrl.Counts())
}

func TestNewFromConfigOptionsOverride(t *testing.T) {
	cfg := config.RepeatConfig{BufferTime: 0.5, PollInterval: time.Second, Counts: []int{0, 4}}
	ctrl, _ := NewFromConfig(&fakePlayer{}, track(), cfg, nil, WithBufferTime(0.1))

	assert.Equal(t, 0.1, ctrl.BufferTime())
	assert.Equal(t, []int{4}, ctrl.Counts())
}

func TestRepeatSegmentByID(t *testing.T) {
	player := &fakePlayer{pos: 1}
	ctrl, events := newTestController(player)

	assert.ErrorIs(t, ctrl.RepeatSegment(99, 2), ErrUnknownID)
	assert.ErrorIs(t, ctrl.RepeatSegment(2, 0), ErrInvalidCount)
	assert.Equal(t, StateIdle, ctrl.State())

	// id 2 starts at 2.0, which lookup by position would resolve to id 1
	require.NoError(t, ctrl.RepeatSegment(2, 2))
	seg, _, total, ok := ctrl.Session()
	require.True(t, ok)
	assert.Equal(t, 2, seg.ID)
	assert.Equal(t, 2, total)
	assert.Equal(t, []float64{2.0}, player.seeks)
	assert.True(t, player.playing)
	require.Len(t, *events, 1)
	assert.Equal(t, EventStarted, (*events)[0].Kind)
}
