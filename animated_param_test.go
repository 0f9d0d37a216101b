package robot_arm

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnimatedParamInterpolates(t *testing.T) {
	clk := clock.NewMock()
	p := NewAnimatedParam(clk, 0, time.Second)

	require.True(t, p.SetValue(100))
	assert.True(t, p.IsRunning())
	assert.Equal(t, 0, p.Value())
	assert.Equal(t, 100, p.Target())

	clk.Add(250 * time.Millisecond)
	assert.True(t, p.Update())
	assert.Equal(t, 25, p.Value())

	clk.Add(500 * time.Millisecond)
	assert.True(t, p.Update())
	assert.Equal(t, 75, p.Value())
	assert.True(t, p.IsRunning())

	clk.Add(time.Second)
	assert.True(t, p.Update())
	assert.Equal(t, 100, p.Value())
	assert.False(t, p.IsRunning())

	// Settled params do not report further changes.
	assert.False(t, p.Update())
}

func TestAnimatedParamUpdateWithoutRoundedChange(t *testing.T) {
	clk := clock.NewMock()
	p := NewAnimatedParam(clk, 0, time.Second)
	p.SetValue(10)

	clk.Add(10 * time.Millisecond) // 0.1 degrees
	assert.False(t, p.Update())
	assert.Equal(t, 0, p.Value())
}

func TestAnimatedParamSetValue(t *testing.T) {
	t.Run("same value at rest is a no-op", func(t *testing.T) {
		p := NewAnimatedParam(clock.NewMock(), 20, time.Second)
		assert.False(t, p.SetValue(20))
		assert.False(t, p.IsRunning())
	})

	t.Run("retarget while running keeps running", func(t *testing.T) {
		clk := clock.NewMock()
		p := NewAnimatedParam(clk, 0, time.Second)
		require.True(t, p.SetValue(100))

		clk.Add(500 * time.Millisecond)
		p.Update()
		require.Equal(t, 50, p.Value())

		assert.False(t, p.SetValue(0))
		assert.True(t, p.IsRunning())
		assert.Equal(t, 0, p.Target())

		// The new move starts from where the old one was.
		clk.Add(500 * time.Millisecond)
		p.Update()
		assert.Equal(t, 25, p.Value())
	})

	t.Run("same target while running is a no-op", func(t *testing.T) {
		clk := clock.NewMock()
		p := NewAnimatedParam(clk, 0, time.Second)
		p.SetValue(40)
		assert.False(t, p.SetValue(40))
	})

	t.Run("zero duration jumps", func(t *testing.T) {
		p := NewAnimatedParam(clock.NewMock(), 0, 0)
		assert.True(t, p.SetValue(30))
		assert.Equal(t, 30, p.Value())
		assert.False(t, p.IsRunning())
	})

	t.Run("explicit duration overrides default", func(t *testing.T) {
		clk := clock.NewMock()
		p := NewAnimatedParam(clk, 0, time.Second)
		require.True(t, p.SetValueWithDuration(100, 4*time.Second))

		clk.Add(time.Second)
		p.Update()
		assert.Equal(t, 25, p.Value())
	})
}

func TestAnimatedParamStop(t *testing.T) {
	clk := clock.NewMock()
	p := NewAnimatedParam(clk, 0, time.Second)
	assert.False(t, p.Stop())

	p.SetValue(-90)
	clk.Add(500 * time.Millisecond)

	assert.True(t, p.Stop())
	assert.False(t, p.IsRunning())
	assert.Equal(t, -45, p.Value())
	assert.Equal(t, -45, p.Target())

	clk.Add(time.Second)
	assert.False(t, p.Update())
	assert.Equal(t, -45, p.Value())
}

func TestAnimatedParamStopAfterDeadline(t *testing.T) {
	clk := clock.NewMock()
	p := NewAnimatedParam(clk, 0, time.Second)
	p.SetValue(60)
	clk.Add(2 * time.Second)

	assert.True(t, p.Stop())
	assert.Equal(t, 60, p.Value())
}
