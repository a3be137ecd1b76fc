package simulator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_Hourly(t *testing.T) {
	c, err := NewClock(time.Time{}, 24)
	require.NoError(t, err)

	assert.Equal(t, time.Hour, c.StepDuration())
	assert.Equal(t, 1.0, c.StepHours())
	assert.Equal(t, DefaultStart, c.Start())

	tests := []struct {
		step      int
		wantMonth int
		wantHour  int
	}{
		{0, 1, 0},
		{13, 1, 13},
		{24 * 31, 2, 0},
		{24*59 + 6, 3, 6},
		{24*180 + 23, 6, 23},
		{24 * 364, 12, 0},
		{24 * 365, 1, 0}, // next year starts the cycle again
	}

	for _, tt := range tests {
		ts, month, hour := c.At(tt.step)
		assert.Equal(t, tt.wantMonth, month, "step %d", tt.step)
		assert.Equal(t, tt.wantHour, hour, "step %d", tt.step)
		assert.Equal(t, DefaultStart.Add(time.Duration(tt.step)*time.Hour), ts)
	}
}

func TestClock_QuarterHourSteps(t *testing.T) {
	c, err := NewClock(DefaultStart, 96)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, c.StepDuration())
	assert.Equal(t, 0.25, c.StepHours())

	_, _, hour := c.At(5)
	assert.Equal(t, 1, hour)
}

func TestClock_Advance(t *testing.T) {
	c, err := NewClock(DefaultStart, 24)
	require.NoError(t, err)

	c.advance()
	c.advance()
	assert.Equal(t, 2, c.Elapsed())
	c.reset()
	assert.Zero(t, c.Elapsed())
}

func TestNewClock_Invalid(t *testing.T) {
	for _, n := range []int{0, -1, 7, 1441} {
		_, err := NewClock(DefaultStart, n)
		assert.True(t, errors.Is(err, ErrInvalidConfiguration), "steps per day %d", n)
	}
}
