package simulator

import (
	"time"
)

// DefaultStart is the simulated instant of step 0.
var DefaultStart = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// Clock maps an elapsed step count to a calendar position.
type Clock struct {
	start       time.Time
	stepsPerDay int
	elapsed     int
}

// NewClock creates a clock. stepsPerDay must divide a day into whole minutes
// evenly; 24 gives hourly steps.
func NewClock(start time.Time, stepsPerDay int) (Clock, error) {
	if stepsPerDay <= 0 || (24*60)%stepsPerDay != 0 {
		return Clock{}, invalidf("steps per day must divide 1440 minutes evenly, got %d", stepsPerDay)
	}
	if start.IsZero() {
		start = DefaultStart
	}
	return Clock{start: start.UTC(), stepsPerDay: stepsPerDay}, nil
}

// StepDuration returns the simulated length of one step.
func (c Clock) StepDuration() time.Duration {
	return 24 * time.Hour / time.Duration(c.stepsPerDay)
}

// StepHours returns the step length in hours.
func (c Clock) StepHours() float64 {
	return c.StepDuration().Hours()
}

func (c Clock) StepsPerDay() int {
	return c.stepsPerDay
}

func (c Clock) Start() time.Time {
	return c.start
}

// Elapsed returns the number of completed steps.
func (c Clock) Elapsed() int {
	return c.elapsed
}

// At returns the timestamp, month (1-12) and hour (0-23) of a step.
func (c Clock) At(step int) (time.Time, int, int) {
	ts := c.start.Add(time.Duration(step) * c.StepDuration())
	return ts, int(ts.Month()), ts.Hour()
}

func (c *Clock) advance() {
	c.elapsed++
}

func (c *Clock) reset() {
	c.elapsed = 0
}
