package robot_arm

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultMoveDuration is how long a retargeted value takes to reach its target.
const DefaultMoveDuration = time.Second

// AnimatedParam holds an integer angle that moves linearly from its current value toward a target
// over a duration. It only advances when Update is called; it never schedules itself.
type AnimatedParam struct {
	clk      clock.Clock
	duration time.Duration

	start     float64
	current   float64
	target    float64
	startedAt time.Time
	running   bool
	span      time.Duration
}

// NewAnimatedParam returns a param resting at initial. A non-positive duration makes every
// retarget take effect immediately.
func NewAnimatedParam(clk clock.Clock, initial int, duration time.Duration) *AnimatedParam {
	v := float64(initial)
	return &AnimatedParam{
		clk:      clk,
		duration: duration,
		start:    v,
		current:  v,
		target:   v,
	}
}

// Value returns the current value rounded to whole degrees.
func (p *AnimatedParam) Value() int {
	return int(math.Round(p.current))
}

// Target returns the value the param is moving toward.
func (p *AnimatedParam) Target() int {
	return int(math.Round(p.target))
}

// IsRunning reports whether the param is still interpolating.
func (p *AnimatedParam) IsRunning() bool {
	return p.running
}

// SetValue retargets the param using its default duration. It returns true if the value or the
// running state changed.
func (p *AnimatedParam) SetValue(target int) bool {
	return p.SetValueWithDuration(target, p.duration)
}

// SetValueWithDuration retargets the param with an explicit duration.
func (p *AnimatedParam) SetValueWithDuration(target int, d time.Duration) bool {
	t := float64(target)
	if t == p.target && (p.running || t == p.current) {
		return false
	}

	if d <= 0 {
		before, wasRunning := p.Value(), p.running
		p.start, p.current, p.target = t, t, t
		p.running = false
		return before != p.Value() || wasRunning
	}

	wasRunning := p.running
	p.start = p.current
	p.target = t
	p.startedAt = p.clk.Now()
	p.span = d
	p.running = true
	return !wasRunning
}

// Update samples the clock and advances the value. It returns true if the rounded value or the
// running state changed.
func (p *AnimatedParam) Update() bool {
	if !p.running {
		return false
	}
	before := p.Value()

	elapsed := p.clk.Since(p.startedAt)
	if elapsed >= p.span {
		p.current = p.target
		p.running = false
		return true
	}

	frac := float64(elapsed) / float64(p.span)
	p.current = p.start + (p.target-p.start)*frac
	return p.Value() != before
}

// Stop halts the param where it is. It returns true if it was running.
func (p *AnimatedParam) Stop() bool {
	if !p.running {
		return false
	}
	p.Update()
	if !p.running {
		// reached the target during the final sample
		return true
	}
	p.current = math.Round(p.current)
	p.start, p.target = p.current, p.current
	p.running = false
	return true
}
