package device

import (
	"math"
	"time"
)

// MinRampInterval is the fastest rate intermediate speeds are sent at.
const MinRampInterval = 50 * time.Millisecond

// RampPlan is a time-spaced sequence of speeds from one value to another.
// Values[i] is sent Interval*(i+1) after the ramp starts; the last value is
// always the target.
type RampPlan struct {
	Interval time.Duration
	Values   []int
}

// Ramp plans a transition from one speed to another over duration. One
// speed step per tick is used unless that would tick faster than
// MinRampInterval, in which case the increment grows instead. A zero-step
// ramp has no values.
func Ramp(from, to int, duration time.Duration) RampPlan {
	steps := to - from
	if steps < 0 {
		steps = -steps
	}
	if steps == 0 {
		return RampPlan{}
	}
	if duration <= 0 {
		return RampPlan{Interval: MinRampInterval, Values: []int{to}}
	}

	delay := float64(duration) / float64(time.Millisecond) / float64(steps)
	increment := 1.0
	if delay < float64(MinRampInterval/time.Millisecond) {
		increment = float64(MinRampInterval/time.Millisecond) / delay
		delay = float64(MinRampInterval / time.Millisecond)
	}
	if from > to {
		increment = -increment
	}

	plan := RampPlan{Interval: time.Duration(delay * float64(time.Millisecond))}
	for i := 1; ; i++ {
		v := int(math.Floor(float64(from) + float64(i)*increment + 0.5))
		if (to > from && v > to) || (to < from && v < to) {
			v = to
		}
		plan.Values = append(plan.Values, v)
		if v == to {
			return plan
		}
	}
}
