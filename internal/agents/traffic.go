package agents

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Keyframe is one point on the traffic curve: time as a fraction of the
// 24-hour day, and the traffic multiplier there.
type Keyframe struct {
	T     float64 `yaml:"t"`
	Value float64 `yaml:"value"`
}

// DefaultTrafficCurve is the weekday foot traffic pattern.
func DefaultTrafficCurve() []Keyframe {
	return []Keyframe{
		{0.25, 0.1}, // 6 AM opening, low traffic
		{0.40, 1.2}, // Morning rush
		{0.50, 1.5}, // Lunch peak
		{0.60, 0.7}, // Afternoon lull
		{0.75, 1.3}, // Evening rush
		{0.85, 0.5}, // Closing
	}
}

// TrafficCurve is a piecewise-linear curve, clamped to its end values.
type TrafficCurve []Keyframe

// Eval returns the multiplier at t.
func (c TrafficCurve) Eval(t float64) float64 {
	if len(c) == 0 {
		return 1
	}
	if t <= c[0].T {
		return c[0].Value
	}
	last := c[len(c)-1]
	if t >= last.T {
		return last.Value
	}
	for i := 1; i < len(c); i++ {
		a, b := c[i-1], c[i]
		if t <= b.T {
			if t == b.T || b.T == a.T {
				return b.Value
			}
			f := (t - a.T) / (b.T - a.T)
			return a.Value + (b.Value-a.Value)*f
		}
	}
	return last.Value
}

// trafficNoise adds smooth day-to-day and hour-to-hour variation to the curve.
type trafficNoise struct {
	noise     opensimplex.Noise
	amplitude float64
}

func newTrafficNoise(seed int64, amplitude float64) trafficNoise {
	return trafficNoise{
		noise:     opensimplex.NewNormalized(seed),
		amplitude: amplitude,
	}
}

// factor returns a multiplier in [1-amp, 1+amp].
func (n trafficNoise) factor(day int, hour float64) float64 {
	if n.amplitude == 0 || n.noise == nil {
		return 1
	}
	v := n.noise.Eval2(float64(day)*0.37, hour*0.25)
	return 1 + n.amplitude*(2*v-1)
}
