// Package clock advances the shop's day/time-of-day cursor and classifies it
// into trading phases. Time only moves when Advance is called, so tests and
// the real-time loop drive the same code.
package clock

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/talgya/shopsim/internal/bus"
)

// Day boundaries in sim hours.
const (
	DayStartHour = 6.0
	DayEndHour   = 24.0

	activeHoursPerDay = DayEndHour - DayStartHour
)

// Speed multiplier bounds.
const (
	MinSpeed = 0.1
	MaxSpeed = 5.0
)

// Signal topics.
const (
	TopicDayStarted   bus.Topic = "clock.day_started"
	TopicPhaseChanged bus.Topic = "clock.phase_changed"
)

// DayStarted fires when the clock wraps past midnight.
type DayStarted struct {
	Day int `json:"day"`
}

func (DayStarted) Topic() bus.Topic { return TopicDayStarted }

// PhaseChanged fires when the phase classification differs from the last tick.
type PhaseChanged struct {
	Day      int   `json:"day"`
	Phase    Phase `json:"phase"`
	Previous Phase `json:"previous"`
}

func (PhaseChanged) Topic() bus.Topic { return TopicPhaseChanged }

// Config controls the clock.
type Config struct {
	StartDay  int     `yaml:"start_day"`
	StartHour float64 `yaml:"start_hour"`
	// MinutesPerSecond is sim minutes per real second at speed 1.0.
	MinutesPerSecond float64 `yaml:"minutes_per_second"`
	Speed            float64 `yaml:"speed"`
}

// DefaultConfig starts on day 1 at 6 AM, one sim minute per real second.
func DefaultConfig() Config {
	return Config{
		StartDay:         1,
		StartHour:        DayStartHour,
		MinutesPerSecond: 1,
		Speed:            1,
	}
}

// Now is a point-in-time reading of the clock.
type Now struct {
	Day   int     `json:"day"`
	Hour  float64 `json:"hour"`
	Phase Phase   `json:"phase"`
}

// Clock is the simulation's time source. Safe for concurrent use.
type Clock struct {
	mu     sync.RWMutex
	day    int
	hour   float64
	phase  Phase
	speed  float64
	rate   float64 // sim minutes per real second
	paused bool

	pub bus.Publisher
}

// New creates a clock. A nil publisher discards signals.
func New(cfg Config, pub bus.Publisher) *Clock {
	if pub == nil {
		pub = bus.Discard
	}
	hour := math.Mod(cfg.StartHour, 24)
	if hour < 0 {
		hour += 24
	}
	rate := cfg.MinutesPerSecond
	if rate <= 0 {
		rate = 1
	}
	return &Clock{
		day:   cfg.StartDay,
		hour:  hour,
		phase: PhaseAt(hour),
		speed: clampSpeed(cfg.Speed),
		rate:  rate,
		pub:   pub,
	}
}

// Advance moves time forward by dt of real time scaled by the speed
// multiplier. It reports whether time moved (false while paused).
func (c *Clock) Advance(dt time.Duration) bool {
	if dt <= 0 {
		return false
	}

	var out []bus.Event

	c.mu.Lock()
	if c.paused {
		c.mu.Unlock()
		return false
	}

	c.hour += dt.Seconds() * c.speed * c.rate / 60

	if c.hour >= DayEndHour {
		// Overflow past midnight is dropped; the shop reopens at 6 AM.
		c.hour = DayStartHour
		c.day++
		out = append(out, DayStarted{Day: c.day})
	}

	if p := PhaseAt(c.hour); p != c.phase {
		out = append(out, PhaseChanged{Day: c.day, Phase: p, Previous: c.phase})
		c.phase = p
	}
	day := c.day
	c.mu.Unlock()

	for _, e := range out {
		switch ev := e.(type) {
		case DayStarted:
			slog.Info("new day", "day", ev.Day)
		case PhaseChanged:
			slog.Debug("phase changed", "day", day, "phase", ev.Phase)
		}
		c.pub.Publish(e)
	}
	return true
}

// Day returns the current day number.
func (c *Clock) Day() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.day
}

// Hour returns the time of day in [0,24).
func (c *Clock) Hour() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hour
}

// Phase returns the current phase.
func (c *Clock) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Now returns day, hour and phase read together.
func (c *Clock) Now() Now {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Now{Day: c.day, Hour: c.hour, Phase: c.phase}
}

// Elapsed returns monotonic sim time in day units. Each trading day
// (6:00 to 24:00) counts as exactly one unit, so event durations expressed
// in days can be compared against it directly.
func (c *Clock) Elapsed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	frac := (c.hour - DayStartHour) / activeHoursPerDay
	if frac < 0 {
		frac = 0
	}
	return float64(c.day) + frac
}

// SpeedMultiplier returns the current speed multiplier.
func (c *Clock) SpeedMultiplier() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speed
}

// SetSpeed sets the speed multiplier, clamped to [MinSpeed, MaxSpeed], and
// returns the value applied.
func (c *Clock) SetSpeed(multiplier float64) float64 {
	c.mu.Lock()
	c.speed = clampSpeed(multiplier)
	applied := c.speed
	c.mu.Unlock()
	slog.Info("game speed set", "speed", applied)
	return applied
}

// Pause stops time advancement. State is preserved.
func (c *Clock) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume continues from the exact paused state.
func (c *Clock) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// TogglePause flips the paused state and returns the new value.
func (c *Clock) TogglePause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = !c.paused
	return c.paused
}

// Paused reports whether the clock is paused.
func (c *Clock) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

func clampSpeed(s float64) float64 {
	if math.IsNaN(s) || s < MinSpeed {
		return MinSpeed
	}
	if s > MaxSpeed {
		return MaxSpeed
	}
	return s
}
