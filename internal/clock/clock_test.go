package clock

import (
	"math"
	"testing"
	"time"

	"github.com/talgya/shopsim/internal/bus"
)

// simHours converts sim hours to the real duration needed at speed 1.
func simHours(h float64) time.Duration {
	return time.Duration(h * 60 * float64(time.Second))
}

func TestPhaseAtBoundaries(t *testing.T) {
	tests := []struct {
		hour float64
		want Phase
	}{
		{6, PhaseOpening},
		{8.999, PhaseOpening},
		{9, PhaseMorningRush},
		{11.5, PhaseMorningRush},
		{12, PhaseLunch},
		{14, PhaseAfternoon},
		{17, PhaseEveningRush},
		{19.99, PhaseEveningRush},
		{20, PhaseClosing},
		{22, PhaseNight},
		{23.9, PhaseNight},
		{0, PhaseNight},
		{5.99, PhaseNight},
	}
	for _, tt := range tests {
		if got := PhaseAt(tt.hour); got != tt.want {
			t.Errorf("PhaseAt(%v): got %v, want %v", tt.hour, got, tt.want)
		}
	}
}

func TestAdvanceMovesTime(t *testing.T) {
	c := New(DefaultConfig(), nil)
	c.Advance(simHours(3))
	if c.Hour() != 9 {
		t.Errorf("hour: got %v, want 9", c.Hour())
	}
	if c.Phase() != PhaseMorningRush {
		t.Errorf("phase: got %v, want MorningRush", c.Phase())
	}
}

func TestPhaseChangedFiresOnlyOnTransition(t *testing.T) {
	var rec bus.Recorder
	c := New(DefaultConfig(), &rec)

	// Four half-hour steps inside Opening, then one across 9:00.
	for i := 0; i < 4; i++ {
		c.Advance(simHours(0.5))
	}
	if n := rec.Count(TopicPhaseChanged); n != 0 {
		t.Fatalf("phase changes before 9:00: got %d, want 0", n)
	}
	c.Advance(simHours(1.5))
	if n := rec.Count(TopicPhaseChanged); n != 1 {
		t.Fatalf("phase changes after 9:00: got %d, want 1", n)
	}
	ev := rec.Events()[0].(PhaseChanged)
	if ev.Phase != PhaseMorningRush || ev.Previous != PhaseOpening {
		t.Errorf("event: got %+v", ev)
	}
}

func TestDayWrap(t *testing.T) {
	var rec bus.Recorder
	c := New(DefaultConfig(), &rec)

	c.Advance(simHours(17)) // 23:00, Night
	if c.Phase() != PhaseNight {
		t.Fatalf("phase at 23:00: got %v, want Night", c.Phase())
	}
	c.Advance(simHours(1.5))

	if c.Day() != 2 {
		t.Errorf("day: got %d, want 2", c.Day())
	}
	if c.Hour() != DayStartHour {
		t.Errorf("hour after wrap: got %v, want 6", c.Hour())
	}
	if c.Phase() != PhaseOpening {
		t.Errorf("phase after wrap: got %v, want Opening", c.Phase())
	}
	if n := rec.Count(TopicDayStarted); n != 1 {
		t.Fatalf("day-started count: got %d, want 1", n)
	}
	for _, e := range rec.Events() {
		if ds, ok := e.(DayStarted); ok && ds.Day != 2 {
			t.Errorf("day-started payload: got %d, want 2", ds.Day)
		}
	}
}

func TestPauseFreezesState(t *testing.T) {
	c := New(DefaultConfig(), nil)
	c.Advance(simHours(1))
	c.Pause()
	if c.Advance(simHours(5)) {
		t.Error("Advance should report false while paused")
	}
	if c.Hour() != 7 {
		t.Errorf("hour while paused: got %v, want 7", c.Hour())
	}
	c.Resume()
	c.Advance(simHours(1))
	if c.Hour() != 8 {
		t.Errorf("hour after resume: got %v, want 8", c.Hour())
	}
}

func TestSpeedClamp(t *testing.T) {
	c := New(DefaultConfig(), nil)
	tests := []struct {
		in, want float64
	}{
		{0, MinSpeed},
		{-3, MinSpeed},
		{0.1, 0.1},
		{2.5, 2.5},
		{9, MaxSpeed},
		{math.NaN(), MinSpeed},
	}
	for _, tt := range tests {
		if got := c.SetSpeed(tt.in); got != tt.want {
			t.Errorf("SetSpeed(%v): got %v, want %v", tt.in, got, tt.want)
		}
		if c.SpeedMultiplier() != tt.want {
			t.Errorf("SpeedMultiplier after SetSpeed(%v): got %v", tt.in, c.SpeedMultiplier())
		}
	}
}

func TestSpeedScalesAdvance(t *testing.T) {
	c := New(DefaultConfig(), nil)
	c.SetSpeed(2)
	c.Advance(simHours(1))
	if c.Hour() != 8 {
		t.Errorf("hour at 2x: got %v, want 8", c.Hour())
	}
}

func TestElapsedIsMonotonic(t *testing.T) {
	c := New(DefaultConfig(), nil)
	if c.Elapsed() != 1 {
		t.Fatalf("elapsed at start: got %v, want 1", c.Elapsed())
	}
	c.Advance(simHours(9))
	if got := c.Elapsed(); math.Abs(got-1.5) > 1e-9 {
		t.Errorf("elapsed at 15:00: got %v, want 1.5", got)
	}
	c.Advance(simHours(9)) // wraps
	if got := c.Elapsed(); got != 2 {
		t.Errorf("elapsed after wrap: got %v, want 2", got)
	}
}

func TestStartDayIsConfigurable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartDay = 10
	c := New(cfg, nil)
	if c.Day() != 10 {
		t.Errorf("day: got %d, want 10", c.Day())
	}
}
