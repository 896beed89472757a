package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// DefaultInterval is the real time between steps when none is configured.
const DefaultInterval = 100 * time.Millisecond

// Run steps the simulation every interval until ctx is done. Each step
// advances by the real time measured since the previous one, so a slow
// step never loses sim time.
func (s *Simulation) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("simulation engine started",
		"interval", interval,
		"speed", s.Clock.SpeedMultiplier(),
		"time", FormatTime(s.Clock.Day(), s.Clock.Hour()),
	)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped", "time", FormatTime(s.Clock.Day(), s.Clock.Hour()))
			return ctx.Err()
		case now := <-ticker.C:
			s.Step(now.Sub(last))
			last = now
		}
	}
}

// FormatTime renders a day and hour as "Day 3, 14:05".
func FormatTime(day int, hour float64) string {
	h := int(hour)
	m := int(math.Floor((hour - float64(h)) * 60))
	return fmt.Sprintf("Day %d, %d:%02d", day, h, m)
}
