package events

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/shopsim/internal/bus"
	"github.com/talgya/shopsim/internal/economy"
)

// Signal topics.
const (
	TopicEventTriggered bus.Topic = "events.triggered"
	TopicEventExpired   bus.Topic = "events.expired"
)

// EventTriggered fires after an event's impacts have been applied.
type EventTriggered struct {
	Instance Instance `json:"instance"`
}

func (EventTriggered) Topic() bus.Topic { return TopicEventTriggered }

// EventExpired fires when an active event is retired.
type EventExpired struct {
	Instance Instance `json:"instance"`
}

func (EventExpired) Topic() bus.Topic { return TopicEventExpired }

// Instance is one activation of a catalog event.
type Instance struct {
	ID        string   `json:"id"`
	EventID   string   `json:"event_id"`
	Title     string   `json:"title"`
	Headline  string   `json:"headline,omitempty"`
	Day       int      `json:"day"`
	StartedAt float64  `json:"started_at"` // Clock elapsed days
	ExpiresAt float64  `json:"expires_at"`
	Impacts   []Impact `json:"impacts"`
	Forced    bool     `json:"forced,omitempty"`
}

// Market is the write path events use.
type Market interface {
	Has(id string) bool
	ApplyImpact(id string, kind economy.ImpactKind, magnitude float64) error
	ClearPriceControl(id string, kind economy.ImpactKind, magnitude float64) error
}

// Clock provides the day and monotonic sim time.
type Clock interface {
	Day() int
	Elapsed() float64
}

// Config controls event cadence.
type Config struct {
	CheckInterval   time.Duration `yaml:"check_interval"` // Real time between probability rolls
	MaxEventsPerDay int           `yaml:"max_events_per_day"`
}

// DefaultConfig checks once a minute with at most three events per day.
func DefaultConfig() Config {
	return Config{
		CheckInterval:   60 * time.Second,
		MaxEventsPerDay: 3,
	}
}

// Engine rolls for and tracks market events. Safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	catalog []Definition
	byID    map[string]int

	market Market
	clock  Clock
	rng    *rand.Rand
	pub    bus.Publisher

	sinceCheck time.Duration
	today      int
	total      int

	active    []Instance // Activation order, oldest first
	deadlines []float64  // Ascending expiry times
}

// New builds an engine. Every impact must reference an item registered in
// market, otherwise economy.ErrItemNotFound is returned.
func New(cfg Config, catalog []Definition, market Market, clock Clock, rng *rand.Rand, pub bus.Publisher) (*Engine, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if pub == nil {
		pub = bus.Discard
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive, got %v", cfg.CheckInterval)
	}

	byID := make(map[string]int, len(catalog))
	defs := make([]Definition, len(catalog))
	for i, d := range catalog {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidEvent, d.ID)
		}
		for _, imp := range d.Impacts {
			if !market.Has(imp.ItemID) {
				return nil, fmt.Errorf("event %s: %w: %s", d.ID, economy.ErrItemNotFound, imp.ItemID)
			}
		}
		byID[d.ID] = i
		d.Impacts = append([]Impact(nil), d.Impacts...)
		defs[i] = d
	}

	slog.Info("event catalog loaded", "events", len(defs))
	return &Engine{
		cfg:     cfg,
		catalog: defs,
		byID:    byID,
		market:  market,
		clock:   clock,
		rng:     rng,
		pub:     pub,
	}, nil
}

// Advance accumulates real time and runs a check whenever the interval
// elapses, then retires events whose deadline has passed. Callers skip it
// while the clock is paused.
func (e *Engine) Advance(dt time.Duration) {
	e.mu.Lock()
	e.sinceCheck += dt
	due := e.sinceCheck >= e.cfg.CheckInterval
	if due {
		e.sinceCheck = 0
	}
	e.mu.Unlock()

	if due {
		e.Check()
	}
	e.Expire()
}

// Check performs one probability roll over eligible events and activates at
// most one. It reports the activated instance, if any.
func (e *Engine) Check() (Instance, bool) {
	var out []bus.Event

	e.mu.Lock()
	if e.today >= e.cfg.MaxEventsPerDay {
		e.mu.Unlock()
		return Instance{}, false
	}

	day := e.clock.Day()
	var (
		inst Instance
		ok   bool
	)
	for _, d := range e.catalog {
		if !d.InWindow(day) || e.isActive(d.ID) {
			continue
		}
		if e.rng.Float64() < d.Probability {
			inst, out = e.activate(d, false, out)
			ok = true
			break
		}
	}
	e.mu.Unlock()

	e.publish(out)
	return inst, ok
}

// Trigger activates a catalog event on demand. It skips the day window, the
// daily cap and the probability roll, but still counts toward today's total.
func (e *Engine) Trigger(id string) (Instance, error) {
	var out []bus.Event

	e.mu.Lock()
	i, ok := e.byID[id]
	if !ok {
		e.mu.Unlock()
		return Instance{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	inst, out := e.activate(e.catalog[i], true, out)
	e.mu.Unlock()

	e.publish(out)
	return inst, nil
}

// Expire retires one active event per passed deadline, oldest activation
// first.
func (e *Engine) Expire() int {
	var out []bus.Event

	e.mu.Lock()
	now := e.clock.Elapsed()
	n := 0
	for len(e.deadlines) > 0 && e.deadlines[0] <= now && len(e.active) > 0 {
		e.deadlines = e.deadlines[1:]
		inst := e.active[0]
		e.active = e.active[1:]

		for _, imp := range inst.Impacts {
			if !imp.Kind.IsPriceControl() {
				continue
			}
			if err := e.market.ClearPriceControl(imp.ItemID, imp.Kind, imp.Magnitude); err != nil {
				slog.Warn("failed to clear price control", "event", inst.EventID, "item", imp.ItemID, "error", err)
			}
		}
		out = append(out, EventExpired{Instance: inst})
		n++
	}
	e.mu.Unlock()

	for _, ev := range out {
		slog.Info("event expired", "event", ev.(EventExpired).Instance.EventID)
		e.pub.Publish(ev)
	}
	return n
}

// OnDayStarted resets the daily trigger counter.
func (e *Engine) OnDayStarted(day int) {
	e.mu.Lock()
	e.today = 0
	e.mu.Unlock()
	slog.Debug("event counter reset", "day", day)
}

// Active returns the active instances, oldest first.
func (e *Engine) Active() []Instance {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Instance, len(e.active))
	copy(out, e.active)
	return out
}

// TriggeredToday is the number of activations since the last day start.
func (e *Engine) TriggeredToday() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.today
}

// TotalTriggered is the number of activations since construction.
func (e *Engine) TotalTriggered() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

// Catalog returns the event definitions in catalog order.
func (e *Engine) Catalog() []Definition {
	out := make([]Definition, len(e.catalog))
	copy(out, e.catalog)
	return out
}

// activate applies d's impacts and records the new instance. Caller holds e.mu.
func (e *Engine) activate(d Definition, forced bool, out []bus.Event) (Instance, []bus.Event) {
	now := e.clock.Elapsed()
	inst := Instance{
		ID:        uuid.New().String(),
		EventID:   d.ID,
		Title:     d.Title,
		Day:       e.clock.Day(),
		StartedAt: now,
		ExpiresAt: now + d.Duration,
		Impacts:   d.Impacts,
		Forced:    forced,
	}
	if len(d.Headlines) > 0 {
		inst.Headline = d.Headlines[e.rng.Intn(len(d.Headlines))]
	}

	for _, imp := range d.Impacts {
		if err := e.market.ApplyImpact(imp.ItemID, imp.Kind, imp.Magnitude); err != nil {
			slog.Warn("event impact failed", "event", d.ID, "item", imp.ItemID, "error", err)
			continue
		}
		slog.Debug("event impact applied", "event", d.ID, "item", imp.ItemID, "kind", imp.Kind, "magnitude", imp.Magnitude)
	}

	e.active = append(e.active, inst)
	i := sort.SearchFloat64s(e.deadlines, inst.ExpiresAt)
	e.deadlines = append(e.deadlines, 0)
	copy(e.deadlines[i+1:], e.deadlines[i:])
	e.deadlines[i] = inst.ExpiresAt

	e.today++
	e.total++

	slog.Info("event triggered", "event", d.ID, "title", d.Title, "day", inst.Day, "forced", forced, "expires_at", inst.ExpiresAt)
	return inst, append(out, EventTriggered{Instance: inst})
}

func (e *Engine) isActive(id string) bool {
	for _, inst := range e.active {
		if inst.EventID == id {
			return true
		}
	}
	return false
}

func (e *Engine) publish(out []bus.Event) {
	for _, ev := range out {
		e.pub.Publish(ev)
	}
}
