package engine

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/talgya/shopsim/internal/agents"
	"github.com/talgya/shopsim/internal/clock"
	"github.com/talgya/shopsim/internal/economy"
	"github.com/talgya/shopsim/internal/events"
	"github.com/talgya/shopsim/internal/shop"
)

// Player commands. Each runs under the simulation lock so it cannot interleave
// with a tick, and its signals are delivered after the lock is released.

// SetPrice lists an item at price.
func (s *Simulation) SetPrice(itemID string, price float64) error {
	s.mu.Lock()
	err := s.Shop.SetPrice(itemID, price)
	s.mu.Unlock()
	s.flush()
	return err
}

// RemoveFromDisplay takes a listing off the shelf.
func (s *Simulation) RemoveFromDisplay(itemID string) error {
	s.mu.Lock()
	err := s.Shop.RemoveFromDisplay(itemID)
	s.mu.Unlock()
	s.flush()
	return err
}

// BuyWholesale restocks an item.
func (s *Simulation) BuyWholesale(itemID string, quantity int) (shop.Purchase, error) {
	s.mu.Lock()
	p, err := s.Shop.BuyWholesale(itemID, quantity)
	s.mu.Unlock()
	s.flush()
	return p, err
}

// SellItem sells directly from a listing, outside any customer visit.
func (s *Simulation) SellItem(itemID string, quantity int) (shop.Sale, error) {
	s.mu.Lock()
	sale, err := s.Shop.SellItem(itemID, quantity)
	s.mu.Unlock()
	s.flush()
	return sale, err
}

// TriggerEvent forces a catalog event to activate now.
func (s *Simulation) TriggerEvent(eventID string) (events.Instance, error) {
	s.mu.Lock()
	inst, err := s.Events.Trigger(eventID)
	s.mu.Unlock()
	s.flush()
	return inst, err
}

// UpgradeDisplaySlots adds display slots.
func (s *Simulation) UpgradeDisplaySlots(additional int) error {
	s.mu.Lock()
	err := s.Shop.UpgradeDisplaySlots(additional)
	s.mu.Unlock()
	return err
}

// UpgradeCapacity adds inventory capacity.
func (s *Simulation) UpgradeCapacity(additional int) error {
	s.mu.Lock()
	err := s.Shop.UpgradeCapacity(additional)
	s.mu.Unlock()
	return err
}

// Pause freezes ticks, spawning and event checks.
func (s *Simulation) Pause() {
	s.mu.Lock()
	s.Clock.Pause()
	s.mu.Unlock()
	slog.Info("simulation paused")
}

// Resume undoes Pause.
func (s *Simulation) Resume() {
	s.mu.Lock()
	s.Clock.Resume()
	s.mu.Unlock()
	slog.Info("simulation resumed")
}

// SetSpeed changes the time multiplier and returns the clamped value.
func (s *Simulation) SetSpeed(multiplier float64) float64 {
	s.mu.Lock()
	got := s.Clock.SetSpeed(multiplier)
	s.mu.Unlock()
	return got
}

// Queries. These read component state directly; each component guards its
// own fields, so a query never waits on a tick in progress.

func (s *Simulation) Price(itemID string) (float64, error) { return s.Market.Price(itemID) }

func (s *Simulation) Condition(itemID string) (economy.Condition, error) {
	return s.Market.Condition(itemID)
}

func (s *Simulation) MarketItems() []economy.Item { return s.Market.AllItems() }
func (s *Simulation) Listings() []shop.Listing    { return s.Shop.Listings() }
func (s *Simulation) Inventory() shop.InventoryView {
	return s.Shop.Inventory()
}
func (s *Simulation) Money() decimal.Decimal { return s.Shop.Money() }
func (s *Simulation) Reputation() float64    { return s.Shop.Reputation() }
func (s *Simulation) Level() int             { return s.Shop.Level() }
func (s *Simulation) Day() int               { return s.Clock.Day() }
func (s *Simulation) Hour() float64          { return s.Clock.Hour() }
func (s *Simulation) Phase() clock.Phase     { return s.Clock.Phase() }
func (s *Simulation) ActiveEvents() []events.Instance {
	return s.Events.Active()
}

// Customers returns detached copies of the customers in the store, in
// arrival order.
func (s *Simulation) Customers() []agents.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]agents.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c.Clone())
	}
	return out
}

// Today returns the activity counters since the last day start.
func (s *Simulation) Today() DayStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Status is a one-call summary for status lines and dashboards.
type Status struct {
	Day          int             `json:"day"`
	Time         string          `json:"time"`
	Phase        clock.Phase     `json:"phase"`
	Speed        float64         `json:"speed"`
	Paused       bool            `json:"paused"`
	Money        decimal.Decimal `json:"money"`
	Reputation   float64         `json:"reputation"`
	Level        int             `json:"level"`
	Customers    int             `json:"customers"`
	ActiveEvents int             `json:"active_events"`
	Today        DayStats        `json:"today"`
}

// Status reads a consistent summary between ticks.
func (s *Simulation) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Clock.Now()
	return Status{
		Day:          now.Day,
		Time:         FormatTime(now.Day, now.Hour),
		Phase:        now.Phase,
		Speed:        s.Clock.SpeedMultiplier(),
		Paused:       s.Clock.Paused(),
		Money:        s.Shop.Money(),
		Reputation:   s.Shop.Reputation(),
		Level:        s.Shop.Level(),
		Customers:    len(s.customers),
		ActiveEvents: len(s.Events.Active()),
		Today:        s.stats,
	}
}
