// Package engine ties the shop's systems together: it owns the clock,
// market, event engine, shop and customer spawner, serializes every
// mutation behind one lock, and delivers signals once that lock is released.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/talgya/shopsim/internal/agents"
	"github.com/talgya/shopsim/internal/bus"
	"github.com/talgya/shopsim/internal/clock"
	"github.com/talgya/shopsim/internal/config"
	"github.com/talgya/shopsim/internal/economy"
	"github.com/talgya/shopsim/internal/events"
	"github.com/talgya/shopsim/internal/shop"
)

// Simulation holds the complete shop state and wires systems together.
type Simulation struct {
	mu sync.Mutex

	bus     *bus.Bus
	pending *bus.Buffer // Signals raised under mu, flushed after unlock

	Clock   *clock.Clock
	Market  *economy.Market
	Events  *events.Engine
	Shop    *shop.Shop
	spawner *agents.Spawner

	items     []string // Catalog order, used for shopping lists
	customers []*agents.Customer
	stats     DayStats
}

// DayStats counts activity since the last day start.
type DayStats struct {
	Customers  int `json:"customers"`
	Satisfied  int `json:"satisfied"`
	Complaints int `json:"complaints"`
	Sales      int `json:"sales"`
}

// New builds a simulation from cfg. Catalog and item mismatches are
// rejected here rather than surfacing mid-run.
func New(cfg config.Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		bus:     bus.New(),
		pending: &bus.Buffer{},
	}

	s.Clock = clock.New(cfg.Clock, s.pending)
	s.Market = economy.NewMarket(cfg.Market, rand.New(rand.NewSource(cfg.Seed+100)), s.pending)
	for _, spec := range cfg.Items {
		if err := s.Market.Register(spec); err != nil {
			return nil, fmt.Errorf("register item %s: %w", spec.ID, err)
		}
		s.items = append(s.items, spec.ID)
	}

	ev, err := events.New(cfg.Events, cfg.Catalog, s.Market, s.Clock, rand.New(rand.NewSource(cfg.Seed+200)), s.pending)
	if err != nil {
		return nil, fmt.Errorf("event catalog: %w", err)
	}
	s.Events = ev
	s.Shop = shop.New(cfg.Shop, s.Market, s.Clock, s.pending)
	s.spawner = agents.NewSpawner(cfg.Customers, cfg.Seed)

	// Nothing is subscribed yet; drop construction-time chatter.
	s.pending.Flush(bus.Discard)

	slog.Info("simulation ready",
		"items", len(s.items),
		"events", len(cfg.Catalog),
		"seed", cfg.Seed,
		"time", FormatTime(s.Clock.Day(), s.Clock.Hour()),
	)
	return s, nil
}

// Subscribe registers h for topic t. Handlers run after the simulation lock
// is released, so they may call any query or command.
func (s *Simulation) Subscribe(t bus.Topic, h bus.Handler) (cancel func()) {
	return s.bus.Subscribe(t, h)
}

// SubscribeAll registers h for every topic.
func (s *Simulation) SubscribeAll(h bus.Handler) (cancel func()) {
	return s.bus.SubscribeAll(h)
}

// Bus exposes the signal bus for collaborators that attach themselves.
func (s *Simulation) Bus() *bus.Bus {
	return s.bus
}

// Step advances the simulation by dt of real time. While paused it does nothing.
func (s *Simulation) Step(dt time.Duration) {
	s.mu.Lock()
	s.step(dt)
	s.mu.Unlock()
	s.flush()
}

func (s *Simulation) flush() {
	s.pending.Flush(s.bus)
}

// step runs one tick. Caller holds s.mu.
func (s *Simulation) step(dt time.Duration) {
	prevDay := s.Clock.Day()
	if !s.Clock.Advance(dt) {
		return
	}
	now := s.Clock.Now()

	if now.Day != prevDay {
		s.startDay(prevDay, now.Day)
	}
	if !now.Phase.Open() {
		s.closeStore()
	}

	s.Events.Advance(dt)

	s.spawner.Advance(dt, s.Clock.SpeedMultiplier())
	if s.spawner.ShouldSpawn(now, s.Shop.Reputation(), len(s.customers)) {
		s.admit()
	}

	s.serveCustomers(now.Day)
}

// startDay closes out prevDay and runs every day-start hook for day.
func (s *Simulation) startDay(prevDay, day int) {
	report := s.report(prevDay)
	slog.Info("daily report",
		"day", report.Day,
		"money", report.Money.StringFixed(2),
		"revenue", report.Revenue.StringFixed(2),
		"units_sold", report.UnitsSold,
		"reputation", fmt.Sprintf("%.1f", report.Reputation),
		"level", report.Level,
		"customers", report.Customers,
		"complaints", report.Complaints,
	)
	s.pending.Publish(report)

	s.Market.SimulateDay()
	s.Events.OnDayStarted(day)
	s.Shop.OnDayStarted(day)
	s.stats = DayStats{}
}

// admit spawns a customer and queues the active listings for them to browse.
func (s *Simulation) admit() {
	c := s.spawner.Spawn(s.items, s.Clock.Elapsed())
	c.Browse(s.activeListingIDs())
	s.customers = append(s.customers, c)
	s.stats.Customers++

	slog.Debug("customer arrived", "customer", c.Name, "archetype", c.Archetype, "budget", fmt.Sprintf("%.2f", c.Budget))
	s.pending.Publish(agents.CustomerArrived{
		CustomerID: c.ID,
		Name:       c.Name,
		Archetype:  c.Archetype,
		Budget:     c.Budget,
	})
}

func (s *Simulation) activeListingIDs() []string {
	listings := s.Shop.Listings()
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ItemID)
	}
	return ids
}

// serveCustomers lets every customer consider their next listing. Decisions
// are computed in parallel against one market snapshot; purchases are then
// applied one at a time in arrival order.
func (s *Simulation) serveCustomers(day int) {
	if len(s.customers) == 0 {
		return
	}

	snap := s.Market.Snapshot()
	decisions := make([]agents.Decision, len(s.customers))
	considered := make([]bool, len(s.customers))

	var wg sync.WaitGroup
	for i, c := range s.customers {
		id, ok := c.NextListing()
		if !ok {
			continue
		}
		l, ok := s.Shop.Listing(id)
		if !ok || !l.Active {
			continue
		}
		considered[i] = true
		wg.Add(1)
		i, c := i, c
		go func() {
			defer wg.Done()
			decisions[i] = c.EvaluatePurchase(id, l.Price, snap)
		}()
	}
	wg.Wait()

	for i, c := range s.customers {
		if !considered[i] {
			continue
		}
		s.settle(c, decisions[i], day)
	}

	kept := s.customers[:0]
	for _, c := range s.customers {
		if c.Remaining() > 0 {
			kept = append(kept, c)
			continue
		}
		s.depart(c)
	}
	clear(s.customers[len(kept):])
	s.customers = kept
}

// settle applies one decision against the shop.
func (s *Simulation) settle(c *agents.Customer, d agents.Decision, day int) {
	if d.Complaint {
		s.stats.Complaints++
		s.pending.Publish(agents.ComplaintRaised{
			CustomerID:   c.ID,
			CustomerName: c.Name,
			ItemID:       d.ItemID,
			AskingPrice:  d.AskingPrice,
			MarketPrice:  d.MarketPrice,
		})
	}
	if !d.Accepted() {
		return
	}

	qty := min(d.Quantity, s.Shop.Quantity(d.ItemID))
	if qty <= 0 {
		c.AbandonPurchase()
		return
	}
	sale, err := s.Shop.SellItem(d.ItemID, qty)
	if err != nil {
		slog.Debug("sale refused", "customer", c.Name, "item", d.ItemID, "error", err)
		c.AbandonPurchase()
		return
	}

	total := sale.Total.InexactFloat64()
	c.CompletePurchase(sale.ItemID, sale.Quantity, total)
	s.stats.Sales++

	s.pending.Publish(agents.SaleCompleted{
		CustomerID:   c.ID,
		CustomerName: c.Name,
		ItemID:       sale.ItemID,
		Quantity:     sale.Quantity,
		UnitPrice:    sale.UnitPrice,
		Total:        total,
		Day:          day,
	})
}

// depart ends a visit and applies the leave penalty when it is due.
func (s *Simulation) depart(c *agents.Customer) {
	satisfied := c.Satisfied()
	penalized := c.Leave(satisfied)
	if penalized {
		s.Shop.ApplyLeavePenalty(agents.LeavePenalty)
	}
	if satisfied {
		s.stats.Satisfied++
	}

	slog.Debug("customer left", "customer", c.Name, "satisfied", satisfied, "purchased", c.Purchased)
	s.pending.Publish(agents.CustomerLeft{
		CustomerID: c.ID,
		Name:       c.Name,
		Satisfied:  satisfied,
		Purchased:  c.Purchased,
		Penalized:  penalized,
	})
}

// closeStore sends everyone home.
func (s *Simulation) closeStore() {
	if len(s.customers) == 0 {
		return
	}
	slog.Debug("store closing", "customers", len(s.customers))
	for _, c := range s.customers {
		s.depart(c)
	}
	clear(s.customers)
	s.customers = s.customers[:0]
}
