// Package shop is the player's store: inventory and money, priced listings,
// sales to customers, wholesale restocking, reputation and leveling.
package shop

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/talgya/shopsim/internal/bus"
	"github.com/talgya/shopsim/internal/economy"
)

// Market is the part of the economy the shop trades against.
type Market interface {
	Spec(id string) (economy.ItemSpec, error)
	Price(id string) (float64, error)
	WholesalePrice(id string) (float64, error)
	RecordSale(id string, quantity int, pricePerUnit float64) error
	RecordRestock(id string, quantity int) error
}

// Clock provides the current day for stock dating.
type Clock interface {
	Day() int
}

// Reputation and leveling constants.
const (
	MinReputation = 0.0
	MaxReputation = 100.0

	experiencePerRevenue = 0.1
	experiencePerLevel   = 100.0
)

// Config controls the shop.
type Config struct {
	MaxDisplaySlots    int     `yaml:"max_display_slots"`
	StartingMoney      float64 `yaml:"starting_money"`
	Capacity           int     `yaml:"capacity"`
	StartingReputation float64 `yaml:"starting_reputation"`
	ReputationDecay    float64 `yaml:"reputation_decay"` // Multiplier applied each day start
}

// DefaultConfig returns the starting shop.
func DefaultConfig() Config {
	return Config{
		MaxDisplaySlots:    8,
		StartingMoney:      100,
		Capacity:           100,
		StartingReputation: 50,
		ReputationDecay:    0.95,
	}
}

// Listing is an item on display.
type Listing struct {
	ItemID       string          `json:"item_id"`
	Price        float64         `json:"price"`
	Active       bool            `json:"active"`
	TotalSold    int             `json:"total_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
	DailySales   int             `json:"daily_sales"`
	DailyRevenue decimal.Decimal `json:"daily_revenue"`
}

// Sale is the receipt of a completed sellItem.
type Sale struct {
	ItemID    string          `json:"item_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice float64         `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
	Day       int             `json:"day"`
}

// Purchase is the receipt of a completed buyWholesale.
type Purchase struct {
	ItemID   string          `json:"item_id"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Total    decimal.Decimal `json:"total"`
	Day      int             `json:"day"`
}

// InventoryView is a point-in-time copy of the inventory.
type InventoryView struct {
	Money    decimal.Decimal `json:"money"`
	Capacity int             `json:"capacity"`
	Used     int             `json:"used"`
	Slots    []Slot          `json:"slots"`
}

// Shop is the player's store. Safe for concurrent use.
type Shop struct {
	mu  sync.RWMutex
	cfg Config

	inv      *Inventory
	listings map[string]*Listing
	slots    int

	reputation float64
	level      int
	experience float64

	market Market
	clock  Clock
	pub    bus.Publisher
}

// New creates a shop. A nil publisher discards signals.
func New(cfg Config, market Market, clock Clock, pub bus.Publisher) *Shop {
	if pub == nil {
		pub = bus.Discard
	}
	return &Shop{
		cfg:        cfg,
		inv:        NewInventory(decimal.NewFromFloat(cfg.StartingMoney), cfg.Capacity),
		listings:   make(map[string]*Listing),
		slots:      cfg.MaxDisplaySlots,
		reputation: clampReputation(cfg.StartingReputation),
		level:      1,
		market:     market,
		clock:      clock,
		pub:        pub,
	}
}

// SetPrice lists id at price, or reprices an existing listing, and activates it.
func (s *Shop) SetPrice(id string, price float64) error {
	s.mu.Lock()

	if !s.inv.Has(id, 1) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotInInventory, id)
	}
	l, exists := s.listings[id]
	if !exists && len(s.listings) >= s.slots {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d of %d slots used", ErrDisplayFull, len(s.listings), s.slots)
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}

	if !exists {
		l = &Listing{ItemID: id}
		s.listings[id] = l
	}
	l.Price = price
	l.Active = true
	s.mu.Unlock()

	slog.Info("price set", "item", id, "price", price)
	s.pub.Publish(PriceSet{ItemID: id, Price: price})
	return nil
}

// RemoveFromDisplay deactivates a listing. The listing keeps its slot and stats.
func (s *Shop) RemoveFromDisplay(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotListed, id)
	}
	l.Active = false
	return nil
}

// SellItem sells quantity units of id at the listed price.
func (s *Shop) SellItem(id string, quantity int) (Sale, error) {
	if quantity <= 0 {
		return Sale{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	var out []bus.Event

	s.mu.Lock()
	l, ok := s.listings[id]
	if !ok || !l.Active {
		s.mu.Unlock()
		return Sale{}, fmt.Errorf("%w: %s", ErrNotListed, id)
	}
	if !s.inv.Has(id, quantity) {
		s.mu.Unlock()
		return Sale{}, fmt.Errorf("%w: want %d %s, have %d", ErrInsufficientStock, quantity, id, s.inv.Quantity(id))
	}
	if _, err := s.market.Price(id); err != nil {
		s.mu.Unlock()
		return Sale{}, err
	}

	total := decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(quantity)))

	s.inv.remove(id, quantity)
	s.inv.credit(total)

	l.TotalSold += quantity
	l.DailySales += quantity
	l.Revenue = l.Revenue.Add(total)
	l.DailyRevenue = l.DailyRevenue.Add(total)

	if err := s.market.RecordSale(id, quantity, l.Price); err != nil {
		slog.Warn("market did not record sale", "item", id, "error", err)
	}

	out = s.gainExperience(total.InexactFloat64()*experiencePerRevenue, out)

	// Fairness is judged against the market price after this sale moved it.
	if marketPrice, err := s.market.Price(id); err == nil && marketPrice > 0 {
		out = s.adjustReputation(reputationDelta(l.Price/marketPrice), "sale", out)
	}

	sale := Sale{ItemID: id, Quantity: quantity, UnitPrice: l.Price, Total: total, Day: s.day()}
	s.mu.Unlock()

	slog.Debug("item sold", "item", id, "quantity", quantity, "total", total.StringFixed(2))
	s.publish(out)
	return sale, nil
}

// BuyWholesale restocks quantity units of id at the wholesale price.
func (s *Shop) BuyWholesale(id string, quantity int) (Purchase, error) {
	if quantity <= 0 {
		return Purchase{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unit, err := s.market.WholesalePrice(id)
	if err != nil {
		return Purchase{}, err
	}
	unitCost := decimal.NewFromFloat(unit)
	cost := unitCost.Mul(decimal.NewFromInt(int64(quantity)))

	if !s.inv.CanAfford(cost) {
		return Purchase{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost.StringFixed(2), s.inv.Money().StringFixed(2))
	}
	if !s.inv.Fits(quantity) {
		return Purchase{}, fmt.Errorf("%w: %d used, %d more exceeds %d", ErrInsufficientCapacity, s.inv.Used(), quantity, s.inv.Capacity())
	}

	day := s.day()
	s.inv.debit(cost)
	s.inv.add(id, quantity, day, unitCost)

	if err := s.market.RecordRestock(id, quantity); err != nil {
		slog.Warn("market did not record restock", "item", id, "error", err)
	}

	slog.Info("wholesale purchase", "item", id, "quantity", quantity, "unit_cost", unitCost.StringFixed(2), "total", cost.StringFixed(2))
	return Purchase{ItemID: id, Quantity: quantity, UnitCost: unitCost, Total: cost, Day: day}, nil
}

// UpgradeDisplaySlots adds display slots.
func (s *Shop) UpgradeDisplaySlots(additional int) error {
	if additional <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, additional)
	}
	s.mu.Lock()
	s.slots += additional
	n := s.slots
	s.mu.Unlock()
	slog.Info("display slots upgraded", "slots", n)
	return nil
}

// UpgradeCapacity adds inventory capacity.
func (s *Shop) UpgradeCapacity(additional int) error {
	if additional <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, additional)
	}
	s.mu.Lock()
	s.inv.capacity += additional
	n := s.inv.capacity
	s.mu.Unlock()
	slog.Info("inventory capacity upgraded", "capacity", n)
	return nil
}

// ApplyLeavePenalty takes the reputation hit of an unsatisfied customer.
func (s *Shop) ApplyLeavePenalty(penalty float64) {
	s.mu.Lock()
	out := s.adjustReputation(-penalty, "customer_left", nil)
	s.mu.Unlock()
	s.publish(out)
}

// OnDayStarted decays reputation, resets daily listing stats and discards
// spoiled perishables.
func (s *Shop) OnDayStarted(day int) {
	var out []bus.Event

	s.mu.Lock()
	old := s.reputation
	s.reputation = clampReputation(s.reputation * s.cfg.ReputationDecay)
	out = append(out, ReputationChanged{Value: s.reputation, Delta: s.reputation - old, Reason: "decay"})

	for _, l := range s.listings {
		l.DailySales = 0
		l.DailyRevenue = decimal.Zero
	}

	for _, id := range s.inv.itemIDs() {
		spec, err := s.market.Spec(id)
		if err != nil || !spec.Perishable {
			continue
		}
		if n := s.inv.spoil(id, day, spec.ShelfLife); n > 0 {
			out = append(out, ItemSpoiled{ItemID: id, Quantity: n, Day: day})
		}
	}
	s.mu.Unlock()

	s.publish(out)
}

// Listing returns the listing for id, active or not.
func (s *Shop) Listing(id string) (Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return Listing{}, false
	}
	return *l, true
}

// Listings returns the active listings sorted by item id.
func (s *Shop) Listings() []Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if l.Active {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// Inventory returns a copy of stock and money.
func (s *Shop) Inventory() InventoryView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return InventoryView{
		Money:    s.inv.Money(),
		Capacity: s.inv.Capacity(),
		Used:     s.inv.Used(),
		Slots:    s.inv.Slots(),
	}
}

// Quantity returns the units of id held.
func (s *Shop) Quantity(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inv.Quantity(id)
}

// Money returns the cash on hand.
func (s *Shop) Money() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inv.Money()
}

// Reputation returns the current reputation in [0,100].
func (s *Shop) Reputation() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reputation
}

// Level returns the shop level.
func (s *Shop) Level() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.level
}

// Experience returns experience toward the next level.
func (s *Shop) Experience() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.experience
}

// DisplaySlots returns the slot limit and the slots taken.
func (s *Shop) DisplaySlots() (limit, used int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots, len(s.listings)
}

// DailyTotals sums today's units sold and revenue across all listings.
func (s *Shop) DailyTotals() (units int, revenue decimal.Decimal) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	revenue = decimal.Zero
	for _, l := range s.listings {
		units += l.DailySales
		revenue = revenue.Add(l.DailyRevenue)
	}
	return units, revenue
}

// gainExperience adds xp and levels up as many times as it covers.
// Caller holds s.mu.
func (s *Shop) gainExperience(xp float64, out []bus.Event) []bus.Event {
	s.experience += xp
	for s.experience >= float64(s.level)*experiencePerLevel {
		s.experience -= float64(s.level) * experiencePerLevel
		s.level++
		out = append(out, LevelUp{Level: s.level})
	}
	return out
}

// adjustReputation applies delta within bounds. Caller holds s.mu.
func (s *Shop) adjustReputation(delta float64, reason string, out []bus.Event) []bus.Event {
	old := s.reputation
	s.reputation = clampReputation(s.reputation + delta)
	return append(out, ReputationChanged{Value: s.reputation, Delta: s.reputation - old, Reason: reason})
}

func (s *Shop) day() int {
	if s.clock == nil {
		return 0
	}
	return s.clock.Day()
}

func (s *Shop) publish(out []bus.Event) {
	for _, e := range out {
		switch ev := e.(type) {
		case LevelUp:
			slog.Info("level up", "level", ev.Level)
		case ItemSpoiled:
			slog.Info("stock spoiled", "item", ev.ItemID, "quantity", ev.Quantity, "day", ev.Day)
		}
		s.pub.Publish(e)
	}
}

// reputationDelta scores a sale by listing price over market price.
func reputationDelta(ratio float64) float64 {
	switch {
	case ratio > 1.3:
		return -0.5 // Overpriced
	case ratio > 1.1:
		return -0.1 // Slightly expensive
	case ratio < 0.8:
		return 0.3 // Great deal
	default:
		return 0.1 // Fair
	}
}

func clampReputation(r float64) float64 {
	if math.IsNaN(r) {
		return MinReputation
	}
	return math.Max(MinReputation, math.Min(MaxReputation, r))
}
