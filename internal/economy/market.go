package economy

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/talgya/shopsim/internal/bus"
)

// Signal topics.
const (
	TopicPriceChanged     bus.Topic = "market.price_changed"
	TopicConditionChanged bus.Topic = "market.condition_changed"
)

// PriceChanged fires when a recalculation moves price by more than PriceEpsilon.
type PriceChanged struct {
	ItemID   string  `json:"item_id"`
	OldPrice float64 `json:"old_price"`
	NewPrice float64 `json:"new_price"`
}

func (PriceChanged) Topic() bus.Topic { return TopicPriceChanged }

// ConditionChanged fires on condition transitions only.
type ConditionChanged struct {
	ItemID   string    `json:"item_id"`
	Previous Condition `json:"previous"`
	New      Condition `json:"new"`
}

func (ConditionChanged) Topic() bus.Topic { return TopicConditionChanged }

// Pricing constants.
const (
	PriceEpsilon    = 0.01 // Minimum move that raises a price-changed signal
	WholesaleFactor = 0.65 // Wholesale price as a fraction of market price

	minPriceFactor   = 0.5
	maxPriceFactor   = 3.0
	scarcityRatio    = 2.0 // Demand/supply ratio used when supply is exhausted
	initialSupply    = 1.2 // Starting supply as a multiple of base demand
	overpricedRatio  = 1.3
	underpricedRatio = 0.7
	saleDemandNudge  = 0.1
	dailyReplenish   = 0.3
	dailyConsumption = 0.5
)

// Config controls market dynamics.
type Config struct {
	PriceElasticity  float64 `yaml:"price_elasticity"`  // How strongly price follows demand/supply
	DemandVolatility float64 `yaml:"demand_volatility"` // Daily random demand swing
	MarketMemory     float64 `yaml:"market_memory"`     // Pull of demand back toward base each day

	// EnforcePriceControls makes PriceFloor/PriceCeiling impacts bind on
	// recalculation while their event is active. Off, they are only logged.
	EnforcePriceControls bool `yaml:"enforce_price_controls"`
}

// DefaultConfig returns the standard market tuning.
func DefaultConfig() Config {
	return Config{
		PriceElasticity:  0.5,
		DemandVolatility: 0.2,
		MarketMemory:     0.7,
	}
}

// Market owns the per-item supply/demand/price state. Safe for concurrent use.
type Market struct {
	mu    sync.RWMutex
	cfg   Config
	items map[string]*Item
	specs map[string]ItemSpec
	rng   *rand.Rand
	pub   bus.Publisher
}

// NewMarket creates an empty market. The rng drives daily demand noise; a nil
// publisher discards signals.
func NewMarket(cfg Config, rng *rand.Rand, pub bus.Publisher) *Market {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if pub == nil {
		pub = bus.Discard
	}
	return &Market{
		cfg:   cfg,
		items: make(map[string]*Item),
		specs: make(map[string]ItemSpec),
		rng:   rng,
		pub:   pub,
	}
}

// Config returns the market tuning.
func (m *Market) Config() Config {
	return m.cfg
}

// Register adds an item at base price with supply at 1.2x base demand.
// Registering an id twice keeps the first registration.
func (m *Market) Register(spec ItemSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[spec.ID]; ok {
		slog.Warn("item already registered", "item", spec.ID)
		return nil
	}
	m.items[spec.ID] = &Item{
		ID:            spec.ID,
		BasePrice:     spec.BasePrice,
		CurrentPrice:  spec.BasePrice,
		BaseDemand:    spec.BaseDemand,
		CurrentDemand: spec.BaseDemand,
		Supply:        spec.BaseDemand * initialSupply,
		Condition:     ConditionStable,
	}
	m.specs[spec.ID] = spec
	slog.Debug("item registered", "item", spec.ID, "base_price", spec.BasePrice, "base_demand", spec.BaseDemand)
	return nil
}

// Has reports whether id is registered.
func (m *Market) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[id]
	return ok
}

// Spec returns the catalog record an item was registered with.
func (m *Market) Spec(id string) (ItemSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.specs[id]
	if !ok {
		return ItemSpec{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return s, nil
}

// Price returns the current market price of id.
func (m *Market) Price(id string) (float64, error) {
	it, err := m.Item(id)
	if err != nil {
		return 0, err
	}
	return it.CurrentPrice, nil
}

// Condition returns the current market condition of id.
func (m *Market) Condition(id string) (Condition, error) {
	it, err := m.Item(id)
	if err != nil {
		return 0, err
	}
	return it.Condition, nil
}

// WholesalePrice is what the shop pays per unit when restocking.
func (m *Market) WholesalePrice(id string) (float64, error) {
	p, err := m.Price(id)
	if err != nil {
		return 0, err
	}
	return p * WholesaleFactor, nil
}

// Item returns a copy of the live state of id.
func (m *Market) Item(id string) (Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return *it, nil
}

// AllItems returns copies of every item sorted by id.
func (m *Market) AllItems() []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot returns a consistent read-only view of every item.
func (m *Market) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make(map[string]Item, len(m.items))
	for id, it := range m.items {
		items[id] = *it
	}
	return Snapshot{items: items}
}

// RecordSale removes sold units from supply and nudges demand when the sale
// price sat well outside the base price band.
func (m *Market) RecordSale(id string, quantity int, pricePerUnit float64) error {
	var out []bus.Event

	m.mu.Lock()
	it, ok := m.items[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	it.Supply = math.Max(0, it.Supply-float64(quantity))

	nudge := saleDemandNudge * m.cfg.PriceElasticity
	switch {
	case pricePerUnit > it.BasePrice*overpricedRatio:
		it.CurrentDemand *= 1 - nudge
	case pricePerUnit < it.BasePrice*underpricedRatio:
		it.CurrentDemand *= 1 + nudge
	}

	out = m.recalculate(it, out)
	m.mu.Unlock()

	m.publish(out)
	return nil
}

// RecordRestock adds units to supply.
func (m *Market) RecordRestock(id string, quantity int) error {
	var out []bus.Event

	m.mu.Lock()
	it, ok := m.items[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	it.Supply += float64(quantity)
	out = m.recalculate(it, out)
	m.mu.Unlock()

	m.publish(out)
	return nil
}

// SimulateDay runs the daily demand drift and supply cycle for every item.
// Items are visited in id order so a seeded market replays identically.
func (m *Market) SimulateDay() {
	var out []bus.Event

	m.mu.Lock()
	ids := make([]string, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		it := m.items[id]

		eps := (m.rng.Float64()*2 - 1) * m.cfg.DemandVolatility
		perturbed := it.CurrentDemand * (1 + eps)
		it.CurrentDemand = lerp(perturbed, it.BaseDemand, m.cfg.MarketMemory)

		it.Supply += it.BaseDemand * dailyReplenish
		it.Supply = math.Max(0, it.Supply-it.CurrentDemand*dailyConsumption)

		out = m.recalculate(it, out)
	}
	m.mu.Unlock()

	m.publish(out)
	slog.Debug("market day simulated", "items", len(ids))
}

// ApplyImpact applies an event impact to one item and recalculates its price.
func (m *Market) ApplyImpact(id string, kind ImpactKind, magnitude float64) error {
	var out []bus.Event

	m.mu.Lock()
	it, ok := m.items[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	switch kind {
	case ImpactDemandIncrease:
		it.CurrentDemand = math.Max(0, it.CurrentDemand*(1+magnitude))
	case ImpactDemandDecrease:
		it.CurrentDemand = math.Max(0, it.CurrentDemand*(1-magnitude))
	case ImpactSupplyShock:
		it.Supply = math.Max(0, it.Supply*(1-magnitude))
	case ImpactSupplySurplus:
		it.Supply = math.Max(0, it.Supply*(1+magnitude))
	case ImpactPriceFloor:
		if m.cfg.EnforcePriceControls {
			it.Floor = magnitude
		} else if it.CurrentPrice < magnitude {
			slog.Info("price floor advisory", "item", id, "floor", magnitude, "price", it.CurrentPrice)
		}
	case ImpactPriceCeiling:
		if m.cfg.EnforcePriceControls {
			it.Ceiling = magnitude
		} else if it.CurrentPrice > magnitude {
			slog.Info("price ceiling advisory", "item", id, "ceiling", magnitude, "price", it.CurrentPrice)
		}
	case ImpactCompetitorAction:
		slog.Info("competitor action", "item", id, "magnitude", magnitude)
	default:
		m.mu.Unlock()
		return fmt.Errorf("unknown impact kind %d", kind)
	}

	out = m.recalculate(it, out)
	m.mu.Unlock()

	m.publish(out)
	return nil
}

// ClearPriceControl removes a floor or ceiling installed by ApplyImpact and
// recalculates. Other impact kinds are ignored.
func (m *Market) ClearPriceControl(id string, kind ImpactKind, magnitude float64) error {
	var out []bus.Event

	m.mu.Lock()
	it, ok := m.items[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	// Only clear when the control is still the one this impact installed.
	changed := false
	switch {
	case kind == ImpactPriceFloor && it.Floor == magnitude && it.Floor != 0:
		it.Floor = 0
		changed = true
	case kind == ImpactPriceCeiling && it.Ceiling == magnitude && it.Ceiling != 0:
		it.Ceiling = 0
		changed = true
	}
	if changed {
		out = m.recalculate(it, out)
	}
	m.mu.Unlock()

	m.publish(out)
	return nil
}

// recalculate recomputes price and condition for it and appends any signals.
// Caller holds m.mu.
func (m *Market) recalculate(it *Item, out []bus.Event) []bus.Event {
	old := it.CurrentPrice

	ratio := scarcityRatio
	if it.Supply > 0 {
		ratio = it.CurrentDemand / it.Supply
	}
	price := it.BasePrice * math.Pow(ratio, m.cfg.PriceElasticity)

	if m.cfg.EnforcePriceControls {
		if it.Floor > 0 && price < it.Floor {
			price = it.Floor
		}
		if it.Ceiling > 0 && price > it.Ceiling {
			price = it.Ceiling
		}
	}
	it.CurrentPrice = clamp(price, it.BasePrice*minPriceFactor, it.BasePrice*maxPriceFactor)

	if c := Classify(it.PriceRatio(), it.SupplyRatio()); c != it.Condition {
		out = append(out, ConditionChanged{ItemID: it.ID, Previous: it.Condition, New: c})
		it.Condition = c
	}

	if math.Abs(it.CurrentPrice-old) > PriceEpsilon {
		out = append(out, PriceChanged{ItemID: it.ID, OldPrice: old, NewPrice: it.CurrentPrice})
	}
	return out
}

func (m *Market) publish(out []bus.Event) {
	for _, e := range out {
		if cc, ok := e.(ConditionChanged); ok {
			slog.Info("market condition changed", "item", cc.ItemID, "from", cc.Previous, "to", cc.New)
		}
		m.pub.Publish(e)
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
