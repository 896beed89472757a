// Package agents provides shop customers: their economic profile, the
// purchase decision, and the spawner that brings them through the door.
package agents

import (
	"maps"
	"math/rand"
	"slices"
)

// Mood colors how a customer perceives value.
type Mood uint8

const (
	MoodNeutral Mood = iota
	MoodHappy
	MoodDisappointed
	MoodAngry
	MoodStressed
	MoodExcited
)

var moodNames = [...]string{
	MoodNeutral:      "Neutral",
	MoodHappy:        "Happy",
	MoodDisappointed: "Disappointed",
	MoodAngry:        "Angry",
	MoodStressed:     "Stressed",
	MoodExcited:      "Excited",
}

func (m Mood) String() string {
	if int(m) < len(moodNames) {
		return moodNames[m]
	}
	return "Unknown"
}

// MarshalText renders the mood by name.
func (m Mood) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Multiplier scales perceived value.
func (m Mood) Multiplier() float64 {
	switch m {
	case MoodHappy:
		return 1.2
	case MoodAngry:
		return 0.6
	case MoodStressed:
		return 0.8
	case MoodDisappointed:
		return 0.7
	default:
		return 1.0
	}
}

// Upset reports whether the mood leaves the customer unsatisfied.
func (m Mood) Upset() bool {
	return m == MoodAngry || m == MoodDisappointed
}

// State is where a customer is in a visit.
type State uint8

const (
	StateBrowsing State = iota
	StateDeciding
	StateTransacting
	StateLeaving
)

var stateNames = [...]string{
	StateBrowsing:    "Browsing",
	StateDeciding:    "Deciding",
	StateTransacting: "Transacting",
	StateLeaving:     "Leaving",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LeavePenalty is the reputation lost when an unsatisfied customer leaves
// empty-handed.
const LeavePenalty = 1.0

// Customer is one shopper visiting the store. A customer is driven by one
// goroutine at a time; it is not safe for concurrent use.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Archetype Archetype `json:"archetype"`

	PriceAwareness   float64 `json:"price_awareness"`   // How well they know market prices
	PriceSensitivity float64 `json:"price_sensitivity"` // How much they care about price
	Budget           float64 `json:"budget"`
	DailyBudget      float64 `json:"daily_budget"`

	Preferences  map[string]float64 `json:"preferences"`
	ShoppingList []string           `json:"shopping_list"`

	Mood      Mood  `json:"mood"`
	State     State `json:"state"`
	Impulsive bool  `json:"impulsive"`
	Loyal     bool  `json:"loyal"`

	Purchased bool    `json:"purchased"` // Bought something this visit
	ArrivedAt float64 `json:"arrived_at"`

	rng    *rand.Rand
	browse []string
}

// NewCustomer builds a neutral customer with a full daily budget. The rng
// is owned by the customer from here on.
func NewCustomer(id, name string, arch Archetype, rng *rand.Rand) *Customer {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Customer{
		ID:          id,
		Name:        name,
		Archetype:   arch,
		Preferences: make(map[string]float64),
		Mood:        MoodNeutral,
		State:       StateBrowsing,
		rng:         rng,
	}
}

// Clone returns a detached copy for reporting. The copy has its own rng
// and an empty browse queue, so it can be evaluated without touching c.
func (c *Customer) Clone() Customer {
	out := *c
	out.Preferences = maps.Clone(c.Preferences)
	out.ShoppingList = slices.Clone(c.ShoppingList)
	out.browse = nil
	out.rng = rand.New(rand.NewSource(1))
	return out
}

// Wants reports whether itemID is on the shopping list.
func (c *Customer) Wants(itemID string) bool {
	return slices.Contains(c.ShoppingList, itemID)
}

// Browse sets the listings the customer will consider this visit, in order.
func (c *Customer) Browse(itemIDs []string) {
	c.browse = append(c.browse[:0], itemIDs...)
	c.State = StateBrowsing
}

// NextListing pops the next listing to consider. It returns false once the
// customer has seen everything.
func (c *Customer) NextListing() (string, bool) {
	if len(c.browse) == 0 {
		return "", false
	}
	id := c.browse[0]
	c.browse = c.browse[1:]
	c.State = StateDeciding
	return id, true
}

// Remaining is the number of listings left to browse.
func (c *Customer) Remaining() int {
	return len(c.browse)
}

// CompletePurchase settles a sale the shop accepted.
func (c *Customer) CompletePurchase(itemID string, quantity int, total float64) {
	c.Budget -= total
	if i := slices.Index(c.ShoppingList, itemID); i >= 0 {
		c.ShoppingList = slices.Delete(c.ShoppingList, i, i+1)
	}
	c.Purchased = true
	c.State = StateBrowsing

	// Good experiences build loyalty.
	if c.Mood == MoodHappy {
		c.Loyal = c.rng.Float64() > 0.7
	}
}

// AbandonPurchase returns the customer to browsing after the shop refused
// an accepted decision.
func (c *Customer) AbandonPurchase() {
	c.State = StateBrowsing
}

// Satisfied reports whether the visit went well: something was bought, or
// nothing upset the customer.
func (c *Customer) Satisfied() bool {
	return c.Purchased || !c.Mood.Upset()
}

// Leave ends the visit. It reports whether the shop should take the leave
// penalty.
func (c *Customer) Leave(satisfied bool) bool {
	c.State = StateLeaving
	c.browse = nil
	return !satisfied && !c.Purchased
}
