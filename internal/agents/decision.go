package agents

import (
	"log/slog"
	"math"

	"github.com/talgya/shopsim/internal/economy"
)

// Quoter is a read-only view of market prices. economy.Snapshot and
// *economy.Market both satisfy it.
type Quoter interface {
	Price(id string) (float64, error)
	Condition(id string) (economy.Condition, error)
}

// Outcome is the result of evaluating one listing.
type Outcome uint8

const (
	OutcomeNotWanted    Outcome = iota // Not on the list and not impulsive
	OutcomeUnaffordable                // Budget below the asking price
	OutcomeTooExpensive                // Price ratio beyond sensitivity
	OutcomeNoInterest                  // Fell through without a reason to buy
	OutcomeBuy
)

var outcomeNames = [...]string{
	OutcomeNotWanted:    "NotWanted",
	OutcomeUnaffordable: "Unaffordable",
	OutcomeTooExpensive: "TooExpensive",
	OutcomeNoInterest:   "NoInterest",
	OutcomeBuy:          "Buy",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "Unknown"
}

// Decision thresholds.
const (
	goodDealRatio      = 0.9
	valueThreshold     = 0.7
	awarenessThreshold = 0.5
	preferenceWeight   = 0.3
	shoppingListBonus  = 0.4
	strongPreference   = 0.5
)

// Decision records how a customer judged one listing.
type Decision struct {
	CustomerID     string  `json:"customer_id"`
	ItemID         string  `json:"item_id"`
	AskingPrice    float64 `json:"asking_price"`
	MarketPrice    float64 `json:"market_price"`
	PriceRatio     float64 `json:"price_ratio"`
	PerceivedValue float64 `json:"perceived_value"`
	GoodDeal       bool    `json:"good_deal"`
	Desperate      bool    `json:"desperate"`
	Outcome        Outcome `json:"outcome"`
	Quantity       int     `json:"quantity"`
	Complaint      bool    `json:"complaint"` // Caller raises a complaint signal
}

// Accepted reports whether the customer wants to buy.
func (d Decision) Accepted() bool {
	return d.Outcome == OutcomeBuy && d.Quantity > 0
}

// EvaluatePurchase decides whether to buy itemID at askingPrice. It reads
// market state only through q and mutates only the customer's own mood and
// state. Items unknown to q are rejected as not wanted.
func (c *Customer) EvaluatePurchase(itemID string, askingPrice float64, q Quoter) Decision {
	d := Decision{CustomerID: c.ID, ItemID: itemID, AskingPrice: askingPrice}
	c.State = StateDeciding

	onList := c.Wants(itemID)
	if !onList && !c.Impulsive {
		d.Outcome = OutcomeNotWanted
		return d
	}

	marketPrice, err := q.Price(itemID)
	if err != nil || marketPrice <= 0 {
		d.Outcome = OutcomeNotWanted
		return d
	}
	cond, _ := q.Condition(itemID)

	d.MarketPrice = marketPrice
	d.PriceRatio = askingPrice / marketPrice
	d.PerceivedValue = c.perceivedValue(itemID, d.PriceRatio, onList)
	d.GoodDeal = d.PriceRatio < goodDealRatio
	d.Desperate = cond == economy.ConditionShortage && onList

	tooExpensive := d.PriceRatio > 1+c.PriceSensitivity

	switch {
	case c.Budget < askingPrice:
		c.react("can't afford that", MoodDisappointed)
		d.Outcome = OutcomeUnaffordable
		return d

	case tooExpensive && !d.Desperate:
		c.react("that's a ripoff", MoodAngry)
		d.Outcome = OutcomeTooExpensive
		d.Complaint = true
		return d

	case d.GoodDeal || d.Desperate || d.PerceivedValue > valueThreshold:
		d.Quantity = c.purchaseQuantity(itemID, askingPrice)
		if d.GoodDeal {
			c.react("what a bargain", MoodHappy)
		} else if d.Desperate {
			c.react("I really need this", MoodStressed)
		}
		if d.Quantity > 0 {
			d.Outcome = OutcomeBuy
			c.State = StateTransacting
		} else {
			d.Outcome = OutcomeNoInterest
		}
		return d
	}

	d.Outcome = OutcomeNoInterest
	return d
}

func (c *Customer) perceivedValue(itemID string, priceRatio float64, onList bool) float64 {
	value := 1.0
	if pref, ok := c.Preferences[itemID]; ok {
		value += pref * preferenceWeight
	}
	if c.PriceAwareness > awarenessThreshold {
		value *= 2 - priceRatio
	}
	if onList {
		value += shoppingListBonus
	}
	value *= c.Mood.Multiplier()
	return math.Max(0, math.Min(1, value))
}

func (c *Customer) purchaseQuantity(itemID string, pricePerUnit float64) int {
	if pricePerUnit <= 0 {
		return 0
	}
	maxAffordable := int(math.Floor(c.Budget / pricePerUnit))

	desired := 1
	if pref, ok := c.Preferences[itemID]; ok && pref > strongPreference {
		desired = 2 + c.rng.Intn(2)
	}
	if c.Impulsive {
		desired *= 2
	}
	return min(maxAffordable, desired)
}

func (c *Customer) react(comment string, mood Mood) {
	c.Mood = mood
	slog.Debug("customer reaction", "customer", c.Name, "comment", comment, "mood", mood)
}
