package agents

import "math/rand"

// Archetype is a named cluster of shopper behavior.
type Archetype uint8

const (
	ArchBargainHunter  Archetype = iota // High price sensitivity, low budget
	ArchPremiumBuyer                    // Low price sensitivity, high budget
	ArchRegularShopper                  // Average across the board
	ArchImpulseBuyer                    // Low price awareness, buys on emotion
	ArchSmartShopper                    // High price awareness, strategic
	ArchLoyalist                        // Returns if treated well
)

var archetypeNames = [...]string{
	ArchBargainHunter:  "BargainHunter",
	ArchPremiumBuyer:   "PremiumBuyer",
	ArchRegularShopper: "RegularShopper",
	ArchImpulseBuyer:   "ImpulseBuyer",
	ArchSmartShopper:   "SmartShopper",
	ArchLoyalist:       "Loyalist",
}

func (a Archetype) String() string {
	if int(a) < len(archetypeNames) {
		return archetypeNames[a]
	}
	return "Unknown"
}

// MarshalText renders the archetype by name.
func (a Archetype) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// span is a closed parameter range sampled uniformly.
type span struct{ lo, hi float64 }

func (s span) sample(rng *rand.Rand) float64 {
	return s.lo + rng.Float64()*(s.hi-s.lo)
}

// profileTemplate defines the parameter ranges of an archetype.
type profileTemplate struct {
	awareness   span
	sensitivity span
	budget      span
	impulsive   bool
	loyal       bool
}

// archetypeTemplates maps archetype to its parameter ranges.
var archetypeTemplates = map[Archetype]profileTemplate{
	ArchBargainHunter: {
		awareness:   span{0.7, 1.0},
		sensitivity: span{0.7, 1.0},
		budget:      span{10, 30},
	},
	ArchPremiumBuyer: {
		awareness:   span{0.3, 0.6},
		sensitivity: span{0.1, 0.4},
		budget:      span{50, 150},
	},
	ArchRegularShopper: {
		awareness:   span{0.4, 0.7},
		sensitivity: span{0.4, 0.7},
		budget:      span{20, 60},
	},
	ArchImpulseBuyer: {
		awareness:   span{0.2, 0.5},
		sensitivity: span{0.3, 0.6},
		budget:      span{30, 80},
		impulsive:   true,
	},
	ArchSmartShopper: {
		awareness:   span{0.8, 1.0},
		sensitivity: span{0.5, 0.8},
		budget:      span{40, 100},
	},
	ArchLoyalist: {
		awareness:   span{0.4, 0.7},
		sensitivity: span{0.3, 0.6},
		budget:      span{30, 70},
		loyal:       true,
	},
}

// ArchetypeForRoll maps a uniform roll in [0,1) to an archetype.
func ArchetypeForRoll(r float64) Archetype {
	switch {
	case r < 0.15:
		return ArchBargainHunter
	case r < 0.25:
		return ArchPremiumBuyer
	case r < 0.45:
		return ArchRegularShopper
	case r < 0.60:
		return ArchImpulseBuyer
	case r < 0.80:
		return ArchSmartShopper
	default:
		return ArchLoyalist
	}
}

// applyArchetype samples the archetype's parameters onto c.
func applyArchetype(c *Customer, rng *rand.Rand) {
	tmpl, ok := archetypeTemplates[c.Archetype]
	if !ok {
		tmpl = archetypeTemplates[ArchRegularShopper]
	}
	c.PriceAwareness = tmpl.awareness.sample(rng)
	c.PriceSensitivity = tmpl.sensitivity.sample(rng)
	c.DailyBudget = tmpl.budget.sample(rng)
	c.Budget = c.DailyBudget
	c.Impulsive = tmpl.impulsive
	c.Loyal = tmpl.loyal
}
