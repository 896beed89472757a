package economy

// Condition is the discrete state of an item's market.
type Condition uint8

const (
	ConditionShortage Condition = iota // High prices, low supply
	ConditionRising                    // Prices trending up
	ConditionStable                    // Balanced
	ConditionFalling                   // Prices trending down
	ConditionSurplus                   // Low prices, high supply
)

var conditionNames = [...]string{
	ConditionShortage: "Shortage",
	ConditionRising:   "Rising",
	ConditionStable:   "Stable",
	ConditionFalling:  "Falling",
	ConditionSurplus:  "Surplus",
}

func (c Condition) String() string {
	if int(c) < len(conditionNames) {
		return conditionNames[c]
	}
	return "Unknown"
}

// MarshalText renders the condition by name.
func (c Condition) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Classification thresholds.
const (
	shortagePriceRatio  = 1.5
	shortageSupplyRatio = 0.3
	surplusPriceRatio   = 0.7
	surplusSupplyRatio  = 2.0
	risingPriceRatio    = 1.2
	fallingPriceRatio   = 0.85
)

// Classify maps (price/basePrice, supply/baseDemand) to a condition.
// Checks run in priority order, so shortage signals win over surplus ones.
func Classify(priceRatio, supplyRatio float64) Condition {
	switch {
	case priceRatio > shortagePriceRatio || supplyRatio < shortageSupplyRatio:
		return ConditionShortage
	case priceRatio < surplusPriceRatio || supplyRatio > surplusSupplyRatio:
		return ConditionSurplus
	case priceRatio > risingPriceRatio:
		return ConditionRising
	case priceRatio < fallingPriceRatio:
		return ConditionFalling
	default:
		return ConditionStable
	}
}
