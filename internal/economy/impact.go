package economy

import "fmt"

// ImpactKind is the effect an event has on one item's market.
type ImpactKind uint8

const (
	ImpactDemandIncrease ImpactKind = iota
	ImpactDemandDecrease
	ImpactSupplyShock
	ImpactSupplySurplus
	ImpactPriceFloor   // Magnitude is an absolute price
	ImpactPriceCeiling // Magnitude is an absolute price
	ImpactCompetitorAction
)

var impactNames = [...]string{
	ImpactDemandIncrease:   "DemandIncrease",
	ImpactDemandDecrease:   "DemandDecrease",
	ImpactSupplyShock:      "SupplyShock",
	ImpactSupplySurplus:    "SupplySurplus",
	ImpactPriceFloor:       "PriceFloor",
	ImpactPriceCeiling:     "PriceCeiling",
	ImpactCompetitorAction: "CompetitorAction",
}

func (k ImpactKind) String() string {
	if int(k) < len(impactNames) {
		return impactNames[k]
	}
	return "Unknown"
}

// MarshalText renders the kind by name.
func (k ImpactKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name, so catalogs can be written in YAML.
func (k *ImpactKind) UnmarshalText(b []byte) error {
	s := string(b)
	for i, name := range impactNames {
		if name == s {
			*k = ImpactKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown impact kind %q", s)
}

// IsPriceControl reports whether the kind installs a floor or ceiling.
func (k ImpactKind) IsPriceControl() bool {
	return k == ImpactPriceFloor || k == ImpactPriceCeiling
}
