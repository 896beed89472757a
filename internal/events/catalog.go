// Package events runs random market events: periodic probability checks
// against a catalog, impact application to the market, and expiry.
package events

import (
	"errors"
	"fmt"

	"github.com/talgya/shopsim/internal/economy"
)

// ErrEventNotFound is returned for ids missing from the catalog.
var ErrEventNotFound = errors.New("event not found in catalog")

// ErrInvalidEvent is returned for malformed catalog entries.
var ErrInvalidEvent = errors.New("invalid event definition")

// Impact is one effect of an event on one item.
type Impact struct {
	ItemID      string             `yaml:"item" json:"item"`
	Kind        economy.ImpactKind `yaml:"kind" json:"kind"`
	Magnitude   float64            `yaml:"magnitude" json:"magnitude"` // Fraction for scaling kinds, price for controls
	Explanation string             `yaml:"explanation" json:"explanation,omitempty"`
}

// Definition is an immutable catalog record.
type Definition struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	MinDay      int      `yaml:"min_day" json:"min_day"`
	MaxDay      int      `yaml:"max_day" json:"max_day"`
	Probability float64  `yaml:"probability" json:"probability"` // Chance per check
	Duration    float64  `yaml:"duration" json:"duration"`       // Sim days the event stays active
	Impacts     []Impact `yaml:"impacts" json:"impacts"`
	Headlines   []string `yaml:"headlines" json:"headlines,omitempty"`
}

// InWindow reports whether day falls inside [MinDay, MaxDay].
func (d Definition) InWindow(day int) bool {
	return day >= d.MinDay && day <= d.MaxDay
}

// Validate checks field ranges. Item references are checked against the
// market when the engine is built.
func (d Definition) Validate() error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidEvent)
	case d.MinDay > d.MaxDay:
		return fmt.Errorf("%w: %s min_day %d after max_day %d", ErrInvalidEvent, d.ID, d.MinDay, d.MaxDay)
	case d.Probability < 0 || d.Probability > 1:
		return fmt.Errorf("%w: %s probability %v outside [0,1]", ErrInvalidEvent, d.ID, d.Probability)
	case d.Duration <= 0:
		return fmt.Errorf("%w: %s duration must be positive", ErrInvalidEvent, d.ID)
	}
	return nil
}

// DefaultCatalog returns the stock events.
func DefaultCatalog() []Definition {
	return []Definition{
		{
			ID:          "heat_wave",
			Title:       "Heat Wave Hits City",
			Description: "Temperatures soar! Citizens desperate for cold drinks.",
			MinDay:      1,
			MaxDay:      999,
			Probability: 0.05,
			Duration:    2,
			Impacts: []Impact{
				{ItemID: "Coffee", Kind: economy.ImpactDemandIncrease, Magnitude: 0.8, Explanation: "Hot weather increases demand for iced coffee"},
				{ItemID: "Milk", Kind: economy.ImpactDemandIncrease, Magnitude: 0.5, Explanation: "People buy more milk for cold drinks"},
			},
			Headlines: []string{
				"Mercury climbs past 35 as city swelters",
				"Cafes report record iced coffee orders",
			},
		},
		{
			ID:          "harvest_festival",
			Title:       "Harvest Festival",
			Description: "Local farms bring in bumper crops! Fresh produce floods the market.",
			MinDay:      1,
			MaxDay:      999,
			Probability: 0.04,
			Duration:    3,
			Impacts: []Impact{
				{ItemID: "Apples", Kind: economy.ImpactSupplySurplus, Magnitude: 1.5, Explanation: "An abundant harvest creates a surplus and lowers prices"},
			},
			Headlines: []string{
				"Orchards overflow as festival opens",
			},
		},
		{
			ID:          "artisan_fair",
			Title:       "Artisan Fair This Weekend",
			Description: "Tourists flock to the city for the famous artisan fair!",
			MinDay:      1,
			MaxDay:      999,
			Probability: 0.03,
			Duration:    2,
			Impacts: []Impact{
				{ItemID: "Cheese", Kind: economy.ImpactDemandIncrease, Magnitude: 1.0, Explanation: "Tourists seek local specialties"},
				{ItemID: "Wine", Kind: economy.ImpactDemandIncrease, Magnitude: 1.2, Explanation: "Premium goods sell well during festivals"},
			},
			Headlines: []string{
				"Artisan fair draws visitors from across the region",
			},
		},
		{
			ID:          "supply_disruption",
			Title:       "Supply Chain Issues",
			Description: "Delivery trucks delayed! Wholesale shortages reported.",
			MinDay:      1,
			MaxDay:      999,
			Probability: 0.06,
			Duration:    1,
			Impacts: []Impact{
				{ItemID: "Bread", Kind: economy.ImpactSupplyShock, Magnitude: 0.6, Explanation: "Disruptions cause scarcity and price increases"},
				{ItemID: "Milk", Kind: economy.ImpactSupplyShock, Magnitude: 0.5, Explanation: "Perishables are hit hardest by delivery delays"},
			},
			Headlines: []string{
				"Bakery shelves empty as trucks stall",
				"Wholesalers warn of dairy shortfall",
			},
		},
	}
}
