// Package economy provides the market: per-item supply, demand and price
// state, the supply/demand pricing rule, and market condition classification.
package economy

import (
	"errors"
	"fmt"
)

// ErrItemNotFound is returned for ids that were never registered.
var ErrItemNotFound = errors.New("item not found in market")

// ErrInvalidItem is returned when an item spec has non-positive base values.
var ErrInvalidItem = errors.New("invalid item spec")

// Category groups goods for display and content purposes.
type Category string

const (
	CategoryFood       Category = "Food"
	CategoryBeverage   Category = "Beverage"
	CategoryProduce    Category = "Produce"
	CategoryDairy      Category = "Dairy"
	CategoryLuxury     Category = "Luxury"
	CategoryEssentials Category = "Essentials"
	CategorySeasonal   Category = "Seasonal"
	CategoryCrafts     Category = "Crafts"
)

// ItemSpec is the immutable catalog record for a tradeable good.
type ItemSpec struct {
	ID         string   `yaml:"id" json:"id"`
	Name       string   `yaml:"name" json:"name"`
	Category   Category `yaml:"category" json:"category"`
	BasePrice  float64  `yaml:"base_price" json:"base_price"`
	BaseDemand float64  `yaml:"base_demand" json:"base_demand"`
	Perishable bool     `yaml:"perishable" json:"perishable"`
	ShelfLife  int      `yaml:"shelf_life" json:"shelf_life"` // Days before stock spoils
}

// Validate checks the record is usable for pricing.
func (s ItemSpec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidItem)
	}
	if s.BasePrice <= 0 {
		return fmt.Errorf("%w: %s base_price must be positive", ErrInvalidItem, s.ID)
	}
	if s.BaseDemand <= 0 {
		return fmt.Errorf("%w: %s base_demand must be positive", ErrInvalidItem, s.ID)
	}
	if s.Perishable && s.ShelfLife <= 0 {
		return fmt.Errorf("%w: %s is perishable without a shelf_life", ErrInvalidItem, s.ID)
	}
	return nil
}

// DefaultItems is the starter catalog of the corner shop.
func DefaultItems() []ItemSpec {
	return []ItemSpec{
		{ID: "Bread", Name: "Bread", Category: CategoryFood, BasePrice: 2.5, BaseDemand: 100, Perishable: true, ShelfLife: 3},
		{ID: "Milk", Name: "Milk", Category: CategoryDairy, BasePrice: 3.0, BaseDemand: 80, Perishable: true, ShelfLife: 4},
		{ID: "Coffee", Name: "Coffee", Category: CategoryBeverage, BasePrice: 4.5, BaseDemand: 120},
		{ID: "Apples", Name: "Apples", Category: CategoryProduce, BasePrice: 1.5, BaseDemand: 90, Perishable: true, ShelfLife: 7},
		{ID: "Cheese", Name: "Cheese", Category: CategoryDairy, BasePrice: 6.0, BaseDemand: 60, Perishable: true, ShelfLife: 14},
		{ID: "Wine", Name: "Wine", Category: CategoryLuxury, BasePrice: 15.0, BaseDemand: 40},
		{ID: "Flowers", Name: "Flowers", Category: CategorySeasonal, BasePrice: 8.0, BaseDemand: 50, Perishable: true, ShelfLife: 3},
	}
}

// Item is the live market state of one good.
type Item struct {
	ID            string    `json:"id"`
	BasePrice     float64   `json:"base_price"`
	CurrentPrice  float64   `json:"current_price"`
	BaseDemand    float64   `json:"base_demand"`
	CurrentDemand float64   `json:"current_demand"`
	Supply        float64   `json:"supply"`
	Condition     Condition `json:"condition"`

	// Price controls installed by events; zero means none.
	Floor   float64 `json:"floor,omitempty"`
	Ceiling float64 `json:"ceiling,omitempty"`
}

// PriceRatio is current price over base price.
func (it Item) PriceRatio() float64 {
	return it.CurrentPrice / it.BasePrice
}

// SupplyRatio is supply over base demand.
func (it Item) SupplyRatio() float64 {
	return it.Supply / it.BaseDemand
}
