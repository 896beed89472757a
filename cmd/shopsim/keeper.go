package main

import (
	"errors"
	"log/slog"
	"math"

	"github.com/talgya/shopsim/internal/bus"
	"github.com/talgya/shopsim/internal/clock"
	"github.com/talgya/shopsim/internal/engine"
	"github.com/talgya/shopsim/internal/shop"
)

// keeper is a simple autopilot for headless runs: each morning it tops up
// stock and lists everything at a fixed markup over the market price.
type keeper struct {
	sim       *engine.Simulation
	markup    float64
	restockAt int // Restock when stock falls below this
	target    int // Units to hold after restocking
}

func (k *keeper) attach() func() {
	return k.sim.Subscribe(clock.TopicDayStarted, func(bus.Event) { k.tend() })
}

// tend restocks and reprices every item the market knows.
func (k *keeper) tend() {
	for _, it := range k.sim.MarketItems() {
		have := k.sim.Shop.Quantity(it.ID)
		if have < k.restockAt {
			if _, err := k.sim.BuyWholesale(it.ID, k.target-have); err != nil {
				if !errors.Is(err, shop.ErrInsufficientFunds) && !errors.Is(err, shop.ErrInsufficientCapacity) {
					slog.Warn("restock failed", "item", it.ID, "error", err)
				}
			}
		}

		price, err := k.sim.Price(it.ID)
		if err != nil {
			continue
		}
		price = math.Round(price*k.markup*100) / 100
		if err := k.sim.SetPrice(it.ID, price); err != nil {
			if !errors.Is(err, shop.ErrNotInInventory) && !errors.Is(err, shop.ErrDisplayFull) {
				slog.Warn("listing failed", "item", it.ID, "error", err)
			}
		}
	}
}
