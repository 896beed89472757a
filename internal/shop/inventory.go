package shop

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Lot is a batch of one item bought on the same day at the same unit cost.
type Lot struct {
	Quantity    int             `json:"quantity"`
	AcquiredDay int             `json:"acquired_day"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// Slot is the inventory view of one item.
type Slot struct {
	ItemID        string          `json:"item_id"`
	Quantity      int             `json:"quantity"`
	AcquiredDay   int             `json:"acquired_day"`   // Oldest lot still held
	PurchasePrice decimal.Decimal `json:"purchase_price"` // Weighted average unit cost
	Lots          []Lot           `json:"lots"`
}

// Inventory holds stock and money. It is guarded by the owning Shop.
type Inventory struct {
	money    decimal.Decimal
	capacity int
	used     int
	stock    map[string][]Lot // Oldest lot first
}

// NewInventory creates an empty inventory.
func NewInventory(money decimal.Decimal, capacity int) *Inventory {
	return &Inventory{
		money:    money,
		capacity: capacity,
		stock:    make(map[string][]Lot),
	}
}

// Money returns the cash on hand.
func (inv *Inventory) Money() decimal.Decimal { return inv.money }

// Capacity is the maximum number of units held.
func (inv *Inventory) Capacity() int { return inv.capacity }

// Used is the number of units held.
func (inv *Inventory) Used() int { return inv.used }

// Quantity returns the units held of id.
func (inv *Inventory) Quantity(id string) int {
	n := 0
	for _, l := range inv.stock[id] {
		n += l.Quantity
	}
	return n
}

// Has reports whether at least qty units of id are held.
func (inv *Inventory) Has(id string, qty int) bool {
	return inv.Quantity(id) >= qty
}

// CanAfford reports whether amount can be paid.
func (inv *Inventory) CanAfford(amount decimal.Decimal) bool {
	return inv.money.GreaterThanOrEqual(amount)
}

// Fits reports whether qty more units fit.
func (inv *Inventory) Fits(qty int) bool {
	return inv.used+qty <= inv.capacity
}

func (inv *Inventory) credit(amount decimal.Decimal) {
	inv.money = inv.money.Add(amount)
}

func (inv *Inventory) debit(amount decimal.Decimal) {
	inv.money = inv.money.Sub(amount)
}

// add appends a lot. Same-day purchases at the same cost merge.
func (inv *Inventory) add(id string, qty, day int, unitCost decimal.Decimal) {
	lots := inv.stock[id]
	if n := len(lots); n > 0 && lots[n-1].AcquiredDay == day && lots[n-1].UnitCost.Equal(unitCost) {
		lots[n-1].Quantity += qty
	} else {
		lots = append(lots, Lot{Quantity: qty, AcquiredDay: day, UnitCost: unitCost})
	}
	inv.stock[id] = lots
	inv.used += qty
}

// remove takes qty units, oldest lots first. Callers check Has beforehand.
func (inv *Inventory) remove(id string, qty int) {
	lots := inv.stock[id]
	left := qty
	for left > 0 && len(lots) > 0 {
		take := min(left, lots[0].Quantity)
		lots[0].Quantity -= take
		left -= take
		if lots[0].Quantity == 0 {
			lots = lots[1:]
		}
	}
	inv.used -= qty - left
	if len(lots) == 0 {
		delete(inv.stock, id)
	} else {
		inv.stock[id] = lots
	}
}

// spoil discards lots of id acquired more than shelfLife days before today.
func (inv *Inventory) spoil(id string, today, shelfLife int) (discarded int) {
	lots := inv.stock[id]
	kept := lots[:0]
	for _, l := range lots {
		if today-l.AcquiredDay > shelfLife {
			discarded += l.Quantity
			continue
		}
		kept = append(kept, l)
	}
	inv.used -= discarded
	if len(kept) == 0 {
		delete(inv.stock, id)
	} else {
		inv.stock[id] = kept
	}
	return discarded
}

// itemIDs returns held item ids in sorted order.
func (inv *Inventory) itemIDs() []string {
	ids := make([]string, 0, len(inv.stock))
	for id := range inv.stock {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// slot builds the view of id.
func (inv *Inventory) slot(id string) (Slot, bool) {
	lots := inv.stock[id]
	if len(lots) == 0 {
		return Slot{}, false
	}
	s := Slot{ItemID: id, AcquiredDay: lots[0].AcquiredDay, Lots: append([]Lot(nil), lots...)}
	cost := decimal.Zero
	for _, l := range lots {
		s.Quantity += l.Quantity
		cost = cost.Add(l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	if s.Quantity > 0 {
		s.PurchasePrice = cost.Div(decimal.NewFromInt(int64(s.Quantity)))
	}
	return s, true
}

// Slots returns every held item sorted by id.
func (inv *Inventory) Slots() []Slot {
	ids := inv.itemIDs()
	out := make([]Slot, 0, len(ids))
	for _, id := range ids {
		if s, ok := inv.slot(id); ok {
			out = append(out, s)
		}
	}
	return out
}
