package economy

import (
	"fmt"
	"sort"
)

// Snapshot is an immutable copy of market state taken under one read lock.
// Customers decide against a snapshot so parallel evaluation sees the same
// prices.
type Snapshot struct {
	items map[string]Item
}

// Item returns the snapshotted state of id.
func (s Snapshot) Item(id string) (Item, error) {
	it, ok := s.items[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return it, nil
}

// Price returns the snapshotted price of id.
func (s Snapshot) Price(id string) (float64, error) {
	it, err := s.Item(id)
	return it.CurrentPrice, err
}

// Condition returns the snapshotted condition of id.
func (s Snapshot) Condition(id string) (Condition, error) {
	it, err := s.Item(id)
	return it.Condition, err
}

// IDs returns every item id in sorted order.
func (s Snapshot) IDs() []string {
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len is the number of items.
func (s Snapshot) Len() int {
	return len(s.items)
}
