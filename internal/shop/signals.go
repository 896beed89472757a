package shop

import "github.com/talgya/shopsim/internal/bus"

// Signal topics.
const (
	TopicReputationChanged bus.Topic = "shop.reputation_changed"
	TopicLevelUp           bus.Topic = "shop.level_up"
	TopicItemSpoiled       bus.Topic = "shop.item_spoiled"
	TopicPriceSet          bus.Topic = "shop.price_set"
)

// ReputationChanged fires on every reputation adjustment.
type ReputationChanged struct {
	Value  float64 `json:"value"`
	Delta  float64 `json:"delta"`
	Reason string  `json:"reason"`
}

func (ReputationChanged) Topic() bus.Topic { return TopicReputationChanged }

// LevelUp fires once per level gained.
type LevelUp struct {
	Level int `json:"level"`
}

func (LevelUp) Topic() bus.Topic { return TopicLevelUp }

// ItemSpoiled fires when perishable stock is discarded at day start.
type ItemSpoiled struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
	Day      int    `json:"day"`
}

func (ItemSpoiled) Topic() bus.Topic { return TopicItemSpoiled }

// PriceSet fires when a listing is priced.
type PriceSet struct {
	ItemID string  `json:"item_id"`
	Price  float64 `json:"price"`
}

func (PriceSet) Topic() bus.Topic { return TopicPriceSet }
