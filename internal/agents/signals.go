package agents

import "github.com/talgya/shopsim/internal/bus"

// Signal topics.
const (
	TopicCustomerArrived bus.Topic = "customers.arrived"
	TopicCustomerLeft    bus.Topic = "customers.left"
	TopicSaleCompleted   bus.Topic = "customers.sale_completed"
	TopicComplaintRaised bus.Topic = "customers.complaint_raised"
)

// CustomerArrived fires when a customer enters the store.
type CustomerArrived struct {
	CustomerID string    `json:"customer_id"`
	Name       string    `json:"name"`
	Archetype  Archetype `json:"archetype"`
	Budget     float64   `json:"budget"`
}

func (CustomerArrived) Topic() bus.Topic { return TopicCustomerArrived }

// CustomerLeft fires when a customer ends a visit.
type CustomerLeft struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Satisfied  bool   `json:"satisfied"`
	Purchased  bool   `json:"purchased"`
	Penalized  bool   `json:"penalized"`
}

func (CustomerLeft) Topic() bus.Topic { return TopicCustomerLeft }

// SaleCompleted fires after the shop and the customer have both settled a purchase.
type SaleCompleted struct {
	CustomerID   string  `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	ItemID       string  `json:"item_id"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	Total        float64 `json:"total"`
	Day          int     `json:"day"`
}

func (SaleCompleted) Topic() bus.Topic { return TopicSaleCompleted }

// ComplaintRaised fires when a customer rejects a listing as overpriced.
type ComplaintRaised struct {
	CustomerID   string  `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	ItemID       string  `json:"item_id"`
	AskingPrice  float64 `json:"asking_price"`
	MarketPrice  float64 `json:"market_price"`
}

func (ComplaintRaised) Topic() bus.Topic { return TopicComplaintRaised }
