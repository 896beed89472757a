package engine

import (
	"github.com/shopspring/decimal"

	"github.com/talgya/shopsim/internal/bus"
)

// TopicDailyReport carries the summary of a closed trading day.
const TopicDailyReport bus.Topic = "engine.daily_report"

// DailyReport summarizes one trading day. It fires at the following day start,
// before daily counters reset.
type DailyReport struct {
	Day          int             `json:"day"`
	Money        decimal.Decimal `json:"money"`
	Revenue      decimal.Decimal `json:"revenue"`
	UnitsSold    int             `json:"units_sold"`
	Reputation   float64         `json:"reputation"`
	Level        int             `json:"level"`
	Customers    int             `json:"customers"`
	Satisfied    int             `json:"satisfied"`
	Complaints   int             `json:"complaints"`
	ActiveEvents int             `json:"active_events"`
}

func (DailyReport) Topic() bus.Topic { return TopicDailyReport }

// report builds the summary for day. Caller holds s.mu.
func (s *Simulation) report(day int) DailyReport {
	units, revenue := s.Shop.DailyTotals()
	return DailyReport{
		Day:          day,
		Money:        s.Shop.Money(),
		Revenue:      revenue,
		UnitsSold:    units,
		Reputation:   s.Shop.Reputation(),
		Level:        s.Shop.Level(),
		Customers:    s.stats.Customers,
		Satisfied:    s.stats.Satisfied,
		Complaints:   s.stats.Complaints,
		ActiveEvents: len(s.Events.Active()),
	}
}
