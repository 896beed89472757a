package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/talgya/shopsim/internal/agents"
	"github.com/talgya/shopsim/internal/bus"
	"github.com/talgya/shopsim/internal/clock"
	"github.com/talgya/shopsim/internal/config"
	"github.com/talgya/shopsim/internal/economy"
	"github.com/talgya/shopsim/internal/events"
	"github.com/talgya/shopsim/internal/shop"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Clock.StartHour = 12
	cfg.Customers.TrafficJitter = 0
	cfg.Ledger.DSN = ""
	return cfg
}

func breadOnly(cfg config.Config) config.Config {
	cfg.Items = []economy.ItemSpec{
		{ID: "Bread", Name: "Bread", Category: economy.CategoryFood, BasePrice: 2.5, BaseDemand: 100, Perishable: true, ShelfLife: 3},
	}
	cfg.Catalog = nil
	return cfg
}

func newTestSim(t *testing.T, cfg config.Config) (*Simulation, *bus.Recorder) {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := &bus.Recorder{}
	s.SubscribeAll(rec.Publish)
	return s, rec
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Tick = 0
	if _, err := New(cfg); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("got %v, want ErrInvalidConfig", err)
	}
}

func TestNewRejectsDanglingEventItem(t *testing.T) {
	cfg := breadOnly(testConfig())
	cfg.Catalog = events.DefaultCatalog() // references Coffee, Milk, ...
	if _, err := New(cfg); !errors.Is(err, economy.ErrItemNotFound) {
		t.Errorf("got %v, want ErrItemNotFound", err)
	}
}

func TestCustomerVisitEndsInSale(t *testing.T) {
	s, rec := newTestSim(t, breadOnly(testConfig()))

	if _, err := s.BuyWholesale("Bread", 10); err != nil {
		t.Fatalf("BuyWholesale: %v", err)
	}
	if err := s.SetPrice("Bread", 1.0); err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	rec.Reset()

	// One sim minute per real second: 12:00 to 13:00, traffic about 1.17,
	// so the 30s base interval is well inside the minute of foot traffic.
	s.Step(time.Minute)

	if got := rec.Count(agents.TopicCustomerArrived); got != 1 {
		t.Fatalf("arrivals: got %d, want 1", got)
	}
	if got := rec.Count(agents.TopicSaleCompleted); got != 1 {
		t.Fatalf("sales: got %d, want 1", got)
	}
	if got := rec.Count(agents.TopicCustomerLeft); got != 1 {
		t.Errorf("departures: got %d, want 1", got)
	}
	if got := len(s.Customers()); got != 0 {
		t.Errorf("customers in store: got %d, want 0", got)
	}

	var sale agents.SaleCompleted
	for _, e := range rec.Events() {
		if sc, ok := e.(agents.SaleCompleted); ok {
			sale = sc
		}
	}
	if sale.ItemID != "Bread" || sale.UnitPrice != 1.0 || sale.Quantity < 1 {
		t.Fatalf("sale: got %+v", sale)
	}
	if got, want := s.Shop.Quantity("Bread"), 10-sale.Quantity; got != want {
		t.Errorf("stock: got %d, want %d", got, want)
	}
	want := decimal.NewFromInt(100).Sub(decimal.RequireFromString("16.25")).Add(decimal.NewFromInt(int64(sale.Quantity)))
	if !s.Money().Equal(want) {
		t.Errorf("money: got %s, want %s", s.Money(), want)
	}
	if got := s.Today(); got.Customers != 1 || got.Sales != 1 || got.Satisfied != 1 {
		t.Errorf("today: got %+v", got)
	}
}

func TestDayRolloverReportsAndResets(t *testing.T) {
	cfg := testConfig()
	cfg.Clock.StartHour = 23.5
	cfg.Clock.MinutesPerSecond = 60
	s, rec := newTestSim(t, cfg)

	s.Step(time.Second)

	if s.Day() != 2 || s.Hour() != clock.DayStartHour {
		t.Fatalf("clock: got day %d hour %v, want day 2 hour 6", s.Day(), s.Hour())
	}
	if got := rec.Count(clock.TopicDayStarted); got != 1 {
		t.Errorf("day started: got %d, want 1", got)
	}

	var reports []DailyReport
	for _, e := range rec.Events() {
		if r, ok := e.(DailyReport); ok {
			reports = append(reports, r)
		}
	}
	if len(reports) != 1 {
		t.Fatalf("reports: got %d, want 1", len(reports))
	}
	if reports[0].Day != 1 || reports[0].Reputation != 50 {
		t.Errorf("report: got day %d reputation %v, want day 1 reputation 50", reports[0].Day, reports[0].Reputation)
	}
	if got := s.Reputation(); math.Abs(got-47.5) > 1e-9 {
		t.Errorf("reputation after decay: got %v, want 47.5", got)
	}
}

func TestPauseFreezesEverything(t *testing.T) {
	s, rec := newTestSim(t, testConfig())
	s.Pause()
	s.Step(time.Hour)

	if s.Hour() != 12 {
		t.Errorf("hour while paused: got %v, want 12", s.Hour())
	}
	if n := len(rec.Events()); n != 0 {
		t.Errorf("signals while paused: got %d, want 0", n)
	}
	if st := s.Status(); !st.Paused {
		t.Error("status should report paused")
	}

	s.Resume()
	s.Step(time.Minute)
	if s.Hour() <= 12 {
		t.Errorf("hour after resume: got %v, want > 12", s.Hour())
	}
}

func TestSignalsDeliveredAfterUnlock(t *testing.T) {
	s, _ := newTestSim(t, breadOnly(testConfig()))
	if _, err := s.BuyWholesale("Bread", 5); err != nil {
		t.Fatal(err)
	}

	var seen Status
	s.Subscribe(shop.TopicPriceSet, func(bus.Event) {
		seen = s.Status() // takes the simulation lock
		s.Pause()
	})

	done := make(chan error, 1)
	go func() { done <- s.SetPrice("Bread", 3) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("SetPrice: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler deadlocked against the simulation lock")
	}
	if seen.Day != 1 {
		t.Errorf("status from handler: got day %d, want 1", seen.Day)
	}
	if !s.Clock.Paused() {
		t.Error("command from handler was not applied")
	}
}

func TestClosingTimeSendsCustomersHome(t *testing.T) {
	cfg := breadOnly(testConfig())
	cfg.Clock.StartHour = 21.9
	s, rec := newTestSim(t, cfg)

	calm := agents.NewCustomer("c1", "Calm Shopper", agents.ArchRegularShopper, nil)
	calm.Browse([]string{"Bread"})
	angry := agents.NewCustomer("c2", "Angry Shopper", agents.ArchRegularShopper, nil)
	angry.Mood = agents.MoodAngry
	angry.Browse([]string{"Bread"})
	s.customers = append(s.customers, calm, angry)

	s.Step(10 * time.Second) // 21:54 to 22:04

	if s.Phase() != clock.PhaseNight {
		t.Fatalf("phase: got %v, want Night", s.Phase())
	}
	if got := len(s.Customers()); got != 0 {
		t.Errorf("customers in store: got %d, want 0", got)
	}
	if got := rec.Count(agents.TopicCustomerLeft); got != 2 {
		t.Errorf("departures: got %d, want 2", got)
	}
	if got := s.Reputation(); got != 50-agents.LeavePenalty {
		t.Errorf("reputation: got %v, want %v", got, 50-agents.LeavePenalty)
	}
}

func TestCustomersAreDetached(t *testing.T) {
	s, _ := newTestSim(t, breadOnly(testConfig()))

	c := agents.NewCustomer("c1", "Shopper", agents.ArchRegularShopper, nil)
	c.ShoppingList = []string{"Bread"}
	c.Browse([]string{"Bread"})
	s.customers = append(s.customers, c)

	got := s.Customers()
	if len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("customers: got %+v", got)
	}
	got[0].ShoppingList[0] = "Milk"
	got[0].Budget = 999
	if _, ok := got[0].NextListing(); ok {
		t.Error("copy shares the browse queue")
	}

	if c.ShoppingList[0] != "Bread" || c.Budget == 999 {
		t.Errorf("live customer changed: %+v", *c)
	}
	if got := c.Remaining(); got != 1 {
		t.Errorf("remaining listings: got %d, want 1", got)
	}
}

func TestTriggerEvent(t *testing.T) {
	s, rec := newTestSim(t, testConfig())

	if _, err := s.TriggerEvent("alien_invasion"); !errors.Is(err, events.ErrEventNotFound) {
		t.Errorf("unknown event: got %v, want ErrEventNotFound", err)
	}

	before, _ := s.Price("Coffee")
	inst, err := s.TriggerEvent("heat_wave")
	if err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}
	if !inst.Forced {
		t.Error("manual trigger should be marked forced")
	}
	if got := len(s.ActiveEvents()); got != 1 {
		t.Errorf("active events: got %d, want 1", got)
	}
	if got := rec.Count(events.TopicEventTriggered); got != 1 {
		t.Errorf("triggered signals: got %d, want 1", got)
	}
	after, _ := s.Price("Coffee")
	if after <= before {
		t.Errorf("coffee price: got %v, want above %v", after, before)
	}
}

func TestSetSpeedClamps(t *testing.T) {
	s, _ := newTestSim(t, testConfig())
	if got := s.SetSpeed(10); got != clock.MaxSpeed {
		t.Errorf("SetSpeed(10): got %v, want %v", got, clock.MaxSpeed)
	}
	if got := s.SetSpeed(0); got != clock.MinSpeed {
		t.Errorf("SetSpeed(0): got %v, want %v", got, clock.MinSpeed)
	}
}

func TestSeededRunsMatch(t *testing.T) {
	run := func() (Status, int) {
		cfg := testConfig()
		cfg.Clock.StartHour = 8
		s, rec := newTestSim(t, cfg)
		for _, id := range []string{"Bread", "Coffee", "Apples"} {
			if _, err := s.BuyWholesale(id, 10); err != nil {
				t.Fatal(err)
			}
			p, _ := s.Price(id)
			if err := s.SetPrice(id, p); err != nil {
				t.Fatal(err)
			}
		}
		for i := 0; i < 600; i++ {
			s.Step(5 * time.Second)
		}
		return s.Status(), rec.Count(agents.TopicSaleCompleted)
	}

	a, salesA := run()
	b, salesB := run()
	if !a.Money.Equal(b.Money) || a.Reputation != b.Reputation || salesA != salesB {
		t.Errorf("runs diverged: %+v (%d sales) vs %+v (%d sales)", a, salesA, b, salesB)
	}
	if a.Today.Customers == 0 {
		t.Error("expected some foot traffic over the run")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestSim(t, testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.Run(ctx, 5*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run: got %v, want DeadlineExceeded", err)
	}
	if s.Hour() <= 12 {
		t.Errorf("hour: got %v, want clock to have moved", s.Hour())
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		day  int
		hour float64
		want string
	}{
		{1, 6, "Day 1, 6:00"},
		{3, 14.5, "Day 3, 14:30"},
		{2, 23.99, "Day 2, 23:59"},
	}
	for _, tt := range tests {
		if got := FormatTime(tt.day, tt.hour); got != tt.want {
			t.Errorf("FormatTime(%d, %v): got %q, want %q", tt.day, tt.hour, got, tt.want)
		}
	}
}
