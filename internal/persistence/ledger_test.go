package persistence

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/talgya/shopsim/internal/agents"
	"github.com/talgya/shopsim/internal/clock"
	"github.com/talgya/shopsim/internal/config"
	"github.com/talgya/shopsim/internal/economy"
	"github.com/talgya/shopsim/internal/engine"
	"github.com/talgya/shopsim/internal/events"
	"github.com/talgya/shopsim/internal/shop"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 2; i++ {
		l, err := Open(DriverSQLite, path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		l.Close()
	}
}

func TestRecordSales(t *testing.T) {
	l := openTestLedger(t)

	l.Record(agents.SaleCompleted{CustomerID: "a", CustomerName: "Alex Smith", ItemID: "Bread", Quantity: 2, UnitPrice: 2.5, Total: 5, Day: 1})
	l.Record(agents.SaleCompleted{CustomerID: "b", CustomerName: "Sage Kim", ItemID: "Coffee", Quantity: 1, UnitPrice: 4.5, Total: 4.5, Day: 1})
	l.Record(agents.SaleCompleted{CustomerID: "c", CustomerName: "Drew Lee", ItemID: "Milk", Quantity: 1, UnitPrice: 3, Total: 3, Day: 2})

	sales, err := l.RecentSales(10)
	if err != nil {
		t.Fatalf("RecentSales: %v", err)
	}
	if len(sales) != 3 {
		t.Fatalf("sales: got %d, want 3", len(sales))
	}
	if sales[0].ItemID != "Milk" || sales[2].ItemID != "Bread" {
		t.Errorf("order: got %s..%s, want newest first", sales[0].ItemID, sales[2].ItemID)
	}
	if sales[2].Customer != "Alex Smith" || sales[2].Quantity != 2 {
		t.Errorf("row: got %+v", sales[2])
	}

	rev, err := l.Revenue(1)
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	if rev != 9.5 {
		t.Errorf("day 1 revenue: got %v, want 9.5", rev)
	}
	if rev, _ := l.Revenue(7); rev != 0 {
		t.Errorf("empty day revenue: got %v, want 0", rev)
	}
}

func TestPriceHistoryStampsDay(t *testing.T) {
	l := openTestLedger(t)

	l.Record(economy.PriceChanged{ItemID: "Bread", OldPrice: 2.5, NewPrice: 2.7})
	l.Record(clock.DayStarted{Day: 2})
	l.Record(economy.PriceChanged{ItemID: "Bread", OldPrice: 2.7, NewPrice: 2.6})
	l.Record(economy.PriceChanged{ItemID: "Milk", OldPrice: 3, NewPrice: 3.2})

	hist, err := l.PriceHistory("Bread")
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history: got %d points, want 2", len(hist))
	}
	if hist[0].Day != 0 || hist[1].Day != 2 {
		t.Errorf("days: got %d, %d, want 0, 2", hist[0].Day, hist[1].Day)
	}
	if hist[1].NewPrice != 2.6 {
		t.Errorf("new price: got %v, want 2.6", hist[1].NewPrice)
	}
}

func TestEventsAndIgnoredTopics(t *testing.T) {
	l := openTestLedger(t)

	inst := events.Instance{ID: "i-1", EventID: "heat_wave", Title: "Heat Wave Hits City", Day: 3, ExpiresAt: 5.5, Forced: true}
	l.Record(events.EventTriggered{Instance: inst})
	l.Record(shop.PriceSet{ItemID: "Bread", Price: 3}) // not stored
	l.Record(events.EventExpired{Instance: inst})

	recs, err := l.Events()
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records: got %d, want 2", len(recs))
	}
	if recs[0].Status != "triggered" || recs[1].Status != "expired" {
		t.Errorf("statuses: got %s, %s", recs[0].Status, recs[1].Status)
	}
	if recs[0].Forced != 1 || recs[0].ExpiresAt != 5.5 || recs[0].Day != 3 {
		t.Errorf("record: got %+v", recs[0])
	}
}

func TestSaveReportReplacesDay(t *testing.T) {
	l := openTestLedger(t)

	first := engine.DailyReport{Day: 1, Money: decimal.RequireFromString("83.75"), Revenue: decimal.Zero, Reputation: 50, Level: 1}
	second := first
	second.Money = decimal.RequireFromString("91.25")
	second.Revenue = decimal.RequireFromString("7.5")
	second.UnitsSold = 3
	second.Customers = 4
	second.Complaints = 1

	if err := l.SaveReport(first); err != nil {
		t.Fatal(err)
	}
	l.Record(second)

	reports, err := l.Reports()
	if err != nil {
		t.Fatalf("Reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("reports: got %d, want 1", len(reports))
	}
	r := reports[0]
	if !r.Money.Equal(second.Money) || !r.Revenue.Equal(second.Revenue) {
		t.Errorf("money/revenue: got %s/%s, want 91.25/7.5", r.Money, r.Revenue)
	}
	if r.UnitsSold != 3 || r.Customers != 4 || r.Complaints != 1 {
		t.Errorf("counters: got %+v", r)
	}
}

func TestMeta(t *testing.T) {
	l := openTestLedger(t)
	if err := l.SaveMeta("seed", "42"); err != nil {
		t.Fatal(err)
	}
	if err := l.SaveMeta("seed", "7"); err != nil {
		t.Fatal(err)
	}
	got, err := l.GetMeta("seed")
	if err != nil {
		t.Fatal(err)
	}
	if got != "7" {
		t.Errorf("seed: got %q, want 7", got)
	}
	if _, err := l.GetMeta("missing"); err == nil {
		t.Error("missing key: expected error")
	}
}

func TestAttachRecordsSimulation(t *testing.T) {
	l := openTestLedger(t)

	cfg := config.Default()
	cfg.Ledger.DSN = ""
	sim, err := engine.New(cfg)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	cancel := l.Attach(sim.Bus())
	defer cancel()

	if _, err := sim.TriggerEvent("heat_wave"); err != nil {
		t.Fatal(err)
	}

	recs, err := l.Events()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].EventID != "heat_wave" {
		t.Errorf("events: got %+v", recs)
	}
	hist, err := l.PriceHistory("Coffee")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) == 0 {
		t.Error("expected the heat wave to move the coffee price")
	}
}
