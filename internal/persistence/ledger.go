// Package persistence records simulation signals into a SQL ledger:
// sales, price history, market events and daily reports. SQLite is the
// default store; Postgres is available for shared deployments.
package persistence

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/talgya/shopsim/internal/agents"
	"github.com/talgya/shopsim/internal/bus"
	"github.com/talgya/shopsim/internal/clock"
	"github.com/talgya/shopsim/internal/economy"
	"github.com/talgya/shopsim/internal/engine"
	"github.com/talgya/shopsim/internal/events"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SaleRecord is one row of the sales table.
type SaleRecord struct {
	ID         int64   `db:"id"`
	Day        int     `db:"day"`
	CustomerID string  `db:"customer_id"`
	Customer   string  `db:"customer_name"`
	ItemID     string  `db:"item_id"`
	Quantity   int     `db:"quantity"`
	UnitPrice  float64 `db:"unit_price"`
	Total      float64 `db:"total"`
}

// PricePoint is one row of the price history.
type PricePoint struct {
	Day      int     `db:"day"`
	ItemID   string  `db:"item_id"`
	OldPrice float64 `db:"old_price"`
	NewPrice float64 `db:"new_price"`
}

// EventRecord is a trigger or expiry of a market event.
type EventRecord struct {
	InstanceID string  `db:"instance_id"`
	EventID    string  `db:"event_id"`
	Title      string  `db:"title"`
	Status     string  `db:"status"` // triggered or expired
	Day        int     `db:"day"`
	ExpiresAt  float64 `db:"expires_at"`
	Forced     int     `db:"forced"`
}

// ReportRecord is one closed trading day.
type ReportRecord struct {
	Day        int             `db:"day"`
	Money      decimal.Decimal `db:"money"`
	Revenue    decimal.Decimal `db:"revenue"`
	UnitsSold  int             `db:"units_sold"`
	Reputation float64         `db:"reputation"`
	Level      int             `db:"level"`
	Customers  int             `db:"customers"`
	Complaints int             `db:"complaints"`
}

// Ledger is a signal sink backed by SQL. Safe for concurrent use.
type Ledger struct {
	conn   *sqlx.DB
	driver string

	mu  sync.Mutex
	day int // Last day seen on the bus, stamped onto price rows
}

// Open connects to the ledger store and creates its tables.
func Open(driver, dsn string) (*Ledger, error) {
	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("open ledger: unsupported driver %q", driver)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
	}

	l := &Ledger{conn: conn, driver: driver}
	if err := l.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.conn.Close()
}

func (l *Ledger) migrate() error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if l.driver == DriverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sales (
			id ` + serial + `,
			day INTEGER NOT NULL,
			customer_id TEXT NOT NULL,
			customer_name TEXT NOT NULL,
			item_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			unit_price DOUBLE PRECISION NOT NULL,
			total DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id ` + serial + `,
			day INTEGER NOT NULL,
			item_id TEXT NOT NULL,
			old_price DOUBLE PRECISION NOT NULL,
			new_price DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS market_events (
			id ` + serial + `,
			instance_id TEXT NOT NULL,
			event_id TEXT NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL,
			day INTEGER NOT NULL,
			expires_at DOUBLE PRECISION NOT NULL,
			forced INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS daily_reports (
			day INTEGER PRIMARY KEY,
			money TEXT NOT NULL,
			revenue TEXT NOT NULL,
			units_sold INTEGER NOT NULL,
			reputation DOUBLE PRECISION NOT NULL,
			level INTEGER NOT NULL,
			customers INTEGER NOT NULL,
			complaints INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_day ON sales(day)`,
		`CREATE INDEX IF NOT EXISTS idx_price_item ON price_history(item_id)`,
	}
	for _, s := range stmts {
		if _, err := l.conn.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Attach subscribes the ledger to every topic on b.
func (l *Ledger) Attach(b *bus.Bus) (cancel func()) {
	return b.SubscribeAll(l.Record)
}

// Record writes one signal. Topics the ledger does not store are ignored.
// Write failures are logged so a bad disk never stalls the simulation.
func (l *Ledger) Record(e bus.Event) {
	var err error
	switch ev := e.(type) {
	case clock.DayStarted:
		l.mu.Lock()
		l.day = ev.Day
		l.mu.Unlock()
	case economy.PriceChanged:
		err = l.insertPrice(ev)
	case agents.SaleCompleted:
		err = l.insertSale(ev)
	case events.EventTriggered:
		err = l.insertEvent(ev.Instance, "triggered")
	case events.EventExpired:
		err = l.insertEvent(ev.Instance, "expired")
	case engine.DailyReport:
		err = l.SaveReport(ev)
	}
	if err != nil {
		slog.Error("ledger write failed", "topic", e.Topic(), "error", err)
	}
}

func (l *Ledger) currentDay() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.day
}

func (l *Ledger) insertSale(s agents.SaleCompleted) error {
	_, err := l.conn.Exec(l.conn.Rebind(`INSERT INTO sales
		(day, customer_id, customer_name, item_id, quantity, unit_price, total)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		s.Day, s.CustomerID, s.CustomerName, s.ItemID, s.Quantity, s.UnitPrice, s.Total,
	)
	if err != nil {
		return fmt.Errorf("insert sale %s: %w", s.ItemID, err)
	}
	return nil
}

func (l *Ledger) insertPrice(p economy.PriceChanged) error {
	_, err := l.conn.Exec(l.conn.Rebind(
		"INSERT INTO price_history (day, item_id, old_price, new_price) VALUES (?, ?, ?, ?)"),
		l.currentDay(), p.ItemID, p.OldPrice, p.NewPrice,
	)
	if err != nil {
		return fmt.Errorf("insert price %s: %w", p.ItemID, err)
	}
	return nil
}

func (l *Ledger) insertEvent(in events.Instance, status string) error {
	forced := 0
	if in.Forced {
		forced = 1
	}
	_, err := l.conn.Exec(l.conn.Rebind(`INSERT INTO market_events
		(instance_id, event_id, title, status, day, expires_at, forced)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		in.ID, in.EventID, in.Title, status, in.Day, in.ExpiresAt, forced,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", in.EventID, err)
	}
	return nil
}

// SaveReport stores a daily report, replacing any earlier row for the day.
func (l *Ledger) SaveReport(r engine.DailyReport) error {
	tx, err := l.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(tx.Rebind("DELETE FROM daily_reports WHERE day = ?"), r.Day); err != nil {
		return fmt.Errorf("replace report %d: %w", r.Day, err)
	}
	_, err = tx.Exec(tx.Rebind(`INSERT INTO daily_reports
		(day, money, revenue, units_sold, reputation, level, customers, complaints)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		r.Day, r.Money.String(), r.Revenue.String(), r.UnitsSold, r.Reputation, r.Level, r.Customers, r.Complaints,
	)
	if err != nil {
		return fmt.Errorf("insert report %d: %w", r.Day, err)
	}
	return tx.Commit()
}

// SaveMeta stores a key-value pair.
func (l *Ledger) SaveMeta(key, value string) error {
	_, err := l.conn.Exec(l.conn.Rebind(`INSERT INTO ledger_meta (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`),
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (l *Ledger) GetMeta(key string) (string, error) {
	var value string
	err := l.conn.Get(&value, l.conn.Rebind("SELECT value FROM ledger_meta WHERE key = ?"), key)
	return value, err
}

// RecentSales returns the most recent sales, newest first.
func (l *Ledger) RecentSales(limit int) ([]SaleRecord, error) {
	var out []SaleRecord
	err := l.conn.Select(&out, l.conn.Rebind(`SELECT id, day, customer_id, customer_name,
		item_id, quantity, unit_price, total FROM sales ORDER BY id DESC LIMIT ?`), limit)
	return out, err
}

// PriceHistory returns every recorded change for one item, oldest first.
func (l *Ledger) PriceHistory(itemID string) ([]PricePoint, error) {
	var out []PricePoint
	err := l.conn.Select(&out, l.conn.Rebind(`SELECT day, item_id, old_price, new_price
		FROM price_history WHERE item_id = ? ORDER BY id`), itemID)
	return out, err
}

// Events returns market event records, oldest first.
func (l *Ledger) Events() ([]EventRecord, error) {
	var out []EventRecord
	err := l.conn.Select(&out, `SELECT instance_id, event_id, title, status, day, expires_at, forced
		FROM market_events ORDER BY id`)
	return out, err
}

// Reports returns every daily report ordered by day.
func (l *Ledger) Reports() ([]ReportRecord, error) {
	var out []ReportRecord
	err := l.conn.Select(&out, `SELECT day, money, revenue, units_sold, reputation, level, customers, complaints
		FROM daily_reports ORDER BY day`)
	return out, err
}

// Revenue sums sale totals for one day.
func (l *Ledger) Revenue(day int) (float64, error) {
	var total float64
	err := l.conn.Get(&total, l.conn.Rebind("SELECT COALESCE(SUM(total), 0) FROM sales WHERE day = ?"), day)
	return total, err
}
