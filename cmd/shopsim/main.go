// Command shopsim runs the corner shop simulation headless.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/shopsim/internal/bus"
	"github.com/talgya/shopsim/internal/config"
	"github.com/talgya/shopsim/internal/engine"
	"github.com/talgya/shopsim/internal/persistence"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used when empty)")
	envFile := flag.String("env", ".env", "env file with SHOPSIM_* overrides")
	days := flag.Int("days", 0, "stop after this many sim days; 0 runs until interrupted")
	markup := flag.Float64("markup", 1.1, "autopilot list price over market; 0 disables the autopilot")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg = config.FromEnv(cfg, *envFile)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("shopsim starting", "seed", cfg.Seed, "items", len(cfg.Items), "speed", cfg.Clock.Speed)

	// ── Simulation ────────────────────────────────────────────────────
	sim, err := engine.New(cfg)
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}

	// ── Ledger ────────────────────────────────────────────────────────
	if cfg.Ledger.DSN != "" {
		if cfg.Ledger.Driver == persistence.DriverSQLite {
			if dir := filepath.Dir(cfg.Ledger.DSN); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					slog.Warn("failed to create ledger directory", "dir", dir, "error", err)
				}
			}
		}
		ledger, err := persistence.Open(cfg.Ledger.Driver, cfg.Ledger.DSN)
		if err != nil {
			slog.Error("failed to open ledger", "error", err)
			os.Exit(1)
		}
		defer ledger.Close()
		ledger.Attach(sim.Bus())
		if err := ledger.SaveMeta("seed", strconv.FormatInt(cfg.Seed, 10)); err != nil {
			slog.Warn("ledger meta write failed", "error", err)
		}
		slog.Info("ledger opened", "driver", cfg.Ledger.Driver)
	}

	// ── Autopilot ─────────────────────────────────────────────────────
	if *markup > 0 {
		k := &keeper{sim: sim, markup: *markup, restockAt: 5, target: 10}
		k.attach()
		k.tend()
	}

	// ── Start ─────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if *days > 0 {
		last := sim.Day() + *days - 1
		sim.Subscribe(engine.TopicDailyReport, func(e bus.Event) {
			if e.(engine.DailyReport).Day >= last {
				cancel()
			}
		})
	}

	fmt.Printf("\nThe shop is open: %d goods on the market, %s in the till.\n",
		len(sim.MarketItems()), sim.Money().StringFixed(2))
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	sim.Run(ctx, cfg.Tick)

	st := sim.Status()
	fmt.Printf("Closed on the %s day with $%s, reputation %.1f, level %d.\n",
		humanize.Ordinal(st.Day), humanize.CommafWithDigits(st.Money.InexactFloat64(), 2), st.Reputation, st.Level)
}
