package agents

import (
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/shopsim/internal/clock"
)

// SpawnerConfig controls foot traffic.
type SpawnerConfig struct {
	BaseSpawnRate   time.Duration `yaml:"base_spawn_rate"`  // Sim-scaled time between arrivals at traffic 1.0
	MaxSimultaneous int           `yaml:"max_simultaneous"` // Customers in the store at once
	TrafficJitter   float64       `yaml:"traffic_jitter"`   // Noise amplitude on the traffic curve
	Traffic         []Keyframe    `yaml:"traffic"`
}

// DefaultSpawnerConfig returns the stock traffic settings.
func DefaultSpawnerConfig() SpawnerConfig {
	return SpawnerConfig{
		BaseSpawnRate:   30 * time.Second,
		MaxSimultaneous: 5,
		TrafficJitter:   0.15,
		Traffic:         DefaultTrafficCurve(),
	}
}

// reputationBaseline is the reputation at which traffic is unscaled.
const reputationBaseline = 50.0

var firstNames = []string{"Alex", "Jordan", "Taylor", "Morgan", "Casey", "Riley", "Avery", "Quinn", "Sage", "Drew"}
var lastNames = []string{"Smith", "Johnson", "Chen", "Garcia", "Patel", "Kim", "Martinez", "Lee", "Wilson", "Brown"}

// Spawner creates customers according to time of day and reputation.
// Not safe for concurrent use; the simulation drives it under its lock.
type Spawner struct {
	cfg       SpawnerConfig
	curve     TrafficCurve
	noise     trafficNoise
	rng       *rand.Rand
	sinceLast time.Duration
	spawned   int
}

// NewSpawner creates a customer spawner with the given seed.
func NewSpawner(cfg SpawnerConfig, seed int64) *Spawner {
	curve := TrafficCurve(cfg.Traffic)
	if len(curve) == 0 {
		curve = DefaultTrafficCurve()
	}
	return &Spawner{
		cfg:   cfg,
		curve: curve,
		noise: newTrafficNoise(seed+301, cfg.TrafficJitter),
		rng:   rand.New(rand.NewSource(seed + 300)),
	}
}

// Advance accumulates real time scaled by the clock speed.
func (s *Spawner) Advance(dt time.Duration, speed float64) {
	s.sinceLast += time.Duration(float64(dt) * speed)
}

// Traffic returns the foot traffic multiplier for a moment of the day.
func (s *Spawner) Traffic(day int, hour float64) float64 {
	return s.curve.Eval(hour/24) * s.noise.factor(day, hour)
}

// Interval returns the wait between arrivals. It reports false when
// traffic or reputation is zero, or the wait is too long to represent,
// in which case nobody arrives.
func (s *Spawner) Interval(day int, hour, reputation float64) (time.Duration, bool) {
	divisor := s.Traffic(day, hour) * (reputation / reputationBaseline)
	if divisor <= 0 {
		return 0, false
	}
	wait := float64(s.cfg.BaseSpawnRate) / divisor
	if wait >= math.MaxInt64 {
		return 0, false
	}
	return time.Duration(wait), true
}

// ShouldSpawn reports whether a customer arrives now.
func (s *Spawner) ShouldSpawn(now clock.Now, reputation float64, active int) bool {
	if !now.Phase.Open() || active >= s.cfg.MaxSimultaneous {
		return false
	}
	interval, ok := s.Interval(now.Day, now.Hour, reputation)
	if !ok {
		return false
	}
	return s.sinceLast >= interval
}

// Spawn creates a customer whose shopping list draws from items and resets
// the arrival timer. Items should be in a stable order for reproducible runs.
func (s *Spawner) Spawn(items []string, arrivedAt float64) *Customer {
	s.sinceLast = 0
	s.spawned++

	arch := ArchetypeForRoll(s.rng.Float64())

	id, err := uuid.NewRandomFromReader(s.rng)
	if err != nil {
		id = uuid.New()
	}

	c := NewCustomer(id.String(), s.generateName(), arch, rand.New(rand.NewSource(s.rng.Int63())))
	applyArchetype(c, s.rng)
	s.generateShoppingList(c, items)
	c.ArrivedAt = arrivedAt

	slog.Debug("customer spawned", "customer", c.Name, "archetype", arch, "budget", c.Budget, "list", c.ShoppingList)
	return c
}

// Spawned is the number of customers created so far.
func (s *Spawner) Spawned() int {
	return s.spawned
}

func (s *Spawner) generateName() string {
	return firstNames[s.rng.Intn(len(firstNames))] + " " + lastNames[s.rng.Intn(len(lastNames))]
}

// generateShoppingList picks 1-3 distinct items, each with a preference in [0.3,1).
func (s *Spawner) generateShoppingList(c *Customer, items []string) {
	pool := append([]string(nil), items...)
	n := 1 + s.rng.Intn(3)
	for i := 0; i < n && len(pool) > 0; i++ {
		j := s.rng.Intn(len(pool))
		item := pool[j]
		pool = append(pool[:j], pool[j+1:]...)

		c.ShoppingList = append(c.ShoppingList, item)
		c.Preferences[item] = 0.3 + s.rng.Float64()*0.7
	}
}
