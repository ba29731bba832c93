// Package spawner drives an actor pool the way a game level would: every
// interval it retrieves an actor, places it at a weighted random spawn
// point, and hands it back once its lifetime is over.
package spawner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	wr "github.com/mroth/weightedrand"
	"go.uber.org/zap"

	"github.com/ajitpratap0/reservoir/pkg/config"
	rerrors "github.com/ajitpratap0/reservoir/pkg/errors"
	"github.com/ajitpratap0/reservoir/pkg/logger"
	"github.com/ajitpratap0/reservoir/pkg/observability"
	"github.com/ajitpratap0/reservoir/pkg/pool"
)

// SpawnPoint is one place an actor may appear. Points are chosen with
// probability proportional to Weight; a zero weight disables the point.
type SpawnPoint struct {
	Name     string
	Position Vector
	Weight   uint
}

// Config controls a Spawner.
type Config struct {
	Name     string
	Interval time.Duration
	// Lifetime of an actor before Reap returns it. Zero keeps actors out
	// until Stop.
	Lifetime time.Duration
	Points   []SpawnPoint
	// Seed for spawn point selection. Zero seeds from the clock.
	Seed int64
}

// Stats counts what a Spawner has done.
type Stats struct {
	Spawned   int64 `json:"spawned"`
	Reaped    int64 `json:"reaped"`
	Exhausted int64 `json:"exhausted"`
	Live      int   `json:"live"`
}

// Spawner places pooled actors at spawn points on a fixed interval.
type Spawner struct {
	name     string
	pool     pool.ObjectPool[*Actor]
	interval time.Duration
	lifetime time.Duration
	chooser  *wr.Chooser
	logger   *zap.Logger
	poolName string
	tracer   *observability.PoolTracer
	now      func() time.Time

	mu    sync.Mutex
	rng   *rand.Rand
	live  []*Actor // issued by this spawner, oldest spawn first
	subs  []pool.Subscription
	stats Stats
}

// New creates a spawner for p and subscribes to its notifications so that
// retrieved actors become active and returned ones inactive.
func New(p pool.ObjectPool[*Actor], cfg Config, log *zap.Logger) (*Spawner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "spawner"
	}
	if cfg.Interval <= 0 {
		return nil, rerrors.Newf(rerrors.ErrorTypeConfig, "spawn interval must be positive, got %s", cfg.Interval)
	}

	choices := make([]wr.Choice, 0, len(cfg.Points))
	for _, pt := range cfg.Points {
		choices = append(choices, wr.Choice{Item: pt, Weight: pt.Weight})
	}
	chooser, err := wr.NewChooser(choices...)
	if err != nil {
		return nil, rerrors.Wrap(err, rerrors.ErrorTypeConfig, "invalid spawn points").
			WithDetail("spawner", cfg.Name).
			WithDetail("points", len(cfg.Points))
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Spawner{
		name:     cfg.Name,
		pool:     p,
		interval: cfg.Interval,
		lifetime: cfg.Lifetime,
		chooser:  chooser,
		poolName: p.Name(),
		logger:   log,
		tracer:   observability.NewPoolTracer(p.Name()),
		now:      time.Now,
		rng:      rand.New(rand.NewSource(seed)), //nolint:gosec // spawn placement is not security sensitive
	}
	s.subs = []pool.Subscription{
		p.OnRetrieved(activate),
		p.OnReturned(deactivate),
	}
	return s, nil
}

func activate(a *Actor) { a.Active = true }

func deactivate(a *Actor) { a.Active = false }

// SetClock replaces the time source used to stamp and reap actors.
func (s *Spawner) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// named returns ctx carrying the spawner and pool names for logging.
func (s *Spawner) named(ctx context.Context) context.Context {
	ctx = logger.NewContext(ctx, logger.SpawnerKey, s.name)
	return logger.NewContext(ctx, logger.PoolKey, s.poolName)
}

func (s *Spawner) log(ctx context.Context) *zap.Logger {
	return observability.WithTrace(ctx, logger.FromContext(ctx, s.logger))
}

// Name returns the spawner's label.
func (s *Spawner) Name() string { return s.name }

// Spawn retrieves one actor and places it at a spawn point. A pool that
// reclaims actors may hand back one that is already live; it is moved to
// the new point and its lifetime restarts.
func (s *Spawner) Spawn(ctx context.Context) (*Actor, error) {
	ctx = s.named(ctx)
	var actor *Actor
	err := s.tracer.Trace(ctx, "spawn", func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		a, err := s.pool.Retrieve()
		if err != nil {
			if errors.Is(err, rerrors.ErrPoolExhausted) {
				s.stats.Exhausted++
			}
			return err
		}

		pt := s.chooser.PickSource(s.rng).(SpawnPoint)
		a.Position = pt.Position
		a.Point = pt.Name
		a.SpawnedAt = s.now()
		a.Spawns++

		s.live = slices.DeleteFunc(s.live, func(l *Actor) bool { return l == a })
		s.live = append(s.live, a)
		s.stats.Spawned++
		actor = a

		s.log(ctx).Debug("actor spawned",
			zap.Stringer("actor", a),
			zap.String("point", pt.Name),
			zap.Float64("x", pt.Position.X),
			zap.Float64("y", pt.Position.Y),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return actor, nil
}

// Reap returns every live actor whose lifetime has elapsed and reports how
// many went back to the pool. It does nothing when the lifetime is zero.
//
// Spawn and Reap hold the spawner's lock across their pool calls, so a
// concurrent Spawn cannot reclaim an actor between Reap choosing it and
// handing it back.
func (s *Spawner) Reap(ctx context.Context) (int, error) {
	if s.lifetime <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var due []*Actor
	keep := s.live[:0]
	for _, a := range s.live {
		if now.Sub(a.SpawnedAt) >= s.lifetime {
			due = append(due, a)
		} else {
			keep = append(keep, a)
		}
	}
	clear(s.live[len(keep):])
	s.live = keep

	if len(due) == 0 {
		return 0, nil
	}
	n, err := s.giveBack(ctx, "reap", due)
	s.stats.Reaped += int64(n)
	return n, err
}

// Run spawns and reaps on every tick until ctx is cancelled, then returns
// all live actors to the pool. An exhausted pool skips the tick; any other
// pool error stops the loop.
func (s *Spawner) Run(ctx context.Context) error {
	ctx = s.named(ctx)
	s.log(ctx).Info("spawner started",
		zap.Duration("interval", s.interval),
		zap.Duration("lifetime", s.lifetime),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n, err := s.Stop(context.WithoutCancel(ctx))
			s.log(ctx).Info("spawner stopped", zap.Int("returned", n), zap.Any("stats", s.Stats()))
			return err
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				_, _ = s.Stop(context.WithoutCancel(ctx))
				return err
			}
		}
	}
}

func (s *Spawner) tick(ctx context.Context) error {
	if _, err := s.Reap(ctx); err != nil {
		return fmt.Errorf("reap: %w", err)
	}
	if _, err := s.Spawn(ctx); err != nil {
		if errors.Is(err, rerrors.ErrPoolExhausted) {
			s.log(ctx).Warn("no actor available, skipping spawn")
			return nil
		}
		return fmt.Errorf("spawn: %w", err)
	}
	return nil
}

// Stop returns every live actor to the pool and detaches the spawner from
// the pool's notifications.
func (s *Spawner) Stop(ctx context.Context) (int, error) {
	s.mu.Lock()
	due := s.live
	s.live = nil
	subs := s.subs
	s.subs = nil
	n, err := s.giveBack(ctx, "stop", due)
	s.mu.Unlock()

	for _, sub := range subs {
		s.pool.Unsubscribe(sub)
	}
	return n, err
}

// giveBack returns actors to the pool. Callers hold s.mu.
func (s *Spawner) giveBack(ctx context.Context, op string, actors []*Actor) (int, error) {
	returned := 0
	err := s.tracer.Trace(ctx, op, func(ctx context.Context) error {
		var first error
		for _, a := range actors {
			if err := s.pool.Return(a); err != nil {
				// torn down underneath us; nothing left to hand back
				if errors.Is(err, rerrors.ErrInvalidState) {
					return err
				}
				if first == nil {
					first = err
				}
				continue
			}
			returned++
		}
		return first
	})
	return returned, err
}

// Live returns the actors currently spawned, oldest first.
func (s *Spawner) Live() []*Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.live)
}

// Stats returns the spawner's counters.
func (s *Spawner) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Live = len(s.live)
	return st
}

// ConfigFrom converts the spawner section of a host configuration.
func ConfigFrom(sc config.SpawnerConfig) Config {
	points := make([]SpawnPoint, 0, len(sc.Points))
	for _, p := range sc.Points {
		points = append(points, SpawnPoint{
			Name:     p.Name,
			Position: Vector{X: p.X, Y: p.Y},
			Weight:   p.Weight,
		})
	}
	return Config{
		Name:     sc.Name,
		Interval: sc.Interval,
		Lifetime: sc.Lifetime,
		Points:   points,
		Seed:     sc.Seed,
	}
}
