package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ajitpratap0/reservoir/internal/spawner"
	"github.com/ajitpratap0/reservoir/pkg/config"
	"github.com/ajitpratap0/reservoir/pkg/pool"
)

// host is one actor pool and the spawner that drives it.
type host struct {
	pool    *pool.Synchronized[*spawner.Actor]
	factory *spawner.ActorFactory
	spawner *spawner.Spawner
}

func newHost(cfg *config.Config, log *zap.Logger) (*host, error) {
	opts, err := cfg.Pool.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, pool.WithLogger(log))

	factory := &spawner.ActorFactory{}
	p, err := pool.NewConcurrent(factory.Create, factory.Destroy, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	s, err := spawner.New(p, spawner.ConfigFrom(cfg.Spawner), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create spawner: %w", err)
	}
	return &host{pool: p, factory: factory, spawner: s}, nil
}

// report is the JSON document printed by the stats and run commands.
type report struct {
	Pool    pool.Stats       `json:"pool"`
	Spawner spawner.Stats    `json:"spawner"`
	Built   int64            `json:"built"`
	Live    []*spawner.Actor `json:"live,omitempty"`
}

func (h *host) snapshot(withLive bool) report {
	r := report{
		Pool:    h.pool.Stats(),
		Spawner: h.spawner.Stats(),
		Built:   h.factory.Built(),
	}
	if withLive {
		r.Live = h.spawner.Live()
	}
	return r
}
