// Package reservoir provides fixed-capacity object pools for values that are
// expensive to build and cheap to reuse.
//
// A pool creates every entity up front, lends them out with Retrieve and
// takes them back with Return. When nothing is available the pool either
// fails with pool_exhausted or, under a recycle policy, reclaims the oldest
// or newest entity still in use.
//
// # Quick Start
//
//	import "github.com/ajitpratap0/reservoir/pkg/pool"
//
//	p, err := pool.New(newConn, closeConn,
//	    pool.WithCapacity(8),
//	    pool.WithStorage(pool.StorageQueue),
//	    pool.WithRecycle(pool.RecycleFIFO),
//	)
//	if err != nil {
//	    return err
//	}
//	defer p.Teardown()
//
//	p.OnRecycled(func(c *Conn) { c.Abort() })
//
//	c, err := p.Retrieve()
//	if err != nil {
//	    return err
//	}
//	defer p.Return(c)
//
// # Key Packages
//
//	pkg/pool          - Pool engine, storage kinds, recycle policies, notifications
//	pkg/errors        - Structured errors with types and details
//	pkg/config        - YAML configuration with ${VAR} substitution
//	pkg/logger        - Structured logging on zap
//	pkg/metrics       - Prometheus collectors for any pool
//	pkg/observability - OpenTelemetry tracing and pool event logging
//	pkg/compression   - Pooled compression codecs
//	pkg/json          - JSON encoding through pooled buffers
//	internal/spawner  - Periodic actor spawner driving a pool
//
// # Concurrency
//
// pool.Pool is single-owner. Wrap it with pool.NewSynchronized, or build it
// with pool.NewConcurrent, when goroutines share it. Notification callbacks
// run while the pool is locked and must not call back into it.
//
// # Commands
//
//	reservoir config > reservoir.yaml   # Default configuration
//	reservoir run -c reservoir.yaml     # Spawner with /metrics
//	reservoir stats --ticks 20          # Simulated run as JSON
//	benchmark -algorithm zstd           # Pooled vs unpooled codecs
//	profile -types cpu,mutex            # pprof of pool churn
package reservoir
