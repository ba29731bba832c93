// Package metrics exports pool occupancy and lifecycle activity as
// Prometheus metrics.
//
// # Overview
//
// Instrument attaches to any pool.ObjectPool:
//   - lifecycle events are counted through pool subscriptions
//   - available, in-use and capacity gauges are read from the pool at scrape time
//   - the time each entity spends issued is observed in a histogram
//
// # Basic Usage
//
//	reg := metrics.NewRegistry()
//	m, err := metrics.Instrument(reg, "reservoir", actors)
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	http.Handle("/metrics", metrics.Handler(reg))
//
// Gauges call back into the pool while Prometheus scrapes, so a pool that
// is scraped from another goroutine must be a pool.Synchronized.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ajitpratap0/reservoir/pkg/pool"
)

// DefaultNamespace prefixes every metric when Instrument is given none.
const DefaultNamespace = "reservoir"

// PoolMetrics holds the collectors registered for one pool.
type PoolMetrics[T comparable] struct {
	pool pool.ObjectPool[T]
	reg  prometheus.Registerer

	events    *prometheus.CounterVec // Lifecycle notifications by event
	hold      prometheus.Histogram   // Seconds between retrieval and return
	available prometheus.GaugeFunc   // Entities in storage
	inUse     prometheus.GaugeFunc   // Entities issued
	capacity  prometheus.GaugeFunc   // Configured capacity
	exhausted prometheus.CounterFunc // Failed retrievals
	all       []prometheus.Collector // Everything registered, for Close
	subs      []pool.Subscription

	mu     sync.Mutex
	issued map[T]time.Time
	now    func() time.Time
}

// Instrument registers the pool's metrics with reg and subscribes to its
// events. Metrics carry a constant "pool" label, so several pools can share
// one registry as long as their names differ.
func Instrument[T comparable](reg prometheus.Registerer, namespace string, p pool.ObjectPool[T]) (*PoolMetrics[T], error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	labels := prometheus.Labels{"pool": p.Name()}

	m := &PoolMetrics[T]{
		pool:   p,
		reg:    reg,
		issued: make(map[T]time.Time, p.Capacity()),
		now:    time.Now,
	}

	m.events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "pool",
			Name:        "events_total",
			Help:        "Pool lifecycle notifications by event",
			ConstLabels: labels,
		},
		[]string{"event"},
	)
	m.hold = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   "pool",
		Name:        "hold_seconds",
		Help:        "Time an entity spent issued before it was returned or reclaimed",
		ConstLabels: labels,
		Buckets:     prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms .. ~4.4m
	})
	m.available = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "pool",
		Name:        "available",
		Help:        "Entities waiting in storage",
		ConstLabels: labels,
	}, func() float64 { return float64(p.Count()) })
	m.inUse = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "pool",
		Name:        "in_use",
		Help:        "Entities currently issued",
		ConstLabels: labels,
	}, func() float64 { return float64(p.InUse()) })
	m.capacity = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "pool",
		Name:        "capacity",
		Help:        "Configured pool capacity",
		ConstLabels: labels,
	}, func() float64 { return float64(p.Capacity()) })
	m.exhausted = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   "pool",
		Name:        "exhausted_total",
		Help:        "Retrievals that failed because nothing could be issued",
		ConstLabels: labels,
	}, func() float64 { return float64(p.Stats().Exhausted) })

	for _, c := range []prometheus.Collector{m.events, m.hold, m.available, m.inUse, m.capacity, m.exhausted} {
		if err := reg.Register(c); err != nil {
			m.unregister()
			return nil, err
		}
		m.all = append(m.all, c)
	}

	// pre-create every series so they are exported at zero
	for _, e := range pool.Events {
		m.events.WithLabelValues(e.String())
	}

	m.subs = append(m.subs,
		p.OnCreated(func(T) { m.count(pool.EventCreated) }),
		p.OnRetrieved(m.retrieved),
		p.OnReturned(m.returned),
		p.OnDestroyed(m.destroyed),
		p.OnRecycled(m.recycled),
	)
	return m, nil
}

// Close unsubscribes from the pool and unregisters every collector.
func (m *PoolMetrics[T]) Close() {
	for _, s := range m.subs {
		m.pool.Unsubscribe(s)
	}
	m.subs = nil
	m.unregister()
}

func (m *PoolMetrics[T]) unregister() {
	for _, c := range m.all {
		m.reg.Unregister(c)
	}
	m.all = nil
}

func (m *PoolMetrics[T]) count(e pool.Event) {
	m.events.WithLabelValues(e.String()).Inc()
}

func (m *PoolMetrics[T]) retrieved(entity T) {
	m.count(pool.EventRetrieved)
	m.mu.Lock()
	m.issued[entity] = m.now()
	m.mu.Unlock()
}

func (m *PoolMetrics[T]) returned(entity T) {
	m.count(pool.EventReturned)
	m.observe(entity)
}

// recycled closes the previous issue; the Retrieved that follows opens a new one.
func (m *PoolMetrics[T]) recycled(entity T) {
	m.count(pool.EventRecycled)
	m.observe(entity)
}

func (m *PoolMetrics[T]) destroyed(entity T) {
	m.count(pool.EventDestroyed)
	m.mu.Lock()
	delete(m.issued, entity)
	m.mu.Unlock()
}

func (m *PoolMetrics[T]) observe(entity T) {
	m.mu.Lock()
	start, ok := m.issued[entity]
	delete(m.issued, entity)
	now := m.now()
	m.mu.Unlock()
	if ok {
		m.hold.Observe(now.Sub(start).Seconds())
	}
}

// NewRegistry returns a registry with the Go runtime and process collectors
// already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
