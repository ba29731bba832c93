// Command benchmark compares pooled codecs against building a codec per
// call and reports throughput alongside process resource usage.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ajitpratap0/reservoir/pkg/compression"
	"github.com/ajitpratap0/reservoir/pkg/config"
	"github.com/ajitpratap0/reservoir/pkg/logger"
)

var (
	configFile  = flag.String("config", "", "YAML configuration supplying compression defaults")
	algorithm   = flag.String("algorithm", "", "Codec algorithm (overrides config)")
	level       = flag.String("level", "", "Compression level (overrides config)")
	poolSize    = flag.Int("pool-size", 0, "Codec pool capacity (overrides config)")
	workers     = flag.Int("workers", runtime.NumCPU(), "Concurrent workers")
	ops         = flag.Int("ops", 2000, "Compress calls per mode")
	payloadSize = flag.Int("payload", 64*1024, "Approximate payload size in bytes")
	jsonOut     = flag.Bool("json", false, "Print results as JSON")
)

// result is one benchmark mode's outcome.
type result struct {
	Mode        string        `json:"mode"`
	Algorithm   string        `json:"algorithm"`
	Level       string        `json:"level"`
	Ops         int           `json:"ops"`
	Duration    time.Duration `json:"duration_ns"`
	OpsPerSec   float64       `json:"ops_per_sec"`
	MBPerSec    float64       `json:"mb_per_sec"`
	Ratio       float64       `json:"ratio"`
	Fallbacks   int64         `json:"fallbacks"`
	AllocBytes  uint64        `json:"alloc_bytes"`
	RSSDeltaKB  int64         `json:"rss_delta_kb"`
	CPUSeconds  float64       `json:"cpu_seconds"`
	SystemUsage float64       `json:"system_memory_percent"`
}

type record struct {
	ID        int               `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Score     float64           `json:"score"`
	Active    bool              `json:"active"`
	Tags      []string          `json:"tags"`
	Attrs     map[string]string `json:"attrs"`
	CreatedAt time.Time         `json:"created_at"`
}

func main() {
	flag.Parse()

	log := logger.Get().With(zap.String("component", "benchmark"))

	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	codecConfig, size, err := codecSettings(cfg.Compression)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid compression settings: %v\n", err)
		os.Exit(1)
	}

	payload, err := makePayload(*payloadSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build payload: %v\n", err)
		os.Exit(1)
	}

	monitor, err := newMonitor()
	if err != nil {
		log.Warn("process metrics unavailable", zap.Error(err))
	}

	ctx := context.Background()
	results := make([]result, 0, 2)
	for _, mode := range []string{"pooled", "unpooled"} {
		r, err := run(ctx, mode, codecConfig, size, payload, monitor)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s benchmark failed: %v\n", mode, err)
			os.Exit(1)
		}
		results = append(results, r)
	}

	if *jsonOut {
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode results: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}
	printResults(results)
}

func codecSettings(cc config.CompressionConfig) (compression.Config, int, error) {
	algo, lvl, size := cc.Algorithm, cc.Level, cc.PoolSize
	if *algorithm != "" {
		algo = *algorithm
	}
	if *level != "" {
		lvl = *level
	}
	if *poolSize > 0 {
		size = *poolSize
	}

	a, err := compression.ParseAlgorithm(algo)
	if err != nil {
		return compression.Config{}, 0, err
	}
	l, err := compression.ParseLevel(lvl)
	if err != nil {
		return compression.Config{}, 0, err
	}
	return compression.Config{Algorithm: a, Level: l}, size, nil
}

func makePayload(size int) ([]byte, error) {
	var records []record
	var total int
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; total < size; i++ {
		r := record{
			ID:        i,
			Name:      fmt.Sprintf("user-%d", i),
			Email:     fmt.Sprintf("user-%d@example.com", i),
			Score:     float64(i%100) * 1.5,
			Active:    i%3 == 0,
			Tags:      []string{"alpha", "beta", fmt.Sprintf("shard-%d", i%8)},
			Attrs:     map[string]string{"region": fmt.Sprintf("r%d", i%4), "tier": "standard"},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		records = append(records, r)
		total += 160
	}
	return json.Marshal(records)
}

func run(ctx context.Context, mode string, cfg compression.Config, size int, payload []byte, m *monitor) (result, error) {
	var (
		compress  func([]byte) ([]byte, error)
		fallbacks func() int64
		closer    func() error
	)

	switch mode {
	case "pooled":
		cp, err := compression.NewCodecPool(cfg, size, zap.NewNop())
		if err != nil {
			return result{}, err
		}
		compress, fallbacks, closer = cp.Compress, cp.Fallbacks, cp.Close
	default:
		compress = func(data []byte) ([]byte, error) {
			c, err := compression.NewCodec(cfg)
			if err != nil {
				return nil, err
			}
			defer c.Close()
			return c.Compress(data)
		}
		fallbacks = func() int64 { return 0 }
		closer = func() error { return nil }
	}
	defer closer()

	runtime.GC()
	before := m.sample()
	var msBefore, msAfter runtime.MemStats
	runtime.ReadMemStats(&msBefore)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		firstErr   error
		compressed int
	)
	jobs := make(chan struct{})
	start := time.Now()

	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				out, err := compress(payload)
				mu.Lock()
				if err != nil && firstErr == nil {
					firstErr = err
				}
				compressed = len(out)
				mu.Unlock()
			}
		}()
	}
	for i := 0; i < *ops; i++ {
		if ctx.Err() != nil {
			break
		}
		jobs <- struct{}{}
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)
	runtime.ReadMemStats(&msAfter)
	after := m.sample()

	if firstErr != nil {
		return result{}, firstErr
	}

	r := result{
		Mode:       mode,
		Algorithm:  string(cfg.Algorithm),
		Level:      cfg.Level.String(),
		Ops:        *ops,
		Duration:   elapsed,
		OpsPerSec:  float64(*ops) / elapsed.Seconds(),
		MBPerSec:   float64(*ops*len(payload)) / elapsed.Seconds() / (1 << 20),
		Fallbacks:  fallbacks(),
		AllocBytes: msAfter.TotalAlloc - msBefore.TotalAlloc,
		RSSDeltaKB: (int64(after.rss) - int64(before.rss)) / 1024, //nolint:gosec // rss fits in int64
		CPUSeconds: after.cpu - before.cpu,
	}
	if compressed > 0 {
		r.Ratio = float64(len(payload)) / float64(compressed)
	}
	r.SystemUsage = after.systemPercent
	return r, nil
}

func printResults(results []result) {
	fmt.Println("=== Codec Pool Benchmark ===")
	fmt.Printf("Workers: %d  Ops: %d  Payload: %d bytes\n\n", *workers, *ops, *payloadSize)
	for _, r := range results {
		fmt.Printf("%-9s %s/%s\n", r.Mode, r.Algorithm, r.Level)
		fmt.Printf("  duration:     %v\n", r.Duration)
		fmt.Printf("  throughput:   %.0f ops/s, %.1f MB/s\n", r.OpsPerSec, r.MBPerSec)
		fmt.Printf("  ratio:        %.2fx\n", r.Ratio)
		fmt.Printf("  allocated:    %.1f MB\n", float64(r.AllocBytes)/(1<<20))
		fmt.Printf("  rss delta:    %d KB\n", r.RSSDeltaKB)
		fmt.Printf("  cpu time:     %.2fs\n", r.CPUSeconds)
		if r.Mode == "pooled" {
			fmt.Printf("  fallbacks:    %d\n", r.Fallbacks)
		}
	}
}

// monitor samples this process through gopsutil. A nil monitor yields
// zero samples.
type monitor struct {
	proc *process.Process
}

type sample struct {
	rss           uint64
	cpu           float64
	systemPercent float64
}

func newMonitor() (*monitor, error) {
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pid fits in int32
	if err != nil {
		return nil, err
	}
	return &monitor{proc: proc}, nil
}

func (m *monitor) sample() sample {
	var s sample
	if m == nil {
		return s
	}
	if memInfo, err := m.proc.MemoryInfo(); err == nil {
		s.rss = memInfo.RSS
	}
	if times, err := m.proc.Times(); err == nil {
		s.cpu = times.User + times.System
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.systemPercent = vm.UsedPercent
	}
	return s
}
