// Command profile churns a shared pool from many goroutines and writes pprof
// profiles of the run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/reservoir/pkg/pool"
)

// block is the pooled entity: a reusable scratch buffer.
type block struct {
	id   int64
	data []byte
}

func main() {
	var (
		duration     = flag.Duration("duration", 10*time.Second, "Profiling duration")
		outputDir    = flag.String("output", "./profiles", "Output directory for profiles")
		profileTypes = flag.String("types", "cpu,memory", "Profile types (cpu,memory,block,mutex,goroutine,all)")
		workers      = flag.Int("workers", runtime.NumCPU()*2, "Goroutines sharing the pool")
		capacity     = flag.Int("capacity", runtime.NumCPU(), "Pool capacity")
		recycle      = flag.String("recycle", "none", "Recycle policy (none, fifo, lifo)")
		storage      = flag.String("storage", "stack", "Storage kind (stack, queue)")
		blockSize    = flag.Int("block-size", 64*1024, "Bytes per pooled block")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -types cpu,mutex -duration 30s\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -recycle none -capacity 4 -workers 16\n", os.Args[0])
	}
	flag.Parse()

	types := parseProfileTypes(*profileTypes)
	policy, err := pool.ParseRecyclePolicy(*recycle)
	if err != nil {
		log.Fatalf("Invalid recycle policy: %v", err)
	}
	kind, err := pool.ParseStorageKind(*storage)
	if err != nil {
		log.Fatalf("Invalid storage kind: %v", err)
	}

	fmt.Printf("Starting pool profiling...\n")
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Profile types: %s\n", strings.Join(types, ","))
	fmt.Printf("Pool: capacity=%d storage=%s recycle=%s workers=%d\n", *capacity, kind, policy, *workers)

	if err := os.MkdirAll(*outputDir, 0o755); err != nil { //nolint:gosec
		log.Fatalf("Failed to create output directory: %v", err)
	}

	if slices.Contains(types, "block") {
		runtime.SetBlockProfileRate(1)
	}
	if slices.Contains(types, "mutex") {
		runtime.SetMutexProfileFraction(1)
	}

	if slices.Contains(types, "cpu") {
		path := filepath.Join(*outputDir, "cpu.prof")
		f, err := os.Create(path) //nolint:gosec
		if err != nil {
			log.Fatalf("Failed to create CPU profile: %v", err)
		}
		defer f.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Failed to start CPU profile: %v", err)
		}
		fmt.Printf("CPU profiling enabled, writing to: %s\n", path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var nextID atomic.Int64
	size := *blockSize
	p, err := pool.NewConcurrent(
		func() (*block, error) {
			return &block{id: nextID.Add(1), data: make([]byte, size)}, nil
		},
		func(b *block) { b.data = nil },
		pool.WithName("profile"),
		pool.WithCapacity(*capacity),
		pool.WithStorage(kind),
		pool.WithRecycle(policy),
		pool.WithLogger(zap.NewNop()),
	)
	if err != nil {
		log.Fatalf("Failed to create pool: %v", err)
	}

	churn(ctx, p, *workers)

	if slices.Contains(types, "cpu") {
		pprof.StopCPUProfile()
	}

	st := p.Stats()
	if err := p.Teardown(); err != nil {
		log.Printf("Failed to tear down pool: %v", err)
	}
	fmt.Printf("Retrieved: %d  Returned: %d  Recycled: %d  Exhausted: %d  Created: %d\n",
		st.Retrieved, st.Returned, st.Recycled, st.Exhausted, st.Created)

	if slices.Contains(types, "memory") {
		path := filepath.Join(*outputDir, "mem.prof")
		f, err := os.Create(path) //nolint:gosec
		if err != nil {
			log.Fatalf("Failed to create memory profile: %v", err)
		}
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatalf("Failed to write memory profile: %v", err)
		}
		_ = f.Close()
		fmt.Printf("Memory profile written to: %s\n", path)
	}

	for _, profileType := range types {
		switch profileType {
		case "block", "mutex", "goroutine":
			writeProfile(profileType, filepath.Join(*outputDir, profileType+".prof"))
		}
	}

	fmt.Printf("Profiling completed successfully\n")
}

// churn has every worker retrieve a block, scribble over it and hand it
// back until ctx is done. With fifo or lifo recycling a reclaimed block is
// shared by two workers; the slower one's Return fails as untracked.
func churn(ctx context.Context, p pool.ObjectPool[*block], workers int) {
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed byte) {
			defer wg.Done()
			for ctx.Err() == nil {
				b, err := p.Retrieve()
				if err != nil {
					runtime.Gosched()
					continue
				}
				for i := range b.data {
					b.data[i] = seed + byte(i)
				}
				_ = p.Return(b)
			}
		}(byte(w))
	}
	wg.Wait()
}

func writeProfile(profileName, filename string) {
	profile := pprof.Lookup(profileName)
	if profile == nil {
		fmt.Printf("Profile %s not found\n", profileName)
		return
	}

	f, err := os.Create(filename) //nolint:gosec
	if err != nil {
		log.Printf("Failed to create %s profile: %v", profileName, err)
		return
	}
	defer f.Close()

	if err := profile.WriteTo(f, 0); err != nil {
		log.Printf("Failed to write %s profile: %v", profileName, err)
		return
	}

	fmt.Printf("%s profile written to: %s\n", profileName, filename)
}

func parseProfileTypes(typesStr string) []string {
	if typesStr == "all" {
		return []string{"cpu", "memory", "block", "mutex", "goroutine"}
	}

	parts := strings.Split(typesStr, ",")
	types := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "mem":
			part = "memory"
		case "cpu", "memory", "block", "mutex", "goroutine":
		default:
			continue
		}
		if !slices.Contains(types, part) {
			types = append(types, part)
		}
	}
	return types
}
