package compression

import (
	"context"
	"sync"

	"go.uber.org/multierr"
)

// CompressChunks compresses each chunk on its own goroutine, at most
// workers at a time, drawing codecs from cp. The result keeps the order of
// chunks. Every failed chunk is reported in the returned error.
func CompressChunks(ctx context.Context, cp *CodecPool, chunks [][]byte, workers int) ([][]byte, error) {
	return parallel(ctx, chunks, workers, cp.Compress)
}

// DecompressChunks is the inverse of CompressChunks.
func DecompressChunks(ctx context.Context, cp *CodecPool, chunks [][]byte, workers int) ([][]byte, error) {
	return parallel(ctx, chunks, workers, cp.Decompress)
}

// Split cuts data into chunks of at most size bytes. The chunks alias data.
func Split(data []byte, size int) [][]byte {
	if size <= 0 || len(data) <= size {
		return [][]byte{data}
	}
	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for len(data) > 0 {
		n := min(size, len(data))
		chunks = append(chunks, data[:n:n])
		data = data[n:]
	}
	return chunks
}

func parallel(ctx context.Context, chunks [][]byte, workers int, fn func([]byte) ([]byte, error)) ([][]byte, error) {
	if workers <= 0 {
		workers = 1
	}
	out := make([][]byte, len(chunks))
	errs := make([]error, len(chunks))
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	var cancelled error
loop:
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break loop
		}
		wg.Add(1)
		go func(i int, chunk []byte) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i], errs[i] = fn(chunk)
		}(i, chunk)
	}
	wg.Wait()

	if err := multierr.Append(cancelled, multierr.Combine(errs...)); err != nil {
		return nil, err
	}
	return out, nil
}
