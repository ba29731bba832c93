package compression

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	rerrors "github.com/ajitpratap0/reservoir/pkg/errors"
	"github.com/ajitpratap0/reservoir/pkg/pool"
)

// CodecPool lends codecs of one configuration to concurrent callers.
//
// The pool never reclaims a codec from another caller. When every codec is
// lent out, a transient codec is built for the call and closed afterwards,
// so callers never block and never fail because the pool is busy.
type CodecPool struct {
	config    Config
	codecs    *pool.Synchronized[Codec]
	logger    *zap.Logger
	fallbacks atomic.Int64
}

// NewCodecPool builds size codecs up front.
func NewCodecPool(config Config, size int, logger *zap.Logger) (*CodecPool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := ParseAlgorithm(string(config.Algorithm)); err != nil {
		return nil, err
	}
	if config.Level == 0 {
		config.Level = Default
	}
	name := fmt.Sprintf("codec-%s-%s", config.Algorithm, config.Level)
	logger = logger.With(zap.String("codec", string(config.Algorithm)))

	cp := &CodecPool{config: config, logger: logger}
	codecs, err := pool.NewConcurrent(
		func() (Codec, error) { return NewCodec(config) },
		cp.closeCodec,
		pool.WithName(name),
		pool.WithCapacity(size),
		pool.WithStorage(pool.StorageStack),
		pool.WithRecycle(pool.RecycleNone),
		pool.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if err := codecs.Setup(); err != nil {
		return nil, fmt.Errorf("failed to build codecs: %w", err)
	}
	cp.codecs = codecs
	return cp, nil
}

// Config returns the configuration every codec is built with.
func (cp *CodecPool) Config() Config {
	return cp.config
}

// Pool exposes the underlying object pool for instrumentation.
func (cp *CodecPool) Pool() pool.ObjectPool[Codec] {
	return cp.codecs
}

// Fallbacks returns the number of calls served by a transient codec.
func (cp *CodecPool) Fallbacks() int64 {
	return cp.fallbacks.Load()
}

// Compress compresses data with a pooled codec.
func (cp *CodecPool) Compress(data []byte) ([]byte, error) {
	return cp.with(func(c Codec) ([]byte, error) { return c.Compress(data) })
}

// Decompress decompresses data with a pooled codec.
func (cp *CodecPool) Decompress(data []byte) ([]byte, error) {
	return cp.with(func(c Codec) ([]byte, error) { return c.Decompress(data) })
}

// Close destroys every codec. Codecs still lent out are closed too, so
// Close must only run once callers are done.
func (cp *CodecPool) Close() error {
	return cp.codecs.Teardown()
}

func (cp *CodecPool) with(fn func(Codec) ([]byte, error)) ([]byte, error) {
	c, err := cp.codecs.Retrieve()
	switch {
	case errors.Is(err, rerrors.ErrPoolExhausted):
		return cp.transient(fn)
	case err != nil:
		return nil, err
	}

	out, ferr := fn(c)
	if rerr := cp.codecs.Return(c); rerr != nil {
		cp.logger.Error("failed to return codec", zap.Error(rerr))
	}
	return out, ferr
}

func (cp *CodecPool) transient(fn func(Codec) ([]byte, error)) ([]byte, error) {
	cp.fallbacks.Add(1)
	c, err := NewCodec(cp.config)
	if err != nil {
		return nil, err
	}
	defer cp.closeCodec(c)
	return fn(c)
}

func (cp *CodecPool) closeCodec(c Codec) {
	if err := c.Close(); err != nil {
		cp.logger.Warn("failed to close codec", zap.Error(err))
	}
}
