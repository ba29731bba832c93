// Package compression provides pooled compression codecs.
//
// # Overview
//
// A Codec owns the encoder and decoder state of one algorithm, together with
// the scratch buffers they write into. Building one is expensive (a zstd
// encoder allocates its match tables up front), and a Codec must not be
// shared by concurrent callers. That makes codecs a natural fit for a
// fixed-capacity object pool: CodecPool keeps a set of ready codecs and
// hands one to each caller for the duration of a single call.
//
// # Algorithm Selection
//
// Choose algorithms based on your requirements:
//   - Snappy/S2: Best for speed, moderate compression
//   - LZ4: Extremely fast, decent compression
//   - Zstd: Best compression ratio, good speed
//   - Gzip/Deflate: Wide compatibility, good compression
//
// # Pooled Usage
//
//	cp, err := compression.NewCodecPool(compression.Config{
//	    Algorithm: compression.Zstd,
//	    Level:     compression.Better,
//	}, 8, logger)
//	if err != nil {
//	    return err
//	}
//	defer cp.Close()
//
//	compressed, err := cp.Compress(data)
package compression

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	rerrors "github.com/ajitpratap0/reservoir/pkg/errors"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents raw deflate compression
	Deflate Algorithm = "deflate"
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{Gzip, Snappy, LZ4, Zstd, S2, Deflate}

// ParseAlgorithm maps a configuration name to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Algorithms {
		if a == known {
			return a, nil
		}
	}
	return "", rerrors.Newf(rerrors.ErrorTypeConfig, "unknown compression algorithm %q", s)
}

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// String returns the configuration name of the level.
func (l Level) String() string {
	switch l {
	case Fastest:
		return "fastest"
	case Default:
		return "default"
	case Better:
		return "better"
	case Best:
		return "best"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel maps "fastest", "default", "better" or "best" to a Level.
// An empty string selects Default.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fastest":
		return Fastest, nil
	case "", "default":
		return Default, nil
	case "better":
		return Better, nil
	case "best":
		return Best, nil
	}
	return Default, rerrors.Newf(rerrors.ErrorTypeConfig, "unknown compression level %q", s)
}

// Config selects the algorithm and level of a codec.
type Config struct {
	Algorithm Algorithm
	Level     Level
}

// DefaultConfig returns a zstd codec at the default level.
func DefaultConfig() Config {
	return Config{Algorithm: Zstd, Level: Default}
}

// Codec compresses and decompresses whole buffers. A Codec reuses its
// internal state between calls and is not safe for concurrent use; the
// slices it returns are owned by the caller.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Algorithm() Algorithm
	Level() Level
	// Close releases the encoder and decoder. The codec is unusable afterwards.
	Close() error
}

// NewCodec builds a codec for config.
func NewCodec(config Config) (Codec, error) {
	if config.Level == 0 {
		config.Level = Default
	}
	base := baseCodec{algorithm: config.Algorithm, level: config.Level}

	switch config.Algorithm {
	case Gzip:
		return newGzipCodec(base)
	case Snappy:
		return &snappyCodec{baseCodec: base}, nil
	case LZ4:
		return newLZ4Codec(base)
	case Zstd:
		return newZstdCodec(base)
	case S2:
		return &s2Codec{baseCodec: base}, nil
	case Deflate:
		return newDeflateCodec(base)
	}
	return nil, rerrors.Newf(rerrors.ErrorTypeConfig, "unsupported compression algorithm %q", config.Algorithm)
}

type baseCodec struct {
	algorithm Algorithm
	level     Level
	buf       bytes.Buffer
}

func (b *baseCodec) Algorithm() Algorithm { return b.algorithm }

func (b *baseCodec) Level() Level { return b.level }

// result copies the scratch buffer out so it can be reused.
func (b *baseCodec) result() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// Gzip codec
type gzipCodec struct {
	baseCodec
	w *gzip.Writer
	r *gzip.Reader
}

func newGzipCodec(base baseCodec) (*gzipCodec, error) {
	w, err := gzip.NewWriterLevel(io.Discard, mapGzipLevel(base.level))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	return &gzipCodec{baseCodec: base, w: w}, nil
}

func (c *gzipCodec) Compress(data []byte) ([]byte, error) {
	c.buf.Reset()
	c.w.Reset(&c.buf)
	if _, err := c.w.Write(data); err != nil {
		return nil, err
	}
	if err := c.w.Close(); err != nil {
		return nil, err
	}
	return c.result(), nil
}

func (c *gzipCodec) Decompress(data []byte) ([]byte, error) {
	var err error
	if c.r == nil {
		c.r, err = gzip.NewReader(bytes.NewReader(data))
	} else {
		err = c.r.Reset(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}
	c.buf.Reset()
	if _, err := io.Copy(&c.buf, c.r); err != nil { //nolint:gosec // G110: input is produced by this package
		return nil, err
	}
	return c.result(), nil
}

func (c *gzipCodec) Close() error {
	if c.r != nil {
		return c.r.Close()
	}
	return nil
}

// Snappy codec
type snappyCodec struct {
	baseCodec
	dst []byte
}

func (c *snappyCodec) Compress(data []byte) ([]byte, error) {
	c.dst = snappy.Encode(c.dst[:cap(c.dst)], data)
	return bytes.Clone(c.dst), nil
}

func (c *snappyCodec) Decompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(c.dst[:cap(c.dst)], data)
	if err != nil {
		return nil, err
	}
	c.dst = out
	return bytes.Clone(out), nil
}

func (c *snappyCodec) Close() error {
	c.dst = nil
	return nil
}

// S2 codec (Snappy-compatible but better compression)
type s2Codec struct {
	baseCodec
	dst []byte
}

func (c *s2Codec) Compress(data []byte) ([]byte, error) {
	dst := c.dst[:cap(c.dst)]
	switch c.level {
	case Better:
		c.dst = s2.EncodeBetter(dst, data)
	case Best:
		c.dst = s2.EncodeBest(dst, data)
	default:
		c.dst = s2.Encode(dst, data)
	}
	return bytes.Clone(c.dst), nil
}

func (c *s2Codec) Decompress(data []byte) ([]byte, error) {
	out, err := s2.Decode(c.dst[:cap(c.dst)], data)
	if err != nil {
		return nil, err
	}
	c.dst = out
	return bytes.Clone(out), nil
}

func (c *s2Codec) Close() error {
	c.dst = nil
	return nil
}

// LZ4 codec
type lz4Codec struct {
	baseCodec
	w *lz4.Writer
	r *lz4.Reader
}

func newLZ4Codec(base baseCodec) (*lz4Codec, error) {
	w := lz4.NewWriter(io.Discard)
	// Apply compression level using the v4 API
	if err := w.Apply(lz4.CompressionLevelOption(mapLZ4Level(base.level))); err != nil {
		return nil, fmt.Errorf("failed to configure lz4 writer: %w", err)
	}
	return &lz4Codec{baseCodec: base, w: w, r: lz4.NewReader(nil)}, nil
}

func (c *lz4Codec) Compress(data []byte) ([]byte, error) {
	c.buf.Reset()
	c.w.Reset(&c.buf)
	if _, err := c.w.Write(data); err != nil {
		return nil, err
	}
	if err := c.w.Close(); err != nil {
		return nil, err
	}
	return c.result(), nil
}

func (c *lz4Codec) Decompress(data []byte) ([]byte, error) {
	c.r.Reset(bytes.NewReader(data))
	c.buf.Reset()
	if _, err := io.Copy(&c.buf, c.r); err != nil { //nolint:gosec // G110: input is produced by this package
		return nil, err
	}
	return c.result(), nil
}

func (c *lz4Codec) Close() error {
	return nil
}

// Zstd codec
type zstdCodec struct {
	baseCodec
	enc *zstd.Encoder
	dec *zstd.Decoder
	dst []byte
}

func newZstdCodec(base baseCodec) (*zstdCodec, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(mapZstdLevel(base.level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &zstdCodec{baseCodec: base, enc: enc, dec: dec}, nil
}

func (c *zstdCodec) Compress(data []byte) ([]byte, error) {
	c.dst = c.enc.EncodeAll(data, c.dst[:0])
	return bytes.Clone(c.dst), nil
}

func (c *zstdCodec) Decompress(data []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(data, c.dst[:0])
	if err != nil {
		return nil, err
	}
	c.dst = out
	return bytes.Clone(out), nil
}

func (c *zstdCodec) Close() error {
	c.dec.Close()
	return c.enc.Close()
}

// Deflate codec
type deflateCodec struct {
	baseCodec
	w *flate.Writer
	r io.ReadCloser
}

func newDeflateCodec(base baseCodec) (*deflateCodec, error) {
	w, err := flate.NewWriter(io.Discard, mapDeflateLevel(base.level))
	if err != nil {
		return nil, fmt.Errorf("failed to create deflate writer: %w", err)
	}
	return &deflateCodec{baseCodec: base, w: w, r: flate.NewReader(bytes.NewReader(nil))}, nil
}

func (c *deflateCodec) Compress(data []byte) ([]byte, error) {
	c.buf.Reset()
	c.w.Reset(&c.buf)
	if _, err := c.w.Write(data); err != nil {
		return nil, err
	}
	if err := c.w.Close(); err != nil {
		return nil, err
	}
	return c.result(), nil
}

func (c *deflateCodec) Decompress(data []byte) ([]byte, error) {
	if err := c.r.(flate.Resetter).Reset(bytes.NewReader(data), nil); err != nil {
		return nil, err
	}
	c.buf.Reset()
	if _, err := io.Copy(&c.buf, c.r); err != nil { //nolint:gosec // G110: input is produced by this package
		return nil, err
	}
	return c.result(), nil
}

func (c *deflateCodec) Close() error {
	return c.r.Close()
}

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Better:
		return lz4.Level7
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}
