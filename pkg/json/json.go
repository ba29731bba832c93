// Package json encodes with goccy/go-json through a fixed set of reusable
// buffers lent out by a pool.
package json

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	rerrors "github.com/ajitpratap0/reservoir/pkg/errors"
	"github.com/ajitpratap0/reservoir/pkg/pool"
)

const (
	initialBufferSize = 4096
	// Buffers that grow past this are dropped back to empty on return so
	// one large document does not pin memory for the pool's lifetime.
	maxRetainedBuffer = 1 << 20
)

// Encoder marshals values into pooled buffers. It is safe for concurrent
// use; callers that find every buffer lent out get a fresh one instead.
type Encoder struct {
	buffers   *pool.Synchronized[*bytes.Buffer]
	logger    *zap.Logger
	fallbacks atomic.Int64
}

// NewEncoder creates an encoder backed by size buffers.
func NewEncoder(size int, logger *zap.Logger) (*Encoder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	buffers, err := pool.NewConcurrent(
		func() (*bytes.Buffer, error) {
			return bytes.NewBuffer(make([]byte, 0, initialBufferSize)), nil
		},
		func(b *bytes.Buffer) { *b = bytes.Buffer{} },
		pool.WithName("json-buffers"),
		pool.WithCapacity(size),
		pool.WithRecycle(pool.RecycleNone),
		pool.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &Encoder{buffers: buffers, logger: logger}, nil
}

var (
	defaultOnce    sync.Once
	defaultEncoder *Encoder
)

// Default returns a shared encoder with four buffers.
func Default() *Encoder {
	defaultOnce.Do(func() {
		e, err := NewEncoder(4, nil)
		if err != nil {
			panic(err)
		}
		defaultEncoder = e
	})
	return defaultEncoder
}

// Pool exposes the buffer pool for instrumentation.
func (e *Encoder) Pool() pool.ObjectPool[*bytes.Buffer] {
	return e.buffers
}

// Fallbacks returns how many calls had to allocate their own buffer.
func (e *Encoder) Fallbacks() int64 {
	return e.fallbacks.Load()
}

// Marshal returns the compact encoding of v.
func (e *Encoder) Marshal(v any) ([]byte, error) {
	return e.encode(v, "", "")
}

// MarshalIndent is Marshal with each element on its own indented line.
func (e *Encoder) MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return e.encode(v, prefix, indent)
}

// MarshalLines encodes values as newline-delimited JSON.
func (e *Encoder) MarshalLines(values []any) ([]byte, error) {
	return e.with(func(buf *bytes.Buffer) error {
		enc := gojson.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		for _, v := range values {
			if err := enc.Encode(v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Write encodes v to w followed by a newline.
func (e *Encoder) Write(w io.Writer, v any) error {
	out, err := e.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(out, '\n'))
	return err
}

// Close releases the buffers. The encoder must not be used afterwards.
func (e *Encoder) Close() error {
	return e.buffers.Teardown()
}

func (e *Encoder) encode(v any, prefix, indent string) ([]byte, error) {
	out, err := e.with(func(buf *bytes.Buffer) error {
		enc := gojson.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		if prefix != "" || indent != "" {
			enc.SetIndent(prefix, indent)
		}
		return enc.Encode(v)
	})
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(out, []byte{'\n'}), nil
}

// with runs fn against a reset buffer and returns a copy of what it wrote.
func (e *Encoder) with(fn func(*bytes.Buffer) error) ([]byte, error) {
	buf, err := e.buffers.Retrieve()
	switch {
	case errors.Is(err, rerrors.ErrPoolExhausted):
		e.fallbacks.Add(1)
		buf = new(bytes.Buffer)
	case err != nil:
		return nil, err
	default:
		defer e.release(buf)
	}

	buf.Reset()
	if err := fn(buf); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func (e *Encoder) release(buf *bytes.Buffer) {
	if buf.Cap() > maxRetainedBuffer {
		*buf = bytes.Buffer{}
	}
	if err := e.buffers.Return(buf); err != nil {
		e.logger.Error("failed to return json buffer", zap.Error(err))
	}
}

// Marshal encodes v with the default encoder.
func Marshal(v any) ([]byte, error) {
	return Default().Marshal(v)
}

// MarshalIndent encodes v with the default encoder.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return Default().MarshalIndent(v, prefix, indent)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return gojson.Unmarshal(data, v)
}
