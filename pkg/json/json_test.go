package json

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/reservoir/pkg/testutil"
)

type item struct {
	ID   int      `json:"id"`
	Name string   `json:"name"`
	Tags []string `json:"tags,omitempty"`
}

func newTestEncoder(t *testing.T, size int) *Encoder {
	t.Helper()
	e, err := NewEncoder(size, testutil.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestMarshalMatchesLibrary(t *testing.T) {
	e := newTestEncoder(t, 2)
	v := item{ID: 7, Name: "<crate>", Tags: []string{"a", "b"}}

	got, err := e.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"id":7,"name":"<crate>","tags":["a","b"]}`, string(got))

	var back item
	require.NoError(t, Unmarshal(got, &back))
	assert.Equal(t, v, back)
}

func TestMarshalIndent(t *testing.T) {
	e := newTestEncoder(t, 1)
	got, err := e.MarshalIndent(item{ID: 1, Name: "x"}, "", "  ")
	require.NoError(t, err)

	want, err := gojson.MarshalIndent(item{ID: 1, Name: "x"}, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestMarshalLines(t *testing.T) {
	e := newTestEncoder(t, 1)
	got, err := e.MarshalLines([]any{item{ID: 1}, item{ID: 2}})
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":1,\"name\":\"\"}\n{\"id\":2,\"name\":\"\"}\n", string(got))
}

func TestResultsOutliveBuffer(t *testing.T) {
	e := newTestEncoder(t, 1)
	first, err := e.Marshal(item{ID: 1, Name: "first"})
	require.NoError(t, err)
	_, err = e.Marshal(item{ID: 2, Name: "second-and-longer"})
	require.NoError(t, err)

	assert.Equal(t, `{"id":1,"name":"first"}`, string(first))
	assert.Equal(t, 1, e.Pool().Count())
	assert.Zero(t, e.Pool().InUse())
}

func TestExhaustedPoolFallsBack(t *testing.T) {
	e := newTestEncoder(t, 1)
	held, err := e.buffers.Retrieve()
	require.NoError(t, err)

	got, err := e.Marshal(item{ID: 3})
	require.NoError(t, err)
	assert.Equal(t, `{"id":3,"name":""}`, string(got))
	assert.EqualValues(t, 1, e.Fallbacks())

	require.NoError(t, e.buffers.Return(held))
}

func TestOversizedBufferIsDropped(t *testing.T) {
	e := newTestEncoder(t, 1)
	_, err := e.Marshal(item{Name: strings.Repeat("x", 2*maxRetainedBuffer)})
	require.NoError(t, err)

	buf, err := e.buffers.Retrieve()
	require.NoError(t, err)
	assert.LessOrEqual(t, buf.Cap(), maxRetainedBuffer)
	require.NoError(t, e.buffers.Return(buf))
}

func TestEncodeErrorReturnsBuffer(t *testing.T) {
	e := newTestEncoder(t, 1)
	_, err := e.Marshal(make(chan int))
	require.Error(t, err)
	assert.Zero(t, e.Pool().InUse())
}

func TestWrite(t *testing.T) {
	e := newTestEncoder(t, 1)
	var out bytes.Buffer
	require.NoError(t, e.Write(&out, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", out.String())
}

func TestConcurrentMarshal(t *testing.T) {
	e := newTestEncoder(t, 2)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				out, err := e.Marshal(item{ID: id})
				assert.NoError(t, err)
				var back item
				assert.NoError(t, Unmarshal(out, &back))
				assert.Equal(t, id, back.ID)
			}
		}(w)
	}
	wg.Wait()
	assert.Zero(t, e.Pool().InUse())
	assert.LessOrEqual(t, e.Pool().Count(), 2)
}

func TestDefaultEncoder(t *testing.T) {
	assert.Same(t, Default(), Default())
	out, err := Marshal([]int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", string(out))
}
