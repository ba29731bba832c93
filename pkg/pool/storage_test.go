package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/ajitpratap0/reservoir/pkg/errors"
)

func drain[T any](t *testing.T, s Storage[T]) []T {
	t.Helper()
	var out []T
	for s.Count() > 0 {
		v, err := s.Retrieve()
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestStackStorageIsLIFO(t *testing.T) {
	s := NewStackStorage[string](2)
	s.Return("A")
	s.Return("B")
	s.Return("C")

	assert.Equal(t, 3, s.Count())
	assert.Equal(t, []string{"C", "B", "A"}, drain[string](t, s))

	_, err := s.Retrieve()
	assert.ErrorIs(t, err, rerrors.ErrEmptyStorage)
}

func TestQueueStorageIsFIFO(t *testing.T) {
	s := NewQueueStorage[string]()
	s.Return("A")
	s.Return("B")
	s.Return("C")

	assert.Equal(t, 3, s.Count())
	assert.Equal(t, []string{"A", "B", "C"}, drain[string](t, s))

	_, err := s.Retrieve()
	assert.ErrorIs(t, err, rerrors.ErrEmptyStorage)
}

func TestQueueStorageInterleaved(t *testing.T) {
	s := NewQueueStorage[int]()
	for i := 1; i <= 20; i++ {
		s.Return(i)
	}
	for i := 1; i <= 15; i++ {
		v, err := s.Retrieve()
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
	// wrap around the ring buffer
	for i := 21; i <= 40; i++ {
		s.Return(i)
	}
	got := drain[int](t, s)
	require.Len(t, got, 25)
	assert.Equal(t, 16, got[0])
	assert.Equal(t, 40, got[24])
}

func TestStorageClear(t *testing.T) {
	for _, kind := range []StorageKind{StorageStack, StorageQueue} {
		t.Run(kind.String(), func(t *testing.T) {
			s, err := NewStorage[int](kind, 4)
			require.NoError(t, err)
			for i := 0; i < 4; i++ {
				s.Return(i)
			}
			s.Clear()
			assert.Equal(t, 0, s.Count())

			s.Return(9)
			v, err := s.Retrieve()
			require.NoError(t, err)
			assert.Equal(t, 9, v)
		})
	}
}

func TestQueueStorageNilInterface(t *testing.T) {
	s := NewQueueStorage[error]()
	s.Return(nil)

	v, err := s.Retrieve()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestParseStorageKind(t *testing.T) {
	cases := map[string]StorageKind{
		"":      StorageStack,
		"stack": StorageStack,
		"LIFO":  StorageStack,
		"queue": StorageQueue,
		" fifo": StorageQueue,
	}
	for in, want := range cases {
		got, err := ParseStorageKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStorageKind("heap")
	assert.True(t, rerrors.IsType(err, rerrors.ErrorTypeConfig))

	_, err = NewStorage[int](StorageKind(7), 1)
	assert.True(t, rerrors.IsType(err, rerrors.ErrorTypeConfig))
	assert.Equal(t, "StorageKind(7)", StorageKind(7).String())
}
