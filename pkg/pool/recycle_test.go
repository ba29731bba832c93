package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/ajitpratap0/reservoir/pkg/errors"
)

func TestRecycleVictims(t *testing.T) {
	tests := []struct {
		policy RecyclePolicy
		n      int
		want   int
		ok     bool
	}{
		{RecycleNone, 0, 0, false},
		{RecycleNone, 5, 0, false},
		{RecycleFIFO, 0, 0, false},
		{RecycleFIFO, 5, 0, true},
		{RecycleLIFO, 0, 0, false},
		{RecycleLIFO, 1, 0, true},
		{RecycleLIFO, 5, 4, true},
	}

	for _, tt := range tests {
		got, ok := tt.policy.victim(tt.n)
		assert.Equal(t, tt.ok, ok, "%s with %d in use", tt.policy, tt.n)
		if ok {
			assert.Equal(t, tt.want, got, "%s with %d in use", tt.policy, tt.n)
		}
	}
}

func TestParseRecyclePolicy(t *testing.T) {
	cases := map[string]RecyclePolicy{
		"":                  RecycleNone,
		"none":              RecycleNone,
		"FIFO":              RecycleFIFO,
		"first_in_last_out": RecycleLIFO,
		"lifo":              RecycleLIFO,
	}
	for in, want := range cases {
		got, err := ParseRecyclePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, want.String(), got.String())
	}

	_, err := ParseRecyclePolicy("random")
	assert.True(t, rerrors.IsType(err, rerrors.ErrorTypeConfig))
}
