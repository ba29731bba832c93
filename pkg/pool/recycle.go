package pool

import (
	"strings"

	rerrors "github.com/ajitpratap0/reservoir/pkg/errors"
)

// RecyclePolicy decides which in-use entity, if any, is reclaimed when a
// retrieval finds storage empty. The set of policies is closed: RecycleNone,
// RecycleFIFO and RecycleLIFO are the only implementations, and each one
// carries its own victim rule.
type RecyclePolicy interface {
	// String returns the configuration name of the policy.
	String() string
	// victim returns the index into an in-use sequence of length n (oldest
	// first) of the entity to reclaim, or false when nothing may be reclaimed.
	victim(n int) (int, bool)
}

type noRecycle struct{}

type fifoRecycle struct{}

type lifoRecycle struct{}

var (
	// RecycleNone never reclaims; an empty pool fails with pool_exhausted.
	RecycleNone RecyclePolicy = noRecycle{}
	// RecycleFIFO reclaims the oldest in-use entity.
	RecycleFIFO RecyclePolicy = fifoRecycle{}
	// RecycleLIFO reclaims the most recently issued in-use entity.
	RecycleLIFO RecyclePolicy = lifoRecycle{}
)

func (noRecycle) String() string { return "none" }

func (noRecycle) victim(int) (int, bool) { return 0, false }

func (fifoRecycle) String() string { return "fifo" }

func (fifoRecycle) victim(n int) (int, bool) {
	if n == 0 {
		return 0, false
	}
	return 0, true
}

func (lifoRecycle) String() string { return "lifo" }

func (lifoRecycle) victim(n int) (int, bool) {
	if n == 0 {
		return 0, false
	}
	return n - 1, true
}

// ParseRecyclePolicy maps "none", "fifo" or "lifo" (case-insensitive) to a
// policy. An empty string selects RecycleNone.
func ParseRecyclePolicy(s string) (RecyclePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return RecycleNone, nil
	case "fifo", "first_in_first_out":
		return RecycleFIFO, nil
	case "lifo", "first_in_last_out":
		return RecycleLIFO, nil
	}
	return RecycleNone, rerrors.Newf(rerrors.ErrorTypeConfig, "unknown recycle mode %q", s).
		WithDetail("allowed", []string{"none", "fifo", "lifo"})
}
