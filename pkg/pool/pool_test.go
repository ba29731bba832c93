package pool

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/ajitpratap0/reservoir/pkg/errors"
	"github.com/ajitpratap0/reservoir/pkg/testutil"
)

// counter hands out 1, 2, 3, ... and remembers what it destroyed.
type counter struct {
	next      int
	failAt    int
	destroyed []int
}

func (c *counter) create() (int, error) {
	c.next++
	if c.failAt > 0 && c.next == c.failAt {
		return 0, errors.New("factory broke")
	}
	return c.next, nil
}

func (c *counter) destroy(v int) {
	c.destroyed = append(c.destroyed, v)
}

func newTestPool(t *testing.T, opts ...Option) (*Pool[int], *counter) {
	t.Helper()
	c := &counter{}
	opts = append([]Option{WithLogger(testutil.TestLogger(t)), WithName(t.Name())}, opts...)
	p, err := New(c.create, c.destroy, opts...)
	require.NoError(t, err)
	return p, c
}

func record(p *Pool[int]) *testutil.Recorder[int] {
	rec := testutil.NewRecorder[int]()
	p.OnCreated(rec.Hook("created"))
	p.OnRetrieved(rec.Hook("retrieved"))
	p.OnReturned(rec.Hook("returned"))
	p.OnDestroyed(rec.Hook("destroyed"))
	p.OnRecycled(rec.Hook("recycled"))
	return rec
}

func retrieveN(t *testing.T, p *Pool[int], n int) []int {
	t.Helper()
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		v, err := p.Retrieve()
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestNewValidation(t *testing.T) {
	_, err := New[int](nil, nil)
	assert.True(t, rerrors.IsType(err, rerrors.ErrorTypeValidation))

	_, err = New(func() (int, error) { return 1, nil }, nil, WithCapacity(0))
	assert.True(t, rerrors.IsType(err, rerrors.ErrorTypeValidation))

	_, err = New(func() (int, error) { return 1, nil }, nil, WithStorage(StorageKind(9)))
	assert.True(t, rerrors.IsType(err, rerrors.ErrorTypeConfig))
}

func TestDefaults(t *testing.T) {
	c := &counter{}
	p, err := New(c.create, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultCapacity, p.Capacity())
	assert.Equal(t, StorageStack, p.StorageKind())
	assert.Equal(t, RecycleNone, p.RecyclePolicy())
	assert.Equal(t, "pool", p.Name())
	assert.Equal(t, StateUninitialized, p.State())
	assert.Equal(t, 0, p.Count())

	// nil destroy is a no-op
	require.NoError(t, p.Setup())
	require.NoError(t, p.Teardown())
}

func TestSetupFillsToCapacity(t *testing.T) {
	p, c := newTestPool(t, WithCapacity(5))
	rec := record(p)

	require.NoError(t, p.Setup())
	assert.Equal(t, StateInitialized, p.State())
	assert.Equal(t, 5, p.Count())
	assert.Equal(t, 0, p.InUse())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, rec.Entities("created"))

	// second setup changes nothing
	require.NoError(t, p.Setup())
	assert.Equal(t, 5, c.next)
	assert.Equal(t, 5, rec.Count("created"))
}

func TestRetrieveRunsSetupLazily(t *testing.T) {
	p, c := newTestPool(t, WithCapacity(3))
	rec := record(p)

	v, err := p.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, StateInitialized, p.State())
	assert.Equal(t, 3, c.next)
	assert.Equal(t, 3, v) // stack: last created is on top
	assert.Equal(t, []string{"created:1", "created:2", "created:3", "retrieved:3"}, rec.Strings())
}

func TestCountPlusInUseIsCapacity(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(4))
	require.NoError(t, p.Setup())

	got := retrieveN(t, p, 3)
	assert.Equal(t, 1, p.Count())
	assert.Equal(t, 3, p.InUse())

	require.NoError(t, p.Return(got[1]))
	assert.Equal(t, 2, p.Count())
	assert.Equal(t, 2, p.InUse())
	assert.Equal(t, []int{got[0], got[2]}, p.InUseEntities())
}

func TestStackStorageOrder(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(3), WithStorage(StorageStack))
	abc := retrieveN(t, p, 3)
	for _, v := range abc {
		require.NoError(t, p.Return(v))
	}

	assert.Equal(t, []int{abc[2], abc[1], abc[0]}, retrieveN(t, p, 3))
}

func TestQueueStorageOrder(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(3), WithStorage(StorageQueue))
	abc := retrieveN(t, p, 3)
	assert.Equal(t, []int{1, 2, 3}, abc)
	for _, v := range abc {
		require.NoError(t, p.Return(v))
	}

	assert.Equal(t, abc, retrieveN(t, p, 3))
}

func TestExhaustedWithoutRecycle(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(2))
	retrieveN(t, p, 2)

	_, err := p.Retrieve()
	require.Error(t, err)
	assert.ErrorIs(t, err, rerrors.ErrPoolExhausted)
	assert.Equal(t, 2, p.InUse())
	assert.Equal(t, int64(1), p.Stats().Exhausted)
}

func TestFIFORecycleSingleEntity(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(1), WithRecycle(RecycleFIFO))
	rec := record(p)

	x, err := p.Retrieve()
	require.NoError(t, err)
	again, err := p.Retrieve()
	require.NoError(t, err)

	assert.Equal(t, x, again)
	assert.Equal(t, 1, rec.Count("created"))
	assert.Equal(t, 1, p.InUse())
	assert.Equal(t, 0, p.Count())
	assert.Equal(t, []string{"created:1", "retrieved:1", "recycled:1", "retrieved:1"}, rec.Strings())
}

func TestFIFORecycleReclaimsOldest(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(2), WithRecycle(RecycleFIFO))
	first := retrieveN(t, p, 2)

	v, err := p.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, first[0], v)

	// the reclaimed entity is now the newest, so the next victim is the other one
	v, err = p.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, first[1], v)
	assert.Equal(t, []int{first[0], first[1]}, p.InUseEntities())
	assert.Equal(t, int64(2), p.Stats().Recycled)
}

func TestLIFORecycleReclaimsNewest(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(2), WithRecycle(RecycleLIFO))
	first := retrieveN(t, p, 2)

	for i := 0; i < 3; i++ {
		v, err := p.Retrieve()
		require.NoError(t, err)
		assert.Equal(t, first[1], v)
	}
	assert.Equal(t, 2, p.InUse())
}

func TestRecycledEntityCanBeReturnedOnce(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(1), WithRecycle(RecycleFIFO))
	x := retrieveN(t, p, 2)[1]

	require.NoError(t, p.Return(x))
	assert.ErrorIs(t, p.Return(x), rerrors.ErrUntrackedReturn)
	assert.Equal(t, 1, p.Count())
}

func TestReturnRejectsUntrackedEntities(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(2))
	rec := record(p)
	v, err := p.Retrieve()
	require.NoError(t, err)
	require.NoError(t, p.Return(v))

	err = p.Return(v)
	assert.ErrorIs(t, err, rerrors.ErrUntrackedReturn)
	assert.Contains(t, err.Error(), "already available")

	err = p.Return(999)
	assert.ErrorIs(t, err, rerrors.ErrUntrackedReturn)
	assert.Contains(t, err.Error(), "not issued")

	assert.Equal(t, 2, p.Count())
	assert.Equal(t, 1, rec.Count("returned"))
}

func TestTeardownDestroysEverything(t *testing.T) {
	p, c := newTestPool(t, WithCapacity(4))
	rec := record(p)
	held := retrieveN(t, p, 2)

	require.NoError(t, p.Teardown())
	assert.Equal(t, StateTornDown, p.State())
	assert.Equal(t, 0, p.Count())
	assert.Equal(t, 0, p.InUse())

	destroyed := append([]int(nil), c.destroyed...)
	sort.Ints(destroyed)
	assert.Equal(t, []int{1, 2, 3, 4}, destroyed)
	assert.Equal(t, c.destroyed, rec.Entities("destroyed"))

	// in-use entities go last, oldest first
	assert.Equal(t, held, c.destroyed[2:])

	stats := p.Stats()
	assert.Equal(t, int64(0), stats.Live())
}

func TestTornDownIsTerminal(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(1))
	v, err := p.Retrieve()
	require.NoError(t, err)
	require.NoError(t, p.Teardown())

	_, err = p.Retrieve()
	assert.ErrorIs(t, err, rerrors.ErrInvalidState)
	assert.ErrorIs(t, p.Return(v), rerrors.ErrInvalidState)
	assert.ErrorIs(t, p.Setup(), rerrors.ErrInvalidState)
	assert.ErrorIs(t, p.Teardown(), rerrors.ErrInvalidState)
}

func TestOperationsBeforeSetup(t *testing.T) {
	p, c := newTestPool(t, WithCapacity(2))

	assert.ErrorIs(t, p.Teardown(), rerrors.ErrInvalidState)
	assert.ErrorIs(t, p.Return(1), rerrors.ErrInvalidState)
	assert.Equal(t, 0, c.next)
	assert.Equal(t, StateUninitialized, p.State())
}

func TestSetupFactoryFailureIsAtomic(t *testing.T) {
	c := &counter{failAt: 3}
	p, err := New(c.create, c.destroy, WithCapacity(4), WithLogger(testutil.TestLogger(t)))
	require.NoError(t, err)
	rec := record(p)

	err = p.Setup()
	require.Error(t, err)
	assert.True(t, rerrors.IsType(err, rerrors.ErrorTypeFactory))
	assert.Contains(t, err.Error(), "factory broke")
	assert.Equal(t, StateUninitialized, p.State())
	assert.Equal(t, 0, p.Count())
	assert.Equal(t, []int{1, 2}, c.destroyed)
	assert.Empty(t, rec.Entries())

	// the factory recovers; a later retrieval sets up from scratch
	v, err := p.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 3, p.Count())
}

func TestSetupRejectsDuplicateEntities(t *testing.T) {
	var destroyed int
	p, err := New(
		func() (string, error) { return "same", nil },
		func(string) { destroyed++ },
		WithCapacity(2),
	)
	require.NoError(t, err)

	err = p.Setup()
	assert.True(t, rerrors.IsType(err, rerrors.ErrorTypeValidation))
	assert.Equal(t, 1, destroyed)
	assert.Equal(t, StateUninitialized, p.State())
}

func TestSetupRejectsUncomparableEntities(t *testing.T) {
	var destroyed []any
	calls := 0
	p, err := New(
		func() (any, error) {
			calls++
			if calls == 1 {
				return "ok", nil
			}
			return []byte("x"), nil
		},
		func(v any) { destroyed = append(destroyed, v) },
		WithCapacity(2),
		WithLogger(testutil.TestLogger(t)),
	)
	require.NoError(t, err)

	assert.NotPanics(t, func() { err = p.Setup() })
	require.Error(t, err)
	assert.True(t, rerrors.IsType(err, rerrors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "[]uint8")
	assert.Equal(t, StateUninitialized, p.State())
	assert.Equal(t, 0, p.Count())
	assert.ElementsMatch(t, []any{"ok", []byte("x")}, destroyed)
}

func TestReturnRejectsUncomparableEntity(t *testing.T) {
	p, err := New(
		func() (any, error) { return new(int), nil },
		nil,
		WithCapacity(1),
		WithLogger(testutil.TestLogger(t)),
	)
	require.NoError(t, err)
	_, err = p.Retrieve()
	require.NoError(t, err)

	assert.NotPanics(t, func() { err = p.Return([]int{1}) })
	require.ErrorIs(t, err, rerrors.ErrUntrackedReturn)
	assert.Equal(t, 1, p.InUse())
}

func TestSetupPanicDestroysPartialBatch(t *testing.T) {
	c := &counter{}
	create := func() (int, error) {
		v, _ := c.create()
		if v == 3 {
			panic("factory exploded")
		}
		return v, nil
	}
	p, err := New(create, c.destroy, WithCapacity(4), WithLogger(testutil.TestLogger(t)))
	require.NoError(t, err)

	assert.PanicsWithValue(t, "factory exploded", func() { _ = p.Setup() })
	assert.Equal(t, []int{1, 2}, c.destroyed)
	assert.Equal(t, StateUninitialized, p.State())
	assert.Equal(t, 0, p.Count())
}

func TestCallbacksObserveCommittedState(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(3))

	var seen [][2]int
	p.OnRetrieved(func(int) { seen = append(seen, [2]int{p.Count(), p.InUse()}) })
	p.OnReturned(func(int) { seen = append(seen, [2]int{p.Count(), p.InUse()}) })

	v, err := p.Retrieve()
	require.NoError(t, err)
	require.NoError(t, p.Return(v))

	assert.Equal(t, [][2]int{{2, 1}, {3, 0}}, seen)
}

func TestCallbacksRunInRegistrationOrder(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(1))

	var order []string
	p.OnRetrieved(func(int) { order = append(order, "first") })
	p.OnRetrieved(func(int) { order = append(order, "second") })
	p.OnRetrieved(func(int) { order = append(order, "third") })

	_, err := p.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestUnsubscribe(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(2))

	calls := 0
	sub := p.OnRetrieved(func(int) { calls++ })
	assert.Equal(t, EventRetrieved, sub.Event())
	assert.Equal(t, 1, p.Subscribers(EventRetrieved))

	_, err := p.Retrieve()
	require.NoError(t, err)

	assert.True(t, p.Unsubscribe(sub))
	assert.False(t, p.Unsubscribe(sub))
	assert.False(t, p.Unsubscribe(Subscription{}))
	assert.Equal(t, 0, p.Subscribers(EventRetrieved))

	_, err = p.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// nil callbacks are ignored
	assert.Equal(t, Subscription{}, p.OnCreated(nil))
}

func TestUnsubscribeDuringNotify(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(2))

	var calls []string
	var sub Subscription
	sub = p.OnRetrieved(func(int) {
		calls = append(calls, "once")
		p.Unsubscribe(sub)
	})
	p.OnRetrieved(func(int) { calls = append(calls, "always") })

	retrieveN(t, p, 2)
	assert.Equal(t, []string{"once", "always", "always"}, calls)
}

func TestPanickingCallbackPropagates(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(2))
	p.OnRetrieved(func(int) { panic("boom") })

	assert.PanicsWithValue(t, "boom", func() { _, _ = p.Retrieve() })
	assert.Equal(t, 1, p.InUse())
	assert.Equal(t, 1, p.Count())
}

func TestStats(t *testing.T) {
	p, _ := newTestPool(t, WithCapacity(2), WithRecycle(RecycleLIFO), WithStorage(StorageQueue), WithName("bullets"))
	got := retrieveN(t, p, 3)
	require.NoError(t, p.Return(got[0]))

	s := p.Stats()
	assert.Equal(t, Stats{
		Name:      "bullets",
		State:     "initialized",
		Storage:   "queue",
		Recycle:   "lifo",
		Capacity:  2,
		Available: 1,
		InUse:     1,
		Created:   2,
		Retrieved: 3,
		Returned:  1,
		Recycled:  1,
	}, s)
	assert.Equal(t, int64(2), s.Live())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "initialized", StateInitialized.String())
	assert.Equal(t, "torn_down", StateTornDown.String())
	assert.Equal(t, "State(5)", State(5).String())
	assert.Equal(t, "recycled", EventRecycled.String())
	assert.Len(t, Events, int(eventCount))
}
