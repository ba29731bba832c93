package pool

import "go.uber.org/zap"

// DefaultCapacity is the number of entities a pool materializes when no
// capacity is given.
const DefaultCapacity = 10

type options struct {
	name     string
	capacity int
	storage  StorageKind
	recycle  RecyclePolicy
	logger   *zap.Logger
}

func defaultOptions() options {
	return options{
		name:     "pool",
		capacity: DefaultCapacity,
		storage:  StorageStack,
		recycle:  RecycleNone,
		logger:   zap.NewNop(),
	}
}

// Option configures a Pool at construction.
type Option func(*options)

// WithCapacity sets the number of entities created by Setup. It must be
// positive; New rejects anything else.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithStorage selects the storage strategy. The default is StorageStack.
func WithStorage(kind StorageKind) Option {
	return func(o *options) {
		o.storage = kind
	}
}

// WithRecycle selects the policy applied on exhaustion. The default is
// RecycleNone.
func WithRecycle(policy RecyclePolicy) Option {
	return func(o *options) {
		if policy != nil {
			o.recycle = policy
		}
	}
}

// WithName labels the pool in logs, errors and metrics.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger used for lifecycle and exhaustion messages.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
