package corovm

import (
	"math"
	"sync/atomic"
)

// balanceRatioBits stores the current balance ratio as math.Float64bits,
// since spec.md calls this a compile-time constant but Go has no such
// mechanism reachable from outside the package; it is instead a package
// default, overridable per-process via SetBalanceRatio.
var balanceRatioBits atomic.Uint64

func init() {
	storeBalanceRatio(1.5)
}

func storeBalanceRatio(r float64) {
	balanceRatioBits.Store(math.Float64bits(r))
}

func loadBalanceRatio() float64 {
	return math.Float64frombits(balanceRatioBits.Load())
}

// SetBalanceRatio overrides the default threshold used by Balance: the
// ratio of the most-loaded to least-loaded worker above which Balance
// behaves like Parallel instead of Concurrent. The default is 1.5.
func SetBalanceRatio(r float64) {
	if r <= 0 {
		panicf("balance ratio must be positive, got %v", r)
	}
	storeBalanceRatio(r)
}

// SchedulerOption configures a Scheduler at construction.
type SchedulerOption func(*schedulerConfig)

type schedulerConfig struct {
	logger Logger
	root   lifecycleImpl
}

func newSchedulerConfig(opts []SchedulerOption) schedulerConfig {
	cfg := schedulerConfig{logger: nopLogger{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLogger attaches a structured logger for lifecycle/error events.
func WithLogger(l Logger) SchedulerOption {
	return func(cfg *schedulerConfig) { cfg.logger = l }
}

func withLifecycleRoot(root lifecycleImpl) SchedulerOption {
	return func(cfg *schedulerConfig) { cfg.root = root }
}

// ThreadpoolOption configures a Threadpool at construction.
type ThreadpoolOption func(*threadpoolConfig)

type threadpoolConfig struct {
	logger Logger
}

func newThreadpoolConfig(opts []ThreadpoolOption) threadpoolConfig {
	cfg := threadpoolConfig{logger: nopLogger{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithThreadpoolLogger attaches a structured logger to every worker
// scheduler spawned by the pool.
func WithThreadpoolLogger(l Logger) ThreadpoolOption {
	return func(cfg *threadpoolConfig) { cfg.logger = l }
}

// AwaitPoolOption configures an await worker pool at construction.
type AwaitPoolOption func(*awaitPoolConfig)

type awaitPoolConfig struct {
	minWorkers int
	maxWorkers int
	logger     Logger
}

func newAwaitPoolConfig(opts []AwaitPoolOption) awaitPoolConfig {
	cfg := awaitPoolConfig{minWorkers: 1, maxWorkers: 4096, logger: nopLogger{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithMaxAwaitWorkers caps the number of blocking calls the pool will
// bridge concurrently; a checkout beyond the cap blocks until a worker
// is released. The default is 4096.
func WithMaxAwaitWorkers(n int) AwaitPoolOption {
	if n < 1 {
		panicf("maximum await worker count must be positive, got %d", n)
	}
	return func(cfg *awaitPoolConfig) { cfg.maxWorkers = n }
}

// WithMinAwaitWorkers sets the minimum number of await workers retained
// in the free list on check-in. The default is 1; 0 disables retention
// entirely (every worker is destroyed on check-in).
func WithMinAwaitWorkers(n int) AwaitPoolOption {
	if n < 0 {
		panicf("minimum await worker count must be non-negative, got %d", n)
	}
	return func(cfg *awaitPoolConfig) { cfg.minWorkers = n }
}

// WithAwaitPoolLogger attaches a structured logger to the pool.
func WithAwaitPoolLogger(l Logger) AwaitPoolOption {
	return func(cfg *awaitPoolConfig) { cfg.logger = l }
}
