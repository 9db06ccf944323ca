package scheduler

import (
	"time"

	"github.com/buildbarn/bb-fleet/pkg/util"
)

// RetryBackoffConfiguration controls the exponential backoff that is
// applied between attempts of a task that failed due to an
// infrastructure error.
type RetryBackoffConfiguration struct {
	// Defaults to 1s.
	InitialInterval util.Duration `json:"initialInterval"`
	// Defaults to 1m.
	MaximumInterval util.Duration `json:"maximumInterval"`
	// Defaults to 2.
	Multiplier float64 `json:"multiplier"`
	// Defaults to 0.2.
	RandomizationFactor float64 `json:"randomizationFactor"`
}

// InMemoryBuildQueueConfiguration contains the tunables of
// InMemoryBuildQueue. Fields left at their zero value are set to a
// sensible default.
type InMemoryBuildQueueConfiguration struct {
	// Number of tasks that may be queued before new executions are
	// rejected with RESOURCE_EXHAUSTED. Defaults to 10000.
	MaximumQueuedTasks int `json:"maximumQueuedTasks"`
	// Number of times a task is handed to a worker before it is
	// failed. Defaults to 3.
	MaximumAttempts int                       `json:"maximumAttempts"`
	RetryBackoff    RetryBackoffConfiguration `json:"retryBackoff"`

	// Amount of time after which a worker that did not synchronize
	// is removed, causing its task to be requeued. Defaults to 1m.
	WorkerTimeout util.Duration `json:"workerTimeout"`
	// Interval at which executing workers report back. Defaults
	// to 10s.
	ExecutingSynchronizationInterval util.Duration `json:"executingSynchronizationInterval"`
	// Maximum duration of a long poll by an idle worker. Defaults
	// to 30s.
	IdleSynchronizationTimeout util.Duration `json:"idleSynchronizationTimeout"`
	// Amount of time completed operations remain available through
	// WaitExecution() and GetOperation(). Defaults to 1m.
	OperationRetention util.Duration `json:"operationRetention"`

	// Store action results with a non-zero exit code in the Action
	// Cache.
	CacheFailedActions bool `json:"cacheFailedActions"`

	// Timeout of actions that do not specify one. Defaults to 30m.
	DefaultExecutionTimeout util.Duration `json:"defaultExecutionTimeout"`
	// Largest timeout an action may request. Defaults to 2h.
	MaximumExecutionTimeout util.Duration `json:"maximumExecutionTimeout"`
}

type inMemoryBuildQueueSettings struct {
	maximumQueuedTasks               int
	maximumAttempts                  int
	retryInitialInterval             time.Duration
	retryMaximumInterval             time.Duration
	retryMultiplier                  float64
	retryRandomizationFactor         float64
	workerTimeout                    time.Duration
	executingSynchronizationInterval time.Duration
	idleSynchronizationTimeout       time.Duration
	operationRetention               time.Duration
	cacheFailedActions               bool
	defaultExecutionTimeout          time.Duration
	maximumExecutionTimeout          time.Duration
}

func newInMemoryBuildQueueSettings(configuration *InMemoryBuildQueueConfiguration) inMemoryBuildQueueSettings {
	s := inMemoryBuildQueueSettings{
		maximumQueuedTasks:               configuration.MaximumQueuedTasks,
		maximumAttempts:                  configuration.MaximumAttempts,
		retryInitialInterval:             configuration.RetryBackoff.InitialInterval.GetOrDefault(time.Second),
		retryMaximumInterval:             configuration.RetryBackoff.MaximumInterval.GetOrDefault(time.Minute),
		retryMultiplier:                  configuration.RetryBackoff.Multiplier,
		retryRandomizationFactor:         configuration.RetryBackoff.RandomizationFactor,
		workerTimeout:                    configuration.WorkerTimeout.GetOrDefault(time.Minute),
		executingSynchronizationInterval: configuration.ExecutingSynchronizationInterval.GetOrDefault(10 * time.Second),
		idleSynchronizationTimeout:       configuration.IdleSynchronizationTimeout.GetOrDefault(30 * time.Second),
		operationRetention:               configuration.OperationRetention.GetOrDefault(time.Minute),
		cacheFailedActions:               configuration.CacheFailedActions,
		defaultExecutionTimeout:          configuration.DefaultExecutionTimeout.GetOrDefault(30 * time.Minute),
		maximumExecutionTimeout:          configuration.MaximumExecutionTimeout.GetOrDefault(2 * time.Hour),
	}
	if s.maximumQueuedTasks <= 0 {
		s.maximumQueuedTasks = 10000
	}
	if s.maximumAttempts <= 0 {
		s.maximumAttempts = 3
	}
	if s.retryMultiplier < 1 {
		s.retryMultiplier = 2
	}
	if s.retryRandomizationFactor <= 0 {
		s.retryRandomizationFactor = 0.2
	}
	return s
}
