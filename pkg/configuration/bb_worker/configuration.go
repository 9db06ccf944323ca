package bb_worker

import (
	blobstore_configuration "github.com/buildbarn/bb-fleet/pkg/blobstore/configuration"
	"github.com/buildbarn/bb-fleet/pkg/global"
	bb_http "github.com/buildbarn/bb-fleet/pkg/http"
	"github.com/buildbarn/bb-fleet/pkg/util"
)

// PlatformProperty is a single property of the platform on which a
// worker executes actions.
type PlatformProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SynchronizationBackoffConfiguration controls how long a slot waits
// before synchronizing again after the scheduler could not be reached.
type SynchronizationBackoffConfiguration struct {
	// Defaults to 1s.
	InitialInterval util.Duration `json:"initialInterval"`
	// Defaults to 30s.
	MaximumInterval util.Duration `json:"maximumInterval"`
}

// ApplicationConfiguration is the top-level configuration of
// bb_worker.
type ApplicationConfiguration struct {
	Global *global.Configuration `json:"global"`

	// URL of the worker HTTP server of bb_scheduler, for example
	// "http://scheduler:8981/api/v1/synchronize".
	SchedulerUrl        string                       `json:"schedulerUrl"`
	SchedulerHttpClient *bb_http.ClientConfiguration `json:"schedulerHttpClient"`

	ContentAddressableStorage *blobstore_configuration.BlobAccessConfiguration `json:"contentAddressableStorage"`
	MaximumMessageSizeBytes   int                                              `json:"maximumMessageSizeBytes"`

	// Directory in which every slot gets its own build directory.
	// Its contents are removed upon startup.
	BuildDirectoryPath string `json:"buildDirectoryPath"`
	// Number of actions executed concurrently. Defaults to 1.
	Concurrency int `json:"concurrency"`
	// Maximum number of concurrent blob transfers per action.
	// Defaults to 10.
	TransferConcurrency int `json:"transferConcurrency"`
	// Slots are named "<workerIdPrefix>-<index>". Defaults to the
	// host name.
	WorkerIdPrefix     string             `json:"workerIdPrefix"`
	InstanceNamePrefix string             `json:"instanceNamePrefix"`
	PlatformProperties []PlatformProperty `json:"platformProperties"`
	// Run actions in an empty network namespace. Only supported on
	// Linux.
	IsolateNetwork bool `json:"isolateNetwork"`

	SynchronizationBackoff SynchronizationBackoffConfiguration `json:"synchronizationBackoff"`
}
