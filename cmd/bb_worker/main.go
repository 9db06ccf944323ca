package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	blobstore_configuration "github.com/buildbarn/bb-fleet/pkg/blobstore/configuration"
	"github.com/buildbarn/bb-fleet/pkg/cas"
	"github.com/buildbarn/bb-fleet/pkg/clock"
	"github.com/buildbarn/bb-fleet/pkg/configuration/bb_worker"
	"github.com/buildbarn/bb-fleet/pkg/filesystem"
	"github.com/buildbarn/bb-fleet/pkg/global"
	bb_http "github.com/buildbarn/bb-fleet/pkg/http"
	"github.com/buildbarn/bb-fleet/pkg/program"
	"github.com/buildbarn/bb-fleet/pkg/scheduler/remoteworker"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/buildbarn/bb-fleet/pkg/worker"
	"github.com/cenkalti/backoff/v4"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func main() {
	program.RunMain(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
		if len(os.Args) != 2 {
			return status.Error(codes.InvalidArgument, "Usage: bb_worker bb_worker.jsonnet")
		}
		var configuration bb_worker.ApplicationConfiguration
		if err := util.UnmarshalConfigurationFromFile(os.Args[1], &configuration); err != nil {
			return util.StatusWrapf(err, "Failed to read configuration from %s", os.Args[1])
		}
		grpcClientFactory, err := global.ApplyConfiguration(configuration.Global, dependenciesGroup)
		if err != nil {
			return util.StatusWrap(err, "Failed to apply global configuration options")
		}
		if configuration.SchedulerUrl == "" {
			return status.Error(codes.InvalidArgument, "No scheduler URL provided")
		}
		maximumMessageSizeBytes := configuration.MaximumMessageSizeBytes
		if maximumMessageSizeBytes <= 0 {
			maximumMessageSizeBytes = 16 << 20
		}
		concurrency := configuration.Concurrency
		if concurrency <= 0 {
			concurrency = 1
		}
		transferConcurrency := configuration.TransferConcurrency
		if transferConcurrency <= 0 {
			transferConcurrency = 10
		}
		workerIDPrefix := configuration.WorkerIdPrefix
		if workerIDPrefix == "" {
			hostname, err := os.Hostname()
			if err != nil {
				return util.StatusWrap(err, "Failed to obtain host name")
			}
			workerIDPrefix = hostname
		}

		blobAccess, err := blobstore_configuration.NewCASBlobAccessFromConfiguration(
			configuration.ContentAddressableStorage,
			grpcClientFactory,
			maximumMessageSizeBytes)
		if err != nil {
			return util.StatusWrap(err, "Failed to create Content Addressable Storage")
		}
		contentAddressableStorage := cas.NewBlobAccessContentAddressableStorage(blobAccess, maximumMessageSizeBytes)

		synchronizer := remoteworker.NewHTTPSynchronizer(
			&http.Client{
				Transport: bb_http.NewRoundTripperFromConfiguration(configuration.SchedulerHttpClient, "Scheduler"),
			},
			configuration.SchedulerUrl)
		runner, err := worker.NewLocalRunner(configuration.IsolateNetwork)
		if err != nil {
			return util.StatusWrap(err, "Failed to create runner")
		}

		// Platform properties need to be sorted by name.
		platform := &remoteexecution.Platform{}
		for _, property := range configuration.PlatformProperties {
			platform.Properties = append(platform.Properties, &remoteexecution.Platform_Property{
				Name:  property.Name,
				Value: property.Value,
			})
		}
		sort.SliceStable(platform.Properties, func(i, j int) bool {
			return platform.Properties[i].Name < platform.Properties[j].Name
		})

		synchronizationBackoff := configuration.SynchronizationBackoff
		newBackOff := func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = synchronizationBackoff.InitialInterval.GetOrDefault(time.Second)
			b.MaxInterval = synchronizationBackoff.MaximumInterval.GetOrDefault(30 * time.Second)
			b.MaxElapsedTime = 0
			b.Reset()
			return b
		}

		buildDirectoryPath, err := filepath.Abs(configuration.BuildDirectoryPath)
		if err != nil {
			return util.StatusWrap(err, "Failed to resolve build directory path")
		}
		buildDirectory, err := filesystem.NewLocalDirectory(buildDirectoryPath)
		if err != nil {
			return util.StatusWrapf(err, "Failed to open build directory %#v", buildDirectoryPath)
		}
		if err := buildDirectory.RemoveAllChildren(); err != nil {
			return util.StatusWrapf(err, "Failed to clean build directory %#v", buildDirectoryPath)
		}

		for i := 0; i < concurrency; i++ {
			slotName := fmt.Sprintf("slot-%d", i)
			if err := buildDirectory.Mkdir(slotName, 0o777); err != nil {
				return util.StatusWrapf(err, "Failed to create build directory of %s", slotName)
			}
			slotDirectory, err := buildDirectory.EnterDirectory(slotName)
			if err != nil {
				return util.StatusWrapf(err, "Failed to open build directory of %s", slotName)
			}
			workerID := fmt.Sprintf("%s-%d", workerIDPrefix, i)
			slot := worker.NewSlot(
				synchronizer,
				worker.NewLocalBuildExecutor(
					contentAddressableStorage,
					slotDirectory,
					filepath.Join(buildDirectoryPath, slotName),
					runner,
					clock.SystemClock,
					workerID,
					transferConcurrency),
				clock.SystemClock,
				workerID,
				configuration.InstanceNamePrefix,
				platform,
				newBackOff)
			siblingsGroup.Go(slot.Run)
		}
		log.Printf("Started %d execution slots against %s", concurrency, configuration.SchedulerUrl)
		return nil
	})
}
