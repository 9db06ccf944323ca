package builder

import (
	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/capabilities"
)

// BuildQueue is the front door of the scheduler, through which clients
// submit actions and observe their progress. It also reports the
// ExecutionCapabilities of the scheduler.
type BuildQueue interface {
	capabilities.Provider
	remoteexecution.ExecutionServer
	longrunningpb.OperationsServer
}
