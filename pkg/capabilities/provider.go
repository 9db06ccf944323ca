package capabilities

import (
	"context"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/digest"
)

// Provider reports part of the REv2 ServerCapabilities message for a
// given instance name. Storage reports CacheCapabilities, while the
// scheduler reports ExecutionCapabilities. A successful call sets at
// least one of the two.
type Provider interface {
	GetCapabilities(ctx context.Context, instanceName digest.InstanceName) (*remoteexecution.ServerCapabilities, error)
}
