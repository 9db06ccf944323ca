package capabilities

import (
	"context"
	"math"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/digest"
)

type staticProvider struct {
	capabilities *remoteexecution.ServerCapabilities
}

// NewStaticProvider creates a capabilities provider that returns the
// same response for every instance name.
func NewStaticProvider(capabilities *remoteexecution.ServerCapabilities) Provider {
	return &staticProvider{
		capabilities: capabilities,
	}
}

func (p *staticProvider) GetCapabilities(ctx context.Context, instanceName digest.InstanceName) (*remoteexecution.ServerCapabilities, error) {
	return p.capabilities, nil
}

// NewCacheCapabilitiesProvider returns the capabilities of a Content
// Addressable Storage and Action Cache that accept all supported
// digest functions. Updates of the Action Cache are reported as
// enabled. Use NewUpdateEnabledClearingProvider() to restrict this to
// trusted clients.
func NewCacheCapabilitiesProvider(maximumBatchTotalSizeBytes int64) Provider {
	return NewStaticProvider(&remoteexecution.ServerCapabilities{
		CacheCapabilities: &remoteexecution.CacheCapabilities{
			DigestFunctions: digest.SupportedDigestFunctions,
			ActionCacheUpdateCapabilities: &remoteexecution.ActionCacheUpdateCapabilities{
				UpdateEnabled: true,
			},
			MaxBatchTotalSizeBytes:      maximumBatchTotalSizeBytes,
			SymlinkAbsolutePathStrategy: remoteexecution.SymlinkAbsolutePathStrategy_DISALLOWED,
			SupportedCompressors: []remoteexecution.Compressor_Value{
				remoteexecution.Compressor_ZSTD,
			},
		},
	})
}

// NewExecutionCapabilitiesProvider returns the capabilities of a
// scheduler that computes digests of actions it creates using the
// provided digest function.
func NewExecutionCapabilitiesProvider(digestFunction remoteexecution.DigestFunction_Value) Provider {
	return NewStaticProvider(&remoteexecution.ServerCapabilities{
		ExecutionCapabilities: &remoteexecution.ExecutionCapabilities{
			DigestFunction:  digestFunction,
			DigestFunctions: digest.SupportedDigestFunctions,
			ExecEnabled:     true,
			ExecutionPriorityCapabilities: &remoteexecution.PriorityCapabilities{
				Priorities: []*remoteexecution.PriorityCapabilities_PriorityRange{
					{MinPriority: math.MinInt32, MaxPriority: math.MaxInt32},
				},
			},
		},
	})
}
