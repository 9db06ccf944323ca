package capabilities

import (
	"context"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

type mergingProvider struct {
	providers []Provider
}

// NewMergingProvider creates a capabilities provider that queries
// multiple providers in parallel and merges their responses. This is
// used to combine the capabilities of storage and the scheduler.
// Providers are expected to report non-overlapping fields.
func NewMergingProvider(providers []Provider) Provider {
	if len(providers) == 1 {
		return providers[0]
	}
	return &mergingProvider{
		providers: providers,
	}
}

func (p *mergingProvider) GetCapabilities(ctx context.Context, instanceName digest.InstanceName) (*remoteexecution.ServerCapabilities, error) {
	if len(p.providers) == 0 {
		return nil, status.Error(codes.NotFound, "No capabilities providers registered")
	}

	responses := make([]*remoteexecution.ServerCapabilities, len(p.providers))
	errs := make([]error, len(p.providers))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, provider := range p.providers {
		group.Go(func() error {
			capabilities, err := provider.GetCapabilities(groupCtx, instanceName)
			switch status.Code(err) {
			case codes.OK:
				responses[i] = capabilities
			case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied:
				// Other providers may still report
				// capabilities for this instance name.
				errs[i] = err
			default:
				return err
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var merged remoteexecution.ServerCapabilities
	for _, response := range responses {
		if response != nil {
			proto.Merge(&merged, response)
		}
	}
	if merged.CacheCapabilities == nil && merged.ExecutionCapabilities == nil {
		// Providers commonly reject unknown instance names with
		// the same error. Only report each distinct error once.
		var observedErrs []error
		seen := map[string]struct{}{}
		for _, err := range errs {
			if err != nil {
				key := status.Convert(err).String()
				if _, ok := seen[key]; !ok {
					seen[key] = struct{}{}
					observedErrs = append(observedErrs, err)
				}
			}
		}
		return nil, util.StatusFromMultiple(observedErrs)
	}
	return &merged, nil
}
