package capabilities

import (
	"context"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/auth"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

type updateEnabledClearingProvider struct {
	base       Provider
	authorizer auth.Authorizer
}

// NewUpdateEnabledClearingProvider creates a decorator for Provider
// that reports Action Cache updates as disabled to clients that are
// not permitted to write into the Action Cache.
func NewUpdateEnabledClearingProvider(base Provider, authorizer auth.Authorizer) Provider {
	return &updateEnabledClearingProvider{
		base:       base,
		authorizer: authorizer,
	}
}

func (p *updateEnabledClearingProvider) GetCapabilities(ctx context.Context, instanceName digest.InstanceName) (*remoteexecution.ServerCapabilities, error) {
	capabilities, err := p.base.GetCapabilities(ctx, instanceName)
	if err != nil || !capabilities.GetCacheCapabilities().GetActionCacheUpdateCapabilities().GetUpdateEnabled() {
		return capabilities, err
	}

	err = auth.AuthorizeSingleInstanceName(ctx, p.authorizer, instanceName)
	switch status.Code(err) {
	case codes.OK:
		return capabilities, nil
	case codes.PermissionDenied:
		cleared := proto.Clone(capabilities).(*remoteexecution.ServerCapabilities)
		cleared.CacheCapabilities.ActionCacheUpdateCapabilities.UpdateEnabled = false
		return cleared, nil
	default:
		return nil, util.StatusWrap(err, "Authorization")
	}
}
