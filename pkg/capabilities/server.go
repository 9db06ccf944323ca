package capabilities

import (
	"context"

	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/bazelbuild/remote-apis/build/bazel/semver"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/protobuf/proto"
)

type server struct {
	provider Provider
}

// NewServer creates a gRPC server object for the REv2 Capabilities
// service. The API version range supported by this implementation is
// added to the response of the provider.
func NewServer(provider Provider) remoteexecution.CapabilitiesServer {
	return &server{
		provider: provider,
	}
}

func (s *server) GetCapabilities(ctx context.Context, in *remoteexecution.GetCapabilitiesRequest) (*remoteexecution.ServerCapabilities, error) {
	instanceName, err := digest.NewInstanceName(in.InstanceName)
	if err != nil {
		return nil, util.StatusWrapf(err, "Invalid instance name %#v", in.InstanceName)
	}
	capabilities, err := s.provider.GetCapabilities(ctx, instanceName)
	if err != nil {
		return nil, err
	}

	response := proto.Clone(capabilities).(*remoteexecution.ServerCapabilities)
	response.DeprecatedApiVersion = &semver.SemVer{Major: 2, Minor: 0}
	response.LowApiVersion = &semver.SemVer{Major: 2, Minor: 0}
	response.HighApiVersion = &semver.SemVer{Major: 2, Minor: 3}
	return response, nil
}
