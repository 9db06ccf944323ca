package grpc

import (
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
)

type baseClientFactory struct {
	unaryInterceptors  []grpc.UnaryClientInterceptor
	streamInterceptors []grpc.StreamClientInterceptor
}

// NewBaseClientFactory creates factory for gRPC clients that calls
// into grpc.NewClient() to create clients. The provided interceptors
// are installed on every client, followed by the ones derived from
// the client's own configuration.
func NewBaseClientFactory(unaryInterceptors []grpc.UnaryClientInterceptor, streamInterceptors []grpc.StreamClientInterceptor) ClientFactory {
	return baseClientFactory{
		unaryInterceptors:  unaryInterceptors,
		streamInterceptors: streamInterceptors,
	}
}

func (cf baseClientFactory) NewClientFromConfiguration(config *ClientConfiguration) (grpc.ClientConnInterface, error) {
	if config == nil {
		return nil, status.Error(codes.InvalidArgument, "No gRPC client configuration provided")
	}
	if config.Address == "" {
		return nil, status.Error(codes.InvalidArgument, "No gRPC client address provided")
	}

	dialOptions := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
	unaryInterceptors := append([]grpc.UnaryClientInterceptor(nil), cf.unaryInterceptors...)
	streamInterceptors := append([]grpc.StreamClientInterceptor(nil), cf.streamInterceptors...)

	if size := config.MaximumReceivedMessageSizeBytes; size != 0 {
		dialOptions = append(dialOptions, grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(size)))
	}

	// Optional: Keepalive.
	if config.Keepalive != nil {
		dialOptions = append(dialOptions, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                config.Keepalive.Time.Duration,
			Timeout:             config.Keepalive.Timeout.Duration,
			PermitWithoutStream: config.Keepalive.PermitWithoutStream,
		}))
	}

	// Optional: metadata forwarding.
	if headers := config.ForwardMetadata; len(headers) > 0 {
		unaryInterceptors = append(unaryInterceptors, NewMetadataForwardingUnaryClientInterceptor(headers))
		streamInterceptors = append(streamInterceptors, NewMetadataForwardingStreamClientInterceptor(headers))
	}

	// Optional: set metadata.
	if md := config.AddMetadata; len(md) > 0 {
		var pairs []string
		for _, headerValues := range md {
			for _, value := range headerValues.Values {
				pairs = append(pairs, headerValues.Header, value)
			}
		}
		unaryInterceptors = append(unaryInterceptors, NewAddMetadataUnaryClientInterceptor(pairs))
		streamInterceptors = append(streamInterceptors, NewAddMetadataStreamClientInterceptor(pairs))
	}

	dialOptions = append(
		dialOptions,
		grpc.WithChainUnaryInterceptor(unaryInterceptors...),
		grpc.WithChainStreamInterceptor(streamInterceptors...))
	client, err := grpc.NewClient(config.Address, dialOptions...)
	if err != nil {
		return nil, util.StatusWrapfWithCode(err, codes.InvalidArgument, "Failed to create client for %#v", config.Address)
	}
	return client, nil
}
