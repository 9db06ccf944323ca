package grpc

import (
	"context"
	"net"
	"os"

	"github.com/buildbarn/bb-fleet/pkg/program"
	"github.com/buildbarn/bb-fleet/pkg/util"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
)

func init() {
	// Add Prometheus timing metrics.
	grpc_prometheus.EnableHandlingTimeHistogram(
		grpc_prometheus.WithHistogramBuckets(
			util.DecimalExponentialBuckets(-3, 6, 2)))
}

// KeepaliveEnforcementPolicyConfiguration controls how aggressively
// clients may send keepalive pings.
type KeepaliveEnforcementPolicyConfiguration struct {
	MinTime             util.Duration `json:"minTime"`
	PermitWithoutStream bool          `json:"permitWithoutStream"`
}

// ServerConfiguration contains the options of a gRPC server.
type ServerConfiguration struct {
	// TCP addresses on which the server listens (e.g., ":8980").
	ListenAddresses []string `json:"listenAddresses"`
	// UNIX socket paths on which the server listens.
	ListenPaths []string `json:"listenPaths"`
	// Policy for authenticating incoming requests.
	AuthenticationPolicy *AuthenticationPolicy `json:"authenticationPolicy"`
	// Maximum size of messages received from clients. Zero means
	// the gRPC default.
	MaximumReceivedMessageSizeBytes int `json:"maximumReceivedMessageSizeBytes"`
	// Optional keepalive enforcement policy.
	KeepaliveEnforcementPolicy *KeepaliveEnforcementPolicyConfiguration `json:"keepaliveEnforcementPolicy"`
	// Name of the service reported through the health checking
	// protocol. Empty reports the overall server health.
	HealthCheckService string `json:"healthCheckService"`
	// Let in-flight RPCs complete upon shutdown.
	StopGracefully bool `json:"stopGracefully"`
}

// NewServersFromConfigurationAndServe creates a series of gRPC servers
// based on a configuration stored in a list of configuration messages.
// It then lets all of these gRPC servers listen on the network
// addresses or UNIX socket paths provided.
func NewServersFromConfigurationAndServe(configurations []*ServerConfiguration, registrationFunc func(grpc.ServiceRegistrar), group program.Group) error {
	for _, configuration := range configurations {
		// Create an authenticator for requests.
		authenticator, err := NewAuthenticatorFromConfiguration(configuration.AuthenticationPolicy)
		if err != nil {
			return err
		}

		serverOptions := []grpc.ServerOption{
			grpc.ChainUnaryInterceptor(
				grpc_prometheus.UnaryServerInterceptor,
				NewAuthenticatingUnaryInterceptor(authenticator)),
			grpc.ChainStreamInterceptor(
				grpc_prometheus.StreamServerInterceptor,
				NewAuthenticatingStreamInterceptor(authenticator)),
			grpc.StatsHandler(otelgrpc.NewServerHandler()),
		}
		if maxRecvMsgSize := configuration.MaximumReceivedMessageSizeBytes; maxRecvMsgSize != 0 {
			serverOptions = append(serverOptions, grpc.MaxRecvMsgSize(maxRecvMsgSize))
		}
		if policy := configuration.KeepaliveEnforcementPolicy; policy != nil {
			serverOptions = append(serverOptions, grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
				MinTime:             policy.MinTime.Duration,
				PermitWithoutStream: policy.PermitWithoutStream,
			}))
		}

		if len(configuration.ListenAddresses)+len(configuration.ListenPaths) == 0 {
			return status.Error(codes.InvalidArgument, "gRPC server configured without any listen addresses or paths")
		}

		// Create server.
		s := grpc.NewServer(serverOptions...)
		stopFunc := s.Stop
		if configuration.StopGracefully {
			stopFunc = s.GracefulStop
		}
		group.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
			<-ctx.Done()
			stopFunc()
			return nil
		})
		registrationFunc(s)

		// Enable default services.
		grpc_prometheus.Register(s)
		reflection.Register(s)
		h := health.NewServer()
		grpc_health_v1.RegisterHealthServer(s, h)
		h.SetServingStatus(configuration.HealthCheckService, grpc_health_v1.HealthCheckResponse_SERVING)

		// TCP sockets.
		for _, listenAddress := range configuration.ListenAddresses {
			sock, err := net.Listen("tcp", listenAddress)
			if err != nil {
				return util.StatusWrapf(err, "Failed to create listening socket for %#v", listenAddress)
			}
			group.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
				if err := s.Serve(sock); err != nil {
					return util.StatusWrapf(err, "gRPC server failed for %#v", listenAddress)
				}
				return nil
			})
		}

		// UNIX sockets.
		for _, listenPath := range configuration.ListenPaths {
			if err := os.Remove(listenPath); err != nil && !os.IsNotExist(err) {
				return util.StatusWrapf(err, "Could not remove stale socket %#v", listenPath)
			}
			sock, err := net.Listen("unix", listenPath)
			if err != nil {
				return util.StatusWrapf(err, "Failed to create listening socket for %#v", listenPath)
			}
			group.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
				if err := s.Serve(sock); err != nil {
					return util.StatusWrapf(err, "gRPC server failed for %#v", listenPath)
				}
				return nil
			})
		}
	}
	return nil
}
