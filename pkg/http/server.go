package http

import (
	"context"
	"net/http"

	bb_grpc "github.com/buildbarn/bb-fleet/pkg/grpc"
	"github.com/buildbarn/bb-fleet/pkg/program"
	"github.com/buildbarn/bb-fleet/pkg/util"
)

// ServerConfiguration contains the options of a HTTP server.
type ServerConfiguration struct {
	ListenAddresses      []string                      `json:"listenAddresses"`
	AuthenticationPolicy *bb_grpc.AuthenticationPolicy `json:"authenticationPolicy"`
}

// NewServersFromConfigurationAndServe spawns HTTP servers as part of a
// program.Group, based on a configuration message. The web servers are
// automatically terminated if the context associated with the group is
// canceled.
func NewServersFromConfigurationAndServe(configurations []*ServerConfiguration, handler http.Handler, group program.Group) error {
	for _, configuration := range configurations {
		grpcAuthenticator, err := bb_grpc.NewAuthenticatorFromConfiguration(configuration.AuthenticationPolicy)
		if err != nil {
			return err
		}
		authenticatedHandler := NewAuthenticatingHandler(handler, NewGRPCAuthenticatorAdapter(grpcAuthenticator))
		for _, listenAddress := range configuration.ListenAddresses {
			server := &http.Server{
				Addr:    listenAddress,
				Handler: authenticatedHandler,
			}
			group.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
				<-ctx.Done()
				return server.Close()
			})
			group.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
				if err := server.ListenAndServe(); err != http.ErrServerClosed {
					return util.StatusWrapf(err, "Failed to launch HTTP server %#v", server.Addr)
				}
				return nil
			})
		}
	}
	return nil
}
