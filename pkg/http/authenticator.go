package http

import (
	"net/http"
	"strings"

	"github.com/buildbarn/bb-fleet/pkg/auth"
	bb_grpc "github.com/buildbarn/bb-fleet/pkg/grpc"

	"google.golang.org/grpc/metadata"
)

// Authenticator can be used to grant or deny access to a HTTP server.
type Authenticator interface {
	Authenticate(r *http.Request) (*auth.AuthenticationMetadata, error)
}

type grpcAuthenticatorAdapter struct {
	base bb_grpc.Authenticator
}

// NewGRPCAuthenticatorAdapter creates an Authenticator for HTTP
// requests that forwards to a gRPC Authenticator. The request headers
// are exposed to the gRPC Authenticator as incoming gRPC metadata,
// which allows policies such as JWT bearer token validation to be
// shared between gRPC and HTTP servers.
func NewGRPCAuthenticatorAdapter(base bb_grpc.Authenticator) Authenticator {
	return grpcAuthenticatorAdapter{base: base}
}

func (a grpcAuthenticatorAdapter) Authenticate(r *http.Request) (*auth.AuthenticationMetadata, error) {
	md := make(metadata.MD, len(r.Header))
	for key, values := range r.Header {
		md[strings.ToLower(key)] = values
	}
	return a.base.Authenticate(metadata.NewIncomingContext(r.Context(), md))
}
