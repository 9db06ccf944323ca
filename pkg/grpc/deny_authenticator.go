package grpc

import (
	"context"

	"github.com/buildbarn/bb-fleet/pkg/auth"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type denyAuthenticator struct {
	err error
}

// NewDenyAuthenticator creates an Authenticator that rejects every
// request with UNAUTHENTICATED and a fixed message. It may be used to
// drain a scheduler by refusing new clients, while keeping the
// listener up.
func NewDenyAuthenticator(message string) Authenticator {
	return denyAuthenticator{
		err: status.Error(codes.Unauthenticated, message),
	}
}

func (a denyAuthenticator) Authenticate(ctx context.Context) (*auth.AuthenticationMetadata, error) {
	return nil, a.err
}
