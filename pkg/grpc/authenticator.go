package grpc

import (
	"context"

	"github.com/buildbarn/bb-fleet/pkg/auth"
	"github.com/buildbarn/bb-fleet/pkg/clock"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Authenticator can be used to grant or deny access to a gRPC server.
// Implementations may grant access based on provided headers, such as
// bearer tokens, or unconditionally.
type Authenticator interface {
	Authenticate(ctx context.Context) (*auth.AuthenticationMetadata, error)
}

// AuthenticationPolicy selects exactly one way of authenticating
// incoming requests.
type AuthenticationPolicy struct {
	// Grant access to all requests, attaching the provided value as
	// authentication metadata.
	Allow any `json:"allow"`
	// Grant access if any of the nested policies grants access.
	Any []*AuthenticationPolicy `json:"any"`
	// Deny access to all requests, returning the provided message.
	Deny string `json:"deny"`
	// Grant access to requests carrying a validly signed JSON Web
	// Token in their "authorization" header.
	JWT *JWTAuthenticationPolicy `json:"jwt"`
}

// NewAuthenticatorFromConfiguration creates a tree of Authenticator
// objects based on a configuration file.
func NewAuthenticatorFromConfiguration(policy *AuthenticationPolicy) (Authenticator, error) {
	if policy == nil {
		return nil, status.Error(codes.InvalidArgument, "Authentication policy not specified")
	}
	switch {
	case policy.Allow != nil:
		metadata, err := auth.NewAuthenticationMetadataFromRaw(policy.Allow)
		if err != nil {
			return nil, util.StatusWrap(err, "Failed to create authentication metadata")
		}
		return NewAllowAuthenticator(metadata), nil
	case policy.Any != nil:
		children := make([]Authenticator, 0, len(policy.Any))
		for i, childConfiguration := range policy.Any {
			child, err := NewAuthenticatorFromConfiguration(childConfiguration)
			if err != nil {
				return nil, util.StatusWrapf(err, "Authentication policy at index %d", i)
			}
			children = append(children, child)
		}
		return NewAnyAuthenticator(children), nil
	case policy.Deny != "":
		return NewDenyAuthenticator(policy.Deny), nil
	case policy.JWT != nil:
		keySet, err := policy.JWT.getKeySet()
		if err != nil {
			return nil, util.StatusWrap(err, "Failed to load JSON Web Key Set for JWT authentication policy")
		}
		return NewJWTAuthenticator(keySet, policy.JWT.Issuer, policy.JWT.Audience, clock.SystemClock), nil
	default:
		return nil, status.Error(codes.InvalidArgument, "Configuration did not contain an authentication policy type")
	}
}
