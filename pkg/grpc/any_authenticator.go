package grpc

import (
	"context"
	"slices"
	"strings"

	"github.com/buildbarn/bb-fleet/pkg/auth"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type anyAuthenticator struct {
	authenticators []Authenticator
}

// NewAnyAuthenticator creates an Authenticator that tries a series of
// Authenticators in order, returning the metadata of the first one that
// succeeds. This permits a scheduler to accept both JWTs of users and
// unauthenticated requests of workers on a trusted network.
func NewAnyAuthenticator(authenticators []Authenticator) Authenticator {
	if len(authenticators) == 1 {
		return authenticators[0]
	}
	return &anyAuthenticator{
		authenticators: authenticators,
	}
}

func (a *anyAuthenticator) Authenticate(ctx context.Context) (*auth.AuthenticationMetadata, error) {
	// Errors other than UNAUTHENTICATED take precedence, as they
	// indicate an authenticator could not make a decision.
	var messages []string
	var firstInfrastructureErr error
	for _, authenticator := range a.authenticators {
		metadata, err := authenticator.Authenticate(ctx)
		if err == nil {
			return metadata, nil
		}
		s := status.Convert(err)
		if s.Code() != codes.Unauthenticated {
			if firstInfrastructureErr == nil {
				firstInfrastructureErr = err
			}
		} else if !slices.Contains(messages, s.Message()) {
			messages = append(messages, s.Message())
		}
	}
	if firstInfrastructureErr != nil {
		return nil, firstInfrastructureErr
	}
	if len(messages) == 0 {
		return nil, status.Error(codes.Unauthenticated, "No authenticators configured")
	}
	return nil, status.Error(codes.Unauthenticated, strings.Join(messages, ", "))
}
