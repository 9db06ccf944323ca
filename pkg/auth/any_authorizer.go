package auth

import (
	"context"

	"github.com/buildbarn/bb-fleet/pkg/digest"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type anyAuthorizer struct {
	authorizers []Authorizer
}

// NewAnyAuthorizer creates an Authorizer that grants access to an
// instance name if at least one of the provided authorizers does so.
// This can be used to let both build clients and administrators write
// into the Action Cache, each being authorized by their own policy.
func NewAnyAuthorizer(authorizers []Authorizer) Authorizer {
	switch len(authorizers) {
	case 0:
		return NewStaticAuthorizer(func(instanceName digest.InstanceName) bool { return false })
	case 1:
		return authorizers[0]
	default:
		return &anyAuthorizer{
			authorizers: authorizers,
		}
	}
}

func (a *anyAuthorizer) Authorize(ctx context.Context, instanceNames []digest.InstanceName) []error {
	errs := a.authorizers[0].Authorize(ctx, instanceNames)

	// Only instance names for which permission was denied are
	// passed on to the next authorizer. If every authorizer denies
	// access, the error of the first one is returned.
	var deniedIndices []int
	for i, err := range errs {
		if status.Code(err) == codes.PermissionDenied {
			deniedIndices = append(deniedIndices, i)
		}
	}
	for _, authorizer := range a.authorizers[1:] {
		if len(deniedIndices) == 0 {
			break
		}
		deniedInstanceNames := make([]digest.InstanceName, 0, len(deniedIndices))
		for _, i := range deniedIndices {
			deniedInstanceNames = append(deniedInstanceNames, instanceNames[i])
		}
		stillDenied := deniedIndices[:0]
		for j, err := range authorizer.Authorize(ctx, deniedInstanceNames) {
			if i := deniedIndices[j]; status.Code(err) == codes.PermissionDenied {
				stillDenied = append(stillDenied, i)
			} else {
				errs[i] = err
			}
		}
		deniedIndices = stillDenied
	}
	return errs
}
