package auth

import (
	"context"

	"github.com/buildbarn/bb-fleet/pkg/digest"
)

// Authorizer decides whether the caller whose authentication metadata
// is stored in the context may access a set of instance names. It is
// used to guard reads and writes of the Content Addressable Storage
// and the Action Cache, and the submission of actions for execution.
type Authorizer interface {
	// Authorize returns one error per instance name, in the same
	// order. nil grants access. PERMISSION_DENIED denies access,
	// while any other code indicates that no decision could be made.
	Authorize(ctx context.Context, instanceNames []digest.InstanceName) []error
}

// AuthorizeSingleInstanceName authorizes access to a single instance
// name.
func AuthorizeSingleInstanceName(ctx context.Context, authorizer Authorizer, instanceName digest.InstanceName) error {
	return authorizer.Authorize(ctx, []digest.InstanceName{instanceName})[0]
}
