package auth

import (
	"context"

	"github.com/buildbarn/bb-fleet/pkg/digest"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// InstanceNameMatcher is a predicate on instance names.
type InstanceNameMatcher func(digest.InstanceName) bool

// NewInstanceNamePrefixMatcher creates an InstanceNameMatcher that
// matches instance names that are equal to, or are nested underneath
// one of the provided prefixes.
func NewInstanceNamePrefixMatcher(prefixes []digest.InstanceName) InstanceNameMatcher {
	return func(instanceName digest.InstanceName) bool {
		components := instanceName.GetComponents()
	PrefixLoop:
		for _, prefix := range prefixes {
			prefixComponents := prefix.GetComponents()
			if len(prefixComponents) > len(components) {
				continue
			}
			for i, component := range prefixComponents {
				if components[i] != component {
					continue PrefixLoop
				}
			}
			return true
		}
		return false
	}
}

type staticAuthorizer struct {
	matcher InstanceNameMatcher
}

// NewStaticAuthorizer creates a new Authorizer which allows all
// requests to matching instance names, ignoring context.
func NewStaticAuthorizer(matcher InstanceNameMatcher) Authorizer {
	return &staticAuthorizer{matcher: matcher}
}

var errPermissionDenied = status.Error(codes.PermissionDenied, "Permission denied")

func (a *staticAuthorizer) Authorize(ctx context.Context, instanceNames []digest.InstanceName) []error {
	errs := make([]error, 0, len(instanceNames))
	for _, instanceName := range instanceNames {
		if a.matcher(instanceName) {
			errs = append(errs, nil)
		} else {
			errs = append(errs, errPermissionDenied)
		}
	}
	return errs
}
