package auth

import (
	"context"

	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/jmespath/go-jmespath"

	"google.golang.org/grpc/codes"
)

type jmespathExpressionAuthorizer struct {
	expression *jmespath.JMESPath
}

// NewJMESPathExpressionAuthorizer creates an Authorizer that grants
// access if a JMESPath expression evaluates to true. The expression is
// evaluated against an object containing the fields
// "authenticationMetadata" and "instanceName". This allows policies
// such as only letting CI workers write into the Action Cache of
// instance names they own.
func NewJMESPathExpressionAuthorizer(expression *jmespath.JMESPath) Authorizer {
	return &jmespathExpressionAuthorizer{
		expression: expression,
	}
}

func (a *jmespathExpressionAuthorizer) authorize(authenticationMetadata any, instanceName digest.InstanceName) error {
	result, err := a.expression.Search(map[string]any{
		"authenticationMetadata": authenticationMetadata,
		"instanceName":           instanceName.String(),
	})
	if err != nil {
		return util.StatusWrapWithCode(err, codes.Internal, "Failed to evaluate authorization expression")
	}
	if result != true {
		return errPermissionDenied
	}
	return nil
}

func (a *jmespathExpressionAuthorizer) Authorize(ctx context.Context, instanceNames []digest.InstanceName) []error {
	authenticationMetadata := AuthenticationMetadataFromContext(ctx).GetRaw()
	errs := make([]error, 0, len(instanceNames))
	for _, instanceName := range instanceNames {
		errs = append(errs, a.authorize(authenticationMetadata, instanceName))
	}
	return errs
}
