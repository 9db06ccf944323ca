package configuration

import (
	"github.com/buildbarn/bb-fleet/pkg/auth"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/jmespath/go-jmespath"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// InstanceNamePrefixConfiguration grants access to all instance names
// nested underneath one of the listed prefixes.
type InstanceNamePrefixConfiguration struct {
	AllowedInstanceNamePrefixes []string `json:"allowedInstanceNamePrefixes"`
}

// AuthorizerConfiguration selects exactly one authorization policy.
type AuthorizerConfiguration struct {
	Allow              *struct{}                        `json:"allow"`
	Deny               *struct{}                        `json:"deny"`
	InstanceNamePrefix *InstanceNamePrefixConfiguration `json:"instanceNamePrefix"`
	JMESPathExpression string                           `json:"jmespathExpression"`
	Any                []*AuthorizerConfiguration       `json:"any"`
}

// NewAuthorizerFromConfiguration constructs an Authorizer based on
// options specified in a configuration message.
func NewAuthorizerFromConfiguration(config *AuthorizerConfiguration) (auth.Authorizer, error) {
	if config == nil {
		return nil, status.Error(codes.InvalidArgument, "Authorizer configuration not specified")
	}
	switch {
	case config.Allow != nil:
		return auth.NewStaticAuthorizer(func(in digest.InstanceName) bool { return true }), nil
	case config.Deny != nil:
		return auth.NewStaticAuthorizer(func(in digest.InstanceName) bool { return false }), nil
	case config.InstanceNamePrefix != nil:
		prefixes := make([]digest.InstanceName, 0, len(config.InstanceNamePrefix.AllowedInstanceNamePrefixes))
		for _, i := range config.InstanceNamePrefix.AllowedInstanceNamePrefixes {
			instanceNamePrefix, err := digest.NewInstanceName(i)
			if err != nil {
				return nil, util.StatusWrapf(err, "Invalid instance name prefix %#v", i)
			}
			prefixes = append(prefixes, instanceNamePrefix)
		}
		return auth.NewStaticAuthorizer(auth.NewInstanceNamePrefixMatcher(prefixes)), nil
	case config.JMESPathExpression != "":
		expression, err := jmespath.Compile(config.JMESPathExpression)
		if err != nil {
			return nil, util.StatusWrapWithCode(err, codes.InvalidArgument, "Failed to compile JMESPath expression")
		}
		return auth.NewJMESPathExpressionAuthorizer(expression), nil
	case config.Any != nil:
		authorizers := make([]auth.Authorizer, 0, len(config.Any))
		for i, childConfig := range config.Any {
			authorizer, err := NewAuthorizerFromConfiguration(childConfig)
			if err != nil {
				return nil, util.StatusWrapf(err, "Authorizer at index %d", i)
			}
			authorizers = append(authorizers, authorizer)
		}
		return auth.NewAnyAuthorizer(authorizers), nil
	default:
		return nil, status.Error(codes.InvalidArgument, "Unknown authorizer configuration")
	}
}
