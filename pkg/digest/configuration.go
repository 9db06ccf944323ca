package digest

import (
	"github.com/buildbarn/bb-fleet/pkg/clock"
	"github.com/buildbarn/bb-fleet/pkg/eviction"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ExistenceCacheConfiguration contains the options for constructing an
// ExistenceCache from a configuration file.
type ExistenceCacheConfiguration struct {
	CacheSize              int                             `json:"cacheSize"`
	CacheDuration          util.Duration                   `json:"cacheDuration"`
	CacheReplacementPolicy eviction.CacheReplacementPolicy `json:"cacheReplacementPolicy"`
}

// NewExistenceCacheFromConfiguration is identical to
// NewExistenceCache(), except that it takes a specification for the
// object to be created from a configuration file message.
func NewExistenceCacheFromConfiguration(configuration *ExistenceCacheConfiguration, keyFormat KeyFormat, name string) (*ExistenceCache, error) {
	if configuration.CacheSize <= 0 {
		return nil, status.Error(codes.InvalidArgument, "Cache size must be positive")
	}
	evictionSet, err := eviction.NewSetFromConfiguration[string](configuration.CacheReplacementPolicy)
	if err != nil {
		return nil, util.StatusWrap(err, "Cache replacement policy")
	}
	return NewExistenceCache(
		clock.SystemClock,
		keyFormat,
		configuration.CacheSize,
		configuration.CacheDuration.Duration,
		eviction.NewMetricsSet(evictionSet, name)), nil
}

// NewFunctionFromConfiguration returns the digest function that is
// selected by name in a configuration file (e.g., "sha256", "blake3").
// The empty name selects SHA-256.
func NewFunctionFromConfiguration(instanceName InstanceName, name string) (Function, error) {
	if name == "" {
		name = "sha256"
	}
	bf := getBareFunctionByResourceName(name)
	if bf == nil {
		return Function{}, status.Errorf(codes.InvalidArgument, "Unsupported digest function %#v", name)
	}
	return Function{
		instanceName: instanceName,
		bareFunction: bf,
	}, nil
}
