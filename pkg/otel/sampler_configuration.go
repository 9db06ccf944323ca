package otel

import (
	"github.com/buildbarn/bb-fleet/pkg/clock"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sdk_trace "go.opentelemetry.io/otel/sdk/trace"
)

// MaximumRateSamplerConfiguration contains the options of a sampler
// that permits a bounded number of samples per epoch.
type MaximumRateSamplerConfiguration struct {
	SamplesPerEpoch int           `json:"samplesPerEpoch"`
	EpochDuration   util.Duration `json:"epochDuration"`
}

// SamplerConfiguration selects exactly one sampling policy.
type SamplerConfiguration struct {
	Always            *struct{}                        `json:"always"`
	Never             *struct{}                        `json:"never"`
	TraceIDRatioBased *float64                         `json:"traceIdRatioBased"`
	MaximumRate       *MaximumRateSamplerConfiguration `json:"maximumRate"`
	// Sample if the parent span was sampled. Root spans are sampled
	// according to the nested policy.
	ParentBased *SamplerConfiguration `json:"parentBased"`
}

// NewSamplerFromConfiguration creates an OpenTelemetry Sampler based
// on a configuration file.
func NewSamplerFromConfiguration(configuration *SamplerConfiguration) (sdk_trace.Sampler, error) {
	if configuration == nil {
		return nil, status.Error(codes.InvalidArgument, "No sampler configuration provided")
	}
	switch {
	case configuration.Always != nil:
		return sdk_trace.AlwaysSample(), nil
	case configuration.Never != nil:
		return sdk_trace.NeverSample(), nil
	case configuration.TraceIDRatioBased != nil:
		return sdk_trace.TraceIDRatioBased(*configuration.TraceIDRatioBased), nil
	case configuration.MaximumRate != nil:
		if configuration.MaximumRate.EpochDuration.Duration <= 0 {
			return nil, status.Error(codes.InvalidArgument, "Maximum rate sampler epoch duration must be positive")
		}
		return NewMaximumRateSampler(
			clock.SystemClock,
			configuration.MaximumRate.SamplesPerEpoch,
			configuration.MaximumRate.EpochDuration.Duration), nil
	case configuration.ParentBased != nil:
		root, err := NewSamplerFromConfiguration(configuration.ParentBased)
		if err != nil {
			return nil, util.StatusWrap(err, "Parent based")
		}
		return sdk_trace.ParentBased(root), nil
	default:
		return nil, status.Error(codes.InvalidArgument, "Unknown sampling policy")
	}
}
