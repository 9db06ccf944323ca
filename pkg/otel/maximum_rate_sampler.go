package otel

import (
	"sync"
	"time"

	"github.com/buildbarn/bb-fleet/pkg/clock"

	sdk_trace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type maximumRateSampler struct {
	clock           clock.Clock
	samplesPerEpoch int
	epochDuration   time.Duration

	lock             sync.Mutex
	samplesRemaining int
	epochEnd         time.Time
}

// NewMaximumRateSampler creates a Sampler that samples at most
// samplesPerEpoch traces per epoch. Epochs start at the first request
// after the previous epoch ended, so that idle periods are not
// compensated for by bursts.
func NewMaximumRateSampler(clock clock.Clock, samplesPerEpoch int, epochDuration time.Duration) sdk_trace.Sampler {
	return &maximumRateSampler{
		clock:           clock,
		samplesPerEpoch: samplesPerEpoch,
		epochDuration:   epochDuration,
	}
}

func (s *maximumRateSampler) ShouldSample(p sdk_trace.SamplingParameters) sdk_trace.SamplingResult {
	result := sdk_trace.SamplingResult{
		Decision:   sdk_trace.Drop,
		Tracestate: trace.SpanContextFromContext(p.ParentContext).TraceState(),
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.samplesRemaining <= 0 {
		now := s.clock.Now()
		if now.Before(s.epochEnd) {
			return result
		}
		s.samplesRemaining = s.samplesPerEpoch
		s.epochEnd = now.Add(s.epochDuration)
	}
	s.samplesRemaining--
	result.Decision = sdk_trace.RecordAndSample
	return result
}

func (s *maximumRateSampler) Description() string {
	return "MaximumRateSampler"
}
