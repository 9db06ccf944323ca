package util

import (
	"fmt"
	"math"
	"strconv"
)

func parseBucketBoundary(significand string, exponent int) float64 {
	v, err := strconv.ParseFloat(fmt.Sprintf("%se%d", significand, exponent), 64)
	if err != nil {
		panic(fmt.Sprintf("Invalid bucket boundary %se%d: %s", significand, exponent, err))
	}
	return v
}

// DecimalExponentialBuckets returns boundaries for Prometheus
// histograms that grow by a factor of 10^(1/(stepsInBetween+1)). Unlike
// prometheus.ExponentialBuckets(), every power of ten is an exact
// boundary, and boundaries in between are rounded to five significant
// digits. This keeps the "le" labels of histograms short and stable
// across platforms, as is needed for durations of RPCs and blob sizes.
func DecimalExponentialBuckets(lowestPowerOf10, powersOf10, stepsInBetween int) []float64 {
	significands := make([]string, stepsInBetween+1)
	for i := range significands {
		significands[i] = fmt.Sprintf("%f", math.Pow(10.0, float64(i)/float64(stepsInBetween+1)))[:6]
	}

	buckets := make([]float64, 0, powersOf10*len(significands)+1)
	highestPowerOf10 := lowestPowerOf10 + powersOf10
	for exponent := lowestPowerOf10; exponent < highestPowerOf10; exponent++ {
		for _, significand := range significands {
			buckets = append(buckets, parseBucketBoundary(significand, exponent))
		}
	}
	return append(buckets, parseBucketBoundary("1", highestPowerOf10))
}
