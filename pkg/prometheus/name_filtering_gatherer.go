package prometheus

import (
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type nameFilteringGatherer struct {
	base        prometheus.Gatherer
	namePattern *regexp.Regexp
}

// NewNameFilteringGatherer creates a decorator for Gatherer that only
// returns metric families whose name matches a regular expression.
// This can be used to reduce the number of time series exported by
// the diagnostics HTTP server.
func NewNameFilteringGatherer(base prometheus.Gatherer, namePattern *regexp.Regexp) prometheus.Gatherer {
	return &nameFilteringGatherer{
		base:        base,
		namePattern: namePattern,
	}
}

func (g *nameFilteringGatherer) Gather() ([]*dto.MetricFamily, error) {
	allFamilies, err := g.base.Gather()
	if err != nil {
		return nil, err
	}
	filteredFamilies := make([]*dto.MetricFamily, 0, len(allFamilies))
	for _, family := range allFamilies {
		if g.namePattern.MatchString(family.GetName()) {
			filteredFamilies = append(filteredFamilies, family)
		}
	}
	return filteredFamilies, nil
}
