// Package scoring grades search results against the requested book and
// ranks them. Relevance dominates the total; format and metadata nudge it;
// the remaining signals feed the confidence adjustment instead.
package scoring

// Weights control how component scores combine into the total.
type Weights struct {
	Relevance    float64
	Format       float64
	Bitrate      float64
	Source       float64
	Metadata     float64
	Availability float64
}

// DefaultWeights emphasize relevance; bitrate, source, and availability are
// zero-weighted in the total but still drive confidence penalties.
func DefaultWeights() Weights {
	return Weights{
		Relevance: 0.95,
		Format:    0.03,
		Metadata:  0.02,
	}
}

// Sub-score ceilings inside the relevance component.
const (
	maxAuthorScore = 6.0
	maxTitleScore  = 2.5
	maxSeriesScore = 1.5

	neutralAuthorScore = 3.0
	neutralTitleScore  = 1.25
	neutralSeriesScore = 0.75

	bookNumberBonus   = 0.75
	seriesNumberBonus = 0.3
)
