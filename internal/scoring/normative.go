package scoring

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/perceptivehq/psychcore/internal/types"
)

// stanineCuts partition the z-score line into nine buckets; z below the
// first cut maps to stanine 1, z at or above the last to stanine 9.
var stanineCuts = [...]float64{-1.75, -1.25, -0.75, -0.25, 0.25, 0.75, 1.25, 1.75}

// Converter maps theta estimates onto percentile, T-score and stanine
// scales using the calibration's normative statistics.
type Converter struct {
	params *types.IRTParameters
}

// NewConverter creates a converter over an immutable parameter object.
func NewConverter(params *types.IRTParameters) *Converter {
	return &Converter{params: params}
}

// Convert derives normative scores from a theta estimate. When the
// calibration carries no normative data, every dimension gets the explicit
// midpoint fallback (percentile 50, T 50, stanine 5) rather than a score
// fabricated from insufficient data.
func (c *Converter) Convert(est types.ThetaEstimate) types.NormativeScores {
	d := len(est.Theta)
	scores := types.NormativeScores{
		Percentiles: make([]float64, d),
		TScores:     make([]float64, d),
		Stanines:    make([]int, d),
		RawTheta:    append([]float64(nil), est.Theta...),
	}

	nd := c.params.NormativeData
	if nd == nil {
		for i := 0; i < d; i++ {
			scores.Percentiles[i] = 50
			scores.TScores[i] = 50
			scores.Stanines[i] = 5
		}
		return scores
	}

	for i := 0; i < d; i++ {
		z := (est.Theta[i] - nd.Means[i]) / nd.SDs[i]
		scores.Percentiles[i] = distuv.UnitNormal.CDF(z) * 100
		scores.TScores[i] = 50 + 10*z
		scores.Stanines[i] = stanine(z)
	}
	return scores
}

func stanine(z float64) int {
	s := 1
	for _, cut := range stanineCuts {
		if z >= cut {
			s++
		}
	}
	return s
}
