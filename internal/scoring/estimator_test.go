package scoring

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perceptivehq/psychcore/internal/config"
	apperrors "github.com/perceptivehq/psychcore/internal/errors"
	"github.com/perceptivehq/psychcore/internal/types"
)

func estimationConfig() config.EstimationConfig {
	return config.DefaultConfig().Estimation
}

func paramsFor(dims []string) *types.IRTParameters {
	return &types.IRTParameters{
		Dimensions:   dims,
		ModelVersion: "test",
	}
}

// rotatingBlocks builds n quartet blocks over the given dimensions, each
// block covering four consecutive dimensions (wrapping), with unit loadings.
func rotatingBlocks(dims []string, n int) []types.QuartetBlock {
	blocks := make([]types.QuartetBlock, n)
	for i := 0; i < n; i++ {
		statements := make([]types.Statement, 4)
		for j := 0; j < 4; j++ {
			dim := dims[(i+j)%len(dims)]
			statements[j] = types.Statement{
				ID:            fmt.Sprintf("b%d-%s", i, dim),
				Dimension:     dim,
				FactorLoading: 1.0,
			}
		}
		blocks[i] = types.QuartetBlock{BlockID: fmt.Sprintf("block-%d", i), Statements: statements}
	}
	return blocks
}

// sampleResponse draws one (most, least) outcome from the choice model.
func sampleResponse(rng *rand.Rand, theta []float64, dimIndex map[string]int, block types.QuartetBlock) types.ForcedChoiceResponse {
	us := Utilities(theta, dimIndex, block)

	r := rng.Float64()
	acc := 0.0
	for most := 0; most < 4; most++ {
		for least := 0; least < 4; least++ {
			if most == least {
				continue
			}
			acc += ChoiceProbability(us, most, least)
			if r <= acc {
				return types.ForcedChoiceResponse{BlockID: block.BlockID, MostLikeIndex: most, LeastLikeIndex: least}
			}
		}
	}
	return types.ForcedChoiceResponse{BlockID: block.BlockID, MostLikeIndex: 0, LeastLikeIndex: 1}
}

func pearson(a, b []float64) float64 {
	n := float64(len(a))
	var ma, mb float64
	for i := range a {
		ma += a[i]
		mb += b[i]
	}
	ma /= n
	mb /= n

	var cov, va, vb float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	return cov / math.Sqrt(va*vb)
}

func TestInitialEstimateSingleBlock(t *testing.T) {
	// single block {A,B,C,D}, most=0 (dim A), least=1 (dim B):
	// initial theta = [+1,-1,0,0] / exposure * 0.5 = [0.5,-0.5,0,0]
	dims := []string{"a", "b", "c", "d"}
	e := NewEstimator(paramsFor(dims), estimationConfig(), nil)
	block := quartet(dims, 1.0)

	theta := e.InitialEstimate([]scoredResponse{{block: block, most: 0, least: 1}}, 4)
	assert.InDeltaSlice(t, []float64{0.5, -0.5, 0, 0}, theta, 1e-12)
}

func TestEstimateRejectsInvalidResponses(t *testing.T) {
	dims := []string{"a", "b", "c", "d"}
	blocks := rotatingBlocks(dims, 4)
	e := NewEstimator(paramsFor(dims), estimationConfig(), nil)

	responses := []types.ForcedChoiceResponse{
		{BlockID: "block-0", MostLikeIndex: 0, LeastLikeIndex: 1},
		{BlockID: "unknown", MostLikeIndex: 0, LeastLikeIndex: 1},
		{BlockID: "block-1", MostLikeIndex: 2, LeastLikeIndex: 2},
		{BlockID: "block-2", MostLikeIndex: 4, LeastLikeIndex: 1},
	}

	est, err := e.Estimate(responses, blocks, false)
	require.NoError(t, err)
	assert.Equal(t, 3, est.RejectedResponses)
	assert.Len(t, est.Theta, 4)
}

func TestEstimateFailsWithoutValidResponses(t *testing.T) {
	dims := []string{"a", "b", "c", "d"}
	blocks := rotatingBlocks(dims, 2)
	e := NewEstimator(paramsFor(dims), estimationConfig(), nil)

	responses := []types.ForcedChoiceResponse{
		{BlockID: "unknown", MostLikeIndex: 0, LeastLikeIndex: 1},
		{BlockID: "block-0", MostLikeIndex: 1, LeastLikeIndex: 1},
	}

	_, err := e.Estimate(responses, blocks, false)
	assert.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryResponse))
}

func TestEstimateIdempotent(t *testing.T) {
	dims := []string{"a", "b", "c", "d", "e", "f"}
	blocks := rotatingBlocks(dims, 18)
	e := NewEstimator(paramsFor(dims), estimationConfig(), nil)

	rng := rand.New(rand.NewSource(4))
	theta := []float64{1, -1, 0.5, -0.5, 0, 1.5}
	idx := paramsFor(dims).DimensionIndex()

	var responses []types.ForcedChoiceResponse
	for _, b := range blocks {
		responses = append(responses, sampleResponse(rng, theta, idx, b))
	}

	first, err := e.Estimate(responses, blocks, true)
	require.NoError(t, err)
	second, err := e.Estimate(responses, blocks, true)
	require.NoError(t, err)

	// bit-identical: same inputs take the same optimizer path
	assert.Equal(t, first.Theta, second.Theta)
	assert.Equal(t, first.SE, second.SE)
	assert.Equal(t, first.LogLikelihood, second.LogLikelihood)
	assert.Equal(t, first.NIterations, second.NIterations)
}

func TestEstimateBounds(t *testing.T) {
	// every response pushing the same way must still keep theta in the box
	dims := []string{"a", "b", "c", "d"}
	blocks := rotatingBlocks(dims, 12)
	e := NewEstimator(paramsFor(dims), estimationConfig(), nil)

	var responses []types.ForcedChoiceResponse
	for _, b := range blocks {
		mostIdx := 0
		for i, s := range b.Statements {
			if s.Dimension == "a" {
				mostIdx = i
			}
		}
		least := (mostIdx + 1) % 4
		responses = append(responses, types.ForcedChoiceResponse{
			BlockID: b.BlockID, MostLikeIndex: mostIdx, LeastLikeIndex: least,
		})
	}

	est, err := e.Estimate(responses, blocks, false)
	require.NoError(t, err)
	for i, v := range est.Theta {
		assert.GreaterOrEqual(t, v, -3.0, "dimension %d", i)
		assert.LessOrEqual(t, v, 3.0, "dimension %d", i)
	}
}

func TestEstimateSingularHessianFallback(t *testing.T) {
	// dimension "e" never appears in any block: without the prior its
	// likelihood curvature is exactly zero and the information matrix is
	// singular
	dims := []string{"a", "b", "c", "d", "e"}
	blocks := []types.QuartetBlock{quartet([]string{"a", "b", "c", "d"}, 1.0)}
	e := NewEstimator(paramsFor(dims), estimationConfig(), nil)

	responses := []types.ForcedChoiceResponse{
		{BlockID: "block-1", MostLikeIndex: 0, LeastLikeIndex: 1},
	}

	est, err := e.Estimate(responses, blocks, false)
	require.NoError(t, err)
	assert.True(t, est.SEFallback)
	for _, se := range est.SE {
		assert.Equal(t, estimationConfig().FallbackSE, se)
	}
}

func TestEstimateRecoversKnownTheta(t *testing.T) {
	// synthetic recovery: sample forced choices from a known theta over 60
	// blocks and require Pearson correlation > 0.9 with the recovered theta
	dims := []string{"a", "b", "c", "d", "e", "f"}
	blocks := rotatingBlocks(dims, 60)
	params := paramsFor(dims)
	e := NewEstimator(params, estimationConfig(), nil)

	trueTheta := []float64{1.5, -1.0, 0.5, -0.5, 1.2, -1.8}
	idx := params.DimensionIndex()

	rng := rand.New(rand.NewSource(12345))
	var responses []types.ForcedChoiceResponse
	for _, b := range blocks {
		responses = append(responses, sampleResponse(rng, trueTheta, idx, b))
	}

	est, err := e.Estimate(responses, blocks, true)
	require.NoError(t, err)
	require.Len(t, est.Theta, len(dims))

	corr := pearson(est.Theta, trueTheta)
	assert.Greater(t, corr, 0.9, "recovered theta %v for true %v", est.Theta, trueTheta)
	assert.False(t, est.SEFallback)
	for _, se := range est.SE {
		assert.Greater(t, se, 0.0)
	}
}

func TestResolveLoadings(t *testing.T) {
	dims := []string{"a", "b", "c", "d"}
	params := paramsFor(dims)
	params.ItemParameters = map[string]types.ItemParameters{
		"a-s0": {FactorLoading: 1.2, SocialDesirability: 6.1},
	}
	e := NewEstimator(params, estimationConfig(), nil)

	block := quartet(dims, 0)
	resolved := e.resolveLoadings(block)

	// calibrated statement takes its item parameters
	assert.Equal(t, 1.2, resolved.Statements[0].FactorLoading)
	// uncalibrated statements with zero loading get the configured default
	for _, s := range resolved.Statements[1:] {
		assert.Equal(t, estimationConfig().DefaultLoading, s.FactorLoading)
	}
	// the input block is untouched
	assert.Zero(t, block.Statements[0].FactorLoading)
}
