package scoring

import (
	"fmt"
	"time"

	"github.com/perceptivehq/psychcore/internal/config"
	apperrors "github.com/perceptivehq/psychcore/internal/errors"
	"github.com/perceptivehq/psychcore/internal/monitoring"
	"github.com/perceptivehq/psychcore/internal/types"
)

// Estimator finds the theta vector maximizing the (optionally regularized)
// Thurstonian likelihood of the observed forced choices. It holds only
// read-only state and is safe for concurrent use.
type Estimator struct {
	params   *types.IRTParameters
	cfg      config.EstimationConfig
	dimIndex map[string]int
	logger   *monitoring.Logger
}

// NewEstimator creates an estimator over an immutable parameter object.
func NewEstimator(params *types.IRTParameters, cfg config.EstimationConfig, logger *monitoring.Logger) *Estimator {
	return &Estimator{
		params:   params,
		cfg:      cfg,
		dimIndex: params.DimensionIndex(),
		logger:   logger,
	}
}

// scoredResponse pairs a validated response with its resolved block.
type scoredResponse struct {
	block types.QuartetBlock
	most  int
	least int
}

// Estimate scores the valid subset of responses against their blocks.
// Malformed responses are dropped, counted and logged; non-convergence and
// singular Hessians are result flags, never errors.
func (e *Estimator) Estimate(responses []types.ForcedChoiceResponse, blocks []types.QuartetBlock, usePrior bool) (types.ThetaEstimate, error) {
	start := time.Now()
	d := len(e.params.Dimensions)

	byID := make(map[string]types.QuartetBlock, len(blocks))
	for _, b := range blocks {
		byID[b.BlockID] = e.resolveLoadings(b)
	}

	valid, rejected := e.validateResponses(responses, byID)
	if len(valid) == 0 {
		return types.ThetaEstimate{}, apperrors.NewInvalidResponseError("", "no valid responses to score")
	}

	x0 := e.InitialEstimate(valid, d)

	objective := func(theta []float64) float64 {
		return e.negLogLikelihood(theta, valid, usePrior)
	}

	res := minimizeBounded(objective, x0,
		-e.cfg.ThetaBound, e.cfg.ThetaBound,
		e.cfg.MaxIterations, e.cfg.GradientTolerance, e.cfg.FiniteDiffStep)

	se, fallback := e.standardErrors(res.x, valid, usePrior)
	ll := e.logLikelihood(res.x, valid)

	est := types.ThetaEstimate{
		Theta:             res.x,
		SE:                se,
		LogLikelihood:     ll,
		Convergence:       res.converged,
		NIterations:       res.iterations,
		RejectedResponses: rejected,
		SEFallback:        fallback,
	}

	if e.logger != nil {
		e.logger.ScoringLogger(len(responses), rejected, ll, res.converged, res.iterations, time.Since(start))
		if fallback {
			e.logger.NumericalLogger("singular_hessian", map[string]interface{}{
				"fallback_se": e.cfg.FallbackSE,
			})
		}
	}

	return est, nil
}

// resolveLoadings overlays calibrated item parameters onto a block's
// statements and applies the configured default loading to uncalibrated
// ones.
func (e *Estimator) resolveLoadings(b types.QuartetBlock) types.QuartetBlock {
	statements := append([]types.Statement(nil), b.Statements...)
	for i, s := range statements {
		if ip, ok := e.params.ItemParameters[s.ID]; ok {
			statements[i].FactorLoading = ip.FactorLoading
			statements[i].SocialDesirability = ip.SocialDesirability
		} else if s.FactorLoading == 0 {
			statements[i].FactorLoading = e.cfg.DefaultLoading
		}
	}
	return types.QuartetBlock{BlockID: b.BlockID, Statements: statements}
}

// validateResponses drops malformed responses (unresolved block, index out
// of range, most == least) and returns the scoreable remainder.
func (e *Estimator) validateResponses(responses []types.ForcedChoiceResponse, byID map[string]types.QuartetBlock) ([]scoredResponse, int) {
	valid := make([]scoredResponse, 0, len(responses))
	rejected := 0

	reject := func(r types.ForcedChoiceResponse, reason string) {
		rejected++
		if e.logger != nil {
			apperrors.LogError(e.logger.Logger, apperrors.NewInvalidResponseError(r.BlockID, reason))
		}
	}

	for _, r := range responses {
		block, ok := byID[r.BlockID]
		if !ok {
			reject(r, fmt.Sprintf("response references unknown block %q", r.BlockID))
			continue
		}
		if r.MostLikeIndex < 0 || r.MostLikeIndex > 3 || r.LeastLikeIndex < 0 || r.LeastLikeIndex > 3 {
			reject(r, fmt.Sprintf("choice index out of range: most=%d least=%d", r.MostLikeIndex, r.LeastLikeIndex))
			continue
		}
		if r.MostLikeIndex == r.LeastLikeIndex {
			reject(r, fmt.Sprintf("most and least choices coincide at index %d", r.MostLikeIndex))
			continue
		}
		valid = append(valid, scoredResponse{block: block, most: r.MostLikeIndex, least: r.LeastLikeIndex})
	}

	return valid, rejected
}

// InitialEstimate builds the starting theta: +1 per most-like choice, -1
// per least-like choice on a dimension, normalized by the dimension's
// exposure count and scaled by 0.5 to stay inside the bounded domain.
func (e *Estimator) InitialEstimate(valid []scoredResponse, d int) []float64 {
	sums := make([]float64, d)
	exposures := make([]float64, d)

	for _, r := range valid {
		for i, s := range r.block.Statements {
			di, ok := e.dimIndex[s.Dimension]
			if !ok {
				continue
			}
			exposures[di]++
			if i == r.most {
				sums[di]++
			}
			if i == r.least {
				sums[di]--
			}
		}
	}

	theta := make([]float64, d)
	for i := range theta {
		if exposures[i] > 0 {
			theta[i] = 0.5 * sums[i] / exposures[i]
		}
	}
	return theta
}

// negLogLikelihood is the minimized objective. With the prior enabled it
// adds the standard-normal MAP penalty.
func (e *Estimator) negLogLikelihood(theta []float64, valid []scoredResponse, usePrior bool) float64 {
	nll := -e.logLikelihood(theta, valid)
	if usePrior {
		penalty := 0.0
		for _, t := range theta {
			penalty += t * t
		}
		nll += e.cfg.PriorWeight * penalty
	}
	return nll
}

// logLikelihood is the data log-likelihood, excluding any prior.
func (e *Estimator) logLikelihood(theta []float64, valid []scoredResponse) float64 {
	ll := 0.0
	for _, r := range valid {
		u := Utilities(theta, e.dimIndex, r.block)
		p := ChoiceProbability(u, r.most, r.least)
		ll += logFloor(p)
	}
	return ll
}

// standardErrors inverts the finite-difference observed information at the
// solution. On a singular Hessian every dimension gets the fixed fallback
// SE and the estimate is flagged.
func (e *Estimator) standardErrors(theta []float64, valid []scoredResponse, usePrior bool) ([]float64, bool) {
	objective := func(t []float64) float64 {
		return e.negLogLikelihood(t, valid, usePrior)
	}

	info := hessianMatrix(objective, theta, e.cfg.FiniteDiffStep)
	if se, ok := invertInformation(info); ok {
		return se, false
	}

	se := make([]float64, len(theta))
	for i := range se {
		se[i] = e.cfg.FallbackSE
	}
	return se, true
}
