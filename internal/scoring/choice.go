package scoring

import (
	"math"

	"github.com/perceptivehq/psychcore/internal/types"
)

// probabilityFloor keeps log-likelihood terms finite when a choice
// probability underflows.
const probabilityFloor = 1e-10

// Utilities computes the deterministic utility of each statement in a
// block: utility_i = loading_i * theta[dimension(i)]. The Thurstonian error
// term is integrated into the likelihood, never sampled at scoring time.
func Utilities(theta []float64, dimIndex map[string]int, block types.QuartetBlock) []float64 {
	us := make([]float64, len(block.Statements))
	for i, s := range block.Statements {
		if di, ok := dimIndex[s.Dimension]; ok {
			us[i] = s.FactorLoading * theta[di]
		}
	}
	return us
}

// ChoiceProbability returns the joint probability of choosing mostIdx as
// most-like and leastIdx as least-like: P(most) from a softmax over the
// utilities, then P(least|most) from a softmax over the negated utilities
// of the remaining statements. The conditional factorization is a modeling
// assumption, not exact pairwise Thurstonian theory.
func ChoiceProbability(utilities []float64, mostIdx, leastIdx int) float64 {
	pMost := softmax(utilities)[mostIdx]

	negated := make([]float64, 0, len(utilities)-1)
	leastPos := -1
	for i, u := range utilities {
		if i == mostIdx {
			continue
		}
		if i == leastIdx {
			leastPos = len(negated)
		}
		negated = append(negated, -u)
	}
	pLeast := softmax(negated)[leastPos]

	return pMost * pLeast
}

// logFloor is log(p + floor), keeping likelihood terms finite for
// vanishing probabilities.
func logFloor(p float64) float64 {
	return math.Log(p + probabilityFloor)
}

// softmax subtracts the max before exponentiating for numerical stability.
func softmax(xs []float64) []float64 {
	maxV := xs[0]
	for _, x := range xs[1:] {
		if x > maxV {
			maxV = x
		}
	}

	out := make([]float64, len(xs))
	sum := 0.0
	for i, x := range xs {
		out[i] = math.Exp(x - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
