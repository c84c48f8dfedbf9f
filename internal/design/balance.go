package design

import (
	"fmt"
	"math"
	"sort"

	"github.com/perceptivehq/psychcore/internal/types"
)

// BalanceReport is the non-fatal diagnostic produced after design
// validation. A violated report means the block set missed a tolerance,
// not that it is unusable.
type BalanceReport struct {
	DimensionCounts          map[string]int `json:"dimension_counts"`
	DimensionCV              float64        `json:"dimension_cv"`
	PairCV                   float64        `json:"pair_cv"`
	MeanDesirabilityVariance float64        `json:"mean_desirability_variance"`
	DuplicateDimensionBlocks []string       `json:"duplicate_dimension_blocks,omitempty"`
	Violations               []string       `json:"violations,omitempty"`
	Tolerance                float64        `json:"tolerance"`
}

// Balanced reports whether every check passed.
func (r *BalanceReport) Balanced() bool {
	return len(r.Violations) == 0
}

// EvaluateBalance computes exposure, co-occurrence and desirability
// diagnostics over a full block set.
func EvaluateBalance(blocks []types.QuartetBlock, dims []string, tolerance float64) *BalanceReport {
	report := &BalanceReport{
		DimensionCounts: dimensionCounts(blocks, dims),
		Tolerance:       tolerance,
	}

	counts := make([]float64, len(dims))
	for i, d := range dims {
		counts[i] = float64(report.DimensionCounts[d])
	}
	report.DimensionCV = coefficientOfVariation(counts)
	report.PairCV = coefficientOfVariation(pairCounts(blocks, dims))
	report.MeanDesirabilityVariance = meanDesirabilityVariance(blocks)

	for _, b := range blocks {
		if b.HasDuplicateDimension() {
			report.DuplicateDimensionBlocks = append(report.DuplicateDimensionBlocks, b.BlockID)
		}
	}

	if report.DimensionCV > tolerance {
		report.Violations = append(report.Violations,
			fmt.Sprintf("dimension exposure cv %.4f exceeds tolerance %.4f", report.DimensionCV, tolerance))
	}
	if report.PairCV > tolerance {
		report.Violations = append(report.Violations,
			fmt.Sprintf("pair co-occurrence cv %.4f exceeds tolerance %.4f", report.PairCV, tolerance))
	}
	if len(report.DuplicateDimensionBlocks) > 0 {
		report.Violations = append(report.Violations,
			fmt.Sprintf("%d blocks contain a duplicate dimension", len(report.DuplicateDimensionBlocks)))
	}

	return report
}

// BalanceScore is the scalar objective maximized by the local-search
// optimizer: lower CVs and lower intra-block desirability variance score
// higher.
func BalanceScore(blocks []types.QuartetBlock, dims []string) float64 {
	counts := make([]float64, len(dims))
	dc := dimensionCounts(blocks, dims)
	for i, d := range dims {
		counts[i] = float64(dc[d])
	}
	dimCV := coefficientOfVariation(counts)
	pairCV := coefficientOfVariation(pairCounts(blocks, dims))
	meanVar := meanDesirabilityVariance(blocks)

	return -10*dimCV - 5*pairCV - 2*meanVar
}

func dimensionCounts(blocks []types.QuartetBlock, dims []string) map[string]int {
	counts := make(map[string]int, len(dims))
	for _, d := range dims {
		counts[d] = 0
	}
	for _, b := range blocks {
		for _, s := range b.Statements {
			counts[s.Dimension]++
		}
	}
	return counts
}

// pairCounts returns co-occurrence counts for every unordered dimension
// pair, including zero entries for pairs that never meet.
func pairCounts(blocks []types.QuartetBlock, dims []string) []float64 {
	counts := make(map[string]float64)
	for i := 0; i < len(dims); i++ {
		for j := i + 1; j < len(dims); j++ {
			counts[pairKey(dims[i], dims[j])] = 0
		}
	}

	for _, b := range blocks {
		bd := b.Dimensions()
		for i := 0; i < len(bd); i++ {
			for j := i + 1; j < len(bd); j++ {
				counts[pairKey(bd[i], bd[j])]++
			}
		}
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = counts[k]
	}
	return out
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// desirabilityVariance is the population variance of social desirability
// within one block.
func desirabilityVariance(b types.QuartetBlock) float64 {
	if len(b.Statements) == 0 {
		return 0
	}
	mean := 0.0
	for _, s := range b.Statements {
		mean += s.SocialDesirability
	}
	mean /= float64(len(b.Statements))

	v := 0.0
	for _, s := range b.Statements {
		d := s.SocialDesirability - mean
		v += d * d
	}
	return v / float64(len(b.Statements))
}

func meanDesirabilityVariance(blocks []types.QuartetBlock) float64 {
	if len(blocks) == 0 {
		return 0
	}
	total := 0.0
	for _, b := range blocks {
		total += desirabilityVariance(b)
	}
	return total / float64(len(blocks))
}

// coefficientOfVariation returns population std / mean, 0 for an empty or
// zero-mean sample.
func coefficientOfVariation(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if mean == 0 {
		return 0
	}

	v := 0.0
	for _, x := range xs {
		d := x - mean
		v += d * d
	}
	v /= float64(len(xs))

	return math.Sqrt(v) / mean
}
