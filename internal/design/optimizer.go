package design

import (
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/perceptivehq/psychcore/internal/config"
	"github.com/perceptivehq/psychcore/internal/types"
)

// Acceptance decides whether the local search takes a proposed score delta.
// Implementations draw any randomness from the supplied rng so fixed-seed
// runs stay reproducible.
type Acceptance interface {
	Name() string
	Accept(delta float64, rng *rand.Rand) bool
}

// HillClimbing accepts strict improvements only.
type HillClimbing struct{}

func (HillClimbing) Name() string { return "hill_climbing" }

func (HillClimbing) Accept(delta float64, _ *rand.Rand) bool {
	return delta > 0
}

// SimulatedAnnealing accepts worsening moves with Metropolis probability
// under a geometrically cooling temperature.
type SimulatedAnnealing struct {
	Temperature float64
	Cooling     float64
}

// NewSimulatedAnnealing creates an annealing criterion. Cooling must be in
// (0,1); values outside are clamped to the default 0.995.
func NewSimulatedAnnealing(temperature, cooling float64) *SimulatedAnnealing {
	if cooling <= 0 || cooling >= 1 {
		cooling = 0.995
	}
	return &SimulatedAnnealing{Temperature: temperature, Cooling: cooling}
}

func (sa *SimulatedAnnealing) Name() string { return "simulated_annealing" }

func (sa *SimulatedAnnealing) Accept(delta float64, rng *rand.Rand) bool {
	defer func() { sa.Temperature *= sa.Cooling }()

	if delta > 0 {
		return true
	}
	if sa.Temperature <= 0 {
		return false
	}
	return rng.Float64() < math.Exp(delta/sa.Temperature)
}

// LocalSearch improves an existing design by proposing statement swaps
// between blocks. Swaps preserve total dimension exposure; only pairwise
// co-occurrence and intra-block desirability variance move.
type LocalSearch struct {
	cfg    config.DesignConfig
	accept Acceptance
	rng    *rand.Rand
}

// NewLocalSearch creates a local search with the given acceptance strategy.
// A nil strategy defaults to hill-climbing.
func NewLocalSearch(cfg config.DesignConfig, accept Acceptance, rng *rand.Rand) *LocalSearch {
	if accept == nil {
		accept = HillClimbing{}
	}
	return &LocalSearch{cfg: cfg, accept: accept, rng: rng}
}

type swapCandidate struct {
	blockA, slotA int
	blockB, slotB int
}

// Optimize runs the iteration budget and returns the improved block set.
// The input slice is not mutated. Candidate swaps within one iteration are
// evaluated concurrently; the rng draws happen before the fan-out, so a
// fixed seed yields an identical result.
func (ls *LocalSearch) Optimize(blocks []types.QuartetBlock, dims []string) []types.QuartetBlock {
	if len(blocks) < 2 {
		return blocks
	}

	current := cloneBlocks(blocks)
	currentScore := BalanceScore(current, dims)

	for iter := 0; iter < ls.cfg.OptimizerBudget; iter++ {
		candidates := make([]swapCandidate, ls.cfg.SwapCandidates)
		for i := range candidates {
			candidates[i] = swapCandidate{
				blockA: ls.rng.Intn(len(current)),
				slotA:  ls.rng.Intn(statementsPerBlock),
				blockB: ls.rng.Intn(len(current)),
				slotB:  ls.rng.Intn(statementsPerBlock),
			}
		}

		scores := make([]float64, len(candidates))
		var eg errgroup.Group
		for i := range candidates {
			eg.Go(func() error {
				scores[i] = ls.evaluate(current, dims, candidates[i])
				return nil
			})
		}
		_ = eg.Wait()

		best, bestScore := -1, math.Inf(-1)
		for i, s := range scores {
			if s > bestScore {
				best, bestScore = i, s
			}
		}
		if best < 0 || math.IsInf(bestScore, -1) {
			continue
		}

		if ls.accept.Accept(bestScore-currentScore, ls.rng) {
			applySwap(current, candidates[best])
			currentScore = bestScore
		}
	}

	return current
}

// evaluate scores the design with the candidate swap applied, or -Inf when
// the swap is invalid (same block, or a duplicate dimension would appear).
func (ls *LocalSearch) evaluate(blocks []types.QuartetBlock, dims []string, c swapCandidate) float64 {
	if !validSwap(blocks, c) {
		return math.Inf(-1)
	}
	trial := cloneBlocks(blocks)
	applySwap(trial, c)
	return BalanceScore(trial, dims)
}

func validSwap(blocks []types.QuartetBlock, c swapCandidate) bool {
	if c.blockA == c.blockB {
		return false
	}
	sa := blocks[c.blockA].Statements[c.slotA]
	sb := blocks[c.blockB].Statements[c.slotB]

	return !wouldDuplicate(blocks[c.blockA], c.slotA, sb.Dimension) &&
		!wouldDuplicate(blocks[c.blockB], c.slotB, sa.Dimension)
}

// wouldDuplicate reports whether placing dim into the given slot would
// collide with another statement's dimension in the block.
func wouldDuplicate(b types.QuartetBlock, slot int, dim string) bool {
	for i, s := range b.Statements {
		if i == slot {
			continue
		}
		if s.Dimension == dim {
			return true
		}
	}
	return false
}

func applySwap(blocks []types.QuartetBlock, c swapCandidate) {
	blocks[c.blockA].Statements[c.slotA], blocks[c.blockB].Statements[c.slotB] =
		blocks[c.blockB].Statements[c.slotB], blocks[c.blockA].Statements[c.slotA]
}

func cloneBlocks(blocks []types.QuartetBlock) []types.QuartetBlock {
	out := make([]types.QuartetBlock, len(blocks))
	for i, b := range blocks {
		out[i] = types.QuartetBlock{
			BlockID:    b.BlockID,
			Statements: append([]types.Statement(nil), b.Statements...),
		}
	}
	return out
}
