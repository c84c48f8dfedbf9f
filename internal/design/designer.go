package design

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/perceptivehq/psychcore/internal/config"
	"github.com/perceptivehq/psychcore/internal/monitoring"
	"github.com/perceptivehq/psychcore/internal/types"
)

// Designer assembles quartet blocks balancing dimension exposure, pairwise
// co-occurrence and social-desirability similarity. All randomness flows
// through one seeded rng, so a fixed seed reproduces the block set exactly.
type Designer struct {
	cfg    config.DesignConfig
	rng    *rand.Rand
	logger *monitoring.Logger
}

// NewDesigner creates a designer with the given tunables and seed.
func NewDesigner(cfg config.DesignConfig, seed int64, logger *monitoring.Logger) *Designer {
	return &Designer{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// MinBlocks is the lower bound on the block count needed to give every one
// of d dimensions at least minExposure appearances: ceil(d*m/4).
func MinBlocks(d, minExposure int) int {
	return (d*minExposure + statementsPerBlock - 1) / statementsPerBlock
}

// Design produces targetBlocks quartet blocks from the pool, adding blocks
// past the target when needed to reach the minimum exposure floor. The
// returned BalanceReport is a non-fatal diagnostic; a violated report still
// ships with a usable design.
func (d *Designer) Design(pool *StatementPool, targetBlocks int) ([]types.QuartetBlock, *BalanceReport, error) {
	start := time.Now()

	if err := pool.Validate(); err != nil {
		return nil, nil, err
	}

	dims := pool.Dimensions()
	if minBlocks := MinBlocks(len(dims), d.cfg.MinExposure); targetBlocks < minBlocks {
		targetBlocks = minBlocks
	}

	st := newDesignState(pool)

	// Base assignment: one covering pass over shuffled dimension groups.
	blocks, err := d.basePass(st, dims)
	if err != nil {
		return nil, nil, err
	}

	// Balancing pass: keep adding blocks of the most under-exposed
	// dimensions until the target count and the exposure floor are met.
	maxBlocks := targetBlocks + len(dims)*d.cfg.MinExposure
	for (len(blocks) < targetBlocks || st.minDimUsage() < d.cfg.MinExposure) && len(blocks) < maxBlocks {
		block, err := st.buildBlock(d, st.selectBalancingDims(d))
		if err != nil {
			return nil, nil, err
		}
		blocks = append(blocks, block)
	}

	report := EvaluateBalance(blocks, dims, d.cfg.CVTolerance)
	if !report.Balanced() {
		// One more balancing pass, then report whatever remains.
		block, err := st.buildBlock(d, st.selectBalancingDims(d))
		if err != nil {
			return nil, nil, err
		}
		blocks = append(blocks, block)
		report = EvaluateBalance(blocks, dims, d.cfg.CVTolerance)
	}

	if d.logger != nil {
		d.logger.DesignLogger(len(blocks), len(dims), report.DimensionCV, report.PairCV, report.Balanced(), time.Since(start))
	}

	return blocks, report, nil
}

// Optimize runs the local-search pass over an existing design. Swaps keep
// per-dimension exposure fixed, so it only reshapes co-occurrence and
// desirability variance.
func (d *Designer) Optimize(blocks []types.QuartetBlock, dims []string, accept Acceptance) []types.QuartetBlock {
	ls := NewLocalSearch(d.cfg, accept, d.rng)
	return ls.Optimize(blocks, dims)
}

// basePass partitions the shuffled dimensions into groups of four, padding
// the last group with the least-used other dimensions.
func (d *Designer) basePass(st *designState, dims []string) ([]types.QuartetBlock, error) {
	shuffled := append([]string(nil), dims...)
	d.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var blocks []types.QuartetBlock
	for i := 0; i < len(shuffled); i += statementsPerBlock {
		end := i + statementsPerBlock
		if end > len(shuffled) {
			end = len(shuffled)
		}
		group := append([]string(nil), shuffled[i:end]...)
		group = st.padGroup(d, group, dims)

		block, err := st.buildBlock(d, group)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// designState tracks dimension and statement usage across one design run.
type designState struct {
	pool      *StatementPool
	dimUsage  map[string]int
	stmtUsage map[string]int
}

func newDesignState(pool *StatementPool) *designState {
	st := &designState{
		pool:      pool,
		dimUsage:  make(map[string]int),
		stmtUsage: make(map[string]int),
	}
	for _, dim := range pool.Dimensions() {
		st.dimUsage[dim] = 0
	}
	return st
}

func (st *designState) minDimUsage() int {
	min := math.MaxInt
	for _, u := range st.dimUsage {
		if u < min {
			min = u
		}
	}
	return min
}

// selectBalancingDims picks the four most under-exposed dimensions, ties
// broken by a seeded permutation.
func (st *designState) selectBalancingDims(d *Designer) []string {
	dims := st.pool.Dimensions()
	perm := d.rng.Perm(len(dims))
	rank := make(map[string]int, len(dims))
	for i, p := range perm {
		rank[dims[i]] = p
	}

	ordered := append([]string(nil), dims...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ui, uj := st.dimUsage[ordered[i]], st.dimUsage[ordered[j]]
		if ui != uj {
			return ui < uj
		}
		return rank[ordered[i]] < rank[ordered[j]]
	})

	return ordered[:statementsPerBlock]
}

// padGroup fills a partial dimension group up to four with the least-used
// dimensions not already present.
func (st *designState) padGroup(d *Designer, group, dims []string) []string {
	if len(group) >= statementsPerBlock {
		return group
	}

	in := make(map[string]bool, len(group))
	for _, g := range group {
		in[g] = true
	}

	for _, candidate := range st.selectOrderedByUsage(d, dims) {
		if len(group) == statementsPerBlock {
			break
		}
		if !in[candidate] {
			group = append(group, candidate)
			in[candidate] = true
		}
	}
	return group
}

func (st *designState) selectOrderedByUsage(d *Designer, dims []string) []string {
	perm := d.rng.Perm(len(dims))
	rank := make(map[string]int, len(dims))
	for i, p := range perm {
		rank[dims[i]] = p
	}

	ordered := append([]string(nil), dims...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ui, uj := st.dimUsage[ordered[i]], st.dimUsage[ordered[j]]
		if ui != uj {
			return ui < uj
		}
		return rank[ordered[i]] < rank[ordered[j]]
	})
	return ordered
}

// buildBlock assembles one quartet from the given dimensions, choosing per
// dimension the least-used statement whose social desirability sits closest
// to the running mean of the statements already in the block. Matching
// desirability within a block reduces response bias toward more attractive
// items.
func (st *designState) buildBlock(d *Designer, blockDims []string) (types.QuartetBlock, error) {
	chosen := make([]types.Statement, 0, statementsPerBlock)
	for _, dim := range blockDims {
		s := st.pickStatement(d, dim, chosen)
		chosen = append(chosen, s)
		st.stmtUsage[s.ID]++
		st.dimUsage[dim]++
	}

	id, err := uuid.NewRandomFromReader(d.rng)
	if err != nil {
		return types.QuartetBlock{}, err
	}

	return types.QuartetBlock{BlockID: id.String(), Statements: chosen}, nil
}

func (st *designState) pickStatement(d *Designer, dim string, chosen []types.Statement) types.Statement {
	candidates := st.pool.ForDimension(dim)

	minUse := math.MaxInt
	for _, c := range candidates {
		if u := st.stmtUsage[c.ID]; u < minUse {
			minUse = u
		}
	}
	leastUsed := make([]types.Statement, 0, len(candidates))
	for _, c := range candidates {
		if st.stmtUsage[c.ID] == minUse {
			leastUsed = append(leastUsed, c)
		}
	}

	if len(chosen) == 0 {
		return leastUsed[d.rng.Intn(len(leastUsed))]
	}

	mean := 0.0
	for _, s := range chosen {
		mean += s.SocialDesirability
	}
	mean /= float64(len(chosen))

	best := leastUsed[:0:0]
	bestDist := math.Inf(1)
	for _, c := range leastUsed {
		dist := math.Abs(c.SocialDesirability - mean)
		switch {
		case dist < bestDist-1e-12:
			best = append(best[:0], c)
			bestDist = dist
		case math.Abs(dist-bestDist) <= 1e-12:
			best = append(best, c)
		}
	}

	return best[d.rng.Intn(len(best))]
}
