package design

import (
	"sort"

	apperrors "github.com/perceptivehq/psychcore/internal/errors"
	"github.com/perceptivehq/psychcore/internal/types"
)

// statementsPerBlock is fixed by the quartet format.
const statementsPerBlock = 4

// StatementPool is an immutable catalog of statements grouped by latent
// dimension.
type StatementPool struct {
	byDimension map[string][]types.Statement
	dimensions  []string
}

// NewStatementPool groups statements by dimension. Dimension order is
// sorted so pool iteration is stable.
func NewStatementPool(statements []types.Statement) *StatementPool {
	byDim := make(map[string][]types.Statement)
	for _, s := range statements {
		byDim[s.Dimension] = append(byDim[s.Dimension], s)
	}

	dims := make([]string, 0, len(byDim))
	for d := range byDim {
		dims = append(dims, d)
	}
	sort.Strings(dims)

	return &StatementPool{byDimension: byDim, dimensions: dims}
}

// Dimensions returns the pool's dimensions in stable order.
func (p *StatementPool) Dimensions() []string {
	return p.dimensions
}

// ForDimension returns the statements belonging to one dimension.
func (p *StatementPool) ForDimension(dim string) []types.Statement {
	return p.byDimension[dim]
}

// Size returns the total number of statements in the pool.
func (p *StatementPool) Size() int {
	n := 0
	for _, ss := range p.byDimension {
		n += len(ss)
	}
	return n
}

// Validate checks the hard design precondition: every dimension must carry
// at least statementsPerBlock statements. Violations are fatal and never
// retried.
func (p *StatementPool) Validate() error {
	if len(p.dimensions) < statementsPerBlock {
		return apperrors.NewInsufficientDimensionsError(len(p.dimensions), statementsPerBlock)
	}
	for _, dim := range p.dimensions {
		if have := len(p.byDimension[dim]); have < statementsPerBlock {
			return apperrors.NewInsufficientPoolError(dim, have, statementsPerBlock)
		}
	}
	return nil
}
