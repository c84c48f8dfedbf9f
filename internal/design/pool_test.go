package design

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/perceptivehq/psychcore/internal/errors"
	"github.com/perceptivehq/psychcore/internal/types"
)

// testPool builds nDims dimensions named dim0..dimN with perDim statements
// each, all with the given desirability.
func testPool(nDims, perDim int, desirability float64) []types.Statement {
	var statements []types.Statement
	for d := 0; d < nDims; d++ {
		dim := fmt.Sprintf("dim%d", d)
		for s := 0; s < perDim; s++ {
			statements = append(statements, types.Statement{
				ID:                 fmt.Sprintf("%s-s%d", dim, s),
				Text:               fmt.Sprintf("statement %d for %s", s, dim),
				Dimension:          dim,
				FactorLoading:      1.0,
				SocialDesirability: desirability,
			})
		}
	}
	return statements
}

func TestNewStatementPool(t *testing.T) {
	pool := NewStatementPool(testPool(5, 4, 5.0))

	assert.Equal(t, []string{"dim0", "dim1", "dim2", "dim3", "dim4"}, pool.Dimensions())
	assert.Equal(t, 20, pool.Size())
	assert.Len(t, pool.ForDimension("dim2"), 4)
	assert.Empty(t, pool.ForDimension("missing"))
}

func TestPoolValidate(t *testing.T) {
	shortDim := testPool(3, 4, 5.0)
	for i := 0; i < 3; i++ {
		shortDim = append(shortDim, types.Statement{
			ID:                 fmt.Sprintf("dim3-s%d", i),
			Dimension:          "dim3",
			FactorLoading:      1.0,
			SocialDesirability: 5.0,
		})
	}

	tests := []struct {
		name       string
		statements []types.Statement
		wantErr    bool
	}{
		{
			name:       "accepts four statements per dimension",
			statements: testPool(4, 4, 5.0),
			wantErr:    false,
		},
		{
			name:       "rejects dimension with three statements",
			statements: shortDim,
			wantErr:    true,
		},
		{
			name:       "rejects fewer than four dimensions",
			statements: testPool(3, 6, 5.0),
			wantErr:    true,
		},
		{
			name:       "rejects empty pool",
			statements: nil,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewStatementPool(tt.statements).Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, apperrors.IsCategory(err, apperrors.CategoryDesign))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
