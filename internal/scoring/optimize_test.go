package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinimizeBoundedQuadratic(t *testing.T) {
	// f(x) = (x0-1)^2 + (x1+2)^2, unconstrained minimum at (1, -2)
	f := func(x []float64) float64 {
		return (x[0]-1)*(x[0]-1) + (x[1]+2)*(x[1]+2)
	}

	res := minimizeBounded(f, []float64{0, 0}, -3, 3, 200, 1e-6, 1e-6)

	assert.True(t, res.converged)
	assert.InDelta(t, 1.0, res.x[0], 1e-4)
	assert.InDelta(t, -2.0, res.x[1], 1e-4)
	assert.InDelta(t, 0.0, res.fx, 1e-6)
}

func TestMinimizeBoundedActiveConstraint(t *testing.T) {
	// minimum at x=5 sits outside the box; the solver must settle on the
	// boundary
	f := func(x []float64) float64 {
		return (x[0] - 5) * (x[0] - 5)
	}

	res := minimizeBounded(f, []float64{0}, -3, 3, 200, 1e-6, 1e-6)

	assert.True(t, res.converged)
	assert.InDelta(t, 3.0, res.x[0], 1e-6)
}

func TestMinimizeBoundedIterationCap(t *testing.T) {
	f := func(x []float64) float64 {
		return math.Cos(x[0]) + 0.1*x[0]*x[0]
	}

	// a one-iteration budget cannot converge; best iterate still returned
	res := minimizeBounded(f, []float64{2.5}, -3, 3, 1, 1e-12, 1e-6)

	assert.False(t, res.converged)
	assert.Equal(t, 1, res.iterations)
	assert.LessOrEqual(t, res.fx, f([]float64{2.5}))
	assert.GreaterOrEqual(t, res.x[0], -3.0)
	assert.LessOrEqual(t, res.x[0], 3.0)
}

func TestMinimizeBoundedClampsStart(t *testing.T) {
	f := func(x []float64) float64 {
		return x[0] * x[0]
	}

	res := minimizeBounded(f, []float64{10}, -3, 3, 100, 1e-6, 1e-6)

	assert.True(t, res.converged)
	assert.InDelta(t, 0.0, res.x[0], 1e-4)
}

func TestProjectedGradNorm(t *testing.T) {
	// at an interior stationary point the measure vanishes
	assert.InDelta(t, 0.0, projectedGradNorm([]float64{1}, []float64{0}, -3, 3), 1e-12)

	// at a bound with the gradient pushing outward it also vanishes
	assert.InDelta(t, 0.0, projectedGradNorm([]float64{3}, []float64{-1}, -3, 3), 1e-12)

	// interior point with live gradient
	assert.InDelta(t, 0.5, projectedGradNorm([]float64{0}, []float64{0.5}, -3, 3), 1e-12)
}
