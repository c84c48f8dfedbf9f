package scoring

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// lbfgsHistory is the number of curvature pairs kept for the two-loop
// recursion.
const lbfgsHistory = 7

type boundedResult struct {
	x          []float64
	fx         float64
	iterations int
	converged  bool
}

// minimizeBounded minimizes f over the box [lower,upper]^n with a projected
// L-BFGS: two-loop recursion for the search direction, projection of each
// trial point onto the box, Armijo backtracking. It never fails; when the
// line search stagnates or the iteration cap is hit, the best iterate seen
// is returned with converged=false.
func minimizeBounded(f func([]float64) float64, x0 []float64, lower, upper float64, maxIter int, gradTol, fdStep float64) boundedResult {
	n := len(x0)
	x := clampVec(append([]float64(nil), x0...), lower, upper)
	fx := f(x)
	g := gradient(f, x, fdStep)

	best := append([]float64(nil), x...)
	bestF := fx

	var sHist, yHist [][]float64
	var rhoHist []float64

	converged := false
	iterations := 0

	for iter := 0; iter < maxIter; iter++ {
		iterations = iter + 1

		if projectedGradNorm(x, g, lower, upper) < gradTol {
			converged = true
			break
		}

		dir := lbfgsDirection(g, sHist, yHist, rhoHist)
		if floats.Dot(dir, g) >= 0 {
			// curvature history unusable, fall back to steepest descent
			for i := range dir {
				dir[i] = -g[i]
			}
		}

		xNew, fNew, ok := armijoStep(f, x, fx, g, dir, lower, upper)
		if !ok {
			break
		}

		gNew := gradient(f, xNew, fdStep)

		s := make([]float64, n)
		y := make([]float64, n)
		for i := range x {
			s[i] = xNew[i] - x[i]
			y[i] = gNew[i] - g[i]
		}
		if sy := floats.Dot(s, y); sy > 1e-10 {
			sHist = append(sHist, s)
			yHist = append(yHist, y)
			rhoHist = append(rhoHist, 1/sy)
			if len(sHist) > lbfgsHistory {
				sHist = sHist[1:]
				yHist = yHist[1:]
				rhoHist = rhoHist[1:]
			}
		}

		x, fx, g = xNew, fNew, gNew
		if fx < bestF {
			bestF = fx
			copy(best, x)
		}
	}

	if fx < bestF {
		bestF = fx
		copy(best, x)
	}

	return boundedResult{x: best, fx: bestF, iterations: iterations, converged: converged}
}

// armijoStep backtracks along dir from x, projecting each trial point onto
// the box, until sufficient decrease holds. ok=false means the search
// stagnated.
func armijoStep(f func([]float64) float64, x []float64, fx float64, g, dir []float64, lower, upper float64) ([]float64, float64, bool) {
	const c1 = 1e-4

	step := 1.0
	for ls := 0; ls < 30; ls++ {
		xNew := make([]float64, len(x))
		for i := range x {
			xNew[i] = x[i] + step*dir[i]
		}
		xNew = clampVec(xNew, lower, upper)

		fNew := f(xNew)

		// directional decrease measured on the projected move
		decr := 0.0
		for i := range x {
			decr += g[i] * (xNew[i] - x[i])
		}

		if decr < 0 && fNew <= fx+c1*decr {
			return xNew, fNew, true
		}
		if decr >= 0 && fNew < fx {
			return xNew, fNew, true
		}

		step *= 0.5
	}
	return nil, 0, false
}

// lbfgsDirection runs the two-loop recursion over the stored curvature
// pairs. With no history it returns the steepest-descent direction.
func lbfgsDirection(g []float64, sHist, yHist [][]float64, rhoHist []float64) []float64 {
	q := make([]float64, len(g))
	for i := range g {
		q[i] = g[i]
	}

	k := len(sHist)
	alphas := make([]float64, k)
	for i := k - 1; i >= 0; i-- {
		alphas[i] = rhoHist[i] * floats.Dot(sHist[i], q)
		for j := range q {
			q[j] -= alphas[i] * yHist[i][j]
		}
	}

	if k > 0 {
		yy := floats.Dot(yHist[k-1], yHist[k-1])
		if yy > 0 {
			gamma := floats.Dot(sHist[k-1], yHist[k-1]) / yy
			for j := range q {
				q[j] *= gamma
			}
		}
	}

	for i := 0; i < k; i++ {
		beta := rhoHist[i] * floats.Dot(yHist[i], q)
		for j := range q {
			q[j] += (alphas[i] - beta) * sHist[i][j]
		}
	}

	for i := range q {
		q[i] = -q[i]
	}
	return q
}

// gradient approximates the gradient of f at x via central differences.
func gradient(f func([]float64) float64, x []float64, step float64) []float64 {
	g := make([]float64, len(x))
	xp := append([]float64(nil), x...)
	for i := range x {
		xp[i] = x[i] + step
		fPlus := f(xp)
		xp[i] = x[i] - step
		fMinus := f(xp)
		xp[i] = x[i]
		g[i] = (fPlus - fMinus) / (2 * step)
	}
	return g
}

// projectedGradNorm is the infinity norm of x - clamp(x - g), the
// first-order optimality measure on a box.
func projectedGradNorm(x, g []float64, lower, upper float64) float64 {
	norm := 0.0
	for i := range x {
		p := clamp(x[i]-g[i], lower, upper)
		if d := math.Abs(x[i] - p); d > norm {
			norm = d
		}
	}
	return norm
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampVec(xs []float64, lo, hi float64) []float64 {
	for i := range xs {
		xs[i] = clamp(xs[i], lo, hi)
	}
	return xs
}
