package scoring

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// hessianMatrix approximates the Hessian of f at x via central finite
// differences over all (i,j) pairs.
func hessianMatrix(f func([]float64) float64, x []float64, step float64) *mat.Dense {
	n := len(x)
	h := mat.NewDense(n, n, nil)

	fx := f(x)
	xp := append([]float64(nil), x...)

	for i := 0; i < n; i++ {
		xp[i] = x[i] + step
		fPlus := f(xp)
		xp[i] = x[i] - step
		fMinus := f(xp)
		xp[i] = x[i]

		h.Set(i, i, (fPlus-2*fx+fMinus)/(step*step))

		for j := i + 1; j < n; j++ {
			xp[i], xp[j] = x[i]+step, x[j]+step
			fpp := f(xp)
			xp[j] = x[j] - step
			fpm := f(xp)
			xp[i] = x[i] - step
			fmm := f(xp)
			xp[j] = x[j] + step
			fmp := f(xp)
			xp[i], xp[j] = x[i], x[j]

			v := (fpp - fpm - fmp + fmm) / (4 * step * step)
			h.Set(i, j, v)
			h.Set(j, i, v)
		}
	}

	return h
}

// invertInformation inverts the observed information matrix and returns
// sqrt of its diagonal as standard errors. ok=false when the matrix is
// singular or produces a non-positive variance, in which case the caller
// falls back to a fixed SE.
func invertInformation(info *mat.Dense) ([]float64, bool) {
	n, _ := info.Dims()

	var inv mat.Dense
	if err := inv.Inverse(info); err != nil {
		return nil, false
	}

	se := make([]float64, n)
	for i := 0; i < n; i++ {
		v := inv.At(i, i)
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		se[i] = math.Sqrt(v)
	}
	return se, true
}
