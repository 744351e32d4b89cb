// Package models provides the estimator families the evaluation harness
// fits per split: ridge-regularized linear models exposing coefficients, and
// a nearest-centroid baseline that exposes none.
package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"leakcheck/domain/core"
	"leakcheck/ports"
)

// ridgeSolve fits ridge-regularized least squares on centered data and
// returns the weight vector plus intercept. When P exceeds N it switches to
// the dual formulation so the linear solve stays (N,N).
func ridgeSolve(X [][]float64, y []float64, lambda float64) ([]float64, float64, error) {
	n := len(X)
	if n == 0 {
		return nil, 0, core.NewConfigurationError("training rows", "must be non-empty")
	}
	if len(y) != n {
		return nil, 0, core.NewDimensionMismatchError("training outcome", n, len(y))
	}
	p := len(X[0])
	if p == 0 {
		return nil, 0, core.NewConfigurationError("training features", "must be non-empty")
	}
	if lambda < 0 {
		return nil, 0, core.NewConfigurationError("lambda", "must be >= 0")
	}

	// Center columns and target; the intercept absorbs the means.
	colMean := make([]float64, p)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			colMean[j] += X[i][j]
		}
		colMean[j] /= float64(n)
	}
	meanY := 0.0
	for _, v := range y {
		meanY += v
	}
	meanY /= float64(n)

	flat := make([]float64, n*p)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			flat[i*p+j] = X[i][j] - colMean[j]
		}
	}
	xc := mat.NewDense(n, p, flat)

	yc := make([]float64, n)
	for i, v := range y {
		yc[i] = v - meanY
	}
	yv := mat.NewVecDense(n, yc)

	w := make([]float64, p)
	if p <= n {
		// Primal: (Xc'Xc + lambda I) w = Xc'y
		var gram mat.Dense
		gram.Mul(xc.T(), xc)
		for j := 0; j < p; j++ {
			gram.Set(j, j, gram.At(j, j)+lambda)
		}
		var rhs mat.VecDense
		rhs.MulVec(xc.T(), yv)

		var sol mat.VecDense
		if err := sol.SolveVec(&gram, &rhs); err != nil {
			return nil, 0, fmt.Errorf("ridge primal solve failed: %w", err)
		}
		for j := 0; j < p; j++ {
			w[j] = sol.AtVec(j)
		}
	} else {
		// Dual: alpha = (Xc Xc' + lambda I)^-1 y ; w = Xc' alpha
		var gram mat.Dense
		gram.Mul(xc, xc.T())
		for i := 0; i < n; i++ {
			gram.Set(i, i, gram.At(i, i)+lambda)
		}

		var alpha mat.VecDense
		if err := alpha.SolveVec(&gram, yv); err != nil {
			return nil, 0, fmt.Errorf("ridge dual solve failed: %w", err)
		}
		var sol mat.VecDense
		sol.MulVec(xc.T(), &alpha)
		for j := 0; j < p; j++ {
			w[j] = sol.AtVec(j)
		}
	}

	intercept := meanY
	for j := 0; j < p; j++ {
		intercept -= w[j] * colMean[j]
	}
	return w, intercept, nil
}

// ridgeFitted is the shared fitted form of both ridge families.
type ridgeFitted struct {
	w         []float64
	intercept float64
	// classify maps the linear score back to the two original labels.
	classify bool
	negLabel float64
	posLabel float64
}

// Predict scores each row: raw linear response for regression, decoded class
// labels for classification.
func (m *ridgeFitted) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		score := m.intercept
		for j, v := range row {
			score += m.w[j] * v
		}
		if m.classify {
			if score > 0 {
				out[i] = m.posLabel
			} else {
				out[i] = m.negLabel
			}
		} else {
			out[i] = score
		}
	}
	return out
}

// Coefficients returns the fitted weight vector.
func (m *ridgeFitted) Coefficients() ([]float64, bool) {
	return m.w, true
}

// RidgeClassifier is a binary linear classifier fit by ridge regression on
// +/-1 encoded labels, the closed-form stand-in for an SVC that keeps split
// evaluation deterministic.
type RidgeClassifier struct {
	key    core.ModelKey
	Lambda float64
	// Grid, when non-empty, enables per-split hyperparameter search over
	// these lambda values (training rows only).
	Grid []float64
}

// NewRidgeClassifier creates a classifier family with a fixed lambda.
func NewRidgeClassifier(lambda float64) *RidgeClassifier {
	return &RidgeClassifier{key: core.ModelKey("ridge_classifier"), Lambda: lambda}
}

// Key implements ports.ModelFamily.
func (f *RidgeClassifier) Key() core.ModelKey { return f.key }

// HasCoefficients implements ports.ModelFamily.
func (f *RidgeClassifier) HasCoefficients() bool { return true }

// Fit trains on the given rows. Exactly two classes are required; fewer is a
// degenerate partition the evaluator skips, more is unsupported by this
// family.
func (f *RidgeClassifier) Fit(X [][]float64, y []float64) (ports.FittedModel, error) {
	neg, pos, err := binaryLabels(y)
	if err != nil {
		return nil, err
	}

	encoded := make([]float64, len(y))
	for i, v := range y {
		if v == pos {
			encoded[i] = 1
		} else {
			encoded[i] = -1
		}
	}

	w, b, err := ridgeSolve(X, encoded, f.Lambda)
	if err != nil {
		return nil, err
	}
	return &ridgeFitted{w: w, intercept: b, classify: true, negLabel: neg, posLabel: pos}, nil
}

// RidgeRegressor is a ridge-regularized linear regressor for continuous
// outcomes.
type RidgeRegressor struct {
	key    core.ModelKey
	Lambda float64
	Grid   []float64
}

// NewRidgeRegressor creates a regressor family with a fixed lambda.
func NewRidgeRegressor(lambda float64) *RidgeRegressor {
	return &RidgeRegressor{key: core.ModelKey("ridge_regressor"), Lambda: lambda}
}

// Key implements ports.ModelFamily.
func (f *RidgeRegressor) Key() core.ModelKey { return f.key }

// HasCoefficients implements ports.ModelFamily.
func (f *RidgeRegressor) HasCoefficients() bool { return true }

// Fit trains on the given rows.
func (f *RidgeRegressor) Fit(X [][]float64, y []float64) (ports.FittedModel, error) {
	w, b, err := ridgeSolve(X, y, f.Lambda)
	if err != nil {
		return nil, err
	}
	return &ridgeFitted{w: w, intercept: b}, nil
}

// binaryLabels extracts the two class labels, smaller first.
func binaryLabels(y []float64) (neg, pos float64, err error) {
	neg, pos = math.Inf(1), math.Inf(-1)
	seen := make(map[float64]bool)
	for _, v := range y {
		seen[v] = true
		if v < neg {
			neg = v
		}
		if v > pos {
			pos = v
		}
	}
	if len(seen) != 2 {
		return 0, 0, core.NewConfigurationError("labels", fmt.Sprintf("ridge classifier requires exactly 2 classes, got %d", len(seen)))
	}
	return neg, pos, nil
}
