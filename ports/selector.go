package ports

// FeatureSelector ranks features against an outcome and keeps the top k.
// Where it is fit (whole dataset vs. per-split training rows) is decided by
// the evaluator, not the selector.
type FeatureSelector interface {
	// Select returns the indices of the k retained features in ascending
	// order. X is (n,P); y is length n.
	Select(X [][]float64, y []float64, k int) ([]int, error)
}
