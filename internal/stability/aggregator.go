// Package stability condenses per-split coefficient records into per-feature
// summary maps. The pseudo-t statistic (mean over standard error) is the
// projection consumed downstream for thresholding; features with no records
// carry an explicit no-data marker rather than a fabricated zero.
package stability

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"leakcheck/domain/core"
)

// FeatureStats summarizes one feature's coefficient sequence across splits.
type FeatureStats struct {
	HasData bool    `json:"has_data"`
	Count   int     `json:"count"`
	Mean    float64 `json:"mean"`
	StdErr  float64 `json:"std_err"`
	PseudoT float64 `json:"pseudo_t"`
	PValue  float64 `json:"p_value"`
}

// Map is the per-feature stability output, index-aligned with the feature
// space the coefficients were recorded in.
type Map struct {
	Features []FeatureStats `json:"features"`
}

// NoData reports whether the aggregation carried no coefficient records at
// all. This is the expected outcome for model families without linear
// coefficients and is not an error.
func (m *Map) NoData() bool {
	return len(m.Features) == 0
}

// Aggregate computes per-feature mean, standard error and pseudo-t over the
// recorded coefficient vectors. Records must share a common width; an empty
// record set yields a no-data map. Zero standard error maps to pseudo-t 0,
// never a division blowup.
func Aggregate(records [][]float64) (*Map, error) {
	if len(records) == 0 {
		return &Map{}, nil
	}
	p := len(records[0])
	for i, rec := range records {
		if len(rec) != p {
			return nil, core.NewDimensionMismatchError("coefficient record", p, len(records[i]))
		}
	}

	n := len(records)
	out := &Map{Features: make([]FeatureStats, p)}
	column := make([]float64, n)
	for j := 0; j < p; j++ {
		for i, rec := range records {
			column[i] = rec[j]
		}
		out.Features[j] = summarize(column)
	}
	return out, nil
}

func summarize(values []float64) FeatureStats {
	n := len(values)
	mean, _ := stats.Mean(values)

	fs := FeatureStats{HasData: true, Count: n, Mean: mean, PValue: 1}
	if n < 2 {
		return fs
	}

	sd, _ := stats.StandardDeviationSample(values)
	fs.StdErr = sd / math.Sqrt(float64(n))
	if fs.StdErr == 0 {
		return fs
	}

	fs.PseudoT = fs.Mean / fs.StdErr
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	fs.PValue = 2 * t.Survival(math.Abs(fs.PseudoT))
	return fs
}
