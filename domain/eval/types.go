package eval

import (
	"fmt"
	"math/rand"

	"leakcheck/domain/core"
)

// ============================================================================
// STABLE PRIMITIVES (Canonical, never change)
// ============================================================================

// Batch is an (N,P) matrix of observations: N independent samples, each a
// real-valued vector over the masked feature space. Batches are value-like;
// producers hand out fresh copies and consumers must not mutate them.
type Batch struct {
	Data [][]float64 `json:"data"`
}

// NewBatch allocates a zero-filled batch.
func NewBatch(rows, cols int) *Batch {
	data := make([][]float64, rows)
	for i := range data {
		data[i] = make([]float64, cols)
	}
	return &Batch{Data: data}
}

// Rows returns the number of samples N.
func (b *Batch) Rows() int {
	return len(b.Data)
}

// Cols returns the feature count P (0 for an empty batch).
func (b *Batch) Cols() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Clone returns a deep copy.
func (b *Batch) Clone() *Batch {
	out := make([][]float64, len(b.Data))
	for i, row := range b.Data {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return &Batch{Data: out}
}

// SelectRows gathers the given sample indices into a new batch sharing the
// underlying row slices. Callers treating batches as read-only may use this
// to form train/test partitions without copying.
func (b *Batch) SelectRows(idx []int) *Batch {
	out := make([][]float64, len(idx))
	for i, r := range idx {
		out[i] = b.Data[r]
	}
	return &Batch{Data: out}
}

// SelectColumns gathers the given feature indices into a new batch with
// copied rows of width len(idx).
func (b *Batch) SelectColumns(idx []int) *Batch {
	out := make([][]float64, len(b.Data))
	for i, row := range b.Data {
		out[i] = make([]float64, len(idx))
		for j, c := range idx {
			out[i][j] = row[c]
		}
	}
	return &Batch{Data: out}
}

// OutcomeKind distinguishes the two supported outcome types.
type OutcomeKind string

const (
	OutcomeCategorical OutcomeKind = "categorical"
	OutcomeContinuous  OutcomeKind = "continuous"
)

// Outcome is a length-N sequence aligned by index to batch rows.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Values []float64   `json:"values"`
}

// NewCategoricalOutcome builds a categorical outcome from class labels.
func NewCategoricalOutcome(labels []float64) Outcome {
	return Outcome{Kind: OutcomeCategorical, Values: labels}
}

// NewContinuousOutcome builds a continuous outcome from raw values.
func NewContinuousOutcome(values []float64) Outcome {
	return Outcome{Kind: OutcomeContinuous, Values: values}
}

// Len returns N.
func (o Outcome) Len() int {
	return len(o.Values)
}

// Subset gathers the given indices into a new outcome.
func (o Outcome) Subset(idx []int) Outcome {
	vals := make([]float64, len(idx))
	for i, r := range idx {
		vals[i] = o.Values[r]
	}
	return Outcome{Kind: o.Kind, Values: vals}
}

// Permute returns a copy with values reordered by a Fisher-Yates shuffle
// drawn from rng. The multiset of values is preserved; the caller's outcome
// is never mutated.
func (o Outcome) Permute(rng *rand.Rand) Outcome {
	vals := make([]float64, len(o.Values))
	copy(vals, o.Values)
	rng.Shuffle(len(vals), func(i, j int) {
		vals[i], vals[j] = vals[j], vals[i]
	})
	return Outcome{Kind: o.Kind, Values: vals}
}

// Classes returns the distinct values present, in first-seen order.
func (o Outcome) Classes() []float64 {
	seen := make(map[float64]bool)
	var classes []float64
	for _, v := range o.Values {
		if !seen[v] {
			seen[v] = true
			classes = append(classes, v)
		}
	}
	return classes
}

// IsDegenerate reports whether a categorical outcome carries fewer than two
// classes. Continuous outcomes are degenerate when constant.
func (o Outcome) IsDegenerate() bool {
	classes := o.Classes()
	return len(classes) < 2
}

// ChanceLevel returns the expected score of a label-independent predictor:
// 1/k balanced accuracy for k classes, 0 for R-squared.
func (o Outcome) ChanceLevel() float64 {
	if o.Kind == OutcomeCategorical {
		k := len(o.Classes())
		if k == 0 {
			return 0
		}
		return 1.0 / float64(k)
	}
	return 0
}

// RegionIndicator marks which features carry injected true signal. Entries
// are weights; a plain boolean region uses 0/1. Treated as a constant
// parameter, never mutated.
type RegionIndicator []float64

// ActiveCount returns the number of non-zero entries.
func (r RegionIndicator) ActiveCount() int {
	n := 0
	for _, w := range r {
		if w != 0 {
			n++
		}
	}
	return n
}

// ============================================================================
// RESAMPLING CONFIGURATION
// ============================================================================

// SelectionMode controls where feature selection happens relative to the
// resampling loop. SelectionGlobal is the leakage-inducing configuration and
// is retained intentionally as a reproducible negative example.
type SelectionMode string

const (
	SelectionNone     SelectionMode = "none"
	SelectionGlobal   SelectionMode = "global"
	SelectionPerSplit SelectionMode = "per_split"
)

// Valid reports whether the mode is one of the supported values.
func (m SelectionMode) Valid() bool {
	switch m {
	case SelectionNone, SelectionGlobal, SelectionPerSplit:
		return true
	}
	return false
}

// ============================================================================
// RESULT ARTIFACTS
// ============================================================================

// Partition records one train/test split assignment by sample index.
type Partition struct {
	Train []int `json:"train"`
	Test  []int `json:"test"`
}

// FamilyResult accumulates per-split outputs for one model family. Scores
// are ordered by split and never reordered; mean/std always come from the
// full accumulated sequence.
type FamilyResult struct {
	Key          core.ModelKey `json:"key"`
	Scores       []float64     `json:"scores"`
	MeanScore    float64       `json:"mean_score"`
	StdScore     float64       `json:"std_score"`
	Coefficients [][]float64   `json:"-"` // full P-length vectors, empty when unavailable
	ChosenParams []float64     `json:"chosen_params,omitempty"`
}

// HasCoefficients reports whether any coefficient records were retained.
// Absence is a valid, expected state for non-linear families.
func (f *FamilyResult) HasCoefficients() bool {
	return len(f.Coefficients) > 0
}

// Result is the complete output of one resampling evaluation.
type Result struct {
	Seed            int64                           `json:"seed"`
	Partitions      []Partition                     `json:"-"`
	Families        map[core.ModelKey]*FamilyResult `json:"families"`
	Skipped         int                             `json:"skipped"`
	SkipDiagnostics []string                        `json:"skip_diagnostics,omitempty"`
	Successful      int                             `json:"successful"`
}

// Family returns the result for a model key.
func (r *Result) Family(key core.ModelKey) (*FamilyResult, bool) {
	f, ok := r.Families[key]
	return f, ok
}

// NullSeries is an empirical null distribution of summary scores obtained
// under permuted outcomes. Never mixed into the same sequence as true-label
// scores.
type NullSeries struct {
	Key    core.ModelKey `json:"key"`
	Scores []float64     `json:"scores"`
	Mean   float64       `json:"mean"`
	Std    float64       `json:"std"`
}

// NullDistribution groups null series by model family.
type NullDistribution struct {
	Repetitions int                           `json:"repetitions"`
	Families    map[core.ModelKey]*NullSeries `json:"families"`
}

// ============================================================================
// RUN MANIFEST (audit trail)
// ============================================================================

// RunManifest captures the inputs and headline outputs of a leakage audit so
// a run can be replayed and its determinism verified.
type RunManifest struct {
	RunID         core.RunID     `json:"run_id"`
	Seed          int64          `json:"seed"`
	ConfigHash    core.Hash      `json:"config_hash"`
	Samples       int            `json:"samples"`
	Features      int            `json:"features"`
	EffectSize    float64        `json:"effect_size"`
	LeakyMean     float64        `json:"leaky_mean"`
	CleanMean     float64        `json:"clean_mean"`
	NullMean      float64        `json:"null_mean"`
	ChanceLevel   float64        `json:"chance_level"`
	SkippedSplits int            `json:"skipped_splits"`
	Fingerprint   core.Hash      `json:"fingerprint"`
	CreatedAt     core.Timestamp `json:"created_at"`
}

// Validate checks manifest invariants before persistence.
func (m *RunManifest) Validate() error {
	if m.RunID == "" {
		return fmt.Errorf("run ID must be set")
	}
	if m.Samples <= 0 || m.Features <= 0 {
		return fmt.Errorf("manifest must carry positive sample and feature counts")
	}
	if m.Fingerprint.IsEmpty() {
		return fmt.Errorf("fingerprint must be set")
	}
	return nil
}
