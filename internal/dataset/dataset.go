package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"kritikos/internal/model"
)

// Class labels assigned by ensemble membership, never by data content.
const (
	LabelFerromagnetic = 0
	LabelParamagnetic  = 1
)

// Flatten converts a row-major ±1 snapshot into a float64 feature vector.
// The row-major order is the one fixed convention of the whole pipeline, so
// a flattened vector can always be reshaped back into its grid.
func Flatten(snapshot []int8) []float64 {
	out := make([]float64, len(snapshot))
	for i, spin := range snapshot {
		out[i] = float64(spin)
	}
	return out
}

// FlattenZ2 flattens every snapshot of an ensemble and appends the global
// sign-flipped partner of each one, exploiting the Z2 symmetry of the
// Hamiltonian. The result has one sample per column: shape (L², 2N) with the
// partner of column i at column i+N.
func FlattenZ2(ens model.Ensemble) (*mat.Dense, error) {
	if len(ens.Snapshots) == 0 {
		return nil, fmt.Errorf("ensemble for T=%g has no snapshots", ens.Temperature)
	}
	features := ens.LatticeSize * ens.LatticeSize
	count := len(ens.Snapshots)

	x := mat.NewDense(features, 2*count, nil)
	for i, snapshot := range ens.Snapshots {
		if len(snapshot) != features {
			return nil, fmt.Errorf("snapshot %d length mismatch: got %d want %d (lattice size %d)",
				i, len(snapshot), features, ens.LatticeSize)
		}
		for j, spin := range snapshot {
			value := float64(spin)
			x.Set(j, i, value)
			x.Set(j, i+count, -value)
		}
	}
	return x, nil
}

// BuildLabeled assembles the supervised training set from the two extreme
// temperature ensembles. Low-temperature samples (and their Z2 partners) get
// the ferromagnetic label, high-temperature ones the paramagnetic label.
func BuildLabeled(low, high model.Ensemble) (*mat.Dense, []int, error) {
	if low.LatticeSize != high.LatticeSize {
		return nil, nil, fmt.Errorf("lattice size mismatch between ensembles: %d vs %d",
			low.LatticeSize, high.LatticeSize)
	}

	lowX, err := FlattenZ2(low)
	if err != nil {
		return nil, nil, fmt.Errorf("low-temperature ensemble: %w", err)
	}
	highX, err := FlattenZ2(high)
	if err != nil {
		return nil, nil, fmt.Errorf("high-temperature ensemble: %w", err)
	}

	features, lowCount := lowX.Dims()
	_, highCount := highX.Dims()

	x := mat.NewDense(features, lowCount+highCount, nil)
	x.Slice(0, features, 0, lowCount).(*mat.Dense).Copy(lowX)
	x.Slice(0, features, lowCount, lowCount+highCount).(*mat.Dense).Copy(highX)

	labels := make([]int, lowCount+highCount)
	for i := lowCount; i < lowCount+highCount; i++ {
		labels[i] = LabelParamagnetic
	}
	return x, labels, nil
}

// Replicate tiles the labeled set a fixed number of times to extend an
// epoch-based training loop without re-sampling.
func Replicate(x *mat.Dense, labels []int, times int) (*mat.Dense, []int, error) {
	if times < 1 {
		return nil, nil, fmt.Errorf("replication count must be at least 1, got %d", times)
	}
	features, count := x.Dims()
	if count != len(labels) {
		return nil, nil, fmt.Errorf("label count mismatch: %d samples vs %d labels", count, len(labels))
	}
	if times == 1 {
		return x, labels, nil
	}

	out := mat.NewDense(features, count*times, nil)
	outLabels := make([]int, 0, count*times)
	for rep := 0; rep < times; rep++ {
		out.Slice(0, features, rep*count, (rep+1)*count).(*mat.Dense).Copy(x)
		outLabels = append(outLabels, labels...)
	}
	return out, outLabels, nil
}
