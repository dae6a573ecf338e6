package dataset

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"kritikos/internal/model"
)

func ensembleOf(t *testing.T, size int, temperature float64, snapshots ...[]int8) model.Ensemble {
	t.Helper()
	return model.Ensemble{
		Temperature: temperature,
		LatticeSize: size,
		Snapshots:   snapshots,
	}
}

func alternating(size int) []int8 {
	spins := make([]int8, size*size)
	for i := range spins {
		if i%2 == 0 {
			spins[i] = 1
		} else {
			spins[i] = -1
		}
	}
	return spins
}

func aligned(size int, spin int8) []int8 {
	spins := make([]int8, size*size)
	for i := range spins {
		spins[i] = spin
	}
	return spins
}

func TestFlattenPreservesRowMajorOrder(t *testing.T) {
	snapshot := []int8{1, -1, -1, 1}
	v := Flatten(snapshot)
	want := []float64{1, -1, -1, 1}
	for i := range want {
		if v[i] != want[i] {
			t.Fatalf("flatten at %d: got=%f want=%f", i, v[i], want[i])
		}
	}
}

func TestFlattenZ2ShapeAndPairing(t *testing.T) {
	snapshots := make([][]int8, 0, 3)
	for i := 0; i < 3; i++ {
		snapshots = append(snapshots, alternating(8))
	}
	x, err := FlattenZ2(ensembleOf(t, 8, 5, snapshots...))
	if err != nil {
		t.Fatalf("flatten z2: %v", err)
	}
	rows, cols := x.Dims()
	if rows != 64 || cols != 6 {
		t.Fatalf("z2 matrix shape: got=(%d,%d) want=(64,6)", rows, cols)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < rows; j++ {
			if x.At(j, i) != -x.At(j, i+3) {
				t.Fatalf("column %d is not the exact negation of its partner at row %d", i, j)
			}
		}
	}
}

func TestFlattenZ2PartnerMagnetization(t *testing.T) {
	x, err := FlattenZ2(ensembleOf(t, 4, 1.189, aligned(4, 1)))
	if err != nil {
		t.Fatalf("flatten z2: %v", err)
	}
	rows, _ := x.Dims()
	original, partner := 0.0, 0.0
	for j := 0; j < rows; j++ {
		original += x.At(j, 0)
		partner += x.At(j, 1)
	}
	original /= float64(rows)
	partner /= float64(rows)
	if math.Abs(original) != math.Abs(partner) {
		t.Fatalf("partner magnetization magnitude differs: |%f| vs |%f|", original, partner)
	}
	if original != -partner {
		t.Fatalf("partner magnetization sign not flipped: %f vs %f", original, partner)
	}
}

func TestFlattenZ2RejectsEmptyEnsemble(t *testing.T) {
	if _, err := FlattenZ2(ensembleOf(t, 8, 3.367)); err == nil {
		t.Fatal("expected empty ensemble error")
	}
}

func TestFlattenZ2RejectsSnapshotSizeMismatch(t *testing.T) {
	_, err := FlattenZ2(ensembleOf(t, 8, 2.0, aligned(4, 1)))
	if err == nil {
		t.Fatal("expected snapshot size mismatch error")
	}
	if !strings.Contains(err.Error(), "mismatch") {
		t.Fatalf("expected descriptive mismatch error, got: %v", err)
	}
}

func TestBuildLabeledCountsAndMembership(t *testing.T) {
	low := ensembleOf(t, 4, 1.189, aligned(4, 1), aligned(4, 1), aligned(4, -1))
	high := ensembleOf(t, 4, 3.367, alternating(4), alternating(4))

	x, labels, err := BuildLabeled(low, high)
	if err != nil {
		t.Fatalf("build labeled: %v", err)
	}
	rows, cols := x.Dims()
	if rows != 16 || cols != 10 {
		t.Fatalf("labeled matrix shape: got=(%d,%d) want=(16,10)", rows, cols)
	}
	if len(labels) != 10 {
		t.Fatalf("label count: got=%d want=10", len(labels))
	}

	ferro, para := 0, 0
	for i, label := range labels {
		switch label {
		case LabelFerromagnetic:
			ferro++
			if i >= 6 {
				t.Fatalf("ferromagnetic label at high-temperature column %d", i)
			}
		case LabelParamagnetic:
			para++
			if i < 6 {
				t.Fatalf("paramagnetic label at low-temperature column %d", i)
			}
		default:
			t.Fatalf("unknown label %d at column %d", label, i)
		}
	}
	// Each count is exactly double the per-ensemble snapshot count.
	if ferro != 6 || para != 4 {
		t.Fatalf("label counts: ferro=%d para=%d want ferro=6 para=4", ferro, para)
	}
}

func TestBuildLabeledRejectsLatticeMismatch(t *testing.T) {
	low := ensembleOf(t, 4, 1.189, aligned(4, 1))
	high := ensembleOf(t, 8, 3.367, alternating(8))
	if _, _, err := BuildLabeled(low, high); err == nil {
		t.Fatal("expected lattice size mismatch error")
	}
}

func TestReplicateTilesSamplesAndLabels(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	labels := []int{LabelFerromagnetic, LabelParamagnetic}

	out, outLabels, err := Replicate(x, labels, 3)
	if err != nil {
		t.Fatalf("replicate: %v", err)
	}
	rows, cols := out.Dims()
	if rows != 2 || cols != 6 {
		t.Fatalf("replicated shape: got=(%d,%d) want=(2,6)", rows, cols)
	}
	if len(outLabels) != 6 {
		t.Fatalf("replicated label count: got=%d want=6", len(outLabels))
	}
	for rep := 0; rep < 3; rep++ {
		for j := 0; j < 2; j++ {
			for i := 0; i < 2; i++ {
				if out.At(i, rep*2+j) != x.At(i, j) {
					t.Fatalf("replica %d column %d row %d differs", rep, j, i)
				}
			}
		}
		if outLabels[rep*2] != LabelFerromagnetic || outLabels[rep*2+1] != LabelParamagnetic {
			t.Fatalf("replica %d labels differ: %v", rep, outLabels[rep*2:rep*2+2])
		}
	}
}

func TestReplicateValidation(t *testing.T) {
	x := mat.NewDense(2, 2, nil)
	if _, _, err := Replicate(x, []int{0, 1}, 0); err == nil {
		t.Fatal("expected replication count error")
	}
	if _, _, err := Replicate(x, []int{0}, 2); err == nil {
		t.Fatal("expected label count mismatch error")
	}
}
