package phase

import (
	"math"
	"math/rand"
	"testing"

	"kritikos/internal/model"
	"kritikos/internal/nn"
)

func TestExactTc(t *testing.T) {
	if got := ExactTc(); math.Abs(got-2.269185) > 1e-5 {
		t.Fatalf("exact Tc: got=%f want≈2.269185", got)
	}
}

func TestEstimateTcLinearInterpolation(t *testing.T) {
	points := []model.ConfidencePoint{
		{Temperature: 1.0, Ferromagnetic: 0.9, Paramagnetic: 0.1},
		{Temperature: 2.0, Ferromagnetic: 0.7, Paramagnetic: 0.3},
		{Temperature: 3.0, Ferromagnetic: 0.3, Paramagnetic: 0.7},
		{Temperature: 4.0, Ferromagnetic: 0.1, Paramagnetic: 0.9},
	}
	tc, err := EstimateTc(points)
	if err != nil {
		t.Fatalf("estimate tc: %v", err)
	}
	// diff goes 0.4 → -0.4 between T=2 and T=3: crossing at the midpoint.
	if math.Abs(tc-2.5) > 1e-12 {
		t.Fatalf("estimated Tc: got=%f want=2.5", tc)
	}
}

func TestEstimateTcHandlesUnsortedInput(t *testing.T) {
	points := []model.ConfidencePoint{
		{Temperature: 3.0, Ferromagnetic: 0.2, Paramagnetic: 0.8},
		{Temperature: 1.0, Ferromagnetic: 0.8, Paramagnetic: 0.2},
	}
	tc, err := EstimateTc(points)
	if err != nil {
		t.Fatalf("estimate tc: %v", err)
	}
	if math.Abs(tc-2.0) > 1e-12 {
		t.Fatalf("estimated Tc: got=%f want=2.0", tc)
	}
}

func TestEstimateTcExactCrossingPoint(t *testing.T) {
	points := []model.ConfidencePoint{
		{Temperature: 1.0, Ferromagnetic: 0.8, Paramagnetic: 0.2},
		{Temperature: 2.269, Ferromagnetic: 0.5, Paramagnetic: 0.5},
		{Temperature: 3.5, Ferromagnetic: 0.1, Paramagnetic: 0.9},
	}
	tc, err := EstimateTc(points)
	if err != nil {
		t.Fatalf("estimate tc: %v", err)
	}
	if math.Abs(tc-2.269) > 1e-12 {
		t.Fatalf("estimated Tc: got=%f want=2.269", tc)
	}
}

func TestEstimateTcErrors(t *testing.T) {
	if _, err := EstimateTc([]model.ConfidencePoint{{Temperature: 1}}); err == nil {
		t.Fatal("expected too-few-points error")
	}
	noCross := []model.ConfidencePoint{
		{Temperature: 1.0, Ferromagnetic: 0.9, Paramagnetic: 0.1},
		{Temperature: 2.0, Ferromagnetic: 0.8, Paramagnetic: 0.2},
	}
	if _, err := EstimateTc(noCross); err == nil {
		t.Fatal("expected no-crossing error")
	}
}

func TestConfidenceIsValidPairAndCurveIsSorted(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	net, err := nn.NewNetwork(16, 10, rng)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}

	makeEnsemble := func(temperature float64) model.Ensemble {
		snapshots := make([][]int8, 4)
		for i := range snapshots {
			spins := make([]int8, 16)
			for j := range spins {
				if rng.Intn(2) == 0 {
					spins[j] = -1
				} else {
					spins[j] = 1
				}
			}
			snapshots[i] = spins
		}
		return model.Ensemble{Temperature: temperature, LatticeSize: 4, Snapshots: snapshots}
	}

	curve, err := Curve(net, []model.Ensemble{makeEnsemble(3.0), makeEnsemble(1.0), makeEnsemble(2.0)})
	if err != nil {
		t.Fatalf("curve: %v", err)
	}
	if len(curve) != 3 {
		t.Fatalf("curve length: got=%d want=3", len(curve))
	}
	for i, point := range curve {
		if i > 0 && curve[i-1].Temperature > point.Temperature {
			t.Fatalf("curve not sorted by temperature at %d", i)
		}
		sum := point.Ferromagnetic + point.Paramagnetic
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("averaged confidences do not sum to 1 at T=%g: %f", point.Temperature, sum)
		}
		if point.Ferromagnetic < 0 || point.Ferromagnetic > 1 || point.Paramagnetic < 0 || point.Paramagnetic > 1 {
			t.Fatalf("confidence outside [0,1] at T=%g: %+v", point.Temperature, point)
		}
	}
}

func TestCurveRejectsEmptyInput(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	net, err := nn.NewNetwork(16, 10, rng)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	if _, err := Curve(net, nil); err == nil {
		t.Fatal("expected empty input error")
	}
}
