package mc

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"kritikos/internal/lattice"
)

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero size", Config{Size: 0, Temperature: 1, Sweeps: 10, MeasureRate: 5}},
		{"zero temperature", Config{Size: 4, Temperature: 0, Sweeps: 10, MeasureRate: 5}},
		{"negative temperature", Config{Size: 4, Temperature: -2, Sweeps: 10, MeasureRate: 5}},
		{"zero sweeps", Config{Size: 4, Temperature: 1, Sweeps: 0, MeasureRate: 5}},
		{"zero measure rate", Config{Size: 4, Temperature: 1, Sweeps: 10, MeasureRate: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSampler(tc.cfg); err == nil {
				t.Fatalf("expected validation error for %+v", tc.cfg)
			}
		})
	}
}

func TestRunSnapshotCountAndShape(t *testing.T) {
	sampler, err := NewSampler(Config{Size: 4, Temperature: 2.5, Sweeps: 50, MeasureRate: 7, Seed: 11})
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	snapshots, err := sampler.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(snapshots) != 7 {
		t.Fatalf("snapshot count: got=%d want=7", len(snapshots))
	}
	for i, snap := range snapshots {
		if snap.Size != 4 || len(snap.Spins) != 16 {
			t.Fatalf("snapshot %d shape: size=%d spins=%d", i, snap.Size, len(snap.Spins))
		}
		for j, spin := range snap.Spins {
			if spin != 1 && spin != -1 {
				t.Fatalf("snapshot %d spin %d is not ±1: %d", i, j, spin)
			}
		}
	}
}

func TestRunIsDeterministicPerSeed(t *testing.T) {
	cfg := Config{Size: 4, Temperature: 2.269, Sweeps: 30, MeasureRate: 10, Seed: 99}
	first, err := mustRun(cfg)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := mustRun(cfg)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("snapshot counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		for j := range first[i].Spins {
			if first[i].Spins[j] != second[i].Spins[j] {
				t.Fatalf("snapshot %d differs at site %d", i, j)
			}
		}
	}
}

func mustRun(cfg Config) ([]lattice.Grid, error) {
	sampler, err := NewSampler(cfg)
	if err != nil {
		return nil, err
	}
	return sampler.Run(context.Background())
}

func TestRunHonorsCancellation(t *testing.T) {
	sampler, err := NewSampler(Config{Size: 4, Temperature: 2, Sweeps: 100, MeasureRate: 10, Seed: 1})
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sampler.Run(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestAcceptanceProbabilityBounds(t *testing.T) {
	for _, delta := range []float64{-8, -4, 0} {
		p, err := AcceptanceProbability(delta, 2.0)
		if err != nil {
			t.Fatalf("acceptance probability: %v", err)
		}
		if p != 1 {
			t.Fatalf("ΔE=%g must always be accepted, got p=%f", delta, p)
		}
	}
	for _, delta := range []float64{0.5, 4, 8} {
		for _, temperature := range []float64{0.5, 1.189, 2.269, 5} {
			p, err := AcceptanceProbability(delta, temperature)
			if err != nil {
				t.Fatalf("acceptance probability: %v", err)
			}
			if p <= 0 || p > 1 {
				t.Fatalf("p outside (0,1]: ΔE=%g T=%g p=%f", delta, temperature, p)
			}
			want := math.Exp(-delta / temperature)
			if math.Abs(p-want) > 1e-12 {
				t.Fatalf("unexpected probability: got=%f want=%f", p, want)
			}
		}
	}
	if _, err := AcceptanceProbability(4, 0); err == nil {
		t.Fatal("expected temperature validation error")
	}
}

func TestFlipDeltaMatchesEnergyDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	grid, err := lattice.NewRandom(5, rng)
	if err != nil {
		t.Fatalf("new random grid: %v", err)
	}
	table, err := lattice.NewNeighborTable(5)
	if err != nil {
		t.Fatalf("new neighbor table: %v", err)
	}
	before, err := grid.Energy(table)
	if err != nil {
		t.Fatalf("energy before: %v", err)
	}
	for site := 0; site < len(grid.Spins); site++ {
		delta, err := FlipDelta(grid, table, site)
		if err != nil {
			t.Fatalf("flip delta at %d: %v", site, err)
		}
		flipped := grid.Clone()
		flipped.Spins[site] = -flipped.Spins[site]
		after, err := flipped.Energy(table)
		if err != nil {
			t.Fatalf("energy after: %v", err)
		}
		if math.Abs((after-before)-delta) > 1e-9 {
			t.Fatalf("site %d: ΔE=%f but energy difference=%f", site, delta, after-before)
		}
	}
}

func TestLowTemperatureRelaxesTowardLowEnergy(t *testing.T) {
	sampler, err := NewSampler(Config{Size: 8, Temperature: 0.1, Sweeps: 300, MeasureRate: 300, Seed: 42})
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	snapshots, err := sampler.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("snapshot count: got=%d want=1", len(snapshots))
	}
	table, err := lattice.NewNeighborTable(8)
	if err != nil {
		t.Fatalf("new neighbor table: %v", err)
	}
	energy, err := snapshots[0].Energy(table)
	if err != nil {
		t.Fatalf("energy: %v", err)
	}
	// At T=0.1 uphill moves are effectively never accepted; a random start
	// (energy near 0) must have relaxed far toward the ground state (-128).
	if energy > -64 {
		t.Fatalf("low-temperature energy did not relax: got=%f", energy)
	}
}
