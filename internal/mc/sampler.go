package mc

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"kritikos/internal/lattice"
)

const (
	DefaultSweeps      = 10_000_000
	DefaultMeasureRate = 5000
)

// Config describes one Metropolis simulation at a single temperature.
type Config struct {
	Size        int
	Temperature float64
	Sweeps      int
	MeasureRate int
	Seed        int64
}

func (c Config) validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("lattice size must be positive, got %d", c.Size)
	}
	if c.Temperature <= 0 {
		return fmt.Errorf("temperature must be positive, got %g", c.Temperature)
	}
	if c.Sweeps <= 0 {
		return fmt.Errorf("sweep count must be positive, got %d", c.Sweeps)
	}
	if c.MeasureRate <= 0 {
		return fmt.Errorf("measure rate must be positive, got %d", c.MeasureRate)
	}
	return nil
}

// Sampler runs Metropolis Monte Carlo on an owned lattice buffer. The buffer
// is scoped to one Run call and never shared across temperatures.
type Sampler struct {
	cfg   Config
	table lattice.NeighborTable
}

func NewSampler(cfg Config) (*Sampler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	table, err := lattice.NewNeighborTable(cfg.Size)
	if err != nil {
		return nil, err
	}
	return &Sampler{cfg: cfg, table: table}, nil
}

// Run performs cfg.Sweeps full sweeps and records a deep-copied snapshot
// after every cfg.MeasureRate-th sweep, returning exactly
// floor(Sweeps/MeasureRate) configurations in sampling order.
func (s *Sampler) Run(ctx context.Context) ([]lattice.Grid, error) {
	rng := rand.New(rand.NewSource(s.cfg.Seed))
	grid, err := lattice.NewRandom(s.cfg.Size, rng)
	if err != nil {
		return nil, err
	}

	snapshots := make([]lattice.Grid, 0, s.cfg.Sweeps/s.cfg.MeasureRate)
	for sweep := 1; sweep <= s.cfg.Sweeps; sweep++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sampling T=%g interrupted at sweep %d: %w", s.cfg.Temperature, sweep, err)
		}
		s.sweep(grid, rng)
		if sweep%s.cfg.MeasureRate == 0 {
			snapshots = append(snapshots, grid.Clone())
		}
	}
	return snapshots, nil
}

// sweep visits every site in fixed row-major order and applies the Metropolis
// accept/reject rule to a proposed single-spin flip.
func (s *Sampler) sweep(grid lattice.Grid, rng *rand.Rand) {
	beta := 1.0 / s.cfg.Temperature
	for site := range grid.Spins {
		delta := float64(2 * int(grid.Spins[site]) * s.table.NeighborSpinSum(grid.Spins, site))
		if delta <= 0 || rng.Float64() < math.Exp(-delta*beta) {
			grid.Spins[site] = -grid.Spins[site]
		}
	}
}

// AcceptanceProbability exposes the Metropolis criterion min(1, exp(-ΔE/T)).
func AcceptanceProbability(delta, temperature float64) (float64, error) {
	if temperature <= 0 {
		return 0, fmt.Errorf("temperature must be positive, got %g", temperature)
	}
	if delta <= 0 {
		return 1, nil
	}
	return math.Exp(-delta / temperature), nil
}

// FlipDelta returns the energy change 2·s·Σneighbors of flipping one site.
func FlipDelta(grid lattice.Grid, table lattice.NeighborTable, site int) (float64, error) {
	if table.Size() != grid.Size {
		return 0, fmt.Errorf("neighbor table size mismatch: got %d want %d", table.Size(), grid.Size)
	}
	if site < 0 || site >= len(grid.Spins) {
		return 0, fmt.Errorf("site index out of range: %d", site)
	}
	return float64(2 * int(grid.Spins[site]) * table.NeighborSpinSum(grid.Spins, site)), nil
}
