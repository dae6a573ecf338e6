package lattice

import (
	"fmt"
	"math/rand"
)

// Grid is an L×L spin configuration with values in {-1, +1}, stored row-major.
type Grid struct {
	Size  int
	Spins []int8
}

func NewRandom(size int, rng *rand.Rand) (Grid, error) {
	if size <= 0 {
		return Grid{}, fmt.Errorf("lattice size must be positive, got %d", size)
	}
	spins := make([]int8, size*size)
	for i := range spins {
		if rng.Intn(2) == 0 {
			spins[i] = -1
		} else {
			spins[i] = 1
		}
	}
	return Grid{Size: size, Spins: spins}, nil
}

// FromSnapshot rebuilds a grid from a flattened row-major snapshot.
func FromSnapshot(size int, snapshot []int8) (Grid, error) {
	if size <= 0 {
		return Grid{}, fmt.Errorf("lattice size must be positive, got %d", size)
	}
	if len(snapshot) != size*size {
		return Grid{}, fmt.Errorf("snapshot length mismatch: got %d want %d", len(snapshot), size*size)
	}
	spins := make([]int8, len(snapshot))
	copy(spins, snapshot)
	return Grid{Size: size, Spins: spins}, nil
}

func (g Grid) At(row, col int) int8 {
	return g.Spins[row*g.Size+col]
}

func (g Grid) Set(row, col int, spin int8) {
	g.Spins[row*g.Size+col] = spin
}

// Clone returns a deep copy so recorded snapshots stay immutable while the
// sampler keeps mutating the working buffer.
func (g Grid) Clone() Grid {
	spins := make([]int8, len(g.Spins))
	copy(spins, g.Spins)
	return Grid{Size: g.Size, Spins: spins}
}

// Magnetization returns the mean spin of the configuration.
func (g Grid) Magnetization() float64 {
	if len(g.Spins) == 0 {
		return 0
	}
	sum := 0
	for _, spin := range g.Spins {
		sum += int(spin)
	}
	return float64(sum) / float64(len(g.Spins))
}

// Energy returns the total nearest-neighbor coupling energy -Σ s_i s_j with
// each periodic bond counted once.
func (g Grid) Energy(table NeighborTable) (float64, error) {
	if table.Size() != g.Size {
		return 0, fmt.Errorf("neighbor table size mismatch: got %d want %d", table.Size(), g.Size)
	}
	total := 0
	for site, spin := range g.Spins {
		up, right, _, _ := table.Of(site)
		total += int(spin) * (int(g.Spins[up]) + int(g.Spins[right]))
	}
	return -float64(total), nil
}
