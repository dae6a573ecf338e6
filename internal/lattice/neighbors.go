package lattice

import "fmt"

// NeighborTable precomputes the four periodic nearest-neighbor site indices
// (up, right, down, left) for every site of an L×L grid. The table depends
// only on L, never on temperature or sweep count.
type NeighborTable struct {
	size      int
	neighbors [][4]int
}

func NewNeighborTable(size int) (NeighborTable, error) {
	if size <= 0 {
		return NeighborTable{}, fmt.Errorf("lattice size must be positive, got %d", size)
	}
	neighbors := make([][4]int, size*size)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			site := row*size + col
			upRow := (row - 1 + size) % size
			downRow := (row + 1) % size
			leftCol := (col - 1 + size) % size
			rightCol := (col + 1) % size
			neighbors[site] = [4]int{
				upRow*size + col,
				row*size + rightCol,
				downRow*size + col,
				row*size + leftCol,
			}
		}
	}
	return NeighborTable{size: size, neighbors: neighbors}, nil
}

func (t NeighborTable) Size() int {
	return t.size
}

func (t NeighborTable) Of(site int) (up, right, down, left int) {
	n := t.neighbors[site]
	return n[0], n[1], n[2], n[3]
}

// NeighborSpinSum returns the sum of the four neighbor spins of site.
func (t NeighborTable) NeighborSpinSum(spins []int8, site int) int {
	n := t.neighbors[site]
	return int(spins[n[0]]) + int(spins[n[1]]) + int(spins[n[2]]) + int(spins[n[3]])
}
