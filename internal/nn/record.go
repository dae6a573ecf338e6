package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"kritikos/internal/model"
)

// ToRecord flattens the network weights into a persistable record.
func (n *Network) ToRecord() model.NetworkRecord {
	return model.NetworkRecord{
		InputSize:  n.InputSize,
		HiddenSize: n.HiddenSize,
		OutputSize: n.OutputSize,
		W1:         append([]float64(nil), n.W1.RawMatrix().Data...),
		B1:         append([]float64(nil), n.B1.RawMatrix().Data...),
		W2:         append([]float64(nil), n.W2.RawMatrix().Data...),
		B2:         append([]float64(nil), n.B2.RawMatrix().Data...),
	}
}

// FromRecord rebuilds a network from persisted weights.
func FromRecord(record model.NetworkRecord) (*Network, error) {
	if record.InputSize <= 0 || record.HiddenSize <= 0 || record.OutputSize <= 0 {
		return nil, fmt.Errorf("invalid network record dimensions: %d×%d×%d",
			record.InputSize, record.HiddenSize, record.OutputSize)
	}
	if len(record.W1) != record.HiddenSize*record.InputSize ||
		len(record.B1) != record.HiddenSize ||
		len(record.W2) != record.OutputSize*record.HiddenSize ||
		len(record.B2) != record.OutputSize {
		return nil, fmt.Errorf("network record weight lengths do not match dimensions %d×%d×%d",
			record.InputSize, record.HiddenSize, record.OutputSize)
	}
	return &Network{
		InputSize:  record.InputSize,
		HiddenSize: record.HiddenSize,
		OutputSize: record.OutputSize,
		W1:         mat.NewDense(record.HiddenSize, record.InputSize, append([]float64(nil), record.W1...)),
		B1:         mat.NewDense(record.HiddenSize, 1, append([]float64(nil), record.B1...)),
		W2:         mat.NewDense(record.OutputSize, record.HiddenSize, append([]float64(nil), record.W2...)),
		B2:         mat.NewDense(record.OutputSize, 1, append([]float64(nil), record.B2...)),
	}, nil
}
