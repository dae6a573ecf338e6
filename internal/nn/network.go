package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const (
	DefaultHiddenUnits = 10
	OutputUnits        = 2
)

// Network is a two-layer dense classifier: input→hidden with ReLU, then
// hidden→2 raw scores normalized per sample by softmax. Samples are matrix
// columns throughout.
type Network struct {
	InputSize  int
	HiddenSize int
	OutputSize int

	W1 *mat.Dense // HiddenSize×InputSize
	B1 *mat.Dense // HiddenSize×1
	W2 *mat.Dense // OutputSize×HiddenSize
	B2 *mat.Dense // OutputSize×1
}

func NewNetwork(inputSize, hiddenSize int, rng *rand.Rand) (*Network, error) {
	if inputSize <= 0 {
		return nil, fmt.Errorf("input size must be positive, got %d", inputSize)
	}
	if hiddenSize <= 0 {
		return nil, fmt.Errorf("hidden size must be positive, got %d", hiddenSize)
	}

	net := &Network{
		InputSize:  inputSize,
		HiddenSize: hiddenSize,
		OutputSize: OutputUnits,
		W1:         mat.NewDense(hiddenSize, inputSize, nil),
		B1:         mat.NewDense(hiddenSize, 1, nil),
		W2:         mat.NewDense(OutputUnits, hiddenSize, nil),
		B2:         mat.NewDense(OutputUnits, 1, nil),
	}
	initWeights(net.W1, inputSize, rng)
	initWeights(net.W2, hiddenSize, rng)
	return net, nil
}

func initWeights(w *mat.Dense, fanIn int, rng *rand.Rand) {
	scale := math.Sqrt(2.0 / float64(fanIn))
	data := w.RawMatrix().Data
	for i := range data {
		data[i] = rng.NormFloat64() * scale
	}
}

type forwardPass struct {
	z1    *mat.Dense // pre-activation hidden, HiddenSize×N
	a1    *mat.Dense // ReLU hidden, HiddenSize×N
	probs *mat.Dense // softmax outputs, OutputSize×N
}

func (n *Network) forward(x *mat.Dense) (forwardPass, error) {
	rows, cols := x.Dims()
	if rows != n.InputSize {
		return forwardPass{}, fmt.Errorf("input feature count mismatch: got %d want %d", rows, n.InputSize)
	}
	if cols == 0 {
		return forwardPass{}, fmt.Errorf("input has no samples")
	}

	z1 := mat.NewDense(n.HiddenSize, cols, nil)
	z1.Mul(n.W1, x)
	addColumnBias(z1, n.B1)

	a1 := mat.NewDense(n.HiddenSize, cols, nil)
	a1.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, z1)

	z2 := mat.NewDense(n.OutputSize, cols, nil)
	z2.Mul(n.W2, a1)
	addColumnBias(z2, n.B2)

	softmaxColumns(z2)
	return forwardPass{z1: z1, a1: a1, probs: z2}, nil
}

// Predict runs the network on a feature matrix (InputSize×N) and returns a
// probability-pair matrix (OutputSize×N) whose columns each sum to 1.
func (n *Network) Predict(x *mat.Dense) (*mat.Dense, error) {
	pass, err := n.forward(x)
	if err != nil {
		return nil, err
	}
	return pass.probs, nil
}

func addColumnBias(m, bias *mat.Dense) {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		b := bias.At(i, 0)
		for j := 0; j < cols; j++ {
			m.Set(i, j, m.At(i, j)+b)
		}
	}
}

// softmaxColumns normalizes each column in place with max-subtraction for
// numerical stability.
func softmaxColumns(m *mat.Dense) {
	rows, cols := m.Dims()
	for j := 0; j < cols; j++ {
		maxVal := m.At(0, j)
		for i := 1; i < rows; i++ {
			if v := m.At(i, j); v > maxVal {
				maxVal = v
			}
		}
		sum := 0.0
		for i := 0; i < rows; i++ {
			e := math.Exp(m.At(i, j) - maxVal)
			m.Set(i, j, e)
			sum += e
		}
		for i := 0; i < rows; i++ {
			m.Set(i, j, m.At(i, j)/sum)
		}
	}
}

// CrossEntropy returns the mean negative log-likelihood of the labels under
// the predicted probability columns.
func CrossEntropy(probs *mat.Dense, labels []int) (float64, error) {
	rows, cols := probs.Dims()
	if cols != len(labels) {
		return 0, fmt.Errorf("label count mismatch: %d samples vs %d labels", cols, len(labels))
	}
	total := 0.0
	for j, label := range labels {
		if label < 0 || label >= rows {
			return 0, fmt.Errorf("label %d at sample %d outside class range [0,%d)", label, j, rows)
		}
		total -= math.Log(math.Max(probs.At(label, j), 1e-300))
	}
	return total / float64(cols), nil
}

type gradients struct {
	dW1 *mat.Dense
	dB1 *mat.Dense
	dW2 *mat.Dense
	dB2 *mat.Dense
}

func (n *Network) backward(x *mat.Dense, pass forwardPass, labels []int) gradients {
	_, cols := x.Dims()
	scale := 1.0 / float64(cols)

	// dZ2 = (P - Y)/N with Y the one-hot label matrix.
	dZ2 := mat.NewDense(n.OutputSize, cols, nil)
	dZ2.Copy(pass.probs)
	for j, label := range labels {
		dZ2.Set(label, j, dZ2.At(label, j)-1)
	}
	dZ2.Scale(scale, dZ2)

	dW2 := mat.NewDense(n.OutputSize, n.HiddenSize, nil)
	dW2.Mul(dZ2, pass.a1.T())
	dB2 := sumColumns(dZ2)

	dA1 := mat.NewDense(n.HiddenSize, cols, nil)
	dA1.Mul(n.W2.T(), dZ2)

	dZ1 := mat.NewDense(n.HiddenSize, cols, nil)
	for i := 0; i < n.HiddenSize; i++ {
		for j := 0; j < cols; j++ {
			if pass.z1.At(i, j) > 0 {
				dZ1.Set(i, j, dA1.At(i, j))
			}
		}
	}

	dW1 := mat.NewDense(n.HiddenSize, n.InputSize, nil)
	dW1.Mul(dZ1, x.T())
	dB1 := sumColumns(dZ1)

	return gradients{dW1: dW1, dB1: dB1, dW2: dW2, dB2: dB2}
}

func sumColumns(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			sum += m.At(i, j)
		}
		out.Set(i, 0, sum)
	}
	return out
}
