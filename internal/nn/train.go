package nn

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const DefaultEpochs = 100

// TrainConfig fixes the training loop: a hand-chosen epoch count of
// full-batch updates, no validation split, no early stopping.
type TrainConfig struct {
	HiddenUnits  int
	Epochs       int
	LearningRate float64
	Seed         int64
}

func (c TrainConfig) withDefaults() TrainConfig {
	if c.HiddenUnits <= 0 {
		c.HiddenUnits = DefaultHiddenUnits
	}
	if c.Epochs <= 0 {
		c.Epochs = DefaultEpochs
	}
	if c.LearningRate <= 0 {
		c.LearningRate = DefaultLearningRate
	}
	return c
}

// Train fits a fresh network on the labeled feature matrix (samples as
// columns) and returns it together with the per-epoch loss history. A
// non-finite loss aborts with an error instead of silently diverging.
func Train(ctx context.Context, cfg TrainConfig, x *mat.Dense, labels []int) (*Network, []float64, error) {
	cfg = cfg.withDefaults()

	features, count := x.Dims()
	if count == 0 {
		return nil, nil, fmt.Errorf("training set has no samples")
	}
	if count != len(labels) {
		return nil, nil, fmt.Errorf("label count mismatch: %d samples vs %d labels", count, len(labels))
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	net, err := NewNetwork(features, cfg.HiddenUnits, rng)
	if err != nil {
		return nil, nil, err
	}

	params := [][]float64{
		net.W1.RawMatrix().Data,
		net.B1.RawMatrix().Data,
		net.W2.RawMatrix().Data,
		net.B2.RawMatrix().Data,
	}
	opt := newAdam(cfg.LearningRate, params)

	history := make([]float64, 0, cfg.Epochs)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("training interrupted at epoch %d: %w", epoch, err)
		}

		pass, err := net.forward(x)
		if err != nil {
			return nil, nil, err
		}
		loss, err := CrossEntropy(pass.probs, labels)
		if err != nil {
			return nil, nil, err
		}
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, nil, fmt.Errorf("non-finite loss %f at epoch %d", loss, epoch)
		}
		history = append(history, loss)

		grad := net.backward(x, pass, labels)
		opt.Step(params, [][]float64{
			grad.dW1.RawMatrix().Data,
			grad.dB1.RawMatrix().Data,
			grad.dW2.RawMatrix().Data,
			grad.dB2.RawMatrix().Data,
		})
	}
	return net, history, nil
}
