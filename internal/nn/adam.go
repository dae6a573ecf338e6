package nn

import "math"

// Adam default hyperparameters, matching the usual first/second-moment
// optimizer defaults.
const (
	DefaultLearningRate = 1e-3
	adamBeta1           = 0.9
	adamBeta2           = 0.999
	adamEpsilon         = 1e-8
)

// adam keeps first and second moment estimates per parameter slice. The
// parameter layout is fixed at construction and must match every Step call.
type adam struct {
	learningRate float64
	step         int
	m            [][]float64
	v            [][]float64
}

func newAdam(learningRate float64, params [][]float64) *adam {
	if learningRate <= 0 {
		learningRate = DefaultLearningRate
	}
	opt := &adam{
		learningRate: learningRate,
		m:            make([][]float64, len(params)),
		v:            make([][]float64, len(params)),
	}
	for i, param := range params {
		opt.m[i] = make([]float64, len(param))
		opt.v[i] = make([]float64, len(param))
	}
	return opt
}

// Step applies one bias-corrected Adam update to params in place.
func (a *adam) Step(params, grads [][]float64) {
	a.step++
	correction1 := 1 - math.Pow(adamBeta1, float64(a.step))
	correction2 := 1 - math.Pow(adamBeta2, float64(a.step))
	for p := range params {
		param, grad := params[p], grads[p]
		m, v := a.m[p], a.v[p]
		for i := range param {
			g := grad[i]
			m[i] = adamBeta1*m[i] + (1-adamBeta1)*g
			v[i] = adamBeta2*v[i] + (1-adamBeta2)*g*g
			mHat := m[i] / correction1
			vHat := v[i] / correction2
			param[i] -= a.learningRate * mHat / (math.Sqrt(vHat) + adamEpsilon)
		}
	}
}
