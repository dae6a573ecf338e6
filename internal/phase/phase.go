package phase

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"kritikos/internal/dataset"
	"kritikos/internal/model"
	"kritikos/internal/nn"
)

// ExactTc is the exact critical temperature of the 2D Ising model,
// 2/ln(1+√2) ≈ 2.269.
func ExactTc() float64 {
	return 2 / math.Log(1+math.Sqrt2)
}

// Confidence evaluates the trained classifier on every snapshot of an
// ensemble (plus Z2 partners) and averages the output probabilities into a
// single confidence pair for that temperature.
func Confidence(net *nn.Network, ens model.Ensemble) (model.ConfidencePoint, error) {
	x, err := dataset.FlattenZ2(ens)
	if err != nil {
		return model.ConfidencePoint{}, err
	}
	probs, err := net.Predict(x)
	if err != nil {
		return model.ConfidencePoint{}, fmt.Errorf("evaluate T=%g: %w", ens.Temperature, err)
	}

	_, cols := probs.Dims()
	ferro := make([]float64, cols)
	para := make([]float64, cols)
	for j := 0; j < cols; j++ {
		ferro[j] = probs.At(dataset.LabelFerromagnetic, j)
		para[j] = probs.At(dataset.LabelParamagnetic, j)
	}
	return model.ConfidencePoint{
		Temperature:   ens.Temperature,
		Ferromagnetic: stat.Mean(ferro, nil),
		Paramagnetic:  stat.Mean(para, nil),
	}, nil
}

// Curve evaluates the confidence pair at every temperature, including ones
// the classifier never saw in training, ordered by ascending temperature.
func Curve(net *nn.Network, ensembles []model.Ensemble) ([]model.ConfidencePoint, error) {
	if len(ensembles) == 0 {
		return nil, fmt.Errorf("no ensembles to evaluate")
	}
	points := make([]model.ConfidencePoint, 0, len(ensembles))
	for _, ens := range ensembles {
		point, err := Confidence(net, ens)
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Temperature < points[j].Temperature })
	return points, nil
}

// EstimateTc locates the temperature where the two confidences cross (both
// at 0.5) by linear interpolation between the bracketing curve points.
func EstimateTc(points []model.ConfidencePoint) (float64, error) {
	if len(points) < 2 {
		return 0, fmt.Errorf("need at least 2 confidence points, got %d", len(points))
	}
	sorted := append([]model.ConfidencePoint(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Temperature < sorted[j].Temperature })

	prev := sorted[0]
	prevDiff := prev.Ferromagnetic - prev.Paramagnetic
	for _, point := range sorted[1:] {
		diff := point.Ferromagnetic - point.Paramagnetic
		if prevDiff == 0 {
			return prev.Temperature, nil
		}
		if prevDiff > 0 && diff <= 0 {
			if diff == 0 {
				return point.Temperature, nil
			}
			fraction := prevDiff / (prevDiff - diff)
			return prev.Temperature + fraction*(point.Temperature-prev.Temperature), nil
		}
		prev = point
		prevDiff = diff
	}
	return 0, fmt.Errorf("confidence curves never cross within [%g, %g]",
		sorted[0].Temperature, sorted[len(sorted)-1].Temperature)
}
