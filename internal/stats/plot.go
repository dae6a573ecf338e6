package stats

import (
	"gonum.org/v1/gonum/stat"

	"kritikos/internal/dataset"
	"kritikos/internal/model"
)

// ConfidencePlotPoint is one sample of the confidence-vs-temperature line
// plot; Reference marks the exact critical temperature for the overlay line.
type ConfidencePlotPoint struct {
	Temperature   float64 `json:"temperature"`
	Ferromagnetic float64 `json:"ferromagnetic"`
	Paramagnetic  float64 `json:"paramagnetic"`
}

type MagnetizationPlotPoint struct {
	Temperature float64 `json:"temperature"`
	MeanAbs     float64 `json:"mean_abs_magnetization"`
}

func BuildConfidencePlot(points []model.ConfidencePoint) []ConfidencePlotPoint {
	out := make([]ConfidencePlotPoint, 0, len(points))
	for _, point := range points {
		out = append(out, ConfidencePlotPoint{
			Temperature:   point.Temperature,
			Ferromagnetic: point.Ferromagnetic,
			Paramagnetic:  point.Paramagnetic,
		})
	}
	return out
}

// BuildMagnetizationPlot averages |m| per temperature, the classic order
// parameter curve plotted next to the classifier confidences.
func BuildMagnetizationPlot(ensembles []model.Ensemble) []MagnetizationPlotPoint {
	out := make([]MagnetizationPlotPoint, 0, len(ensembles))
	for _, ensemble := range ensembles {
		if len(ensemble.Snapshots) == 0 {
			continue
		}
		values := make([]float64, 0, len(ensemble.Snapshots))
		for _, snapshot := range ensemble.Snapshots {
			m := meanSpin(dataset.Flatten(snapshot))
			if m < 0 {
				m = -m
			}
			values = append(values, m)
		}
		out = append(out, MagnetizationPlotPoint{
			Temperature: ensemble.Temperature,
			MeanAbs:     stat.Mean(values, nil),
		})
	}
	return out
}

func meanSpin(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
