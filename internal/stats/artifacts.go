package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"kritikos/internal/model"
)

const runIndexFile = "run_index.json"

// RunArtifacts is the JSON export of one run: everything an external plotting
// tool needs to redraw the reference-line, heatmap, and confidence plots.
type RunArtifacts struct {
	Run             model.RunRecord         `json:"run"`
	LossHistory     []float64               `json:"loss_history,omitempty"`
	ConfidenceCurve []model.ConfidencePoint `json:"confidence_curve,omitempty"`
	TcEstimate      *float64                `json:"tc_estimate,omitempty"`
	TcExact         float64                 `json:"tc_exact"`
}

type RunIndexEntry struct {
	RunID        string   `json:"run_id"`
	LatticeSize  int      `json:"lattice_size"`
	Sweeps       int      `json:"sweeps"`
	MeasureRate  int      `json:"measure_rate"`
	Temperatures int      `json:"temperatures"`
	Seed         int64    `json:"seed"`
	Status       string   `json:"status"`
	TcEstimate   *float64 `json:"tc_estimate,omitempty"`
	CreatedAtUTC string   `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Run); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "loss_history.json"), artifacts.LossHistory); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "confidence_curve.json"), map[string]any{
		"points":      artifacts.ConfidenceCurve,
		"tc_estimate": artifacts.TcEstimate,
		"tc_exact":    artifacts.TcExact,
	}); err != nil {
		return "", err
	}
	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

func ReadRunArtifacts(baseDir, runID string) (RunArtifacts, bool, error) {
	runDir := filepath.Join(baseDir, runID)
	data, err := os.ReadFile(filepath.Join(runDir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return RunArtifacts{}, false, nil
		}
		return RunArtifacts{}, false, err
	}

	var artifacts RunArtifacts
	if err := json.Unmarshal(data, &artifacts.Run); err != nil {
		return RunArtifacts{}, false, fmt.Errorf("decode run config: %w", err)
	}

	if data, err := os.ReadFile(filepath.Join(runDir, "loss_history.json")); err == nil {
		if err := json.Unmarshal(data, &artifacts.LossHistory); err != nil {
			return RunArtifacts{}, false, fmt.Errorf("decode loss history: %w", err)
		}
	}

	if data, err := os.ReadFile(filepath.Join(runDir, "confidence_curve.json")); err == nil {
		var curve struct {
			Points     []model.ConfidencePoint `json:"points"`
			TcEstimate *float64                `json:"tc_estimate"`
			TcExact    float64                 `json:"tc_exact"`
		}
		if err := json.Unmarshal(data, &curve); err != nil {
			return RunArtifacts{}, false, fmt.Errorf("decode confidence curve: %w", err)
		}
		artifacts.ConfidenceCurve = curve.Points
		artifacts.TcEstimate = curve.TcEstimate
		artifacts.TcExact = curve.TcExact
	}
	return artifacts, true, nil
}

// WriteMagnetizationPlot stores the order-parameter curve next to the run's
// other artifacts so plots can overlay it on the classifier confidences.
func WriteMagnetizationPlot(runDir string, points []MagnetizationPlotPoint) error {
	return writeJSON(filepath.Join(runDir, "magnetization.json"), points)
}

// ExportRunArtifacts copies a run's artifact files into outDir/<runID>.
// magnetization.json is optional; a run sampled but never detected has none.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{"config.json", "loss_history.json", "confidence_curve.json"} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	magnetizationPath := filepath.Join(src, "magnetization.json")
	if _, err := os.Stat(magnetizationPath); err == nil {
		if err := copyFile(magnetizationPath, filepath.Join(dst, "magnetization.json")); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
