package stats

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"kritikos/internal/model"
)

func TestWriteAndReadRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	tc := 2.31
	artifacts := RunArtifacts{
		Run: model.RunRecord{
			ID:           "r1",
			CreatedAtUTC: "2026-01-01T00:00:00Z",
			LatticeSize:  8,
			Sweeps:       1000,
			MeasureRate:  100,
			Temperatures: []float64{1.189, 3.367},
			Status:       "detected",
		},
		LossHistory: []float64{0.69, 0.41, 0.22},
		ConfidenceCurve: []model.ConfidencePoint{
			{Temperature: 1.189, Ferromagnetic: 0.94, Paramagnetic: 0.06},
			{Temperature: 3.367, Ferromagnetic: 0.07, Paramagnetic: 0.93},
		},
		TcEstimate: &tc,
		TcExact:    2.269185,
	}

	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if runDir == "" {
		t.Fatal("empty run directory")
	}

	loaded, ok, err := ReadRunArtifacts(baseDir, "r1")
	if err != nil || !ok {
		t.Fatalf("read artifacts: ok=%v err=%v", ok, err)
	}
	if loaded.Run.LatticeSize != 8 || len(loaded.LossHistory) != 3 {
		t.Fatalf("loaded artifacts differ: %+v", loaded)
	}
	if len(loaded.ConfidenceCurve) != 2 || loaded.TcEstimate == nil {
		t.Fatalf("loaded curve differs: %+v", loaded.ConfidenceCurve)
	}
	if math.Abs(*loaded.TcEstimate-2.31) > 1e-12 {
		t.Fatalf("loaded tc estimate: got=%f want=2.31", *loaded.TcEstimate)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected run id error")
	}
}

func TestReadRunArtifactsMissingRun(t *testing.T) {
	_, ok, err := ReadRunArtifacts(t.TempDir(), "missing")
	if err != nil {
		t.Fatalf("read missing artifacts: %v", err)
	}
	if ok {
		t.Fatal("expected missing run to report ok=false")
	}
}

func TestExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := t.TempDir()

	runDir, err := WriteRunArtifacts(baseDir, RunArtifacts{
		Run:     model.RunRecord{ID: "r1", LatticeSize: 4},
		TcExact: 2.269185,
	})
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	points := []MagnetizationPlotPoint{{Temperature: 1.0, MeanAbs: 0.98}}
	if err := WriteMagnetizationPlot(runDir, points); err != nil {
		t.Fatalf("write magnetization: %v", err)
	}

	exported, err := ExportRunArtifacts(baseDir, "r1", outDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, file := range []string{"config.json", "loss_history.json", "confidence_curve.json", "magnetization.json"} {
		if _, err := os.Stat(filepath.Join(exported, file)); err != nil {
			t.Fatalf("exported %s: %v", file, err)
		}
	}
}

func TestExportRunArtifactsMissingRun(t *testing.T) {
	if _, err := ExportRunArtifacts(t.TempDir(), "missing", t.TempDir()); err == nil {
		t.Fatal("expected missing run error")
	}
	if _, err := ExportRunArtifacts(t.TempDir(), "", t.TempDir()); err == nil {
		t.Fatal("expected run id error")
	}
}

func TestRunIndexAppendAndUpdate(t *testing.T) {
	baseDir := t.TempDir()

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "r1", Status: "sampled", CreatedAtUTC: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "r2", Status: "sampled", CreatedAtUTC: "2026-01-02T00:00:00Z"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "r1", Status: "detected", CreatedAtUTC: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("index length: got=%d want=2", len(entries))
	}
	if entries[0].RunID != "r2" {
		t.Fatalf("index not newest-first: %+v", entries)
	}
	for _, entry := range entries {
		if entry.RunID == "r1" && entry.Status != "detected" {
			t.Fatalf("update did not replace entry: %+v", entry)
		}
	}
}

func TestAppendRunIndexRequiresRunID(t *testing.T) {
	if err := AppendRunIndex(t.TempDir(), RunIndexEntry{}); err == nil {
		t.Fatal("expected run id error")
	}
}

func TestListRunIndexEmptyDir(t *testing.T) {
	entries, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty index, got %d entries", len(entries))
	}
}
