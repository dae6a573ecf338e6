package kritikos

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"kritikos/internal/model"
	"kritikos/internal/phase"
	"kritikos/internal/platform"
	"kritikos/internal/stats"
	"kritikos/internal/storage"
)

const (
	defaultArtifactsDir = "artifacts"
	defaultExportsDir   = "exports"
	defaultDBPath       = "kritikos.db"

	defaultLatticeSize = 8
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Workers      int
}

type Client struct {
	store storage.Store
	lab   *platform.Lab

	artifactsDir string
	exportsDir   string
	workers      int
}

// RunRequest configures the full pipeline: sample every temperature, train
// the classifier on the two extremes, then locate the confidence crossing.
type RunRequest struct {
	RunID            string
	LatticeSize      int
	Sweeps           int
	MeasureRate      int
	Seed             int64
	Temperatures     []float64
	TemperatureCount int
	Workers          int
	HiddenUnits      int
	Epochs           int
	Replicas         int
	LearningRate     float64
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	LossHistory  []float64
	Curve        []model.ConfidencePoint
	TcEstimate   *float64
	TcExact      float64
}

type SampleRequest struct {
	RunID            string
	LatticeSize      int
	Sweeps           int
	MeasureRate      int
	Seed             int64
	Temperatures     []float64
	TemperatureCount int
	Workers          int
}

type TrainRequest struct {
	RunID        string
	Latest       bool
	HiddenUnits  int
	Epochs       int
	Replicas     int
	LearningRate float64
	Seed         int64
}

type TrainSummary struct {
	RunID       string
	HiddenUnits int
	Epochs      int
	FinalLoss   float64
	LossHistory []float64
}

type DetectRequest struct {
	RunID  string
	Latest bool
}

type DetectSummary struct {
	RunID        string
	ArtifactsDir string
	Curve        []model.ConfidencePoint
	TcEstimate   *float64
	TcExact      float64
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	LatticeSize  int
	Sweeps       int
	MeasureRate  int
	Temperatures int
	Seed         int64
	Status       string
	TcEstimate   *float64
}

type CurveRequest struct {
	RunID  string
	Latest bool
}

type CurveResult struct {
	RunID      string
	Curve      []model.ConfidencePoint
	TcEstimate *float64
	TcExact    float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
		workers:      opts.Workers,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureLab(ctx)
	return err
}

func (c *Client) Reset(ctx context.Context) error {
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return err
	}
	return lab.Reset(ctx)
}

// Run executes sample, train, and detect back to back and writes the run's
// artifact files.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	sampled, err := c.Sample(ctx, SampleRequest{
		RunID:            req.RunID,
		LatticeSize:      req.LatticeSize,
		Sweeps:           req.Sweeps,
		MeasureRate:      req.MeasureRate,
		Seed:             req.Seed,
		Temperatures:     req.Temperatures,
		TemperatureCount: req.TemperatureCount,
		Workers:          req.Workers,
	})
	if err != nil {
		return RunSummary{}, err
	}

	trained, err := c.Train(ctx, TrainRequest{
		RunID:        sampled.ID,
		HiddenUnits:  req.HiddenUnits,
		Epochs:       req.Epochs,
		Replicas:     req.Replicas,
		LearningRate: req.LearningRate,
		Seed:         req.Seed,
	})
	if err != nil {
		return RunSummary{}, err
	}

	detected, err := c.Detect(ctx, DetectRequest{RunID: sampled.ID})
	if err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:        sampled.ID,
		ArtifactsDir: detected.ArtifactsDir,
		LossHistory:  trained.LossHistory,
		Curve:        detected.Curve,
		TcEstimate:   detected.TcEstimate,
		TcExact:      detected.TcExact,
	}, nil
}

// Sample runs the Metropolis chains for every temperature and records the run.
func (c *Client) Sample(ctx context.Context, req SampleRequest) (model.RunRecord, error) {
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return model.RunRecord{}, err
	}

	if req.LatticeSize <= 0 {
		req.LatticeSize = defaultLatticeSize
	}
	temperatures := req.Temperatures
	if len(temperatures) == 0 {
		temperatures = platform.DefaultTemperatures(req.TemperatureCount)
	}

	run, err := lab.Sample(ctx, platform.SampleRequest{
		RunID:        req.RunID,
		LatticeSize:  req.LatticeSize,
		Sweeps:       req.Sweeps,
		MeasureRate:  req.MeasureRate,
		Seed:         req.Seed,
		Temperatures: temperatures,
		Workers:      req.Workers,
	})
	if err != nil {
		return model.RunRecord{}, err
	}
	if err := c.indexRun(run); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

// Train fits the classifier for a sampled run.
func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return TrainSummary{}, err
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return TrainSummary{}, err
	}

	record, err := lab.Train(ctx, platform.TrainRequest{
		RunID:        runID,
		HiddenUnits:  req.HiddenUnits,
		Epochs:       req.Epochs,
		Replicas:     req.Replicas,
		LearningRate: req.LearningRate,
		Seed:         req.Seed,
	})
	if err != nil {
		return TrainSummary{}, err
	}

	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return TrainSummary{}, err
	}
	if ok {
		if err := c.indexRun(run); err != nil {
			return TrainSummary{}, err
		}
	}

	summary := TrainSummary{
		RunID:       runID,
		HiddenUnits: record.HiddenSize,
		Epochs:      len(record.LossHistory),
		LossHistory: append([]float64(nil), record.LossHistory...),
	}
	if len(record.LossHistory) > 0 {
		summary.FinalLoss = record.LossHistory[len(record.LossHistory)-1]
	}
	return summary, nil
}

// Detect evaluates the trained classifier, estimates Tc, and writes the
// run's artifact files.
func (c *Client) Detect(ctx context.Context, req DetectRequest) (DetectSummary, error) {
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return DetectSummary{}, err
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return DetectSummary{}, err
	}

	result, err := lab.Detect(ctx, runID)
	if err != nil {
		return DetectSummary{}, err
	}

	record, _, err := c.store.GetNetwork(ctx, runID)
	if err != nil {
		return DetectSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Run:             result.Run,
		LossHistory:     record.LossHistory,
		ConfidenceCurve: result.Curve,
		TcEstimate:      result.TcEstimate,
		TcExact:         result.TcExact,
	})
	if err != nil {
		return DetectSummary{}, err
	}
	ensembles, err := c.store.ListEnsembles(ctx, runID)
	if err != nil {
		return DetectSummary{}, err
	}
	if err := stats.WriteMagnetizationPlot(runDir, stats.BuildMagnetizationPlot(ensembles)); err != nil {
		return DetectSummary{}, err
	}
	if err := c.indexRun(result.Run); err != nil {
		return DetectSummary{}, err
	}

	return DetectSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		Curve:        result.Curve,
		TcEstimate:   result.TcEstimate,
		TcExact:      result.TcExact,
	}, nil
}

// Runs lists recent runs from the artifacts run index, newest first. The
// index lives on disk so the listing works regardless of the store backend.
func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			LatticeSize:  e.LatticeSize,
			Sweeps:       e.Sweeps,
			MeasureRate:  e.MeasureRate,
			Temperatures: e.Temperatures,
			Seed:         e.Seed,
			Status:       e.Status,
			TcEstimate:   e.TcEstimate,
		})
	}
	return out, nil
}

func (c *Client) Curve(ctx context.Context, req CurveRequest) (CurveResult, error) {
	if _, err := c.ensureLab(ctx); err != nil {
		return CurveResult{}, err
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return CurveResult{}, err
	}

	curve, ok, err := c.store.GetConfidenceCurve(ctx, runID)
	if err != nil {
		return CurveResult{}, err
	}
	if !ok {
		return CurveResult{}, fmt.Errorf("confidence curve not found for run id: %s", runID)
	}

	result := CurveResult{RunID: runID, Curve: curve, TcExact: phase.ExactTc()}
	if tc, err := phase.EstimateTc(curve); err == nil {
		result.TcEstimate = &tc
	}
	return result, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) ensureLab(ctx context.Context) (*platform.Lab, error) {
	if c.lab != nil {
		return c.lab, nil
	}
	lab := platform.NewLab(platform.Config{Store: c.store, Workers: c.workers})
	if err := lab.Init(ctx); err != nil {
		return nil, err
	}
	c.lab = lab
	return c.lab, nil
}

// resolveRunID maps --latest to the newest stored run.
func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no runs available")
	}
	return runs[0].ID, nil
}

func (c *Client) indexRun(run model.RunRecord) error {
	return stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:        run.ID,
		LatticeSize:  run.LatticeSize,
		Sweeps:       run.Sweeps,
		MeasureRate:  run.MeasureRate,
		Temperatures: len(run.Temperatures),
		Seed:         run.Seed,
		Status:       run.Status,
		TcEstimate:   run.TcEstimate,
		CreatedAtUTC: run.CreatedAtUTC,
	})
}
