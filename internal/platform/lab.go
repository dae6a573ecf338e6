package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"kritikos/internal/dataset"
	"kritikos/internal/mc"
	"kritikos/internal/model"
	"kritikos/internal/nn"
	"kritikos/internal/phase"
	"kritikos/internal/storage"
)

const (
	DefaultWorkers          = 4
	DefaultTemperatureCount = 8
	DefaultReplicas         = 1

	// Extreme temperatures of the default grid, well inside the ordered and
	// disordered phases around Tc≈2.269.
	DefaultLowTemperature  = 1.189
	DefaultHighTemperature = 3.367
)

// DefaultTemperatures returns count evenly spaced temperatures spanning
// [DefaultLowTemperature, DefaultHighTemperature].
func DefaultTemperatures(count int) []float64 {
	if count < 2 {
		count = DefaultTemperatureCount
	}
	step := (DefaultHighTemperature - DefaultLowTemperature) / float64(count-1)
	out := make([]float64, count)
	for i := range out {
		out[i] = DefaultLowTemperature + float64(i)*step
	}
	out[count-1] = DefaultHighTemperature
	return out
}

type Config struct {
	Store   storage.Store
	Workers int
}

// Lab owns the store and coordinates sampling, training, and detection for a
// run. Each temperature's lattice buffer belongs to exactly one simulation
// goroutine; workers only share the store.
type Lab struct {
	store   storage.Store
	workers int
}

func NewLab(cfg Config) *Lab {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Lab{store: cfg.Store, workers: workers}
}

func (l *Lab) Init(ctx context.Context) error {
	if l.store == nil {
		return fmt.Errorf("lab requires a store")
	}
	return l.store.Init(ctx)
}

func (l *Lab) Reset(ctx context.Context) error {
	if l.store == nil {
		return fmt.Errorf("lab requires a store")
	}
	return l.store.Reset(ctx)
}

func (l *Lab) Store() storage.Store {
	return l.store
}

type SampleRequest struct {
	RunID        string
	LatticeSize  int
	Sweeps       int
	MeasureRate  int
	Seed         int64
	Temperatures []float64
	Workers      int
}

// Sample simulates every requested temperature and persists one ensemble per
// temperature plus the run record. Simulations are independent chains, so
// they run on a bounded worker pool; per-temperature seeds are derived from
// the request seed to keep runs reproducible regardless of scheduling.
func (l *Lab) Sample(ctx context.Context, req SampleRequest) (model.RunRecord, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	if len(req.Temperatures) == 0 {
		req.Temperatures = DefaultTemperatures(DefaultTemperatureCount)
	}
	if req.Sweeps <= 0 {
		req.Sweeps = mc.DefaultSweeps
	}
	if req.MeasureRate <= 0 {
		req.MeasureRate = mc.DefaultMeasureRate
	}
	workers := req.Workers
	if workers <= 0 {
		workers = l.workers
	}

	// Validate the whole grid before simulating any of it.
	for _, temperature := range req.Temperatures {
		if _, err := mc.NewSampler(mc.Config{
			Size:        req.LatticeSize,
			Temperature: temperature,
			Sweeps:      req.Sweeps,
			MeasureRate: req.MeasureRate,
		}); err != nil {
			return model.RunRecord{}, err
		}
	}

	var mu sync.Mutex
	ensembles := make([]model.Ensemble, 0, len(req.Temperatures))

	workerPool := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i, temperature := range req.Temperatures {
		i, temperature := i, temperature
		workerPool.Go(func(ctx context.Context) error {
			sampler, err := mc.NewSampler(mc.Config{
				Size:        req.LatticeSize,
				Temperature: temperature,
				Sweeps:      req.Sweeps,
				MeasureRate: req.MeasureRate,
				Seed:        req.Seed + int64(i),
			})
			if err != nil {
				return err
			}
			grids, err := sampler.Run(ctx)
			if err != nil {
				return err
			}

			snapshots := make([][]int8, len(grids))
			for j, grid := range grids {
				snapshots[j] = grid.Spins
			}
			ensemble := model.Ensemble{
				VersionedRecord: storage.Stamp(),
				RunID:           req.RunID,
				Temperature:     temperature,
				LatticeSize:     req.LatticeSize,
				Snapshots:       snapshots,
			}

			mu.Lock()
			ensembles = append(ensembles, ensemble)
			mu.Unlock()
			return nil
		})
	}
	if err := workerPool.Wait(); err != nil {
		return model.RunRecord{}, fmt.Errorf("sample run %s: %w", req.RunID, err)
	}

	for _, ensemble := range ensembles {
		if err := l.store.SaveEnsemble(ctx, ensemble); err != nil {
			return model.RunRecord{}, fmt.Errorf("save ensemble T=%g: %w", ensemble.Temperature, err)
		}
	}

	run := model.RunRecord{
		VersionedRecord: storage.Stamp(),
		ID:              req.RunID,
		CreatedAtUTC:    time.Now().UTC().Format(time.RFC3339),
		LatticeSize:     req.LatticeSize,
		Sweeps:          req.Sweeps,
		MeasureRate:     req.MeasureRate,
		Seed:            req.Seed,
		Temperatures:    append([]float64(nil), req.Temperatures...),
		Workers:         workers,
		Status:          "sampled",
	}
	if err := l.store.SaveRun(ctx, run); err != nil {
		return model.RunRecord{}, fmt.Errorf("save run %s: %w", req.RunID, err)
	}
	return run, nil
}

type TrainRequest struct {
	RunID        string
	HiddenUnits  int
	Epochs       int
	Replicas     int
	LearningRate float64
	Seed         int64
}

// Train builds the labeled set from the run's two extreme temperatures and
// fits the classifier, persisting weights and loss history.
func (l *Lab) Train(ctx context.Context, req TrainRequest) (model.NetworkRecord, error) {
	run, ensembles, err := l.loadRun(ctx, req.RunID)
	if err != nil {
		return model.NetworkRecord{}, err
	}
	if len(ensembles) < 2 {
		return model.NetworkRecord{}, fmt.Errorf("run %s has %d ensembles, need at least 2", req.RunID, len(ensembles))
	}

	// loadRun returns ensembles sorted by temperature.
	low := ensembles[0]
	high := ensembles[len(ensembles)-1]

	x, labels, err := dataset.BuildLabeled(low, high)
	if err != nil {
		return model.NetworkRecord{}, fmt.Errorf("build training set for run %s: %w", req.RunID, err)
	}
	replicas := req.Replicas
	if replicas <= 0 {
		replicas = DefaultReplicas
	}
	x, labels, err = dataset.Replicate(x, labels, replicas)
	if err != nil {
		return model.NetworkRecord{}, err
	}

	net, history, err := nn.Train(ctx, nn.TrainConfig{
		HiddenUnits:  req.HiddenUnits,
		Epochs:       req.Epochs,
		LearningRate: req.LearningRate,
		Seed:         req.Seed,
	}, x, labels)
	if err != nil {
		return model.NetworkRecord{}, fmt.Errorf("train run %s: %w", req.RunID, err)
	}

	record := net.ToRecord()
	record.VersionedRecord = storage.Stamp()
	record.RunID = req.RunID
	record.LossHistory = history
	if err := l.store.SaveNetwork(ctx, record); err != nil {
		return model.NetworkRecord{}, fmt.Errorf("save network for run %s: %w", req.RunID, err)
	}

	run.HiddenUnits = record.HiddenSize
	run.Epochs = len(history)
	run.Replicas = replicas
	run.Status = "trained"
	if err := l.store.SaveRun(ctx, run); err != nil {
		return model.NetworkRecord{}, fmt.Errorf("update run %s: %w", req.RunID, err)
	}
	return record, nil
}

type DetectResult struct {
	Run        model.RunRecord
	Curve      []model.ConfidencePoint
	TcEstimate *float64
	TcExact    float64
}

// Detect evaluates the trained classifier across every sampled temperature
// and estimates the critical temperature from the confidence crossing. A
// curve that never crosses (short noisy chains) yields a nil estimate rather
// than an error.
func (l *Lab) Detect(ctx context.Context, runID string) (DetectResult, error) {
	run, ensembles, err := l.loadRun(ctx, runID)
	if err != nil {
		return DetectResult{}, err
	}

	record, ok, err := l.store.GetNetwork(ctx, runID)
	if err != nil {
		return DetectResult{}, err
	}
	if !ok {
		return DetectResult{}, fmt.Errorf("run %s has no trained network", runID)
	}
	net, err := nn.FromRecord(record)
	if err != nil {
		return DetectResult{}, fmt.Errorf("restore network for run %s: %w", runID, err)
	}

	curve, err := phase.Curve(net, ensembles)
	if err != nil {
		return DetectResult{}, fmt.Errorf("confidence curve for run %s: %w", runID, err)
	}
	if err := l.store.SaveConfidenceCurve(ctx, runID, curve); err != nil {
		return DetectResult{}, fmt.Errorf("save curve for run %s: %w", runID, err)
	}

	result := DetectResult{Run: run, Curve: curve, TcExact: phase.ExactTc()}
	if tc, err := phase.EstimateTc(curve); err == nil {
		result.TcEstimate = &tc
	}

	run.TcEstimate = result.TcEstimate
	run.Status = "detected"
	if err := l.store.SaveRun(ctx, run); err != nil {
		return DetectResult{}, fmt.Errorf("update run %s: %w", runID, err)
	}
	result.Run = run
	return result, nil
}

func (l *Lab) loadRun(ctx context.Context, runID string) (model.RunRecord, []model.Ensemble, error) {
	if runID == "" {
		return model.RunRecord{}, nil, fmt.Errorf("run id is required")
	}
	run, ok, err := l.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, nil, err
	}
	if !ok {
		return model.RunRecord{}, nil, fmt.Errorf("run %s not found", runID)
	}
	ensembles, err := l.store.ListEnsembles(ctx, runID)
	if err != nil {
		return model.RunRecord{}, nil, err
	}
	if len(ensembles) == 0 {
		return model.RunRecord{}, nil, fmt.Errorf("run %s has no sampled ensembles", runID)
	}
	return run, ensembles, nil
}
