package storage

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"kritikos/internal/model"
)

type MemoryStore struct {
	mu        sync.RWMutex
	runs      map[string]model.RunRecord
	ensembles map[string]model.Ensemble
	networks  map[string]model.NetworkRecord
	curves    map[string][]model.ConfidencePoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return nil
}

func (s *MemoryStore) reset() {
	s.runs = make(map[string]model.RunRecord)
	s.ensembles = make(map[string]model.Ensemble)
	s.networks = make(map[string]model.NetworkRecord)
	s.curves = make(map[string][]model.ConfidencePoint)
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC != runs[j].CreatedAtUTC {
			return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (s *MemoryStore) SaveEnsemble(_ context.Context, ensemble model.Ensemble) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensembles[ensembleKey(ensemble.RunID, ensemble.Temperature)] = ensemble
	return nil
}

func (s *MemoryStore) GetEnsemble(_ context.Context, runID string, temperature float64) (model.Ensemble, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ensemble, ok := s.ensembles[ensembleKey(runID, temperature)]
	return ensemble, ok, nil
}

func (s *MemoryStore) ListEnsembles(_ context.Context, runID string) ([]model.Ensemble, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ensembles := make([]model.Ensemble, 0)
	for _, ensemble := range s.ensembles {
		if ensemble.RunID == runID {
			ensembles = append(ensembles, ensemble)
		}
	}
	sort.Slice(ensembles, func(i, j int) bool {
		return ensembles[i].Temperature < ensembles[j].Temperature
	})
	return ensembles, nil
}

func (s *MemoryStore) SaveNetwork(_ context.Context, network model.NetworkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.networks[network.RunID] = network
	return nil
}

func (s *MemoryStore) GetNetwork(_ context.Context, runID string) (model.NetworkRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	network, ok := s.networks[runID]
	return network, ok, nil
}

func (s *MemoryStore) SaveConfidenceCurve(_ context.Context, runID string, points []model.ConfidencePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.curves[runID] = append([]model.ConfidencePoint(nil), points...)
	return nil
}

func (s *MemoryStore) GetConfidenceCurve(_ context.Context, runID string) ([]model.ConfidencePoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points, ok := s.curves[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.ConfidencePoint(nil), points...), true, nil
}

func ensembleKey(runID string, temperature float64) string {
	return runID + "@" + strconv.FormatFloat(temperature, 'g', -1, 64)
}
