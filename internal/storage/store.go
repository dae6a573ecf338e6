package storage

import (
	"context"

	"kritikos/internal/model"
)

// Store defines persistence operations for runs, sampled ensembles, trained
// networks, and confidence curves.
type Store interface {
	Init(ctx context.Context) error
	Reset(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveEnsemble(ctx context.Context, ensemble model.Ensemble) error
	GetEnsemble(ctx context.Context, runID string, temperature float64) (model.Ensemble, bool, error)
	ListEnsembles(ctx context.Context, runID string) ([]model.Ensemble, error)
	SaveNetwork(ctx context.Context, network model.NetworkRecord) error
	GetNetwork(ctx context.Context, runID string) (model.NetworkRecord, bool, error)
	SaveConfidenceCurve(ctx context.Context, runID string, points []model.ConfidencePoint) error
	GetConfidenceCurve(ctx context.Context, runID string) ([]model.ConfidencePoint, bool, error)
}
