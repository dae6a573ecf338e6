package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord describes one full sampling/training/detection run.
type RunRecord struct {
	VersionedRecord
	ID           string    `json:"id"`
	CreatedAtUTC string    `json:"created_at_utc"`
	LatticeSize  int       `json:"lattice_size"`
	Sweeps       int       `json:"sweeps"`
	MeasureRate  int       `json:"measure_rate"`
	Seed         int64     `json:"seed"`
	Temperatures []float64 `json:"temperatures"`
	Workers      int       `json:"workers"`
	HiddenUnits  int       `json:"hidden_units"`
	Epochs       int       `json:"epochs"`
	Replicas     int       `json:"replicas"`
	Status       string    `json:"status"`
	TcEstimate   *float64  `json:"tc_estimate,omitempty"`
}

// Ensemble holds the snapshots recorded for one temperature of one run.
// Each snapshot is a row-major flattened L×L grid of ±1 spins.
type Ensemble struct {
	VersionedRecord
	RunID       string   `json:"run_id"`
	Temperature float64  `json:"temperature"`
	LatticeSize int      `json:"lattice_size"`
	Snapshots   [][]int8 `json:"snapshots"`
}

// NetworkRecord persists trained classifier weights in row-major order.
type NetworkRecord struct {
	VersionedRecord
	RunID       string    `json:"run_id"`
	InputSize   int       `json:"input_size"`
	HiddenSize  int       `json:"hidden_size"`
	OutputSize  int       `json:"output_size"`
	W1          []float64 `json:"w1"`
	B1          []float64 `json:"b1"`
	W2          []float64 `json:"w2"`
	B2          []float64 `json:"b2"`
	LossHistory []float64 `json:"loss_history"`
}

// ConfidencePoint is the averaged classifier output pair at one temperature.
type ConfidencePoint struct {
	Temperature   float64 `json:"temperature"`
	Ferromagnetic float64 `json:"ferromagnetic"`
	Paramagnetic  float64 `json:"paramagnetic"`
}
