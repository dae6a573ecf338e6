package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"kritikos/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(run model.RunRecord) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeEnsemble(ensemble model.Ensemble) ([]byte, error) {
	return json.Marshal(ensemble)
}

func DecodeEnsemble(data []byte) (model.Ensemble, error) {
	var ensemble model.Ensemble
	if err := json.Unmarshal(data, &ensemble); err != nil {
		return model.Ensemble{}, err
	}
	if err := checkVersion(ensemble.VersionedRecord); err != nil {
		return model.Ensemble{}, err
	}
	return ensemble, nil
}

func EncodeNetwork(network model.NetworkRecord) ([]byte, error) {
	return json.Marshal(network)
}

func DecodeNetwork(data []byte) (model.NetworkRecord, error) {
	var network model.NetworkRecord
	if err := json.Unmarshal(data, &network); err != nil {
		return model.NetworkRecord{}, err
	}
	if err := checkVersion(network.VersionedRecord); err != nil {
		return model.NetworkRecord{}, err
	}
	return network, nil
}

func EncodeCurve(points []model.ConfidencePoint) ([]byte, error) {
	return json.Marshal(points)
}

func DecodeCurve(data []byte) ([]model.ConfidencePoint, error) {
	var points []model.ConfidencePoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func checkVersion(record model.VersionedRecord) error {
	if record.SchemaVersion != CurrentSchemaVersion || record.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, record.SchemaVersion, record.CodecVersion)
	}
	return nil
}

// Stamp sets the current schema and codec versions on a record.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}
