package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"kritikos/internal/storage"
	api "kritikos/pkg/kritikos"
)

type envOptions struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Workers      int
}

// loadEnvOptions reads defaults from the environment, with an optional .env
// file in the working directory. Flags still override everything.
func loadEnvOptions() envOptions {
	_ = godotenv.Load()

	opts := envOptions{
		StoreKind:    storage.DefaultStoreKind(),
		DBPath:       "kritikos.db",
		ArtifactsDir: "artifacts",
		ExportsDir:   "exports",
	}
	if v := os.Getenv("KRITIKOS_STORE"); v != "" {
		opts.StoreKind = v
	}
	if v := os.Getenv("KRITIKOS_DB_PATH"); v != "" {
		opts.DBPath = v
	}
	if v := os.Getenv("KRITIKOS_ARTIFACTS_DIR"); v != "" {
		opts.ArtifactsDir = v
	}
	if v := os.Getenv("KRITIKOS_EXPORTS_DIR"); v != "" {
		opts.ExportsDir = v
	}
	if v := os.Getenv("KRITIKOS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Workers = n
		}
	}
	return opts
}

func parseTemperatures(raw string) ([]float64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("parse temperature %q: %w", part, err)
		}
		out = append(out, value)
	}
	return out, nil
}

func loadRunRequestFromConfig(path string) (api.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return api.RunRequest{}, err
	}

	var req api.RunRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asInt(raw["lattice_size"]); ok {
		req.LatticeSize = v
	}
	if v, ok := asInt(raw["sweeps"]); ok {
		req.Sweeps = v
	}
	if v, ok := asInt(raw["measure_rate"]); ok {
		req.MeasureRate = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asFloat64Slice(raw["temperatures"]); ok {
		req.Temperatures = v
	}
	if v, ok := asInt(raw["temperature_count"]); ok {
		req.TemperatureCount = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asInt(raw["hidden_units"]); ok {
		req.HiddenUnits = v
	}
	if v, ok := asInt(raw["epochs"]); ok {
		req.Epochs = v
	}
	if v, ok := asInt(raw["replicas"]); ok {
		req.Replicas = v
	}
	if v, ok := asFloat64(raw["learning_rate"]); ok {
		req.LearningRate = v
	}
	return req, nil
}

func loadOrDefaultRunRequest(configPath string) (api.RunRequest, error) {
	if configPath == "" {
		return api.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return api.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

func overrideFromFlags(req *api.RunRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "size":
			req.LatticeSize = v.(int)
		case "sweeps":
			req.Sweeps = v.(int)
		case "measure-rate":
			req.MeasureRate = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "temps":
			req.Temperatures = v.([]float64)
		case "temp-count":
			req.TemperatureCount = v.(int)
		case "workers":
			req.Workers = v.(int)
		case "hidden":
			req.HiddenUnits = v.(int)
		case "epochs":
			req.Epochs = v.(int)
		case "replicas":
			req.Replicas = v.(int)
		case "lr":
			req.LearningRate = v.(float64)
		}
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func asFloat64Slice(v any) ([]float64, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		value, ok := asFloat64(item)
		if !ok {
			return nil, false
		}
		out = append(out, value)
	}
	return out, true
}
