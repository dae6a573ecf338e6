package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"kritikos/internal/model"
	api "kritikos/pkg/kritikos"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "sample":
		return runSample(ctx, args[1:])
	case "train":
		return runTrain(ctx, args[1:])
	case "detect":
		return runDetect(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "curve":
		return runCurve(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// storeFlags registers the flags shared by every command that opens the store.
func storeFlags(fs *flag.FlagSet, env envOptions) (storeKind, dbPath, artifactsDir *string) {
	storeKind = fs.String("store", env.StoreKind, "store backend: memory|sqlite")
	dbPath = fs.String("db-path", env.DBPath, "sqlite database path")
	artifactsDir = fs.String("artifacts-dir", env.ArtifactsDir, "run artifacts directory")
	return storeKind, dbPath, artifactsDir
}

func newClient(env envOptions, storeKind, dbPath, artifactsDir string) (*api.Client, error) {
	return api.New(api.Options{
		StoreKind:    storeKind,
		DBPath:       dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   env.ExportsDir,
		Workers:      env.Workers,
	})
}

func runInit(ctx context.Context, args []string) error {
	env := loadEnvOptions()
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind, dbPath, artifactsDir := storeFlags(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(env, *storeKind, *dbPath, *artifactsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	env := loadEnvOptions()
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind, dbPath, artifactsDir := storeFlags(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(env, *storeKind, *dbPath, *artifactsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Reset(ctx); err != nil {
		return err
	}
	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	env := loadEnvOptions()
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	latticeSize := fs.Int("size", 8, "lattice side length")
	sweeps := fs.Int("sweeps", 0, "Metropolis sweeps per temperature (0 uses default)")
	measureRate := fs.Int("measure-rate", 0, "sweeps between snapshots (0 uses default)")
	seed := fs.Int64("seed", 1, "rng seed")
	temps := fs.String("temps", "", "comma-separated temperature grid (empty uses default grid)")
	tempCount := fs.Int("temp-count", 8, "temperature count for the default grid")
	workers := fs.Int("workers", 0, "simulation worker count (0 uses default)")
	hidden := fs.Int("hidden", 0, "hidden layer width (0 uses default)")
	epochs := fs.Int("epochs", 0, "training epochs (0 uses default)")
	replicas := fs.Int("replicas", 1, "training set replication factor")
	learningRate := fs.Float64("lr", 0, "Adam learning rate (0 uses default)")
	storeKind, dbPath, artifactsDir := storeFlags(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	temperatures, err := parseTemperatures(*temps)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = api.RunRequest{
			RunID:            *runID,
			LatticeSize:      *latticeSize,
			Sweeps:           *sweeps,
			MeasureRate:      *measureRate,
			Seed:             *seed,
			Temperatures:     temperatures,
			TemperatureCount: *tempCount,
			Workers:          *workers,
			HiddenUnits:      *hidden,
			Epochs:           *epochs,
			Replicas:         *replicas,
			LearningRate:     *learningRate,
		}
	} else {
		overrideFromFlags(&req, setFlags, map[string]any{
			"run-id":       *runID,
			"size":         *latticeSize,
			"sweeps":       *sweeps,
			"measure-rate": *measureRate,
			"seed":         *seed,
			"temps":        temperatures,
			"temp-count":   *tempCount,
			"workers":      *workers,
			"hidden":       *hidden,
			"epochs":       *epochs,
			"replicas":     *replicas,
			"lr":           *learningRate,
		})
	}

	client, err := newClient(env, *storeKind, *dbPath, *artifactsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run completed run_id=%s size=%d seed=%d\n", summary.RunID, req.LatticeSize, req.Seed)
	if len(summary.LossHistory) > 0 {
		fmt.Printf("epochs=%d final_loss=%.6f\n", len(summary.LossHistory), summary.LossHistory[len(summary.LossHistory)-1])
	}
	printCurve(summary.Curve, summary.TcEstimate, summary.TcExact)
	fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

func runSample(ctx context.Context, args []string) error {
	env := loadEnvOptions()
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	runID := fs.String("run-id", "", "explicit run id (optional)")
	latticeSize := fs.Int("size", 8, "lattice side length")
	sweeps := fs.Int("sweeps", 0, "Metropolis sweeps per temperature (0 uses default)")
	measureRate := fs.Int("measure-rate", 0, "sweeps between snapshots (0 uses default)")
	seed := fs.Int64("seed", 1, "rng seed")
	temps := fs.String("temps", "", "comma-separated temperature grid (empty uses default grid)")
	tempCount := fs.Int("temp-count", 8, "temperature count for the default grid")
	workers := fs.Int("workers", 0, "simulation worker count (0 uses default)")
	storeKind, dbPath, artifactsDir := storeFlags(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}

	temperatures, err := parseTemperatures(*temps)
	if err != nil {
		return err
	}

	client, err := newClient(env, *storeKind, *dbPath, *artifactsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	run, err := client.Sample(ctx, api.SampleRequest{
		RunID:            *runID,
		LatticeSize:      *latticeSize,
		Sweeps:           *sweeps,
		MeasureRate:      *measureRate,
		Seed:             *seed,
		Temperatures:     temperatures,
		TemperatureCount: *tempCount,
		Workers:          *workers,
	})
	if err != nil {
		return err
	}
	fmt.Printf("sampled run_id=%s size=%d sweeps=%s temperatures=%d seed=%d\n",
		run.ID,
		run.LatticeSize,
		humanize.Comma(int64(run.Sweeps)),
		len(run.Temperatures),
		run.Seed,
	)
	return nil
}

func runTrain(ctx context.Context, args []string) error {
	env := loadEnvOptions()
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "train the most recent run")
	hidden := fs.Int("hidden", 0, "hidden layer width (0 uses default)")
	epochs := fs.Int("epochs", 0, "training epochs (0 uses default)")
	replicas := fs.Int("replicas", 1, "training set replication factor")
	learningRate := fs.Float64("lr", 0, "Adam learning rate (0 uses default)")
	seed := fs.Int64("seed", 1, "rng seed for weight init")
	storeKind, dbPath, artifactsDir := storeFlags(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(env, *storeKind, *dbPath, *artifactsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Train(ctx, api.TrainRequest{
		RunID:        *runID,
		Latest:       *latest,
		HiddenUnits:  *hidden,
		Epochs:       *epochs,
		Replicas:     *replicas,
		LearningRate: *learningRate,
		Seed:         *seed,
	})
	if err != nil {
		return err
	}
	fmt.Printf("trained run_id=%s hidden=%d epochs=%d final_loss=%.6f\n",
		summary.RunID,
		summary.HiddenUnits,
		summary.Epochs,
		summary.FinalLoss,
	)
	return nil
}

func runDetect(ctx context.Context, args []string) error {
	env := loadEnvOptions()
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "detect on the most recent run")
	storeKind, dbPath, artifactsDir := storeFlags(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(env, *storeKind, *dbPath, *artifactsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Detect(ctx, api.DetectRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	fmt.Printf("detected run_id=%s\n", summary.RunID)
	printCurve(summary.Curve, summary.TcEstimate, summary.TcExact)
	fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	env := loadEnvOptions()
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind, dbPath, artifactsDir := storeFlags(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient(env, *storeKind, *dbPath, *artifactsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, api.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		type runsItem struct {
			RunID        string   `json:"run_id"`
			CreatedAtUTC string   `json:"created_at_utc"`
			LatticeSize  int      `json:"lattice_size"`
			Sweeps       int      `json:"sweeps"`
			MeasureRate  int      `json:"measure_rate"`
			Temperatures int      `json:"temperatures"`
			Seed         int64    `json:"seed"`
			Status       string   `json:"status"`
			TcEstimate   *float64 `json:"tc_estimate,omitempty"`
		}
		items := make([]runsItem, 0, len(runs))
		for _, r := range runs {
			items = append(items, runsItem{
				RunID:        r.RunID,
				CreatedAtUTC: r.CreatedAtUTC,
				LatticeSize:  r.LatticeSize,
				Sweeps:       r.Sweeps,
				MeasureRate:  r.MeasureRate,
				Temperatures: r.Temperatures,
				Seed:         r.Seed,
				Status:       r.Status,
				TcEstimate:   r.TcEstimate,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for _, r := range runs {
		tcDisplay := "n/a"
		if r.TcEstimate != nil {
			tcDisplay = fmt.Sprintf("%.4f", *r.TcEstimate)
		}
		fmt.Printf("run_id=%s created_at=%s size=%d sweeps=%s measure_rate=%s temperatures=%d seed=%d status=%s tc_estimate=%s\n",
			r.RunID,
			r.CreatedAtUTC,
			r.LatticeSize,
			humanize.Comma(int64(r.Sweeps)),
			humanize.Comma(int64(r.MeasureRate)),
			r.Temperatures,
			r.Seed,
			r.Status,
			tcDisplay,
		)
	}
	return nil
}

func runCurve(ctx context.Context, args []string) error {
	env := loadEnvOptions()
	fs := flag.NewFlagSet("curve", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show curve for the most recent run")
	jsonOut := fs.Bool("json", false, "emit confidence curve as JSON")
	storeKind, dbPath, artifactsDir := storeFlags(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(env, *storeKind, *dbPath, *artifactsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	result, err := client.Curve(ctx, api.CurveRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Printf("run_id=%s\n", result.RunID)
	printCurve(result.Curve, result.TcEstimate, result.TcExact)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	env := loadEnvOptions()
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", "", "export destination directory")
	storeKind, dbPath, artifactsDir := storeFlags(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(env, *storeKind, *dbPath, *artifactsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, api.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
	return nil
}

func printCurve(curve []model.ConfidencePoint, tcEstimate *float64, tcExact float64) {
	for _, point := range curve {
		fmt.Printf("temperature=%.4f ferromagnetic=%.6f paramagnetic=%.6f\n",
			point.Temperature,
			point.Ferromagnetic,
			point.Paramagnetic,
		)
	}
	if tcEstimate != nil {
		fmt.Printf("tc_estimate=%.6f tc_exact=%.6f\n", *tcEstimate, tcExact)
	} else {
		fmt.Printf("tc_estimate=n/a tc_exact=%.6f\n", tcExact)
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: kritikosctl <init|reset|run|sample|train|detect|runs|curve|export> [flags]", msg)
}
