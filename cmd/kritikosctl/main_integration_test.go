package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRunCommandPipeline(t *testing.T) {
	base := t.TempDir()
	artifactsDir := filepath.Join(base, "artifacts")
	exportsDir := filepath.Join(base, "exports")

	err := run(context.Background(), []string{
		"run",
		"-store", "memory",
		"-artifacts-dir", artifactsDir,
		"-run-id", "cli-run",
		"-size", "4",
		"-sweeps", "60",
		"-measure-rate", "10",
		"-temps", "0.5,2.269,6.0",
		"-epochs", "15",
		"-seed", "2",
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}

	for _, file := range []string{"config.json", "loss_history.json", "confidence_curve.json"} {
		if _, err := os.Stat(filepath.Join(artifactsDir, "cli-run", file)); err != nil {
			t.Fatalf("artifact %s: %v", file, err)
		}
	}

	err = run(context.Background(), []string{
		"runs",
		"-store", "memory",
		"-artifacts-dir", artifactsDir,
	})
	if err != nil {
		t.Fatalf("runs command: %v", err)
	}

	err = run(context.Background(), []string{
		"export",
		"-store", "memory",
		"-artifacts-dir", artifactsDir,
		"-latest",
		"-out", exportsDir,
	})
	if err != nil {
		t.Fatalf("export command: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exportsDir, "cli-run", "confidence_curve.json")); err != nil {
		t.Fatalf("exported artifact: %v", err)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if err := run(context.Background(), []string{"bogus"}); err == nil {
		t.Fatal("expected unknown command error")
	}
	if err := run(context.Background(), nil); err == nil {
		t.Fatal("expected missing command error")
	}
}

func TestInitAndResetWithMemoryStore(t *testing.T) {
	artifactsDir := filepath.Join(t.TempDir(), "artifacts")
	if err := run(context.Background(), []string{"init", "-store", "memory", "-artifacts-dir", artifactsDir}); err != nil {
		t.Fatalf("init command: %v", err)
	}
	if err := run(context.Background(), []string{"reset", "-store", "memory", "-artifacts-dir", artifactsDir}); err != nil {
		t.Fatalf("reset command: %v", err)
	}
}
