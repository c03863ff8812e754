package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mjarvik/fleet-telemetry-collector/pkg/transport"
)

func sampleReport() *Report {
	return &Report{
		RunID:             "run-123",
		GeneratedAt:       time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		TotalDevices:      23,
		SuccessfulFetches: 13,
		FailedFetches:     10,
		Records: []transport.DeviceRecord{
			{Serial: "SN-000", RecordedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)},
		},
		Errors: []FailureEntry{
			{BatchIndex: 2, Serials: []string{"SN-020", "SN-021"}, Error: "no response received"},
		},
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	store := NewFileStore(path)

	if err := store.Save(sampleReport()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if loaded.RunID != "run-123" {
		t.Errorf("RunID = %q, want run-123", loaded.RunID)
	}
	if loaded.SuccessfulFetches != 13 || loaded.FailedFetches != 10 {
		t.Errorf("counts = (%d, %d), want (13, 10)", loaded.SuccessfulFetches, loaded.FailedFetches)
	}
	if len(loaded.Errors) != 1 || loaded.Errors[0].BatchIndex != 2 {
		t.Errorf("Errors = %+v, want one entry for batch 2", loaded.Errors)
	}
}

func TestFileStore_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "report.json")
	store := NewFileStore(path)

	if err := store.Save(sampleReport()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("report file not created: %v", err)
	}
}

func TestFileStore_WritesStructuredJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	store := NewFileStore(path)

	if err := store.Save(sampleReport()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	for _, field := range []string{"runId", "generatedAt", "totalDevices", "successfulFetches", "failedFetches", "records", "errors"} {
		if _, ok := doc[field]; !ok {
			t.Errorf("report document missing field %q", field)
		}
	}
}

func TestFileStore_SaveNil(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "report.json"))
	if err := store.Save(nil); err == nil {
		t.Error("expected error for nil report")
	}
}
