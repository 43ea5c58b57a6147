package config

import (
	"archive/zip"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
)

func newTestReport(t *testing.T) *Report {
	t.Helper()
	r, err := (&ReporterConfig{Destination: filepath.Join(t.TempDir(), "report.zip")}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	return r
}

func archiveNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestReportClose_RemovesStoredDirs(t *testing.T) {
	r := newTestReport(t)

	dir, err := os.MkdirTemp("", "test-workdir-")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "debug.txt"), []byte("test"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	file := filepath.Join(t.TempDir(), "stored.css")
	if err := os.WriteFile(file, []byte("a{}"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	r.Store("workdir", dir)
	r.Store("source", file)

	if err := r.Close(); err != nil {
		t.Fatalf("Report.Close() error: %v", err)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		os.RemoveAll(dir)
		t.Errorf("expected stored directory to be removed")
	}
	if _, err := os.Stat(file); err != nil {
		t.Errorf("stored file should not be removed, but got error: %v", err)
	}

	names := archiveNames(t, r.Name())
	for _, want := range []string{"MANIFEST", "workdir/debug.txt", "source"} {
		if !slices.Contains(names, want) {
			t.Errorf("archive %v does not contain %q", names, want)
		}
	}
}

func TestReport_StoreDataConcurrently(t *testing.T) {
	r := newTestReport(t)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.StoreData("out.css", []byte("a{}"))
		}()
	}
	wg.Wait()

	if err := r.Close(); err != nil {
		t.Fatalf("Report.Close() error: %v", err)
	}
	// MANIFEST plus every versioned entry
	if names := archiveNames(t, r.Name()); len(names) != 11 {
		t.Errorf("expected 11 archive entries, got %d: %v", len(names), names)
	}
}

func TestReportClose_NilReport(t *testing.T) {
	var r *Report
	r.Store("x", "y")
	r.StoreData("x", nil)
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
	if r.Name() != "" {
		t.Errorf("Name on nil report should be empty")
	}
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
