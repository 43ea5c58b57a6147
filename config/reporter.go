package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"vstyle/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates initialized empty report.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	r := &Report{entries: make(map[string]entry)}

	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	r.file = f
	return r, nil
}

type entry struct {
	original string
	actual   string
	stamp    time.Time
	data     []byte
}

// Report accumulates everything needed for a debug archive: log files,
// configuration, sources and results of transforms. Methods are safe for
// concurrent use and do nothing on nil Report, so callers do not have to
// check whether report was requested.
type Report struct {
	mu      sync.Mutex
	entries map[string]entry
	file    *os.File
}

// Close writes the archive. Directories stored in the report are
// considered temporary and removed afterwards.
func (r *Report) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	defer r.file.Close()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.finalize(); err != nil {
		return err
	}
	for _, e := range r.entries {
		if e.data != nil {
			continue
		}
		if info, err := os.Stat(e.actual); err == nil && info.IsDir() {
			os.RemoveAll(e.actual)
		}
	}
	return nil
}

// Name returns name of the archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store remembers file or directory to be put in the archive under name.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}
	e := entry{original: path, actual: path}
	if p, err := filepath.Abs(path); err == nil {
		e.actual = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.unique(name)] = e
}

// StoreData keeps copy of data to be put in the archive under name.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	e := entry{data: bytes.Clone(data), stamp: time.Now()}
	if e.data == nil {
		e.data = []byte{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.unique(name)] = e
}

// unique versions name if it is already taken, must be called under lock.
func (r *Report) unique(name string) string {
	if _, exists := r.entries[name]; !exists {
		return name
	}
	for i := 1; ; i++ {
		if n := fmt.Sprintf("%s-%d", name, i); !exists(r.entries, n) {
			return n
		}
	}
}

func exists(entries map[string]entry, name string) bool {
	_, ok := entries[name]
	return ok
}

// finalize creates the archive with all stored entries, manifest first.
func (r *Report) finalize() error {
	arc := zip.NewWriter(r.file)

	names := slices.Sorted(maps.Keys(r.entries))
	if err := saveFile(arc, "MANIFEST", time.Now(), manifest(names, r.entries)); err != nil {
		return err
	}

	for _, name := range names {
		e := r.entries[name]
		if e.data != nil {
			if err := saveFile(arc, name, e.stamp, bytes.NewReader(e.data)); err != nil {
				return err
			}
			continue
		}
		// absent files are ignored
		info, err := os.Stat(e.actual)
		if err != nil {
			continue
		}
		switch {
		case info.Mode().IsRegular():
			if err := savePath(arc, name, e.actual, info.ModTime()); err != nil {
				return err
			}
		case info.IsDir():
			if err := saveDir(arc, name, e.actual); err != nil {
				return err
			}
		}
	}
	return arc.Close()
}

func manifest(names []string, entries map[string]entry) io.Reader {
	now := time.Now()
	buf := new(bytes.Buffer)
	for _, name := range names {
		e := entries[name]
		if e.stamp.IsZero() {
			e.stamp = now
		}
		source := "<data>"
		if e.data == nil {
			source = e.original + " : " + e.actual
		}
		fmt.Fprintf(buf, "%s\t%s\t%s\n", e.stamp.UTC().Format(time.UnixDate), name, source)
	}
	return buf
}

func saveFile(dst *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := dst.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func savePath(dst *zip.Writer, name, path string, t time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return saveFile(dst, name, t, f)
}

func saveDir(dst *zip.Writer, name, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// links, sockets and such are ignored
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return savePath(dst, filepath.ToSlash(filepath.Join(name, rel)), path, info.ModTime())
	})
}
