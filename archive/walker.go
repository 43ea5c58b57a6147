// Package archive reads style sources packed into zip archives.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Entry is a single regular file of the archive.
type Entry struct {
	Name string
	Size uint64
	file *zip.File
}

// Open returns reader for uncompressed entry content.
func (e Entry) Open() (io.ReadCloser, error) {
	return e.file.Open()
}

// ReadAll returns uncompressed entry content.
func (e Entry) ReadAll() ([]byte, error) {
	rc, err := e.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// WalkFunc is called for every entry accepted by Walk. If an error is
// returned, walking stops and Walk returns it.
type WalkFunc func(e Entry) error

// Reader is an open archive. Entries visited by Walk may be opened until
// Reader is closed, concurrently if necessary.
type Reader struct {
	zr *zip.ReadCloser
}

// Open opens archive and rejects it as a whole when any entry has absolute
// name or name containing "..".
func Open(archive string) (*Reader, error) {
	zr, err := zip.OpenReader(archive)
	if errors.Is(err, zip.ErrInsecurePath) {
		// reader is usable, names are checked below
		err = nil
	}
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if !isSafePath(f.Name) {
			zr.Close()
			return nil, fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}
	}
	return &Reader{zr: zr}, nil
}

// Close releases archive, entries could not be read afterwards.
func (r *Reader) Close() error {
	return r.zr.Close()
}

// Walk visits regular files of archive in stored order, match selects entries
// by name, nil match accepts everything.
func (r *Reader) Walk(match func(name string) bool, walkFn WalkFunc) error {
	for _, f := range r.zr.File {
		if f.FileInfo().IsDir() || (match != nil && !match(f.Name)) {
			continue
		}
		if err := walkFn(Entry{Name: f.Name, Size: f.UncompressedSize64, file: f}); err != nil {
			return err
		}
	}
	return nil
}

// Walk opens archive and walks it, entries must be consumed by walkFn as
// archive is closed when Walk returns.
func Walk(archive string, match func(name string) bool, walkFn WalkFunc) error {
	r, err := Open(archive)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Walk(match, walkFn)
}

// IsArchive reports if path looks like a zip archive by its extension.
func IsArchive(name string) bool {
	return strings.EqualFold(path.Ext(strings.ReplaceAll(name, `\`, "/")), ".zip")
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(strings.ReplaceAll(name, `\`, "/"), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
