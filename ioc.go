package sitegen

import (
	"io/fs"
	"path/filepath"
	"time"

	"github.com/quintans/faults"
	"github.com/spf13/afero"
)

// IO is the capability object threaded through the evaluator, pipe engine
// and build-action expander (component H). It owns every cache; no other
// mutable state is shared between them (§5).
type IO struct {
	fs afero.Fs

	texts     map[string]textCacheEntry
	documents map[string]documentCacheEntry
	templates map[string]templateCacheEntry
}

type textCacheEntry struct {
	contents string
	mtime    int64
}

type documentCacheEntry struct {
	value Value
	mtime int64
}

type templateCacheEntry struct {
	nodes []Node
	mtime int64
}

// NewIO wraps an afero filesystem as the build engine's I/O capability.
// Host embedders pass afero.NewOsFs() in production and afero.NewMemMapFs()
// in tests, mirroring copycat's templateFS/outputFS split.
func NewIO(fsys afero.Fs) *IO {
	return &IO{
		fs:        fsys,
		texts:     make(map[string]textCacheEntry),
		documents: make(map[string]documentCacheEntry),
		templates: make(map[string]templateCacheEntry),
	}
}

// ModTime returns the filesystem modification time of path in milliseconds
// since the epoch, or nil if the file does not exist or has no reported
// mtime (§4.7).
func (io *IO) ModTime(path string) *int64 {
	info, err := io.fs.Stat(path)
	if err != nil {
		return nil
	}
	ms := info.ModTime().UnixMilli()
	return &ms
}

// Read returns path's contents through a cache invalidated on mtime change
// (§4.7).
func (io *IO) Read(path string) (string, error) {
	mtime := io.ModTime(path)
	if entry, ok := io.texts[path]; ok && mtime != nil && *mtime <= entry.mtime {
		return entry.contents, nil
	}
	data, err := afero.ReadFile(io.fs, path)
	if err != nil {
		if fserr, ok := err.(*fs.PathError); ok {
			return "", faults.Errorf("reading %s: %w", path, fserr)
		}
		return "", faults.Errorf("reading %s: %w", path, err)
	}
	var stamp int64
	if mtime != nil {
		stamp = *mtime
	}
	io.texts[path] = textCacheEntry{contents: string(data), mtime: stamp}
	return string(data), nil
}

// ReadDocument returns path parsed as a structured document, cached
// separately from the raw-text cache and keyed by the same mtime rule
// (§4.7).
func (io *IO) ReadDocument(path string) (Value, error) {
	mtime := io.ModTime(path)
	if entry, ok := io.documents[path]; ok && mtime != nil && *mtime <= entry.mtime {
		return entry.value, nil
	}
	contents, err := io.Read(path)
	if err != nil {
		return Value{}, err
	}
	doc, err := ParseDocument(contents)
	if err != nil {
		return Value{}, faults.Errorf("parsing document %s: %w", path, err)
	}
	var stamp int64
	if mtime != nil {
		stamp = *mtime
	}
	io.documents[path] = documentCacheEntry{value: doc, mtime: stamp}
	return doc, nil
}

// ReadTemplate returns path parsed as a template AST, cached the same way
// as ReadDocument (§4.7).
func (io *IO) ReadTemplate(path string) ([]Node, error) {
	mtime := io.ModTime(path)
	if entry, ok := io.templates[path]; ok && mtime != nil && *mtime <= entry.mtime {
		return entry.nodes, nil
	}
	contents, err := io.Read(path)
	if err != nil {
		return nil, err
	}
	nodes, err := ParseTemplate(contents)
	if err != nil {
		return nil, faults.Errorf("parsing template %s: %w", path, err)
	}
	var stamp int64
	if mtime != nil {
		stamp = *mtime
	}
	io.templates[path] = templateCacheEntry{nodes: nodes, mtime: stamp}
	return nodes, nil
}

// Write writes contents to path, creating parent directories as needed
// (§4.7).
func (io *IO) Write(path string, contents string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := io.fs.MkdirAll(dir, 0o755); err != nil {
			return faults.Errorf("creating directory %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(io.fs, path, []byte(contents), 0o644); err != nil {
		return faults.Errorf("writing %s: %w", path, err)
	}
	delete(io.texts, path)
	delete(io.documents, path)
	delete(io.templates, path)
	return nil
}

// WriteAtomic writes via a temp-file-then-rename so a reader never observes
// a torn write, needed when the on-disk pipe cache is shared across
// concurrently-running build workers (§9 "Parallelism").
func (io *IO) WriteAtomic(path string, contents string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := io.fs.MkdirAll(dir, 0o755); err != nil {
			return faults.Errorf("creating directory %s: %w", dir, err)
		}
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(io.fs, tmp, []byte(contents), 0o644); err != nil {
		return faults.Errorf("writing %s: %w", tmp, err)
	}
	if err := io.fs.Rename(tmp, path); err != nil {
		return faults.Errorf("renaming %s to %s: %w", tmp, path, err)
	}
	delete(io.texts, path)
	return nil
}

// Exists reports whether path is present on the filesystem.
func (io *IO) Exists(path string) bool {
	ok, err := afero.Exists(io.fs, path)
	return err == nil && ok
}

// CopyTree recursively copies a file or directory tree from 'from' to 'to',
// refusing to copy a directory over an existing file (§4.7).
func (io *IO) CopyTree(from, to string) error {
	info, err := io.fs.Stat(from)
	if err != nil {
		return faults.Errorf("stat %s: %w", from, err)
	}
	if !info.IsDir() {
		return io.copyFile(from, to)
	}
	destInfo, err := io.fs.Stat(to)
	if err == nil && !destInfo.IsDir() {
		return faults.Errorf("cannot copy directory %s over file %s", from, to)
	}
	if err := io.fs.MkdirAll(to, 0o755); err != nil {
		return faults.Errorf("creating directory %s: %w", to, err)
	}
	entries, err := afero.ReadDir(io.fs, from)
	if err != nil {
		return faults.Errorf("reading directory %s: %w", from, err)
	}
	for _, entry := range entries {
		if err := io.CopyTree(filepath.Join(from, entry.Name()), filepath.Join(to, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (io *IO) copyFile(from, to string) error {
	data, err := afero.ReadFile(io.fs, from)
	if err != nil {
		return faults.Errorf("reading %s: %w", from, err)
	}
	dir := filepath.Dir(to)
	if dir != "." {
		if err := io.fs.MkdirAll(dir, 0o755); err != nil {
			return faults.Errorf("creating directory %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(io.fs, to, data, 0o644); err != nil {
		return faults.Errorf("writing %s: %w", to, err)
	}
	return nil
}

// nowMillis returns the current wall-clock time in milliseconds since the
// epoch, the unit ModTime reports.
func nowMillis() int64 { return time.Now().UnixMilli() }
