package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// fileRef is a resolved conventional file: the absolute path of whichever
// layer won, plus which layer that was.
type fileRef struct {
	Abs     string
	FromApp bool
}

// resolveFile probes the app root, then the package root, for a single
// conventional relative path.
func (s *Scanner) resolveFile(m *Module, rel string) (fileRef, bool) {
	if m.Paths.AppBase != "" {
		abs := filepath.Join(m.Paths.AppBase, filepath.FromSlash(rel))
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			return fileRef{Abs: abs, FromApp: true}, true
		}
	}
	if m.Paths.PkgBase != "" {
		abs := filepath.Join(m.Paths.PkgBase, filepath.FromSlash(rel))
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			return fileRef{Abs: abs, FromApp: false}, true
		}
	}
	return fileRef{}, false
}

// layeredFiles walks subdir under both roots and returns the union of
// relative paths, app layer shadowing the package layer per path. Keys use
// forward slashes and are relative to subdir. Walk failures are recorded on
// the module and the affected layer contributes nothing.
func (s *Scanner) layeredFiles(m *Module, subdir string) map[string]fileRef {
	files := make(map[string]fileRef)
	// Package layer first so app entries overwrite.
	if m.Paths.PkgBase != "" {
		s.collectLayer(m, filepath.Join(m.Paths.PkgBase, subdir), false, files)
	}
	if m.Paths.AppBase != "" {
		s.collectLayer(m, filepath.Join(m.Paths.AppBase, subdir), true, files)
	}
	return files
}

func (s *Scanner) collectLayer(m *Module, root string, fromApp bool, out map[string]fileRef) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = fileRef{Abs: path, FromApp: fromApp}
		return nil
	})
	if err != nil {
		m.addError(root, err)
	}
}

// sortedKeys returns the map keys sorted for deterministic iteration.
func sortedKeys(files map[string]fileRef) []string {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// importPath computes the import specifier generated code uses for a
// conventional file. Source extensions are dropped the way bundler-resolved
// specifiers expect.
func (s *Scanner) importPath(m *Module, ref fileRef, rel string) string {
	base := s.res.ModuleImportBase(m.Entry, ref.FromApp)
	return base + "/" + trimSourceExt(rel)
}

func trimSourceExt(rel string) string {
	for _, ext := range []string{".tsx", ".ts"} {
		if strings.HasSuffix(rel, ext) {
			return strings.TrimSuffix(rel, ext)
		}
	}
	return rel
}

// readFile reads a conventional file, recording failures as scan errors.
func (s *Scanner) readFile(m *Module, abs string) ([]byte, bool) {
	data, err := os.ReadFile(abs)
	if err != nil {
		m.addError(abs, err)
		return nil, false
	}
	return data, true
}
