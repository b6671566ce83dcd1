package scanner

import (
	"path"
	"regexp"
	"strings"
)

var (
	methodExportRe = regexp.MustCompile(`export\s+(?:async\s+)?(?:function|const)\s+(GET|POST|PUT|PATCH|DELETE|OPTIONS|HEAD)\b`)
	docExportRe    = regexp.MustCompile(`export\s+const\s+doc\b`)
)

// verbFiles are the legacy per-verb handler filenames.
var verbFiles = map[string]string{
	"get.ts":    "GET",
	"post.ts":   "POST",
	"put.ts":    "PUT",
	"patch.ts":  "PATCH",
	"delete.ts": "DELETE",
}

// scanAPI collects API table entries from the three supported layouts:
// directory-based route.ts handlers, flat per-path files, and legacy
// per-verb directories. Handler files are read once; the same content pass
// yields both the exported methods and the doc-export detection, so no
// second probe is needed per candidate.
func (s *Scanner) scanAPI(m *Module) {
	files := s.layeredFiles(m, "api")
	for _, rel := range sortedKeys(files) {
		ref := files[rel]
		dir, file := path.Split(rel)
		dir = strings.TrimSuffix(dir, "/")

		switch {
		case file == "route.ts":
			s.addAPIEntry(m, ref, rel, joinRoute(m.ID, dir), nil)
		case verbFiles[file] != "":
			s.addAPIEntry(m, ref, rel, joinRoute(m.ID, dir), []string{verbFiles[file]})
		case dir == "" && strings.HasSuffix(file, ".ts"):
			// Flat handler: api/<name>.ts serves /<module>/<name>.
			s.addAPIEntry(m, ref, rel, joinRoute(m.ID, trimSourceExt(file)), nil)
		}
	}
}

// addAPIEntry reads the handler and appends one entry. When methods is nil
// they are taken from the file's exports, defaulting to ALL.
func (s *Scanner) addAPIEntry(m *Module, ref fileRef, rel, routePath string, methods []string) {
	content, ok := s.readFile(m, ref.Abs)
	if !ok {
		return
	}
	text := string(content)

	if methods == nil {
		for _, match := range methodExportRe.FindAllStringSubmatch(text, -1) {
			methods = append(methods, match[1])
		}
		if methods == nil {
			methods = []string{"ALL"}
		}
	}

	m.API = append(m.API, APIEntry{
		Path:    routePath,
		Methods: methods,
		Import:  s.importPath(m, ref, "api/"+rel),
		HasDoc:  docExportRe.MatchString(text),
	})
}
