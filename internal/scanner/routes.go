package scanner

import (
	"path"
	"sort"
	"strings"
)

// scanRoutes collects frontend (end-user) and backend (admin console) routes.
// Directory-based page files are the convention; flat files directly under
// the route root are the legacy form.
func (s *Scanner) scanRoutes(m *Module) {
	m.FrontendRoutes = s.collectRoutes(m, "frontend")
	m.BackendRoutes = s.collectRoutes(m, "backend")
}

func (s *Scanner) collectRoutes(m *Module, subdir string) []Route {
	files := s.layeredFiles(m, subdir)
	var routes []Route
	for _, rel := range sortedKeys(files) {
		ref := files[rel]
		dir, file := path.Split(rel)
		dir = strings.TrimSuffix(dir, "/")

		var routePath string
		switch {
		case file == "page.tsx" || file == "page.ts":
			routePath = joinRoute(m.ID, dir)
		case dir == "" && (strings.HasSuffix(file, ".tsx") || strings.HasSuffix(file, ".ts")):
			// Legacy flat file: frontend/<name>.tsx maps to /<module>/<name>.
			routePath = joinRoute(m.ID, trimSourceExt(file))
		default:
			continue
		}
		routes = append(routes, Route{
			Path:   routePath,
			Import: s.importPath(m, ref, subdir+"/"+rel),
		})
	}
	sortRoutes(routes)
	return routes
}

func joinRoute(moduleID, sub string) string {
	if sub == "" {
		return "/" + moduleID
	}
	return "/" + moduleID + "/" + sub
}

// sortRoutes orders routes so that at every depth dynamic (bracketed)
// segments come after their static siblings. Static routes can therefore
// never be shadowed by a dynamic match, and the order is stable across runs.
func sortRoutes(routes []Route) {
	sort.Slice(routes, func(i, j int) bool {
		return routeLess(routes[i].Path, routes[j].Path)
	})
}

func routeLess(a, b string) bool {
	as := strings.Split(strings.Trim(a, "/"), "/")
	bs := strings.Split(strings.Trim(b, "/"), "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		ad, bd := isDynamicSegment(as[i]), isDynamicSegment(bs[i])
		if ad != bd {
			return !ad
		}
		return as[i] < bs[i]
	}
	return len(as) < len(bs)
}

func isDynamicSegment(seg string) bool {
	return strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]")
}
