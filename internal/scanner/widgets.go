package scanner

import "strings"

// scanWidgets collects lazily-loaded widget entries from widgets/dashboard
// and widgets/injection. Keys are <module>/<path slug>; within a module the
// app layer already shadows the package layer per path, and the emitter
// prefers app-sourced entries when assembling the cross-module aggregate.
func (s *Scanner) scanWidgets(m *Module) {
	m.DashboardWidgets = s.collectWidgets(m, "widgets/dashboard")
	m.InjectionWidgets = s.collectWidgets(m, "widgets/injection")
}

func (s *Scanner) collectWidgets(m *Module, subdir string) []Widget {
	files := s.layeredFiles(m, subdir)
	var widgets []Widget
	for _, rel := range sortedKeys(files) {
		if !strings.HasSuffix(rel, ".tsx") {
			continue
		}
		ref := files[rel]
		widgets = append(widgets, Widget{
			Key:     m.ID + "/" + trimSourceExt(rel),
			Import:  s.importPath(m, ref, subdir+"/"+rel),
			FromApp: ref.FromApp,
		})
	}
	return widgets
}
