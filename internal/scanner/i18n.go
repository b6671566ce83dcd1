package scanner

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

// scanI18n collects per-locale translation maps. Locale files are flat JSON
// string maps named <locale>.json. When both layers supply a locale, app
// keys shallow-override package keys at generation time, so the merge
// happens here rather than by whole-file shadowing.
func (s *Scanner) scanI18n(m *Module) {
	s.mergeI18nLayer(m, m.Paths.PkgBase, false)
	s.mergeI18nLayer(m, m.Paths.AppBase, true)
}

func (s *Scanner) mergeI18nLayer(m *Module, base string, fromApp bool) {
	if base == "" {
		return
	}
	files := make(map[string]fileRef)
	s.collectLayer(m, filepath.Join(base, "i18n"), fromApp, files)
	for _, rel := range sortedKeys(files) {
		if strings.Contains(rel, "/") || !strings.HasSuffix(rel, ".json") {
			continue
		}
		locale, ok := canonicalLocale(strings.TrimSuffix(rel, ".json"))
		if !ok {
			m.addError(files[rel].Abs, fmt.Errorf("invalid locale tag %q", strings.TrimSuffix(rel, ".json")))
			continue
		}
		data, ok := s.readFile(m, files[rel].Abs)
		if !ok {
			continue
		}
		var entries map[string]string
		if err := json.Unmarshal(data, &entries); err != nil {
			m.addError(files[rel].Abs, err)
			continue
		}
		merged := m.Translations[locale]
		if merged == nil {
			merged = make(map[string]string)
			m.Translations[locale] = merged
		}
		for k, v := range entries {
			merged[k] = v
		}
	}
}

// canonicalLocale validates a locale filename against BCP 47 and returns the
// canonical tag, so en_US.json and en-US.json land in the same map.
func canonicalLocale(name string) (string, bool) {
	tag, err := language.Parse(name)
	if err != nil {
		return "", false
	}
	return tag.String(), true
}
