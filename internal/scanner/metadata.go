package scanner

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// manifest is the primary per-module metadata file (module.yaml).
type manifest struct {
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	Requires     []string `yaml:"requires"`
	Ejectable    bool     `yaml:"ejectable"`
	Capabilities []string `yaml:"capabilities"`
}

// Legacy index.ts metadata literal patterns. Pattern-matched, never executed.
var (
	legacyTitleRe     = regexp.MustCompile(`\btitle\s*:\s*['"]([^'"]+)['"]`)
	legacyDescRe      = regexp.MustCompile(`\bdescription\s*:\s*['"]([^'"]+)['"]`)
	legacyRequiresRe  = regexp.MustCompile(`\brequires\s*:\s*\[([^\]]*)\]`)
	legacyEjectableRe = regexp.MustCompile(`\bejectable\s*:\s*(true|false)`)
	legacyStringRe    = regexp.MustCompile(`['"]([^'"]+)['"]`)
)

// scanMetadata reads module metadata: module.yaml when present, the legacy
// index.ts literal otherwise, with README.md supplying missing title and
// description.
func (s *Scanner) scanMetadata(m *Module) {
	if ref, ok := s.resolveFile(m, "module.yaml"); ok {
		if data, ok := s.readFile(m, ref.Abs); ok {
			var mf manifest
			if err := yaml.Unmarshal(data, &mf); err != nil {
				m.addError(ref.Abs, err)
			} else {
				m.Title = mf.Title
				m.Description = mf.Description
				m.Requires = mf.Requires
				m.Ejectable = mf.Ejectable
				m.Capabilities = mf.Capabilities
			}
		}
	} else if ref, ok := s.resolveFile(m, "index.ts"); ok {
		if data, ok := s.readFile(m, ref.Abs); ok {
			s.parseLegacyMetadata(m, string(data))
		}
	}

	if m.Title == "" || m.Description == "" {
		s.readmeFallback(m)
	}
	if m.Title == "" {
		m.Title = m.ID
	}
}

func (s *Scanner) parseLegacyMetadata(m *Module, text string) {
	if match := legacyTitleRe.FindStringSubmatch(text); match != nil {
		m.Title = match[1]
	}
	if match := legacyDescRe.FindStringSubmatch(text); match != nil {
		m.Description = match[1]
	}
	if match := legacyRequiresRe.FindStringSubmatch(text); match != nil {
		for _, sm := range legacyStringRe.FindAllStringSubmatch(match[1], -1) {
			m.Requires = append(m.Requires, sm[1])
		}
	}
	if match := legacyEjectableRe.FindStringSubmatch(text); match != nil {
		m.Ejectable = match[1] == "true"
	}
}

// readmeFallback fills title from the first heading and description from the
// first paragraph of README.md.
func (s *Scanner) readmeFallback(m *Module) {
	ref, ok := s.resolveFile(m, "README.md")
	if !ok {
		return
	}
	source, ok := s.readFile(m, ref.Abs)
	if !ok {
		return
	}

	md := goldmark.New()
	root := md.Parser().Parse(gmtext.NewReader(source))

	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch n.(type) {
		case *gmast.Heading:
			if m.Title == "" {
				m.Title = nodeText(n, source)
			}
		case *gmast.Paragraph:
			if m.Description == "" {
				m.Description = nodeText(n, source)
			}
		}
		if m.Title != "" && m.Description != "" {
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
}

// nodeText concatenates the text segments directly under a block node.
func nodeText(n gmast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*gmast.Text); ok {
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		}
	}
	return strings.TrimSpace(b.String())
}
