package eject

import (
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/modkit/internal/logfields"
	"git.home.luguber.info/inful/modkit/internal/resolver"
)

// Relative specifiers that cross into a sibling module break once the files
// move into the app tree, so they are rewritten to package-qualified
// absolute imports. Exactly two specifier forms are recognized: static
// import/export-from and dynamic import(). Anything else relative gets a
// warning rather than a silent pass.
var (
	staticImportRe  = regexp.MustCompile(`((?:import|export)\s[^;'"]*?from\s*)(['"])([^'"]+)(['"])`)
	dynamicImportRe = regexp.MustCompile(`(import\s*\(\s*)(['"])([^'"]+)(['"])`)
	requireRe       = regexp.MustCompile(`require\s*\(\s*['"](\.[^'"]*)['"]`)
	bareImportRe    = regexp.MustCompile(`\bimport\s+['"](\.[^'"]*)['"]`)
)

type rewriter struct {
	moduleID    string
	pkg         string
	modulesRoot string // package modules dir, for sibling existence checks
}

// rewriteTree rewrites every source file in the staged copy.
func (rw *rewriter) rewriteTree(stage string) error {
	return filepath.WalkDir(stage, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || (!strings.HasSuffix(p, ".ts") && !strings.HasSuffix(p, ".tsx")) {
			return nil
		}
		rel, err := filepath.Rel(stage, p)
		if err != nil {
			return err
		}
		return rw.rewriteFile(p, path.Dir(filepath.ToSlash(rel)))
	})
}

func (rw *rewriter) rewriteFile(abs, relDir string) error {
	data, err := os.ReadFile(abs)
	if err != nil {
		return err
	}
	text := string(data)

	rewritten := replaceSpecifiers(text, staticImportRe, func(spec string) string {
		return rw.rewriteSpecifier(abs, relDir, spec)
	})
	rewritten = replaceSpecifiers(rewritten, dynamicImportRe, func(spec string) string {
		return rw.rewriteSpecifier(abs, relDir, spec)
	})

	for _, match := range requireRe.FindAllStringSubmatch(rewritten, -1) {
		slog.Warn("Unsupported dynamic-loading idiom left unrewritten",
			logfields.Module(rw.moduleID),
			logfields.Path(abs),
			slog.String("specifier", match[1]))
	}
	for _, match := range bareImportRe.FindAllStringSubmatch(rewritten, -1) {
		slog.Warn("Relative side-effect import left unrewritten",
			logfields.Module(rw.moduleID),
			logfields.Path(abs),
			slog.String("specifier", match[1]))
	}

	if rewritten == text {
		return nil
	}
	return os.WriteFile(abs, []byte(rewritten), 0o644)
}

// replaceSpecifiers applies fn to the quoted specifier of every match,
// keeping the surrounding syntax and quote style intact.
func replaceSpecifiers(text string, re *regexp.Regexp, fn func(string) string) string {
	return re.ReplaceAllStringFunc(text, func(match string) string {
		sub := re.FindStringSubmatch(match)
		replaced := fn(sub[3])
		if replaced == sub[3] {
			return match
		}
		return sub[1] + sub[2] + replaced + sub[4]
	})
}

// rewriteSpecifier maps a relative specifier that resolves into a different
// module under the same modules root to a package-qualified import. Imports
// staying within the ejected module, and relative paths that leave the
// modules root entirely, are left untouched.
func (rw *rewriter) rewriteSpecifier(abs, relDir, spec string) string {
	if !strings.HasPrefix(spec, ".") {
		return spec
	}
	resolved := path.Clean(path.Join(rw.moduleID, relDir, spec))
	if resolved == rw.moduleID || strings.HasPrefix(resolved, rw.moduleID+"/") {
		return spec
	}
	if strings.HasPrefix(resolved, "..") {
		return spec
	}

	target, rest, _ := strings.Cut(resolved, "/")
	if info, err := os.Stat(filepath.Join(rw.modulesRoot, target)); err != nil || !info.IsDir() {
		slog.Warn("Relative import escapes the module but matches no sibling module",
			logfields.Module(rw.moduleID),
			logfields.Path(abs),
			slog.String("specifier", spec))
		return spec
	}

	rewritten := resolver.PackageImportBase(rw.pkg, target)
	if rest != "" {
		rewritten += "/" + rest
	}
	return rewritten
}
