// Package eject promotes a package-owned module into an app-owned copy. The
// sequence is staged: the module tree is copied and import-rewritten in a
// temporary sibling directory, verified, then published with a single
// rename; only after that is the module configuration edited. A failure
// before the rename leaves no partial app-owned directory behind.
package eject

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	merrors "git.home.luguber.info/inful/modkit/internal/errors"
	"git.home.luguber.info/inful/modkit/internal/logfields"
	"git.home.luguber.info/inful/modkit/internal/modconfig"
	"git.home.luguber.info/inful/modkit/internal/resolver"
	"git.home.luguber.info/inful/modkit/internal/scanner"
)

// Ejector performs eject operations against a resolved project layout.
type Ejector struct {
	res *resolver.Resolver
}

// New creates an Ejector.
func New(res *resolver.Resolver) *Ejector {
	return &Ejector{res: res}
}

// EjectableModule describes one module that may be ejected.
type EjectableModule struct {
	ID          string
	Title       string
	Description string
	From        string
}

// ListEjectable returns, id-sorted, every enabled non-app-owned module whose
// metadata carries the ejectable flag.
func (e *Ejector) ListEjectable() ([]EjectableModule, error) {
	cfg, err := modconfig.Load(e.res.AppDir())
	if err != nil {
		return nil, err
	}
	sc := scanner.New(e.res)

	var out []EjectableModule
	for _, entry := range cfg.SortedEntries() {
		if entry.Source.Kind == modconfig.KindApp {
			continue
		}
		meta := sc.ScanMetadata(entry)
		if !meta.Ejectable {
			continue
		}
		from := entry.Source.String()
		if from == "" {
			from = resolver.DefaultPackage
		}
		out = append(out, EjectableModule{
			ID:          entry.ID,
			Title:       meta.Title,
			Description: meta.Description,
			From:        from,
		})
	}
	return out, nil
}

// Eject copies the package module tree into the app-override location,
// rewrites cross-module imports, and marks the entry app-owned in the module
// configuration. Failures carry the eject category; the precondition
// sentinels stay matchable through the wrap.
func (e *Ejector) Eject(moduleID string) error {
	if err := e.eject(moduleID); err != nil {
		return merrors.Wrap(err, merrors.CategoryEject, merrors.SeverityError, "eject "+moduleID)
	}
	return nil
}

func (e *Ejector) eject(moduleID string) error {
	cfg, err := modconfig.LoadForEdit(e.res.AppDir())
	if err != nil {
		return err
	}

	entry := cfg.Entry(moduleID)
	if entry == nil {
		return fmt.Errorf("%w: %q is not an enabled module", merrors.ErrModuleNotFound, moduleID)
	}
	if entry.Source.Kind == modconfig.KindApp {
		return fmt.Errorf("%w: %q", merrors.ErrAlreadyLocal, moduleID)
	}

	paths := e.res.ModulePaths(*entry)
	if info, err := os.Stat(paths.PkgBase); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", merrors.ErrSourceMissing, paths.PkgBase)
	}

	meta := scanner.New(e.res).ScanMetadata(*entry)
	if !meta.Ejectable {
		return fmt.Errorf("%w: %q does not declare the ejectable flag", merrors.ErrNotEjectable, moduleID)
	}

	dest := paths.AppBase
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("%w: %s", merrors.ErrDestinationExists, dest)
	}

	if err := e.stageAndPublish(*entry, paths, dest); err != nil {
		return err
	}

	if err := cfg.SetAppOwned(moduleID); err != nil {
		return fmt.Errorf("update module configuration: %w", err)
	}
	if err := modconfig.Save(cfg, moduleID); err != nil {
		return fmt.Errorf("update module configuration: %w", err)
	}

	slog.Info("Ejected module", logfields.Module(moduleID), logfields.Path(dest))
	return nil
}

// stageAndPublish copies and rewrites the module into a temp sibling of the
// destination, then publishes it atomically with a rename. The staged tree
// is discarded on any failure.
func (e *Ejector) stageAndPublish(entry modconfig.Entry, paths resolver.ResolvedModulePaths, dest string) (err error) {
	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return fmt.Errorf("create app modules directory: %w", err)
	}

	stage, err := os.MkdirTemp(parent, ".eject-"+entry.ID+"-")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(stage)
		}
	}()

	if err = copyTree(paths.PkgBase, stage); err != nil {
		return fmt.Errorf("copy module tree: %w", err)
	}

	rw := &rewriter{
		moduleID:    entry.ID,
		pkg:         e.res.PackageName(entry),
		modulesRoot: filepath.Dir(paths.PkgBase),
	}
	if err = rw.rewriteTree(stage); err != nil {
		return fmt.Errorf("rewrite imports: %w", err)
	}

	if err = verifyStage(stage); err != nil {
		return err
	}

	if err = os.Rename(stage, dest); err != nil {
		return fmt.Errorf("publish ejected module: %w", err)
	}
	return nil
}

// verifyStage sanity-checks the staged tree before it is published.
func verifyStage(stage string) error {
	dirents, err := os.ReadDir(stage)
	if err != nil {
		return fmt.Errorf("verify staged module: %w", err)
	}
	if len(dirents) == 0 {
		return fmt.Errorf("verify staged module: staging directory is empty")
	}
	return nil
}

// skippedDirs are subtrees never copied into the app tree.
var skippedDirs = map[string]bool{
	"__tests__": true,
	"__mocks__": true,
}

func skippedFile(name string) bool {
	for _, suffix := range []string{".test.ts", ".test.tsx", ".spec.ts", ".spec.tsx"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// copyTree recursively copies src into dst, skipping test and mock subtrees.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return fs.SkipDir
			}
			if rel == "." {
				return nil
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o750)
		}
		if skippedFile(d.Name()) {
			return nil
		}
		return copyFile(path, filepath.Join(dst, rel))
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
