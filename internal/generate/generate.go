// Package generate runs one full generation pass: resolve the layout, load
// the module configuration, scan every enabled module, validate declared
// dependencies, emit the aggregate artifacts, and gate each write through
// the checksum sidecars. All state lives in the Runner built for the run;
// nothing is cached process-wide.
package generate

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/modkit/internal/checksum"
	"git.home.luguber.info/inful/modkit/internal/emitter"
	merrors "git.home.luguber.info/inful/modkit/internal/errors"
	"git.home.luguber.info/inful/modkit/internal/history"
	"git.home.luguber.info/inful/modkit/internal/logfields"
	"git.home.luguber.info/inful/modkit/internal/modconfig"
	"git.home.luguber.info/inful/modkit/internal/resolver"
	"git.home.luguber.info/inful/modkit/internal/scanner"
	"git.home.luguber.info/inful/modkit/internal/validate"
)

// ArtifactResult is the per-artifact outcome of one pass.
type ArtifactResult struct {
	Name    string
	Changed bool
}

// Result summarizes one generation pass.
type Result struct {
	RunID     string
	Modules   int
	Artifacts []ArtifactResult
	Duration  time.Duration
}

// Changed counts artifacts that were rewritten.
func (r *Result) Changed() int {
	n := 0
	for _, a := range r.Artifacts {
		if a.Changed {
			n++
		}
	}
	return n
}

// Runner executes generation passes for one working directory.
type Runner struct {
	workDir string
	hist    *history.Store
}

// NewRunner creates a Runner. hist may be nil to skip run history.
func NewRunner(workDir string, hist *history.Store) *Runner {
	return &Runner{workDir: workDir, hist: hist}
}

// Run executes one generation pass. The module list is read fresh from the
// configuration at the start of every run; contributions never outlive it.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()

	res, err := resolver.New(r.workDir)
	if err != nil {
		return nil, merrors.Wrap(err, merrors.CategoryConfig, merrors.SeverityFatal, "resolve project layout")
	}
	cfg, err := modconfig.Load(res.AppDir())
	if err != nil {
		return nil, merrors.Wrap(err, merrors.CategoryConfig, merrors.SeverityFatal, "load module configuration")
	}

	sc := scanner.New(res)
	entries := cfg.SortedEntries()

	var (
		modules []*scanner.Module
		roots   []string
		markers []string
	)
	for _, entry := range entries {
		m := sc.ScanModule(entry)
		modules = append(modules, m)
		roots = append(roots, m.Paths.AppBase)
		if m.Paths.PkgBase != "" {
			roots = append(roots, m.Paths.PkgBase)
		}
		for _, se := range m.Errors {
			markers = append(markers, checksum.ErrorMarker(se.Path, se.Message))
		}
	}

	if err := validate.Dependencies(modules); err != nil {
		return nil, merrors.Wrap(err, merrors.CategoryValidation, merrors.SeverityFatal, "validate module dependencies")
	}

	structure := checksum.StructureHash(roots, markers)

	outDir := res.OutputDir()
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, merrors.Wrap(err, merrors.CategoryFileSystem, merrors.SeverityFatal, "create output directory")
	}

	result := &Result{RunID: runID, Modules: len(modules)}
	for _, artifact := range emitter.Emit(modules) {
		changed, err := checksum.WriteIfChanged(filepath.Join(outDir, artifact.Name), artifact.Content, structure)
		if err != nil {
			return nil, merrors.Wrap(err, merrors.CategoryEmit, merrors.SeverityFatal, "write artifact "+artifact.Name)
		}
		result.Artifacts = append(result.Artifacts, ArtifactResult{Name: artifact.Name, Changed: changed})
	}
	result.Duration = time.Since(started)

	slog.Info("Generation pass complete",
		logfields.RunID(runID),
		slog.Int("modules", result.Modules),
		slog.Int("changed", result.Changed()),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))

	r.recordHistory(ctx, res, result, started)
	return result, nil
}

// recordHistory stores the run row. History failures never fail a build.
func (r *Runner) recordHistory(ctx context.Context, res *resolver.Resolver, result *Result, started time.Time) {
	if r.hist == nil {
		return
	}
	run := history.Run{
		ID:        result.RunID,
		StartedAt: started,
		Duration:  result.Duration,
		Commit:    history.HeadCommit(res.RootDir()),
		Modules:   result.Modules,
		Changed:   result.Changed(),
		Unchanged: len(result.Artifacts) - result.Changed(),
	}
	if err := r.hist.Record(ctx, run); err != nil {
		slog.Warn("Failed to record run history", logfields.RunID(result.RunID), logfields.Error(err))
	}
}

// TrackedRoots resolves the directories a watch-mode daemon should monitor:
// the app modules root, every discovered package's modules root, and the
// directory holding the modules configuration.
func TrackedRoots(workDir string) ([]string, error) {
	res, err := resolver.New(workDir)
	if err != nil {
		return nil, err
	}
	roots := []string{
		res.AppModulesDir(),
		filepath.Dir(res.ModulesConfigPath()),
	}
	for _, pkg := range res.Packages() {
		roots = append(roots, pkg.ModulesRoot)
	}
	return roots, nil
}
