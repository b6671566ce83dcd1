// Package resolver locates the application, workspace, and shared-package
// directories a generation run operates on. It supports two topologies
// transparently: a developer workspace, where the default shared package is
// symlinked into the dependency namespace, and an installed deployment,
// where packages are real directories under that namespace.
package resolver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/modkit/internal/logfields"
	"git.home.luguber.info/inful/modkit/internal/modconfig"
)

const (
	// Scope is the npm scope shared packages are published under.
	Scope = "@fieldway"
	// DefaultPackage is the shared package module entries default to.
	DefaultPackage = "core"
	// OutputDirName is the hidden generated-output directory under the app root.
	OutputDirName = ".modkit"

	dependencyNamespace = "node_modules"
)

// Topology is the deployment topology the resolver detected.
type Topology string

const (
	TopologyWorkspace Topology = "workspace"
	TopologyInstalled Topology = "installed"
)

// appDirCandidates are the conventional app folder names checked, in order,
// under the workspace root.
var appDirCandidates = []string{
	filepath.Join("apps", "app"),
	filepath.Join("apps", "web"),
	"app",
}

// Resolver computes every path the generator touches. It is constructed once
// per run; there is no process-wide cached instance.
type Resolver struct {
	workDir  string
	topology Topology
	rootDir  string
	appDir   string

	// namespaceDir is the node_modules directory containing the scope, when
	// one was found walking up from workDir. Empty when the marker is absent.
	namespaceDir string

	packages map[string]PackageInfo
}

// PackageInfo is a discovered shared package exposing a module source root.
type PackageInfo struct {
	Name        string
	Path        string
	ModulesRoot string
}

// ResolvedModulePaths are the filesystem roots for a module's app-override
// and package copies.
type ResolvedModulePaths struct {
	AppBase string
	PkgBase string
}

// New detects the topology for workDir and resolves the root and app
// directories. workDir defaults to the current working directory.
func New(workDir string) (*Resolver, error) {
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	r := &Resolver{workDir: workDir}
	if err := r.detect(); err != nil {
		return nil, err
	}
	if err := r.discoverPackages(); err != nil {
		return nil, err
	}
	slog.Debug("Resolved project layout",
		logfields.Topology(string(r.topology)),
		slog.String("root", r.rootDir),
		slog.String("app", r.appDir),
		slog.Int("packages", len(r.packages)))
	return r, nil
}

// detect walks up from the working directory looking for the default-package
// marker inside a dependency namespace. A symlinked marker means workspace
// mode; a real directory means installed mode; no marker defaults to
// installed mode rooted at the working directory.
func (r *Resolver) detect() error {
	dir := r.workDir
	for {
		marker := filepath.Join(dir, dependencyNamespace, Scope, DefaultPackage)
		info, err := os.Lstat(marker)
		if err == nil {
			r.namespaceDir = filepath.Join(dir, dependencyNamespace)
			if info.Mode()&os.ModeSymlink != 0 {
				return r.resolveWorkspace(marker)
			}
			r.topology = TopologyInstalled
			r.rootDir = r.workDir
			r.appDir = r.workDir
			return nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	r.topology = TopologyInstalled
	r.rootDir = r.workDir
	r.appDir = r.workDir
	return nil
}

// resolveWorkspace derives the workspace root from the symlink target's
// grandparent (packages/<pkg> sits two levels below the root) and picks the
// app directory from the conventional candidates.
func (r *Resolver) resolveWorkspace(marker string) error {
	target, err := os.Readlink(marker)
	if err != nil {
		return fmt.Errorf("read workspace marker symlink %s: %w", marker, err)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(marker), target)
	}
	target = filepath.Clean(target)

	r.topology = TopologyWorkspace
	r.rootDir = filepath.Dir(filepath.Dir(target))
	r.appDir = r.rootDir
	for _, candidate := range appDirCandidates {
		dir := filepath.Join(r.rootDir, candidate)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			r.appDir = dir
			break
		}
	}
	return nil
}

// Topology returns the detected deployment topology.
func (r *Resolver) Topology() Topology { return r.topology }

// IsWorkspace reports whether the resolver is in workspace (dev) mode.
func (r *Resolver) IsWorkspace() bool { return r.topology == TopologyWorkspace }

// RootDir is the workspace root in workspace mode and the working directory
// in installed mode.
func (r *Resolver) RootDir() string { return r.rootDir }

// AppDir is the application directory; paths like src/modules hang off it.
func (r *Resolver) AppDir() string { return r.appDir }

// OutputDir is the generated-output directory under the app root. It is the
// same in both topologies.
func (r *Resolver) OutputDir() string { return filepath.Join(r.appDir, OutputDirName) }

// ModulesConfigPath is the single source of truth for enabled modules.
func (r *Resolver) ModulesConfigPath() string {
	return filepath.Join(r.appDir, "src", "modules.yaml")
}

// AppModulesDir is the root of app-owned module sources.
func (r *Resolver) AppModulesDir() string {
	return filepath.Join(r.appDir, "src", "modules")
}

// ModulePaths computes the app-override and package roots for an entry.
// App-owned entries have no package root.
func (r *Resolver) ModulePaths(entry modconfig.Entry) ResolvedModulePaths {
	paths := ResolvedModulePaths{
		AppBase: filepath.Join(r.AppModulesDir(), entry.ID),
	}
	if entry.Source.Kind != modconfig.KindApp {
		paths.PkgBase = filepath.Join(r.PackageRoot(r.PackageName(entry)), "modules", entry.ID)
	}
	return paths
}

// ModuleImportBase is the import-path prefix generated code uses for a
// module, assuming the module's files are sourced from the given layer.
func (r *Resolver) ModuleImportBase(entry modconfig.Entry, appLayer bool) string {
	if appLayer || entry.Source.Kind == modconfig.KindApp {
		// Relative to the generated-output directory.
		return "../src/modules/" + entry.ID
	}
	return Scope + "/" + r.PackageName(entry) + "/modules/" + entry.ID
}

// PackageImportBase is the import-path prefix for a module of a named
// package, independent of any app override.
func PackageImportBase(pkg, moduleID string) string {
	return Scope + "/" + pkg + "/modules/" + moduleID
}

// PackageName maps an entry's source to the package it resolves to.
// Unrecognized package names fall back to the default package so a typo does
// not break the build; the warning makes the fallback visible.
func (r *Resolver) PackageName(entry modconfig.Entry) string {
	switch entry.Source.Kind {
	case modconfig.KindPackage:
		if _, ok := r.packages[entry.Source.Package]; !ok {
			slog.Warn("Unknown package in module entry, falling back to default package",
				logfields.Module(entry.ID),
				logfields.Package(entry.Source.Package))
			return DefaultPackage
		}
		return entry.Source.Package
	default:
		return DefaultPackage
	}
}
