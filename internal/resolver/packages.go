package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// discoverPackages lists shared packages: subfolders of packages/ in
// workspace mode, entries under the dependency namespace in installed mode.
// A package must carry a manifest and a modules/ root to count.
func (r *Resolver) discoverPackages() error {
	r.packages = make(map[string]PackageInfo)

	var base string
	if r.topology == TopologyWorkspace {
		base = filepath.Join(r.rootDir, "packages")
	} else if r.namespaceDir != "" {
		base = filepath.Join(r.namespaceDir, Scope)
	} else {
		// No dependency namespace at all; nothing to discover.
		return nil
	}

	dirents, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("list packages under %s: %w", base, err)
	}

	for _, d := range dirents {
		if !d.IsDir() && d.Type()&os.ModeSymlink == 0 {
			continue
		}
		path := filepath.Join(base, d.Name())
		if !isPackageDir(path) {
			continue
		}
		r.packages[d.Name()] = PackageInfo{
			Name:        d.Name(),
			Path:        path,
			ModulesRoot: filepath.Join(path, "modules"),
		}
	}
	return nil
}

// isPackageDir checks the manifest + module-root shape shared packages have.
func isPackageDir(path string) bool {
	if info, err := os.Stat(filepath.Join(path, "package.json")); err != nil || info.IsDir() {
		return false
	}
	if info, err := os.Stat(filepath.Join(path, "modules")); err != nil || !info.IsDir() {
		return false
	}
	return true
}

// Packages returns the discovered shared packages, name-sorted.
func (r *Resolver) Packages() []PackageInfo {
	out := make([]PackageInfo, 0, len(r.packages))
	for _, p := range r.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Package returns a discovered package by name.
func (r *Resolver) Package(name string) (PackageInfo, bool) {
	p, ok := r.packages[name]
	return p, ok
}

// PackageRoot resolves a package name to its filesystem root. Unknown names
// fall back to the default package's conventional location.
func (r *Resolver) PackageRoot(name string) string {
	if p, ok := r.packages[name]; ok {
		return p.Path
	}
	if p, ok := r.packages[DefaultPackage]; ok {
		return p.Path
	}
	// Neither the named nor the default package was discovered; synthesize
	// the conventional location so callers get a deterministic path.
	if r.topology == TopologyWorkspace {
		return filepath.Join(r.rootDir, "packages", DefaultPackage)
	}
	if r.namespaceDir != "" {
		return filepath.Join(r.namespaceDir, Scope, DefaultPackage)
	}
	return filepath.Join(r.workDir, dependencyNamespace, Scope, DefaultPackage)
}

// PackageOutputDir is the per-package generated-output directory, used when a
// package needs isolated generated state such as migration scaffolding.
func (r *Resolver) PackageOutputDir(name string) string {
	return filepath.Join(r.PackageRoot(name), OutputDirName)
}
