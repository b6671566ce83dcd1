// Package modconfig models the enabled-module list and loads it from the
// app tree. The yaml form is the source of truth; a regex-based parser for
// the legacy modules.ts literal survives only as a compatibility shim, and a
// directory listing of src/modules is the final fallback.
package modconfig

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigVersion is the current modules.yaml schema version.
const ConfigVersion = 1

// AppMarker is the `from` value that marks a module as app-owned.
const AppMarker = "local"

// SourceKind distinguishes the three origins a module entry can declare.
type SourceKind int

const (
	// KindDefault means the module comes from the default shared package.
	KindDefault SourceKind = iota
	// KindApp means the module source lives in the application tree.
	KindApp
	// KindPackage means the module comes from a named shared package.
	KindPackage
)

// Source is the tagged-variant origin of a module entry.
type Source struct {
	Kind    SourceKind
	Package string // set only for KindPackage
}

// String renders the source as it appears in configuration.
func (s Source) String() string {
	switch s.Kind {
	case KindApp:
		return AppMarker
	case KindPackage:
		return s.Package
	default:
		return ""
	}
}

// ParseSource maps a raw `from` string to a Source.
func ParseSource(from string) Source {
	switch from {
	case "":
		return Source{Kind: KindDefault}
	case AppMarker:
		return Source{Kind: KindApp}
	default:
		return Source{Kind: KindPackage, Package: from}
	}
}

// Entry is one enabled module.
type Entry struct {
	ID     string
	Source Source
}

// Format records which configuration surface an Entry list was loaded from.
type Format int

const (
	// FormatNone means no configuration file existed; entries came from the
	// src/modules directory listing (or are empty).
	FormatNone Format = iota
	// FormatYAML is the primary modules.yaml file.
	FormatYAML
	// FormatLegacy is the legacy modules.ts list literal.
	FormatLegacy
)

// Config is the loaded module configuration.
type Config struct {
	Version int
	Entries []Entry
	Format  Format
	Path    string // file the entries were loaded from; empty for FormatNone
}

// Entry returns the entry for id, or nil.
func (c *Config) Entry(id string) *Entry {
	for i := range c.Entries {
		if c.Entries[i].ID == id {
			return &c.Entries[i]
		}
	}
	return nil
}

// SortedEntries returns the entries id-sorted. Generation order is id-sorted
// rather than declaration order so repeated runs are reproducible.
func (c *Config) SortedEntries() []Entry {
	out := make([]Entry, len(c.Entries))
	copy(out, c.Entries)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetAppOwned rewrites the entry for id to the app-owned origin, preserving
// every other entry untouched.
func (c *Config) SetAppOwned(id string) error {
	e := c.Entry(id)
	if e == nil {
		return fmt.Errorf("no entry for module %q", id)
	}
	e.Source = Source{Kind: KindApp}
	return nil
}

// wire types for yaml (de)serialization

type yamlFile struct {
	Version int         `yaml:"version"`
	Modules []yamlEntry `yaml:"modules"`
}

type yamlEntry struct {
	ID   string `yaml:"id"`
	From string `yaml:"from,omitempty"`
}

// MarshalYAML serializes the config deterministically, preserving entry order.
func (c *Config) MarshalYAML() ([]byte, error) {
	f := yamlFile{Version: ConfigVersion}
	for _, e := range c.Entries {
		f.Modules = append(f.Modules, yamlEntry{ID: e.ID, From: e.Source.String()})
	}
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return nil, fmt.Errorf("encode modules config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode modules config: %w", err)
	}
	return []byte(b.String()), nil
}

// parseYAML parses a modules.yaml document.
func parseYAML(data []byte) (*Config, error) {
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse modules.yaml: %w", err)
	}
	if f.Version != ConfigVersion {
		return nil, fmt.Errorf("unsupported modules.yaml version %d (expected %d)", f.Version, ConfigVersion)
	}
	cfg := &Config{Version: f.Version, Format: FormatYAML}
	for _, m := range f.Modules {
		if m.ID == "" {
			return nil, fmt.Errorf("modules.yaml entry without id")
		}
		cfg.Entries = append(cfg.Entries, Entry{ID: m.ID, Source: ParseSource(m.From)})
	}
	return cfg, nil
}
