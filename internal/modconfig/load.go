package modconfig

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	merrors "git.home.luguber.info/inful/modkit/internal/errors"
	"git.home.luguber.info/inful/modkit/internal/logfields"
)

// Load reads the module configuration for the given app directory. It tries
// modules.yaml first, falls back to the legacy modules.ts literal, and
// finally to a directory listing of src/modules treated as app-owned entries.
// The text of the legacy file is pattern-matched, never executed.
func Load(appDir string) (*Config, error) {
	yamlPath := filepath.Join(appDir, "src", "modules.yaml")
	if data, err := os.ReadFile(yamlPath); err == nil {
		cfg, perr := parseYAML(data)
		if perr != nil {
			return nil, perr
		}
		cfg.Path = yamlPath
		return cfg, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", yamlPath, err)
	}

	legacyPath := filepath.Join(appDir, "src", "modules.ts")
	if data, err := os.ReadFile(legacyPath); err == nil {
		entries := parseLegacyLiteral(string(data))
		if len(entries) > 0 {
			slog.Debug("Loaded legacy modules literal", logfields.Path(legacyPath))
			return &Config{Version: ConfigVersion, Entries: entries, Format: FormatLegacy, Path: legacyPath}, nil
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", legacyPath, err)
	}

	entries, err := listFallback(appDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		slog.Warn("No modules configuration found, using src/modules directory listing",
			slog.Int("modules", len(entries)))
	}
	return &Config{Version: ConfigVersion, Entries: entries, Format: FormatNone}, nil
}

// LoadForEdit loads the configuration for a structured edit. Unlike Load it
// hard-fails when no configuration file exists, since there is nothing to
// rewrite for the directory-listing fallback.
func LoadForEdit(appDir string) (*Config, error) {
	cfg, err := Load(appDir)
	if err != nil {
		return nil, err
	}
	if cfg.Format == FormatNone {
		return nil, fmt.Errorf("%w under %s", merrors.ErrConfigNotFound, filepath.Join(appDir, "src"))
	}
	return cfg, nil
}

// Save writes an edited configuration back to its origin. Yaml configs are
// serialized from the model; the legacy literal gets a best-effort textual
// rewrite of the single affected entry.
func Save(cfg *Config, editedID string) error {
	switch cfg.Format {
	case FormatYAML:
		data, err := cfg.MarshalYAML()
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.Path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", cfg.Path, err)
		}
		return nil
	case FormatLegacy:
		data, err := os.ReadFile(cfg.Path)
		if err != nil {
			return fmt.Errorf("read %s: %w", cfg.Path, err)
		}
		edited, err := editLegacyLiteral(string(data), editedID)
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.Path, []byte(edited), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", cfg.Path, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: cannot save", merrors.ErrConfigNotFound)
	}
}

// listFallback lists src/modules/* as app-owned entries.
func listFallback(appDir string) ([]Entry, error) {
	modulesDir := filepath.Join(appDir, "src", "modules")
	dirents, err := os.ReadDir(modulesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", modulesDir, err)
	}
	var entries []Entry
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		entries = append(entries, Entry{ID: d.Name(), Source: Source{Kind: KindApp}})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}
