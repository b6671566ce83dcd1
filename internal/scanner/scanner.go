// Package scanner walks the conventional per-module file layout and collects
// contribution records for the artifact emitter. For every conventional
// location both the app-override root and the package root are probed; an
// app-provided file at the same relative path always shadows the package one.
package scanner

import (
	"log/slog"

	"git.home.luguber.info/inful/modkit/internal/logfields"
	"git.home.luguber.info/inful/modkit/internal/modconfig"
	"git.home.luguber.info/inful/modkit/internal/resolver"
)

// Route is one contributed page route.
type Route struct {
	Path   string
	Import string
}

// APIEntry is one contributed API table entry.
type APIEntry struct {
	Path    string
	Methods []string
	Import  string
	HasDoc  bool
}

// CLICommand is a module's CLI contribution.
type CLICommand struct {
	Import string
}

// Subscriber is one event subscriber entry.
type Subscriber struct {
	ID         string
	Event      string
	Persistent bool
	Import     string
}

// Worker is one background worker entry. Workers are included only when a
// queue-naming export was confirmed (via manifest capability or content probe).
type Worker struct {
	ID        string
	QueueName string
	Import    string
}

// Widget is one lazily-loaded widget entry, keyed by module+path slug.
type Widget struct {
	Key     string
	Import  string
	FromApp bool
}

// ScanError records a subtree that could not be scanned. It contributes an
// error marker to the structure hash instead of aborting the run.
type ScanError struct {
	Path    string
	Message string
}

// Module is the full set of contributions scanned for one enabled module.
// Contributions are ephemeral; they live for a single generation pass.
type Module struct {
	ID    string
	Entry modconfig.Entry
	Paths resolver.ResolvedModulePaths

	Title        string
	Description  string
	Requires     []string
	Ejectable    bool
	Capabilities []string

	FrontendRoutes []Route
	BackendRoutes  []Route
	API            []APIEntry
	CLI            *CLICommand
	Translations   map[string]map[string]string
	Subscribers    []Subscriber
	Workers        []Worker
	Singletons     map[string]string // concern name -> import path

	DashboardWidgets []Widget
	InjectionWidgets []Widget

	Errors []ScanError
}

// Singleton concern names, in the order they are emitted.
const (
	ConcernExtensions     = "extensions"
	ConcernACL            = "acl"
	ConcernCE             = "ce"
	ConcernFields         = "fields"
	ConcernSearch         = "search"
	ConcernNotifications  = "notifications"
	ConcernAITools        = "aiTools"
	ConcernEvents         = "events"
	ConcernAnalytics      = "analytics"
	ConcernSetup          = "setup"
	ConcernInjectionTable = "injectionTable"
)

// singletonConventions maps each single-file convention to its concern.
var singletonConventions = []struct {
	Rel     string
	Concern string
}{
	{"data/extensions.ts", ConcernExtensions},
	{"acl.ts", ConcernACL},
	{"ce.ts", ConcernCE},
	{"data/fields.ts", ConcernFields},
	{"search.ts", ConcernSearch},
	{"notifications.ts", ConcernNotifications},
	{"ai-tools.ts", ConcernAITools},
	{"events.ts", ConcernEvents},
	{"analytics.ts", ConcernAnalytics},
	{"setup.ts", ConcernSetup},
	{"widgets/injection-table.ts", ConcernInjectionTable},
}

// Scanner walks module roots for one generation pass.
type Scanner struct {
	res *resolver.Resolver
}

// New creates a scanner bound to a resolver.
func New(res *resolver.Resolver) *Scanner {
	return &Scanner{res: res}
}

// ScanModule collects every contribution for one enabled module.
func (s *Scanner) ScanModule(entry modconfig.Entry) *Module {
	paths := s.res.ModulePaths(entry)
	m := &Module{
		ID:           entry.ID,
		Entry:        entry,
		Paths:        paths,
		Translations: make(map[string]map[string]string),
		Singletons:   make(map[string]string),
	}

	s.scanMetadata(m)
	s.scanRoutes(m)
	s.scanAPI(m)
	s.scanCLI(m)
	s.scanI18n(m)
	s.scanSubscribers(m)
	s.scanWorkers(m)
	s.scanSingletons(m)
	s.scanWidgets(m)

	slog.Debug("Scanned module",
		logfields.Module(m.ID),
		slog.Int("frontend_routes", len(m.FrontendRoutes)),
		slog.Int("backend_routes", len(m.BackendRoutes)),
		slog.Int("api", len(m.API)),
		slog.Int("subscribers", len(m.Subscribers)),
		slog.Int("workers", len(m.Workers)),
		slog.Int("errors", len(m.Errors)))
	return m
}

// ScanMetadata collects only the module metadata (manifest, legacy literal,
// README fallback). The eject command uses this to avoid a full contribution
// walk when it just needs the ejectable flag and the display fields.
func (s *Scanner) ScanMetadata(entry modconfig.Entry) *Module {
	m := &Module{
		ID:           entry.ID,
		Entry:        entry,
		Paths:        s.res.ModulePaths(entry),
		Translations: make(map[string]map[string]string),
		Singletons:   make(map[string]string),
	}
	s.scanMetadata(m)
	return m
}

// scanCLI picks up the single cli.ts convention.
func (s *Scanner) scanCLI(m *Module) {
	if ref, ok := s.resolveFile(m, "cli.ts"); ok {
		m.CLI = &CLICommand{Import: s.importPath(m, ref, "cli.ts")}
	}
}

// scanSingletons merges each single-file convention into the module record.
func (s *Scanner) scanSingletons(m *Module) {
	for _, conv := range singletonConventions {
		if ref, ok := s.resolveFile(m, conv.Rel); ok {
			m.Singletons[conv.Concern] = s.importPath(m, ref, conv.Rel)
		}
	}
}

// hasCapability reports whether the module manifest statically declares a
// capability. Checked before any content probing.
func (m *Module) hasCapability(name string) bool {
	for _, c := range m.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// addError records a failed subtree scan. The failure contributes nothing and
// surfaces as an error marker in the structure hash.
func (m *Module) addError(path string, err error) {
	m.Errors = append(m.Errors, ScanError{Path: path, Message: err.Error()})
	slog.Warn("Subtree scan failed", logfields.Module(m.ID), logfields.Path(path), logfields.Error(err))
}
