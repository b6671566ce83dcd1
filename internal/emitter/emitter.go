// Package emitter assembles scanned contributions into the generated
// aggregate source files. Artifacts are pure functions of their inputs:
// modules arrive id-sorted, every table is emitted in a stable order, and
// identical inputs produce byte-identical text, which is what makes the
// checksum gate meaningful.
package emitter

import (
	"fmt"
	"sort"
	"strings"

	"git.home.luguber.info/inful/modkit/internal/scanner"
)

// Artifact names, fixed. The emitter always produces all of them so stale
// aggregates cannot survive a module being disabled.
const (
	ArtifactRegistry        = "registry.gen.ts"
	ArtifactRegistryCLI     = "registry.cli.gen.ts"
	ArtifactWidgetsDash     = "widgets.dashboard.gen.ts"
	ArtifactWidgetsInject   = "widgets.injection.gen.ts"
	ArtifactInjectionTables = "injection-tables.gen.ts"
	ArtifactSearch          = "search.gen.ts"
	ArtifactNotifications   = "notifications.gen.ts"
	ArtifactAITools         = "ai-tools.gen.ts"
	ArtifactEvents          = "events.gen.ts"
	ArtifactAnalytics       = "analytics.gen.ts"
)

const header = "// Code generated by modkit. DO NOT EDIT.\n\n"

// Artifact is one generated aggregate file, not yet written to disk.
type Artifact struct {
	Name    string
	Content []byte
}

// Emit assembles every artifact from the scanned modules. Modules must be
// id-sorted by the caller; generation order is part of the output contract.
func Emit(modules []*scanner.Module) []Artifact {
	return []Artifact{
		{ArtifactRegistry, emitRegistry(modules, false)},
		{ArtifactRegistryCLI, emitRegistry(modules, true)},
		{ArtifactWidgetsDash, emitWidgets(modules, "dashboardWidgets", dashboardOf)},
		{ArtifactWidgetsInject, emitWidgets(modules, "injectionWidgets", injectionOf)},
		{ArtifactInjectionTables, emitConcernTable(modules, "injectionTables", scanner.ConcernInjectionTable)},
		{ArtifactSearch, emitConcernTable(modules, "searchConfigs", scanner.ConcernSearch)},
		{ArtifactNotifications, emitConcernTable(modules, "notificationTypes", scanner.ConcernNotifications)},
		{ArtifactAITools, emitConcernTable(modules, "aiToolConfigs", scanner.ConcernAITools)},
		{ArtifactEvents, emitConcernTable(modules, "eventDefinitions", scanner.ConcernEvents)},
		{ArtifactAnalytics, emitConcernTable(modules, "analyticsConfigs", scanner.ConcernAnalytics)},
	}
}

// emitRegistry writes the runtime registry, or the lighter CLI-only variant
// when cliOnly is set. The CLI registry excludes everything that needs the
// rendering runtime: page routes and widgets.
func emitRegistry(modules []*scanner.Module, cliOnly bool) []byte {
	var b strings.Builder
	b.WriteString(header)

	b.WriteString("export const modules = {\n")
	for _, m := range modules {
		fmt.Fprintf(&b, "  %s: {\n", tsString(m.ID))
		fmt.Fprintf(&b, "    title: %s,\n", tsString(m.Title))
		if m.Description != "" {
			fmt.Fprintf(&b, "    description: %s,\n", tsString(m.Description))
		}
		if len(m.Requires) > 0 {
			fmt.Fprintf(&b, "    requires: [%s],\n", tsStringList(m.Requires))
		}
		if m.Ejectable {
			b.WriteString("    ejectable: true,\n")
		}
		for _, concern := range []string{scanner.ConcernExtensions, scanner.ConcernACL, scanner.ConcernCE, scanner.ConcernFields, scanner.ConcernSetup} {
			if imp, ok := m.Singletons[concern]; ok {
				fmt.Fprintf(&b, "    %s: %s,\n", concern, lazyImport(imp))
			}
		}
		b.WriteString("  },\n")
	}
	b.WriteString("} as const;\n\n")

	if !cliOnly {
		writeRouteTable(&b, "frontendRoutes", modules, frontendOf)
		writeRouteTable(&b, "backendRoutes", modules, backendOf)
	}

	b.WriteString("export const apiRoutes = [\n")
	for _, m := range modules {
		for _, e := range m.API {
			fmt.Fprintf(&b, "  { path: %s, methods: [%s], load: %s", tsString(e.Path), tsStringList(e.Methods), lazyImport(e.Import))
			if e.HasDoc {
				b.WriteString(", hasDoc: true")
			}
			b.WriteString(" },\n")
		}
	}
	b.WriteString("];\n\n")

	b.WriteString("export const cliCommands = [\n")
	for _, m := range modules {
		if m.CLI != nil {
			fmt.Fprintf(&b, "  { module: %s, load: %s },\n", tsString(m.ID), lazyImport(m.CLI.Import))
		}
	}
	b.WriteString("];\n\n")

	b.WriteString("export const subscribers = [\n")
	for _, m := range modules {
		for _, sub := range m.Subscribers {
			fmt.Fprintf(&b, "  { id: %s, event: %s, persistent: %t, handler: %s },\n",
				tsString(sub.ID), tsString(sub.Event), sub.Persistent, lazyImport(sub.Import))
		}
	}
	b.WriteString("];\n\n")

	b.WriteString("export const workers = [\n")
	for _, m := range modules {
		for _, w := range m.Workers {
			fmt.Fprintf(&b, "  { id: %s, queueName: %s, load: %s },\n",
				tsString(w.ID), tsString(w.QueueName), lazyImport(w.Import))
		}
	}
	b.WriteString("];\n\n")

	writeTranslations(&b, modules)
	return []byte(b.String())
}

func writeRouteTable(b *strings.Builder, name string, modules []*scanner.Module, of func(*scanner.Module) []scanner.Route) {
	fmt.Fprintf(b, "export const %s = [\n", name)
	for _, m := range modules {
		for _, r := range of(m) {
			fmt.Fprintf(b, "  { path: %s, load: %s },\n", tsString(r.Path), lazyImport(r.Import))
		}
	}
	b.WriteString("];\n\n")
}

// writeTranslations inlines the merged per-locale maps. Locales and keys are
// emitted sorted.
func writeTranslations(b *strings.Builder, modules []*scanner.Module) {
	// Locale -> key -> value, merged across modules. Modules arrive
	// id-sorted, so later module ids win duplicate keys deterministically.
	merged := make(map[string]map[string]string)
	for _, m := range modules {
		for locale, entries := range m.Translations {
			dst := merged[locale]
			if dst == nil {
				dst = make(map[string]string)
				merged[locale] = dst
			}
			for k, v := range entries {
				dst[k] = v
			}
		}
	}

	locales := make([]string, 0, len(merged))
	for locale := range merged {
		locales = append(locales, locale)
	}
	sort.Strings(locales)

	b.WriteString("export const translations = {\n")
	for _, locale := range locales {
		fmt.Fprintf(b, "  %s: {\n", tsString(locale))
		entries := merged[locale]
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, "    %s: %s,\n", tsString(k), tsString(entries[k]))
		}
		b.WriteString("  },\n")
	}
	b.WriteString("} as const;\n")
}

func frontendOf(m *scanner.Module) []scanner.Route   { return m.FrontendRoutes }
func backendOf(m *scanner.Module) []scanner.Route    { return m.BackendRoutes }
func dashboardOf(m *scanner.Module) []scanner.Widget { return m.DashboardWidgets }
func injectionOf(m *scanner.Module) []scanner.Widget { return m.InjectionWidgets }

// emitWidgets assembles one cross-module widget aggregate. On key collision
// the app-sourced entry wins.
func emitWidgets(modules []*scanner.Module, exportName string, of func(*scanner.Module) []scanner.Widget) []byte {
	byKey := make(map[string]scanner.Widget)
	for _, m := range modules {
		for _, w := range of(m) {
			if existing, ok := byKey[w.Key]; ok && existing.FromApp && !w.FromApp {
				continue
			}
			byKey[w.Key] = w
		}
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, "export const %s = {\n", exportName)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s,\n", tsString(k), lazyImport(byKey[k].Import))
	}
	b.WriteString("} as const;\n")
	return []byte(b.String())
}

// emitConcernTable assembles one cross-cutting aggregate keyed by module id.
func emitConcernTable(modules []*scanner.Module, exportName, concern string) []byte {
	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, "export const %s = {\n", exportName)
	for _, m := range modules {
		if imp, ok := m.Singletons[concern]; ok {
			fmt.Fprintf(&b, "  %s: %s,\n", tsString(m.ID), lazyImport(imp))
		}
	}
	b.WriteString("} as const;\n")
	return []byte(b.String())
}

// tsString renders a single-quoted TypeScript string literal.
func tsString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func tsStringList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = tsString(s)
	}
	return strings.Join(quoted, ", ")
}

func lazyImport(imp string) string {
	return fmt.Sprintf("() => import(%s)", tsString(imp))
}
