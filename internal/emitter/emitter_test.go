package emitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/modkit/internal/scanner"
)

func sampleModules() []*scanner.Module {
	return []*scanner.Module{
		{
			ID:          "customers",
			Title:       "Customers",
			Description: "Customer management",
			Requires:    []string{"invoicing"},
			Ejectable:   true,
			FrontendRoutes: []scanner.Route{
				{Path: "/customers", Import: "@fieldway/core/modules/customers/frontend/page"},
				{Path: "/customers/[id]", Import: "@fieldway/core/modules/customers/frontend/[id]/page"},
			},
			API: []scanner.APIEntry{
				{Path: "/customers", Methods: []string{"GET", "POST"}, Import: "@fieldway/core/modules/customers/api/route", HasDoc: true},
			},
			CLI: &scanner.CLICommand{Import: "@fieldway/core/modules/customers/cli"},
			Translations: map[string]map[string]string{
				"en": {"greeting": "Hello"},
			},
			Subscribers: []scanner.Subscriber{
				{ID: "customers/on-created", Event: "customer.created", Persistent: true, Import: "@fieldway/core/modules/customers/subscribers/on-created"},
			},
			Workers: []scanner.Worker{
				{ID: "customers/sync", QueueName: "customers.sync", Import: "@fieldway/core/modules/customers/workers/sync"},
			},
			Singletons: map[string]string{
				scanner.ConcernACL:    "@fieldway/core/modules/customers/acl",
				scanner.ConcernSearch: "@fieldway/core/modules/customers/search",
			},
			DashboardWidgets: []scanner.Widget{
				{Key: "customers/revenue", Import: "@fieldway/core/modules/customers/widgets/dashboard/revenue"},
			},
		},
		{
			ID:    "invoicing",
			Title: "Invoicing",
			Translations: map[string]map[string]string{
				"en": {"farewell": "Bye"},
			},
			Singletons: map[string]string{},
		},
	}
}

func artifactByName(t *testing.T, artifacts []Artifact, name string) string {
	t.Helper()
	for _, a := range artifacts {
		if a.Name == name {
			return string(a.Content)
		}
	}
	t.Fatalf("artifact %s not emitted", name)
	return ""
}

func TestEmitProducesAllArtifacts(t *testing.T) {
	artifacts := Emit(sampleModules())
	require.Len(t, artifacts, 10)
	for _, a := range artifacts {
		assert.True(t, strings.HasPrefix(string(a.Content), header), "artifact %s misses the generated header", a.Name)
	}
}

func TestEmitIsDeterministic(t *testing.T) {
	first := Emit(sampleModules())
	second := Emit(sampleModules())
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
		assert.Equal(t, string(first[i].Content), string(second[i].Content))
	}
}

func TestRegistryContents(t *testing.T) {
	registry := artifactByName(t, Emit(sampleModules()), ArtifactRegistry)

	assert.Contains(t, registry, "'customers': {")
	assert.Contains(t, registry, "title: 'Customers',")
	assert.Contains(t, registry, "description: 'Customer management',")
	assert.Contains(t, registry, "requires: ['invoicing'],")
	assert.Contains(t, registry, "ejectable: true,")
	assert.Contains(t, registry, "acl: () => import('@fieldway/core/modules/customers/acl'),")

	assert.Contains(t, registry, "{ path: '/customers', load: () => import('@fieldway/core/modules/customers/frontend/page') },")
	assert.Contains(t, registry, "{ path: '/customers', methods: ['GET', 'POST'], load: () => import('@fieldway/core/modules/customers/api/route'), hasDoc: true },")
	assert.Contains(t, registry, "{ module: 'customers', load: () => import('@fieldway/core/modules/customers/cli') },")
	assert.Contains(t, registry, "{ id: 'customers/on-created', event: 'customer.created', persistent: true, handler: () => import('@fieldway/core/modules/customers/subscribers/on-created') },")
	assert.Contains(t, registry, "{ id: 'customers/sync', queueName: 'customers.sync', load: () => import('@fieldway/core/modules/customers/workers/sync') },")

	// Search is a dedicated aggregate, not a registry field.
	assert.NotContains(t, registry, "search:")
}

func TestCLIRegistryExcludesRoutesAndWidgets(t *testing.T) {
	cli := artifactByName(t, Emit(sampleModules()), ArtifactRegistryCLI)
	assert.NotContains(t, cli, "frontendRoutes")
	assert.NotContains(t, cli, "backendRoutes")
	assert.Contains(t, cli, "apiRoutes")
	assert.Contains(t, cli, "cliCommands")
	assert.Contains(t, cli, "workers")
}

func TestTranslationsMergedAndSorted(t *testing.T) {
	registry := artifactByName(t, Emit(sampleModules()), ArtifactRegistry)
	// Both modules contribute to en; keys are emitted sorted.
	farewell := strings.Index(registry, "'farewell': 'Bye',")
	greeting := strings.Index(registry, "'greeting': 'Hello',")
	require.GreaterOrEqual(t, farewell, 0)
	require.GreaterOrEqual(t, greeting, 0)
	assert.Less(t, farewell, greeting)
}

func TestWidgetAggregate(t *testing.T) {
	dash := artifactByName(t, Emit(sampleModules()), ArtifactWidgetsDash)
	assert.Contains(t, dash, "'customers/revenue': () => import('@fieldway/core/modules/customers/widgets/dashboard/revenue'),")

	inject := artifactByName(t, Emit(sampleModules()), ArtifactWidgetsInject)
	assert.Contains(t, inject, "export const injectionWidgets = {\n} as const;")
}

func TestWidgetCollisionPrefersAppSource(t *testing.T) {
	modules := []*scanner.Module{
		{
			ID: "a",
			DashboardWidgets: []scanner.Widget{
				{Key: "shared/panel", Import: "../src/modules/a/widgets/dashboard/panel", FromApp: true},
			},
			Singletons: map[string]string{},
		},
		{
			ID: "b",
			DashboardWidgets: []scanner.Widget{
				{Key: "shared/panel", Import: "@fieldway/core/modules/b/widgets/dashboard/panel"},
			},
			Singletons: map[string]string{},
		},
	}
	dash := artifactByName(t, Emit(modules), ArtifactWidgetsDash)
	assert.Contains(t, dash, "'shared/panel': () => import('../src/modules/a/widgets/dashboard/panel'),")
	assert.NotContains(t, dash, "modules/b/widgets")
}

func TestConcernTable(t *testing.T) {
	search := artifactByName(t, Emit(sampleModules()), ArtifactSearch)
	assert.Contains(t, search, "export const searchConfigs = {")
	assert.Contains(t, search, "'customers': () => import('@fieldway/core/modules/customers/search'),")
	// The module without a search singleton contributes nothing.
	assert.NotContains(t, search, "'invoicing'")
}

func TestTSStringEscaping(t *testing.T) {
	assert.Equal(t, `'it\'s a "test"'`, tsString(`it's a "test"`))
	assert.Equal(t, `'line\nbreak'`, tsString("line\nbreak"))
	assert.Equal(t, `'back\\slash'`, tsString(`back\slash`))
}
