package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/modkit/internal/modconfig"
	"git.home.luguber.info/inful/modkit/internal/resolver"
)

// fixture is an installed-topology project with one shared package ("core")
// and an app-override tree, both writable per test.
type fixture struct {
	root string
	res  *resolver.Resolver
	sc   *Scanner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	pkg := filepath.Join(root, "node_modules", "@fieldway", "core")
	require.NoError(t, os.MkdirAll(filepath.Join(pkg, "modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "package.json"), []byte(`{"name":"@fieldway/core"}`), 0o644))

	res, err := resolver.New(root)
	require.NoError(t, err)
	return &fixture{root: root, res: res, sc: New(res)}
}

// pkgFile writes a file under the package copy of a module.
func (f *fixture) pkgFile(t *testing.T, moduleID, rel, content string) {
	t.Helper()
	writeFile(t, filepath.Join(f.root, "node_modules", "@fieldway", "core", "modules", moduleID, filepath.FromSlash(rel)), content)
}

// appFile writes a file under the app-override copy of a module.
func (f *fixture) appFile(t *testing.T, moduleID, rel, content string) {
	t.Helper()
	writeFile(t, filepath.Join(f.root, "src", "modules", moduleID, filepath.FromSlash(rel)), content)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func entry(id string) modconfig.Entry {
	return modconfig.Entry{ID: id}
}

func TestScanMetadataManifest(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "module.yaml", `title: Customers
description: Customer management
requires: [invoicing]
ejectable: true
capabilities: [workers]
`)

	m := f.sc.ScanModule(entry("customers"))
	assert.Equal(t, "Customers", m.Title)
	assert.Equal(t, "Customer management", m.Description)
	assert.Equal(t, []string{"invoicing"}, m.Requires)
	assert.True(t, m.Ejectable)
	assert.Equal(t, []string{"workers"}, m.Capabilities)
}

func TestScanMetadataLegacyIndex(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "index.ts", `export const meta = {
  title: 'Customers',
  description: "Customer management",
  requires: ['invoicing', 'billing'],
  ejectable: true,
};`)

	m := f.sc.ScanModule(entry("customers"))
	assert.Equal(t, "Customers", m.Title)
	assert.Equal(t, "Customer management", m.Description)
	assert.Equal(t, []string{"invoicing", "billing"}, m.Requires)
	assert.True(t, m.Ejectable)
}

func TestScanMetadataReadmeFallback(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "README.md", `# Customers

Tracks customer accounts
and their contacts.

More detail below.
`)

	m := f.sc.ScanModule(entry("customers"))
	assert.Equal(t, "Customers", m.Title)
	assert.Equal(t, "Tracks customer accounts and their contacts.", m.Description)
}

func TestScanMetadataTitleDefaultsToID(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "frontend/page.tsx", "export default () => null;")

	m := f.sc.ScanModule(entry("customers"))
	assert.Equal(t, "customers", m.Title)
}

func TestAppManifestShadowsPackageManifest(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "module.yaml", "title: Package Title\n")
	f.appFile(t, "customers", "module.yaml", "title: App Title\n")

	m := f.sc.ScanModule(entry("customers"))
	assert.Equal(t, "App Title", m.Title)
}

func TestCollectRoutes(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "frontend/page.tsx", "")
	f.pkgFile(t, "customers", "frontend/list/page.tsx", "")
	f.pkgFile(t, "customers", "frontend/[id]/page.tsx", "")
	f.pkgFile(t, "customers", "frontend/legacy.tsx", "")
	f.pkgFile(t, "customers", "frontend/helpers.css", "")
	f.pkgFile(t, "customers", "backend/page.tsx", "")

	m := f.sc.ScanModule(entry("customers"))

	require.Len(t, m.FrontendRoutes, 4)
	paths := make([]string, 0, len(m.FrontendRoutes))
	for _, r := range m.FrontendRoutes {
		paths = append(paths, r.Path)
	}
	// Static segments sort before the dynamic [id] sibling.
	assert.Equal(t, []string{
		"/customers",
		"/customers/legacy",
		"/customers/list",
		"/customers/[id]",
	}, paths)

	assert.Equal(t, "@fieldway/core/modules/customers/frontend/page", m.FrontendRoutes[0].Import)

	require.Len(t, m.BackendRoutes, 1)
	assert.Equal(t, "/customers", m.BackendRoutes[0].Path)
}

func TestAppRouteShadowsPackageRoute(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "frontend/page.tsx", "")
	f.appFile(t, "customers", "frontend/page.tsx", "")
	f.pkgFile(t, "customers", "frontend/list/page.tsx", "")

	m := f.sc.ScanModule(entry("customers"))
	require.Len(t, m.FrontendRoutes, 2)
	// The shadowed root page now imports from the app layer.
	assert.Equal(t, "../src/modules/customers/frontend/page", m.FrontendRoutes[0].Import)
	// The untouched sibling still imports from the package.
	assert.Equal(t, "@fieldway/core/modules/customers/frontend/list/page", m.FrontendRoutes[1].Import)
}

func TestRouteOrdering(t *testing.T) {
	routes := []Route{
		{Path: "/m/[id]/edit"},
		{Path: "/m/archive"},
		{Path: "/m/[id]"},
		{Path: "/m"},
		{Path: "/m/archive/[year]"},
	}
	sortRoutes(routes)
	got := make([]string, len(routes))
	for i, r := range routes {
		got[i] = r.Path
	}
	assert.Equal(t, []string{
		"/m",
		"/m/archive",
		"/m/archive/[year]",
		"/m/[id]",
		"/m/[id]/edit",
	}, got)
}

func TestScanAPI(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "api/route.ts", `export async function GET(req) {}
export const POST = handler;
export const doc = { summary: 'Root collection' };
`)
	f.pkgFile(t, "customers", "api/export/get.ts", "export default handler;")
	f.pkgFile(t, "customers", "api/search.ts", "export default handler;")

	m := f.sc.ScanModule(entry("customers"))
	require.Len(t, m.API, 3)

	root := m.API[0]
	assert.Equal(t, "/customers/export", root.Path)
	assert.Equal(t, []string{"GET"}, root.Methods)

	byPath := map[string]APIEntry{}
	for _, e := range m.API {
		byPath[e.Path] = e
	}
	assert.Equal(t, []string{"GET", "POST"}, byPath["/customers"].Methods)
	assert.True(t, byPath["/customers"].HasDoc)
	assert.Equal(t, []string{"ALL"}, byPath["/customers/search"].Methods)
	assert.False(t, byPath["/customers/search"].HasDoc)
}

func TestScanCLI(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "cli.ts", "export const command = {};")

	m := f.sc.ScanModule(entry("customers"))
	require.NotNil(t, m.CLI)
	assert.Equal(t, "@fieldway/core/modules/customers/cli", m.CLI.Import)

	f2 := newFixture(t)
	f2.pkgFile(t, "bare", "module.yaml", "title: Bare\n")
	assert.Nil(t, f2.sc.ScanModule(entry("bare")).CLI)
}

func TestScanI18nMergesLayers(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "i18n/en.json", `{"greeting": "Hello", "farewell": "Bye"}`)
	f.appFile(t, "customers", "i18n/en.json", `{"greeting": "Howdy"}`)
	f.pkgFile(t, "customers", "i18n/de.json", `{"greeting": "Hallo"}`)

	m := f.sc.ScanModule(entry("customers"))
	require.Contains(t, m.Translations, "en")
	// App keys override package keys; untouched keys survive.
	assert.Equal(t, "Howdy", m.Translations["en"]["greeting"])
	assert.Equal(t, "Bye", m.Translations["en"]["farewell"])
	assert.Equal(t, "Hallo", m.Translations["de"]["greeting"])
}

func TestScanI18nCanonicalizesLocale(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "i18n/en_US.json", `{"greeting": "Hello"}`)
	f.appFile(t, "customers", "i18n/en-US.json", `{"greeting": "Howdy"}`)

	m := f.sc.ScanModule(entry("customers"))
	require.Contains(t, m.Translations, "en-US")
	assert.Equal(t, "Howdy", m.Translations["en-US"]["greeting"])
	assert.Len(t, m.Translations, 1)
}

func TestScanI18nRejectsInvalidLocale(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "i18n/not a locale!.json", `{}`)

	m := f.sc.ScanModule(entry("customers"))
	assert.Empty(t, m.Translations)
	require.NotEmpty(t, m.Errors)
	assert.Contains(t, m.Errors[0].Message, "invalid locale tag")
}

func TestScanSubscribers(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "subscribers/on-created.ts", `export const config = {
  event: 'customer.created',
  persistent: true,
};`)
	f.pkgFile(t, "customers", "subscribers/helper.ts", "export const util = 1;")

	m := f.sc.ScanModule(entry("customers"))
	require.Len(t, m.Subscribers, 1)
	sub := m.Subscribers[0]
	assert.Equal(t, "customers/on-created", sub.ID)
	assert.Equal(t, "customer.created", sub.Event)
	assert.True(t, sub.Persistent)
	assert.Equal(t, "@fieldway/core/modules/customers/subscribers/on-created", sub.Import)
}

func TestScanWorkersRequiresQueueExport(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "workers/sync.ts", `export const queueName = 'customers.sync';
export default worker;`)
	f.pkgFile(t, "customers", "workers/stray.ts", "export default worker;")

	m := f.sc.ScanModule(entry("customers"))
	require.Len(t, m.Workers, 1)
	assert.Equal(t, "customers/sync", m.Workers[0].ID)
	assert.Equal(t, "customers.sync", m.Workers[0].QueueName)
}

func TestScanWorkersCapabilityDerivesQueueName(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "module.yaml", "capabilities: [workers]\n")
	f.pkgFile(t, "customers", "workers/nightly/report.ts", "export default worker;")

	m := f.sc.ScanModule(entry("customers"))
	require.Len(t, m.Workers, 1)
	assert.Equal(t, "customers.nightly.report", m.Workers[0].QueueName)
}

func TestScanWorkersCapabilitySkipsContentProbe(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "module.yaml", "capabilities: [workers]\n")
	// A declared capability admits the file without opening it, so even an
	// explicit queue-name export is not consulted.
	f.pkgFile(t, "customers", "workers/sync.ts", `export const queueName = 'custom.override';
export default worker;`)

	m := f.sc.ScanModule(entry("customers"))
	require.Len(t, m.Workers, 1)
	assert.Equal(t, "customers.sync", m.Workers[0].QueueName)
}

func TestScanSingletons(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "acl.ts", "")
	f.pkgFile(t, "customers", "data/extensions.ts", "")
	f.pkgFile(t, "customers", "widgets/injection-table.ts", "")
	f.appFile(t, "customers", "acl.ts", "")

	m := f.sc.ScanModule(entry("customers"))
	assert.Equal(t, "../src/modules/customers/acl", m.Singletons[ConcernACL])
	assert.Equal(t, "@fieldway/core/modules/customers/data/extensions", m.Singletons[ConcernExtensions])
	assert.Equal(t, "@fieldway/core/modules/customers/widgets/injection-table", m.Singletons[ConcernInjectionTable])
	assert.NotContains(t, m.Singletons, ConcernSearch)
}

func TestScanWidgets(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "widgets/dashboard/revenue.tsx", "")
	f.pkgFile(t, "customers", "widgets/dashboard/notes.txt", "")
	f.appFile(t, "customers", "widgets/injection/detail-panel.tsx", "")

	m := f.sc.ScanModule(entry("customers"))
	require.Len(t, m.DashboardWidgets, 1)
	assert.Equal(t, "customers/revenue", m.DashboardWidgets[0].Key)
	assert.False(t, m.DashboardWidgets[0].FromApp)

	require.Len(t, m.InjectionWidgets, 1)
	assert.Equal(t, "customers/detail-panel", m.InjectionWidgets[0].Key)
	assert.True(t, m.InjectionWidgets[0].FromApp)
}

func TestScanMetadataOnly(t *testing.T) {
	f := newFixture(t)
	f.pkgFile(t, "customers", "module.yaml", "title: Customers\nejectable: true\n")
	f.pkgFile(t, "customers", "frontend/page.tsx", "")

	m := f.sc.ScanMetadata(entry("customers"))
	assert.Equal(t, "Customers", m.Title)
	assert.True(t, m.Ejectable)
	assert.Empty(t, m.FrontendRoutes)
}
