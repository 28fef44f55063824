package registry

import (
	"context"
	"testing"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/properties"
	"github.com/stcorp/muninn/internal/schema"
	"github.com/stcorp/muninn/internal/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlugin is a minimal ProductTypePlugin used across tests. It implements
// every optional hook, recording each call, and fails them all when failHook
// is set; barePlugin below covers a plugin without hooks.
type fakePlugin struct {
	name       string
	identifies bool
	calls      *[]string
	failHook   bool
}

func (p *fakePlugin) Identify(ctx context.Context, paths []string) bool { return p.identifies }

func (p *fakePlugin) Analyze(ctx context.Context, paths []string) (*properties.Container, []string, apperrors.Error) {
	return properties.New(), nil, nil
}

func (p *fakePlugin) ArchivePath(ctx context.Context, props *properties.Container) (string, apperrors.Error) {
	return "/" + p.name, nil
}

func (p *fakePlugin) PostIngestHook(ctx context.Context, id string, props *properties.Container) apperrors.Error {
	return p.record("plugin:ingest")
}

func (p *fakePlugin) PostPullHook(ctx context.Context, id string, props *properties.Container) apperrors.Error {
	return p.record("plugin:pull")
}

func (p *fakePlugin) PostRemoveHook(ctx context.Context, id string, props *properties.Container) apperrors.Error {
	return p.record("plugin:remove")
}

func (p *fakePlugin) PostCreateHook(ctx context.Context, id string, props *properties.Container) apperrors.Error {
	return p.record("plugin:create")
}

func (p *fakePlugin) record(event string) apperrors.Error {
	if p.failHook {
		return ErrPlugin.Msg(event + " failed")
	}
	*p.calls = append(*p.calls, event)
	return nil
}

// fakeExtension only implements PostIngestHook and PostRemoveHook, exercising
// the type-assertion path for extensions that don't support every hook.
type fakeExtension struct {
	name  string
	calls *[]string
}

func (e *fakeExtension) PostIngestHook(ctx context.Context, id string, props *properties.Container) apperrors.Error {
	*e.calls = append(*e.calls, "ext:"+e.name+":ingest")
	return nil
}

func (e *fakeExtension) PostRemoveHook(ctx context.Context, id string, props *properties.Container) apperrors.Error {
	*e.calls = append(*e.calls, "ext:"+e.name+":remove")
	return nil
}

type fakeRemote struct {
	scheme string
}

func (r *fakeRemote) Identify(url string) bool {
	return len(url) >= len(r.scheme) && url[:len(r.scheme)] == r.scheme
}

func (r *fakeRemote) Pull(ctx context.Context, remoteURL, physicalName, targetDir string) ([]string, apperrors.Error) {
	return []string{targetDir + "/" + physicalName}, nil
}

func TestNewSeedsCoreSchema(t *testing.T) {
	r := New()
	ns, ok := r.Schemas().Lookup(schema.CoreNamespaceName)
	require.True(t, ok)
	assert.Equal(t, schema.Core, ns)
}

func TestRegisterNamespaceDelegatesToSchemaRegistry(t *testing.T) {
	r := New()
	err := r.RegisterNamespace(schema.Namespace{
		Name:   "geo",
		Fields: []schema.Field{{Name: "country", Type: values.KindText}},
	})
	require.Nil(t, err)
	_, ok := r.Schemas().Lookup("geo")
	assert.True(t, ok)
}

func TestRegisterProductTypeRejectsDuplicateName(t *testing.T) {
	r := New()
	calls := []string{}
	pt := ProductType{Name: "image", Plugin: &fakePlugin{name: "image", calls: &calls}}
	require.Nil(t, r.RegisterProductType(pt))
	assert.NotNil(t, r.RegisterProductType(pt))
}

func TestRegisterProductTypeDefaultsCascadeRuleAndHashType(t *testing.T) {
	r := New()
	calls := []string{}
	require.Nil(t, r.RegisterProductType(ProductType{Name: "image", Plugin: &fakePlugin{name: "image", calls: &calls}}))

	pt, err := r.ProductType("image")
	require.Nil(t, err)
	assert.Equal(t, CascadeIgnore, pt.CascadeRule)
	assert.Equal(t, "md5", pt.HashType)
}

func TestProductTypeUnknownNameFails(t *testing.T) {
	r := New()
	_, err := r.ProductType("missing")
	assert.NotNil(t, err)
}

func TestIdentifyProductTypeReturnsFirstMatch(t *testing.T) {
	r := New()
	calls := []string{}
	require.Nil(t, r.RegisterProductType(ProductType{Name: "no-match", Plugin: &fakePlugin{name: "no-match", identifies: false, calls: &calls}}))
	require.Nil(t, r.RegisterProductType(ProductType{Name: "first", Plugin: &fakePlugin{name: "first", identifies: true, calls: &calls}}))
	require.Nil(t, r.RegisterProductType(ProductType{Name: "second", Plugin: &fakePlugin{name: "second", identifies: true, calls: &calls}}))

	pt, err := r.IdentifyProductType(context.Background(), []string{"/tmp/x"})
	require.Nil(t, err)
	assert.Equal(t, "first", pt.Name)
}

func TestIdentifyProductTypeFailsWhenNoneMatch(t *testing.T) {
	r := New()
	calls := []string{}
	require.Nil(t, r.RegisterProductType(ProductType{Name: "no-match", Plugin: &fakePlugin{name: "no-match", calls: &calls}}))

	_, err := r.IdentifyProductType(context.Background(), []string{"/tmp/x"})
	assert.NotNil(t, err)
}

func TestSelectRemoteBackendReturnsFirstMatch(t *testing.T) {
	r := New()
	r.RegisterRemoteBackend(&fakeRemote{scheme: "http://"})
	r.RegisterRemoteBackend(&fakeRemote{scheme: "https://"})

	rb, err := r.SelectRemoteBackend("https://example.com/a")
	require.Nil(t, err)
	assert.True(t, rb.Identify("https://example.com/a"))
}

func TestSelectRemoteBackendFailsWhenNoneRecognize(t *testing.T) {
	r := New()
	r.RegisterRemoteBackend(&fakeRemote{scheme: "http://"})

	_, err := r.SelectRemoteBackend("ftp://example.com/a")
	assert.NotNil(t, err)
}

func TestRunPostIngestHooksRunsPluginThenExtensionsInOrder(t *testing.T) {
	r := New()
	calls := []string{}
	pt := &ProductType{Name: "image", Plugin: &fakePlugin{name: "image", calls: &calls}}
	r.RegisterHookExtension(&fakeExtension{name: "a", calls: &calls})
	r.RegisterHookExtension(&fakeExtension{name: "b", calls: &calls})

	require.Nil(t, r.RunPostIngestHooks(context.Background(), pt, "id-1", properties.New()))
	assert.Equal(t, []string{"plugin:ingest", "ext:a:ingest", "ext:b:ingest"}, calls)
}

func TestRunPostIngestHooksStopsOnPluginError(t *testing.T) {
	r := New()
	calls := []string{}
	pt := &ProductType{Name: "image", Plugin: &fakePlugin{name: "image", calls: &calls, failHook: true}}
	r.RegisterHookExtension(&fakeExtension{name: "a", calls: &calls})

	err := r.RunPostIngestHooks(context.Background(), pt, "id-1", properties.New())
	assert.NotNil(t, err)
	assert.Empty(t, calls)
}

func TestRunPostRemoveHooksRunsExtensionsInReverseThenPlugin(t *testing.T) {
	r := New()
	calls := []string{}
	pt := &ProductType{Name: "image", Plugin: &fakePlugin{name: "image", calls: &calls}}
	r.RegisterHookExtension(&fakeExtension{name: "a", calls: &calls})
	r.RegisterHookExtension(&fakeExtension{name: "b", calls: &calls})

	require.Nil(t, r.RunPostRemoveHooks(context.Background(), pt, "id-1", properties.New()))
	assert.Equal(t, []string{"ext:b:remove", "ext:a:remove", "plugin:remove"}, calls)
}

func TestRunPostCreateHooksIndependentOfIngestHooks(t *testing.T) {
	r := New()
	calls := []string{}
	pt := &ProductType{Name: "image", Plugin: &fakePlugin{name: "image", calls: &calls}}

	require.Nil(t, r.RunPostCreateHooks(context.Background(), pt, "id-1", properties.New()))
	assert.Equal(t, []string{"plugin:create"}, calls)
}

// barePlugin implements only ProductTypePlugin, none of the optional hooks.
type barePlugin struct{ name string }

func (p *barePlugin) Identify(ctx context.Context, paths []string) bool { return true }

func (p *barePlugin) Analyze(ctx context.Context, paths []string) (*properties.Container, []string, apperrors.Error) {
	return properties.New(), nil, nil
}

func (p *barePlugin) ArchivePath(ctx context.Context, props *properties.Container) (string, apperrors.Error) {
	return "/" + p.name, nil
}

func TestRunHooksSkipPluginsThatDontImplementThem(t *testing.T) {
	r := New()
	pt := &ProductType{Name: "bare", Plugin: &barePlugin{name: "bare"}}

	assert.Nil(t, r.RunPostIngestHooks(context.Background(), pt, "id-1", properties.New()))
	assert.Nil(t, r.RunPostPullHooks(context.Background(), pt, "id-1", properties.New()))
	assert.Nil(t, r.RunPostRemoveHooks(context.Background(), pt, "id-1", properties.New()))
	assert.Nil(t, r.RunPostCreateHooks(context.Background(), pt, "id-1", properties.New()))
}
