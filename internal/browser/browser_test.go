package browser

import (
	"context"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plugmods/internal/module"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Headless)
	assert.Equal(t, "require.s.contexts._.defined", cfg.Registry)
	assert.Contains(t, cfg.Bases, "Backbone.View")
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout())

	var zero Config
	assert.Equal(t, cfg.Registry, zero.registryExpr())
	assert.Equal(t, "require", zero.requireExpr())
	assert.Equal(t, cfg.MaxDepth, zero.maxDepth())
	assert.Equal(t, 30*time.Second, zero.NavigationTimeout())
	assert.Equal(t, 2*time.Second, Config{NavigationTimeoutMs: 2000}.NavigationTimeout())
}

func TestScriptsAreEmbedded(t *testing.T) {
	assert.Contains(t, captureJS, "$func")
	assert.Contains(t, captureJS, "JSON.stringify")
	assert.Contains(t, renderJS, "new C({ el: stub })")
	assert.NotContains(t, renderJS, ".remove()")
}

func TestOpen_RequiresURL(t *testing.T) {
	_, err := Open(context.Background(), DefaultConfig(), nil)
	assert.ErrorContains(t, err, "url is required")
}

func TestClosedSession(t *testing.T) {
	s := &Session{cfg: DefaultConfig()}
	_, err := s.Capture(context.Background())
	assert.ErrorContains(t, err, "session closed")

	_, err = s.Renderer(context.Background()).Render("k", ".x")
	assert.ErrorContains(t, err, "session closed")
	assert.NoError(t, s.Close())
}

// fakeApp defines a tiny loader registry: a model class, an instance
// sharing its prototype, a view that renders a .dialog element, and a
// view bound to the page's #app node by its prototype.
const fakeApp = `<html><body><div id="app">live</div><script>
function Model() {}
Model.prototype.defaults = { cid: "" };
function View(o) { this.el = (o && o.el) || document.createElement("div"); }
View.prototype.render = function () { this.el.innerHTML = '<p class="dialog"></p>'; return this; };
View.prototype.$ = function (s) { return this.el.querySelectorAll(s); };
View.prototype.remove = function () { this.el = null; };
function AppView(o) { this.el = (o && o.el) || document.querySelector(this.el); }
AppView.prototype.el = "#app";
AppView.prototype.render = function () { this.el.innerHTML = '<p class="dialog"></p>'; return this; };
AppView.prototype.$ = function (s) { return this.el.querySelectorAll(s); };
AppView.prototype.remove = function () { this.el.parentNode && this.el.parentNode.removeChild(this.el); };
var defined = { "de369/m": Model, "de369/i": new Model(), "de369/v": View, "de369/a": AppView, "de369/n": 0 };
window.require = function (k) { return defined[k]; };
window.require.s = { contexts: { _: { defined: defined } } };
</script></body></html>`

func TestSession_LivePage(t *testing.T) {
	if os.Getenv("PLUGMODS_BROWSER_TESTS") == "" {
		t.Skip("set PLUGMODS_BROWSER_TESTS=1 to run against a local Chrome")
	}

	cfg := DefaultConfig()
	cfg.URL = "data:text/html," + url.PathEscape(fakeApp)
	cfg.Bases = map[string]string{"Backbone.Model": "Model"}

	ctx := context.Background()
	s, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	snap, err := s.CaptureSnapshot(ctx)
	require.NoError(t, err)

	model, ok := snap.Registry.Get("de369/m")
	require.True(t, ok)
	assert.True(t, module.IsFunc(model))
	assert.Equal(t, module.String(""), module.Lookup(model, "prototype.defaults.cid"))

	inst, ok := snap.Registry.Get("de369/i")
	require.True(t, ok)
	obj, _ := module.AsObject(inst)
	require.NotNil(t, obj)
	assert.True(t, module.InstanceOf(inst, "Backbone.Model"))
	assert.Same(t, module.Get(model, "prototype"), obj.Proto, "instance prototype keeps identity")

	has, err := s.Renderer(ctx).Render("de369/v", ".dialog")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = s.Renderer(ctx).Render("de369/v", ".missing")
	require.NoError(t, err)
	assert.False(t, has)

	has, err = s.Renderer(ctx).Render("de369/a", ".dialog")
	require.NoError(t, err)
	assert.True(t, has)

	live, err := s.page.Eval(`() => { const app = document.getElementById("app"); return !!app && app.textContent === "live"; }`)
	require.NoError(t, err)
	assert.True(t, live.Value.Bool(), "rendering must not touch the page's own #app node")
}
