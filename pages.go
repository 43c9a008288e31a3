package colorpages

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/dpotapov/colorpages/chtml"

	"github.com/gorilla/websocket"
	"golang.org/x/net/html"
)

// chtmlExt is the extension of the component template files.
const chtmlExt = ".chtml"

// Names of the components the Handler renders around the routed content.
const (
	DefaultLayout         = "app"
	DefaultErrorComponent = "error"
)

//go:embed components
var embeddedComponents embed.FS

// DefaultComponents holds the built-in templates (the "app" layout, the "header" and the
// "error" page) and the static assets linked by the layout.
var DefaultComponents fs.FS

func init() {
	sub, err := fs.Sub(embeddedComponents, "components")
	if err != nil {
		panic(err)
	}
	DefaultComponents = sub
}

type Handler struct {
	// FileSystem to load component templates from. Defaults to DefaultComponents.
	FileSystem fs.FS

	// Routes is the route table. Defaults to DefaultRoutes.
	Routes []Route

	// BuiltinComponents are resolved before the FileSystem. The "colors" component is always
	// available unless overridden here.
	BuiltinComponents map[string]chtml.Component

	// Layout is the name of the component composing the page. It must declare the "title",
	// "content" and "live" inputs; content is absent when no route matched. When the
	// FileSystem holds app.css or live.js, their versioned URLs are passed as "stylesheet"
	// and "script".
	Layout string

	// Title is passed to the layout. The layout default is used when empty.
	Title string

	// DisableLive turns off live navigation over WebSocket.
	DisableLive bool

	// OnError is a callback that is called when an error occurs while serving a page.
	OnError func(*http.Request, error)

	// OnErrorComponent is the name of the component rendered in the content region when the
	// routed component fails. Defaults to DefaultErrorComponent.
	OnErrorComponent string

	// Metrics records render statistics. May be nil.
	Metrics *Metrics

	// Logger configures logging for internal events.
	Logger *slog.Logger

	init    sync.Once
	initErr error

	logger  *slog.Logger
	router  *Router
	layout  chtml.Component
	errComp chtml.Component
	assets  *assetRegistry

	mu        sync.Mutex
	templates map[string]chtml.Component
}

// wsUpgrader is used to respond to live navigation requests.
var wsUpgrader = websocket.Upgrader{}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.init.Do(h.setup)

	err := h.initErr
	if err == nil {
		err = h.handleRequest(w, r)
	}

	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		h.logger.Error("Serve HTTP request", "url", r.URL.Redacted(), "error", err)

		if h.OnError != nil {
			h.OnError(r, err)
		}
	}
}

// Init prepares the handler. It is called by the first ServeHTTP; calling it upfront
// surfaces configuration errors early.
func (h *Handler) Init() error {
	h.init.Do(h.setup)
	return h.initErr
}

func (h *Handler) setup() {
	h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if h.Logger != nil {
		h.logger = h.Logger
	}

	if h.FileSystem == nil {
		h.FileSystem = DefaultComponents
	}
	if h.Layout == "" {
		h.Layout = DefaultLayout
	}
	if h.OnErrorComponent == "" {
		h.OnErrorComponent = DefaultErrorComponent
	}
	h.templates = map[string]chtml.Component{}

	h.assets = newAssetRegistry(AssetPrefix)
	if err := h.assets.AddFromFS(h.FileSystem, stylesheetAsset, liveScriptAsset); err != nil {
		h.initErr = fmt.Errorf("load assets: %w", err)
		return
	}

	routes := h.Routes
	if len(routes) == 0 {
		routes = DefaultRoutes
	}
	router, err := NewRouter(routes...)
	if err != nil {
		h.initErr = fmt.Errorf("init router: %w", err)
		return
	}
	h.router = router

	imp := h.importer()

	h.layout, err = imp.Import(h.Layout)
	if err != nil {
		h.initErr = fmt.Errorf("import layout %s: %w", h.Layout, err)
		return
	}

	h.errComp, err = imp.Import(h.OnErrorComponent)
	if err != nil {
		h.logger.Error("Import error component", "name", h.OnErrorComponent, "error", err)
	}
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return nil
	}

	if handled, err := h.assets.ServeAsset(w, r); handled {
		// The status line is already sent; a failed write only means the client is gone.
		if err != nil {
			h.logger.Warn("Serve asset", "url", r.URL.Redacted(), "error", err)
		}
		return nil
	}

	if !h.DisableLive && websocket.IsWebSocketUpgrade(r) {
		return h.serveLive(w, r)
	}

	urlPath := cleanPath(r.URL.EscapedPath())

	doc, status, err := h.renderDocument(r, urlPath)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return nil
	}

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("render HTML: %w", err)
	}

	return nil
}

// RenderPath renders the page for urlPath to w, the same way ServeHTTP would for a GET
// request, and returns the HTTP status of the page.
func (h *Handler) RenderPath(ctx context.Context, urlPath string, w io.Writer) (int, error) {
	if err := h.Init(); err != nil {
		return 0, err
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return 0, err
	}
	u, err := url.Parse(urlPath)
	if err != nil {
		return 0, fmt.Errorf("parse path %q: %w", urlPath, err)
	}
	r.URL.Path, r.URL.RawPath = u.Path, u.RawPath

	doc, status, err := h.renderDocument(r, cleanPath(u.EscapedPath()))
	if err != nil {
		return 0, err
	}

	if err := html.Render(w, doc); err != nil {
		return 0, fmt.Errorf("render HTML: %w", err)
	}

	return status, nil
}

func (h *Handler) renderDocument(r *http.Request, urlPath string) (*html.Node, int, error) {
	start := time.Now()

	res := h.renderContent(r, urlPath)

	doc, err := h.renderLayout(r, urlPath, res)
	if err != nil {
		h.Metrics.observeRender(res.route.Pattern, outcomeError, "page", start)
		return nil, 0, err
	}

	h.Metrics.observeRender(res.route.Pattern, res.outcome(), "page", start)

	return doc, res.statusCode(urlPath), nil
}

// contentResult is the outcome of rendering the content region for a path.
type contentResult struct {
	route   Route
	params  Params
	matched bool

	// node is the rendered content region. It is nil when no route matched.
	node *html.Node

	// err is the failure of the routed component. The node then holds the error component
	// output, if any.
	err error
}

func (res contentResult) outcome() string {
	switch {
	case res.err != nil:
		return outcomeError
	case !res.matched:
		return outcomeNotFound
	}
	return outcomeOK
}

// statusCode maps the result to an HTTP status. The root path is the landing page and is
// not reported as missing.
func (res contentResult) statusCode(urlPath string) int {
	switch {
	case res.err != nil:
		return http.StatusInternalServerError
	case !res.matched && urlPath != "/":
		return http.StatusNotFound
	}
	return http.StatusOK
}

// renderContent matches urlPath and renders the routed component.
func (h *Handler) renderContent(r *http.Request, urlPath string) contentResult {
	route, params, ok := h.router.Match(urlPath)
	if !ok {
		return contentResult{}
	}

	res := contentResult{route: route, params: params, matched: true}

	args := make(map[string]any, len(params))
	for k, v := range params {
		args[k] = v
	}

	comp := NewErrorHandlerComponent(route.Component, h.importer(), h.errComp)
	defer func() {
		if err := comp.Dispose(); err != nil {
			h.logger.Error("Dispose component", "component", route.Component, "error", err)
		}
	}()

	rr, err := comp.Render(newScope(args, r, urlPath, params))
	switch {
	case err != nil:
		res.err = err
	case comp.Failed():
		res.err = comp.Err()
	}
	if res.err != nil {
		h.logger.Error("Render component", "component", route.Component, "path", urlPath, "error", res.err)
	}

	res.node = toNode(rr)
	if res.node == nil {
		// A matched route always mounts the content region.
		res.node = &html.Node{Type: html.DocumentNode}
	}

	return res
}

// renderLayout composes the header and the content region into a complete document.
func (h *Handler) renderLayout(r *http.Request, urlPath string, res contentResult) (*html.Node, error) {
	vars := map[string]any{}
	if h.Title != "" {
		vars["title"] = h.Title
	}
	if res.node != nil {
		vars["content"] = res.node
	}
	if p := h.assets.AssetPath(stylesheetAsset); p != "" {
		vars["stylesheet"] = p
	}
	if h.DisableLive {
		vars["live"] = false
	} else if p := h.assets.AssetPath(liveScriptAsset); p != "" {
		vars["script"] = p
	}

	rr, err := h.layout.Render(newScope(vars, r, urlPath, res.params))
	if err != nil {
		return nil, fmt.Errorf("render layout: %w", err)
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	if n := toNode(rr); n != nil {
		if n.Type == html.DocumentNode {
			for c := n.FirstChild; c != nil; {
				next := c.NextSibling
				n.RemoveChild(c)
				doc.AppendChild(c)
				c = next
			}
		} else {
			doc.AppendChild(n)
		}
	}

	return doc, nil
}

// toNode converts a component result to an HTML node. Strings become text nodes.
func toNode(v any) *html.Node {
	switch v := v.(type) {
	case *html.Node:
		return v
	case string:
		return &html.Node{Type: html.TextNode, Data: v}
	case nil:
		return nil
	default:
		return &html.Node{Type: html.TextNode, Data: fmt.Sprint(v)}
	}
}

// importer resolves components: BuiltinComponents first, then the built-in colors
// component, then NAME.chtml in the FileSystem. Parsed templates are cached; they are
// immutable and safe for concurrent rendering.
func (h *Handler) importer() chtml.ImporterFunc {
	var imp chtml.ImporterFunc
	imp = func(name string) (chtml.Component, error) {
		if c, ok := h.BuiltinComponents[name]; ok {
			return c, nil
		}
		if name == "colors" {
			return ColorsComponent{}, nil
		}

		h.mu.Lock()
		c, ok := h.templates[name]
		h.mu.Unlock()
		if ok {
			return c, nil
		}

		c, err := chtml.ParseFile(h.FileSystem, path.Clean(name)+chtmlExt, imp)
		if err != nil {
			if errors.Is(err, chtml.ErrComponentNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("load component %s: %w", name, err)
		}

		h.mu.Lock()
		h.templates[name] = c
		h.mu.Unlock()

		return c, nil
	}
	return imp
}

// cleanPath returns the canonical path for p, eliminating . and .. elements.
//
// Copied from net/http/server.go
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	np := path.Clean(p)
	// path.Clean removes trailing slash except for root;
	// put the trailing slash back if necessary.
	if p[len(p)-1] == '/' && np != "/" {
		// Fast path for common case of p being the string we want:
		if len(p) == len(np)+1 && strings.HasPrefix(p, np) {
			np = p
		} else {
			np += "/"
		}
	}
	return np
}

// pathUnescape returns the unescaped path segment, or the original text if it is invalidly
// escaped.
//
// Copied from net/http/routing_tree.go.
func pathUnescape(path string) string {
	u, err := url.PathUnescape(path)
	if err != nil {
		return path
	}
	return u
}
