package colorpages

import (
	"net/http"

	"github.com/dpotapov/colorpages/chtml"
)

// scope wraps chtml.BaseScope to carry the request being rendered.
type scope struct {
	*chtml.BaseScope
	globals *scopeGlobals
}

type scopeGlobals struct {
	req   *http.Request
	path  string
	route Params
}

var _ chtml.Scope = (*scope)(nil)

func newScope(vars map[string]any, req *http.Request, path string, route Params) *scope {
	return &scope{
		BaseScope: chtml.NewBaseScope(vars),
		globals: &scopeGlobals{
			req:   req,
			path:  path,
			route: route,
		},
	}
}

func (s *scope) Spawn(vars map[string]any) chtml.Scope {
	return &scope{
		BaseScope: s.BaseScope.Spawn(vars).(*chtml.BaseScope),
		globals:   s.globals,
	}
}

// RequestFromScope returns the HTTP request a scope was created for.
func RequestFromScope(s chtml.Scope) (*http.Request, bool) {
	if v, ok := s.(*scope); ok && v.globals.req != nil {
		return v.globals.req, true
	}
	return nil, false
}

// RouteFromScope returns the rendered path and the matched route parameters.
// Params is nil when the path matched no route.
func RouteFromScope(s chtml.Scope) (string, Params, bool) {
	if v, ok := s.(*scope); ok {
		return v.globals.path, v.globals.route, true
	}
	return "", nil, false
}
