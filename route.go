package colorpages

import (
	"fmt"
	"regexp"
	"strings"
)

// validIdentifierRegex matches valid route parameter names.
var validIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultRoutes binds the single path segment to the colors component.
var DefaultRoutes = []Route{
	{Pattern: "/{color}", Component: "colors"},
}

// Route binds a path pattern to a component. Patterns are root-relative; a segment of the
// form {name} matches any single non-empty segment and passes it to the component as the
// variable name.
type Route struct {
	Pattern   string
	Component string
}

// Params holds the values of the matched route parameters.
type Params map[string]string

type segment struct {
	literal string
	param   string
}

type compiledRoute struct {
	Route
	segs     []segment
	literals int
}

// Router matches URL paths against a fixed list of routes.
type Router struct {
	routes []compiledRoute
}

// NewRouter compiles the route patterns.
func NewRouter(routes ...Route) (*Router, error) {
	rt := &Router{}
	seen := map[string]string{}

	for _, r := range routes {
		cr, err := compileRoute(r)
		if err != nil {
			return nil, err
		}

		shape := routeShape(cr.segs)
		if prev, ok := seen[shape]; ok {
			return nil, fmt.Errorf("route %s: conflicts with %s", r.Pattern, prev)
		}
		seen[shape] = r.Pattern

		rt.routes = append(rt.routes, cr)
	}

	return rt, nil
}

func compileRoute(r Route) (compiledRoute, error) {
	cr := compiledRoute{Route: r}

	if r.Component == "" {
		return cr, fmt.Errorf("route %s: missing component", r.Pattern)
	}
	if !strings.HasPrefix(r.Pattern, "/") {
		return cr, fmt.Errorf("route %s: pattern must start with /", r.Pattern)
	}

	p := strings.TrimSuffix(r.Pattern[1:], "/")
	if p == "" {
		return cr, nil
	}

	params := map[string]struct{}{}
	for _, s := range strings.Split(p, "/") {
		switch {
		case s == "":
			return cr, fmt.Errorf("route %s: empty segment", r.Pattern)
		case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
			name := s[1 : len(s)-1]
			if !validIdentifierRegex.MatchString(name) {
				return cr, fmt.Errorf("route %s: invalid parameter name %q", r.Pattern, name)
			}
			if _, ok := params[name]; ok {
				return cr, fmt.Errorf("route %s: duplicate parameter %q", r.Pattern, name)
			}
			params[name] = struct{}{}
			cr.segs = append(cr.segs, segment{param: name})
		case strings.ContainsAny(s, "{}"):
			return cr, fmt.Errorf("route %s: malformed segment %q", r.Pattern, s)
		default:
			cr.segs = append(cr.segs, segment{literal: s})
			cr.literals++
		}
	}

	return cr, nil
}

// routeShape returns the pattern with parameter names erased. Two routes with the same
// shape would always match the same paths.
func routeShape(segs []segment) string {
	var sb strings.Builder
	for _, s := range segs {
		sb.WriteByte('/')
		if s.param != "" {
			sb.WriteString("{}")
		} else {
			sb.WriteString(s.literal)
		}
	}
	return sb.String()
}

// Routes returns the routes in registration order.
func (rt *Router) Routes() []Route {
	routes := make([]Route, len(rt.routes))
	for i, r := range rt.routes {
		routes[i] = r.Route
	}
	return routes
}

// Match finds the route for an escaped URL path. Each path segment is unescaped before it is
// compared or extracted; the extracted values are not otherwise modified. A single trailing
// slash is ignored. When several routes match, the one with more literal segments wins.
func (rt *Router) Match(urlPath string) (Route, Params, bool) {
	segs := splitPath(cleanPath(urlPath))

	var (
		best   *compiledRoute
		params Params
	)

	for i := range rt.routes {
		r := &rt.routes[i]
		if best != nil && r.literals <= best.literals {
			continue
		}
		if p, ok := r.match(segs); ok {
			best, params = r, p
		}
	}

	if best == nil {
		return Route{}, nil, false
	}
	return best.Route, params, true
}

func (r *compiledRoute) match(segs []string) (Params, bool) {
	if len(segs) != len(r.segs) {
		return nil, false
	}

	params := Params{}
	for i, s := range r.segs {
		switch {
		case s.param != "":
			if segs[i] == "" {
				return nil, false
			}
			params[s.param] = segs[i]
		case s.literal != segs[i]:
			return nil, false
		}
	}
	return params, true
}

// splitPath splits a clean path into unescaped segments. The root path has no segments.
func splitPath(p string) []string {
	p = strings.TrimSuffix(strings.TrimPrefix(p, "/"), "/")
	if p == "" {
		return nil
	}
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = pathUnescape(s)
	}
	return segs
}
