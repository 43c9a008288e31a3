package chtml

import (
	"errors"
	"fmt"
	"sort"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var _ Component = (*template)(nil)

// renderer holds the state of a single render pass of a template.
type renderer struct {
	t     *template
	scope Scope
	env   map[string]any
	errs  []error
}

// Render evaluates the template against the scope variables. The result is an *html.Node:
// the root element, or a DocumentNode holding the children of <c:component>.
func (t *template) Render(s Scope) (any, error) {
	env := map[string]any{}

	// Undeclared inputs are rejected, declared ones fall back to their defaults.
	vars := make(map[string]any, len(s.Vars()))
	for k, v := range s.Vars() {
		vars[toSnakeCase(k)] = v
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "_" {
			continue
		}
		if _, ok := t.args[k]; !ok {
			return nil, &UnrecognizedArgumentError{Name: k}
		}
	}

	// Given inputs and literal defaults come first, so expression defaults can refer to
	// them. Expression defaults are then evaluated in name order.
	var exprArgs []string
	for k, in := range t.args {
		if v, ok := vars[k]; ok {
			env[k] = v
			continue
		}
		if in == nil {
			env[k] = t.argDefaults[k]
			continue
		}
		exprArgs = append(exprArgs, k)
	}
	sort.Strings(exprArgs)

	for _, k := range exprArgs {
		v, err := t.args[k].Eval(env)
		if err != nil {
			return nil, newComponentError(t.name, t.root, fmt.Errorf("default %s: %w", k, err))
		}
		env[k] = v
	}
	if v, ok := vars["_"]; ok {
		env["_"] = v
	}

	r := &renderer{t: t, scope: s, env: env}

	out := &html.Node{Type: html.DocumentNode}
	if t.wrapped {
		r.renderChildren(out, t.root)
	} else {
		r.renderElement(out, t.root)
		if c := out.FirstChild; c != nil && c == out.LastChild {
			out.RemoveChild(c)
			out = c
		}
	}

	return out, errors.Join(r.errs...)
}

func (r *renderer) error(t etree.Token, err error) {
	r.errs = append(r.errs, newComponentError(r.t.name, t, err))
}

func (r *renderer) renderChildren(dst *html.Node, el *etree.Element) {
	for _, c := range el.Child {
		switch c := c.(type) {
		case *etree.Element:
			r.renderElement(dst, c)
		case *etree.CharData:
			r.renderText(dst, c)
		}
	}
}

func (r *renderer) renderText(dst *html.Node, cd *etree.CharData) {
	in, ok := r.t.texts[cd]
	if !ok {
		dst.AppendChild(&html.Node{Type: html.TextNode, Data: cd.Data})
		return
	}

	v, err := in.Eval(r.env)
	if err != nil {
		r.error(cd, err)
		return
	}
	appendValue(dst, v)
}

func (r *renderer) renderElement(dst *html.Node, el *etree.Element) {
	attrs := r.t.attrs[el]

	// c:if is evaluated before anything else so hidden subtrees cost nothing.
	for _, a := range el.Attr {
		if a.Space != nsComponent || a.Key != ifAttr {
			continue
		}
		v, err := r.attrValue(el, a, attrs)
		if err != nil {
			r.error(el, err)
			return
		}
		if !truthy(v) {
			return
		}
	}

	if el.Space == nsComponent {
		r.renderImport(dst, el, attrs)
		return
	}

	n := &html.Node{
		Type:     html.ElementNode,
		Data:     el.Tag,
		DataAtom: atom.Lookup([]byte(el.Tag)),
	}

	for _, a := range el.Attr {
		if a.Space == nsComponent {
			continue
		}
		v, err := r.attrValue(el, a, attrs)
		if err != nil {
			r.error(el, err)
			continue
		}
		switch v := v.(type) {
		case nil:
		case bool:
			if v {
				n.Attr = append(n.Attr, html.Attribute{Key: a.FullKey()})
			}
		default:
			n.Attr = append(n.Attr, html.Attribute{Key: a.FullKey(), Val: fmt.Sprint(v)})
		}
	}

	r.renderChildren(n, el)
	dst.AppendChild(n)
}

// renderImport renders <c:NAME attr="..."> by importing NAME and passing the evaluated
// attributes as the child scope variables.
func (r *renderer) renderImport(dst *html.Node, el *etree.Element, attrs map[string]*Interpolation) {
	if r.t.importer == nil {
		r.error(el, fmt.Errorf("import %s: %w", el.Tag, ErrComponentNotFound))
		return
	}

	comp, err := r.t.importer.Import(el.Tag)
	if err != nil {
		r.error(el, fmt.Errorf("import %s: %w", el.Tag, err))
		return
	}
	defer func() {
		if err := Dispose(comp); err != nil {
			r.error(el, fmt.Errorf("dispose %s: %w", el.Tag, err))
		}
	}()

	vars := map[string]any{}
	for _, a := range el.Attr {
		if a.Space == nsComponent && a.Key == ifAttr {
			continue
		}
		v, err := r.attrValue(el, a, attrs)
		if err != nil {
			r.error(el, err)
			return
		}
		vars[toSnakeCase(a.Key)] = v
	}

	if len(el.Child) > 0 {
		body := &html.Node{Type: html.DocumentNode}
		r.renderChildren(body, el)
		if body.FirstChild != nil {
			vars["_"] = body
		}
	}

	v, err := comp.Render(r.scope.Spawn(vars))
	if err != nil {
		// Nested component errors already carry their own location.
		var ce *ComponentError
		if errors.As(err, &ce) {
			r.errs = append(r.errs, err)
		} else {
			r.error(el, err)
		}
	}
	appendValue(dst, v)
}

func (r *renderer) attrValue(el *etree.Element, a etree.Attr, compiled map[string]*Interpolation) (any, error) {
	in, ok := compiled[a.FullKey()]
	if !ok {
		return a.Value, nil
	}
	v, err := in.Eval(r.env)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", a.FullKey(), err)
	}
	return v, nil
}

// appendValue appends a rendered value to dst. Document nodes are unwrapped, strings become
// text and nil values are skipped.
func appendValue(dst *html.Node, v any) {
	switch v := v.(type) {
	case nil:
	case *html.Node:
		if v == nil {
			return
		}
		if v.Type == html.DocumentNode {
			for c := v.FirstChild; c != nil; {
				next := c.NextSibling
				v.RemoveChild(c)
				dst.AppendChild(c)
				c = next
			}
			return
		}
		if v.Parent != nil {
			v.Parent.RemoveChild(v)
		}
		dst.AppendChild(v)
	case string:
		dst.AppendChild(&html.Node{Type: html.TextNode, Data: v})
	default:
		dst.AppendChild(&html.Node{Type: html.TextNode, Data: fmt.Sprint(v)})
	}
}
