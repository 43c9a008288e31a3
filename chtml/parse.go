package chtml

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/beevik/etree"
)

// nsComponent is the XML namespace prefix of component imports and directives.
const nsComponent = "c"

// rootTag is the optional root element declaring the component inputs.
const rootTag = "component"

// ifAttr is the conditional rendering directive.
const ifAttr = "if"

// template is a parsed CHTML document. It is immutable after Parse and may be rendered
// concurrently.
type template struct {
	name string

	// root is the element holding the rendered content. For <c:component> documents this is
	// the <c:component> element itself and only its children are rendered.
	root *etree.Element

	// wrapped is true when the document root is a <c:component> element.
	wrapped bool

	// args holds the declared inputs and their default values.
	args map[string]*Interpolation

	// argDefaults holds literal default values for args with no placeholders.
	argDefaults map[string]string

	// attrs and texts hold compiled placeholders for element attributes and text nodes.
	attrs map[*etree.Element]map[string]*Interpolation
	texts map[*etree.CharData]*Interpolation

	importer Importer
}

// Parse reads a CHTML document from r. The name is used in error messages.
func Parse(name string, r io.Reader, imp Importer) (Component, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	doc.ReadSettings.PreserveCData = true

	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("parse %s: document has no root element", name)
	}

	t := &template{
		name:        name,
		root:        root,
		wrapped:     root.Space == nsComponent && root.Tag == rootTag,
		args:        map[string]*Interpolation{},
		argDefaults: map[string]string{},
		attrs:       map[*etree.Element]map[string]*Interpolation{},
		texts:       map[*etree.CharData]*Interpolation{},
		importer:    imp,
	}

	if t.wrapped {
		for _, a := range root.Attr {
			key := toSnakeCase(a.Key)
			in, err := Interpol(a.Value)
			if err != nil {
				return nil, newComponentError(name, root, fmt.Errorf("arg %s: %w", a.Key, err))
			}
			t.args[key] = in
			t.argDefaults[key] = a.Value
		}
	}

	if err := t.compile(root); err != nil {
		return nil, err
	}

	return t, nil
}

// ParseFile reads a CHTML document from fsys. Missing files yield ErrComponentNotFound.
func ParseFile(fsys fs.FS, path string, imp Importer) (Component, error) {
	f, err := fsys.Open(strings.TrimPrefix(path, "/"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrComponentNotFound
		}
		return nil, err
	}
	defer f.Close()

	return Parse(path, f, imp)
}

// compile walks the element tree and compiles every placeholder.
func (t *template) compile(el *etree.Element) error {
	if el != t.root || !t.wrapped {
		compiled := map[string]*Interpolation{}
		for _, a := range el.Attr {
			in, err := Interpol(a.Value)
			if err != nil {
				return newComponentError(t.name, el, fmt.Errorf("attribute %s: %w", a.FullKey(), err))
			}
			if in != nil {
				compiled[a.FullKey()] = in
			}
		}
		if len(compiled) > 0 {
			t.attrs[el] = compiled
		}
	}

	for _, c := range el.Child {
		switch c := c.(type) {
		case *etree.Element:
			if err := t.compile(c); err != nil {
				return err
			}
		case *etree.CharData:
			if c.IsCData() {
				continue
			}
			in, err := Interpol(c.Data)
			if err != nil {
				return newComponentError(t.name, c, err)
			}
			if in != nil {
				t.texts[c] = in
			}
		}
	}

	return nil
}
