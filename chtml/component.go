package chtml

import (
	"errors"
)

// ErrComponentNotFound is returned by an Importer when it does not know the requested component.
var ErrComponentNotFound = errors.New("component not found")

type Component interface {
	// Render transforms the input data from the scope into another data object, typically
	// an HTML node (*html.Node) or anything else that can be passed to another Component
	// as an input.
	Render(s Scope) (any, error)
}

// Disposable is an optional interface for components that hold resources between renders.
type Disposable interface {
	// Dispose releases any resources held by the component.
	Dispose() error
}

// ComponentFunc is an adapter to allow the use of ordinary functions as components.
type ComponentFunc func(s Scope) (any, error)

var _ Component = ComponentFunc(nil)

func (f ComponentFunc) Render(s Scope) (any, error) {
	return f(s)
}

// Importer resolves a component by name. It is invoked when a <c:NAME> element is
// encountered in a template.
type Importer interface {
	Import(name string) (Component, error)
}

// ImporterFunc is an adapter to allow the use of ordinary functions as importers.
type ImporterFunc func(name string) (Component, error)

func (f ImporterFunc) Import(name string) (Component, error) {
	return f(name)
}

// Dispose calls Dispose on c if it implements Disposable.
func Dispose(c Component) error {
	if d, ok := c.(Disposable); ok {
		return d.Dispose()
	}
	return nil
}
