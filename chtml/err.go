package chtml

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
)

// MissingArgumentError is returned when a required input is absent from the scope.
type MissingArgumentError struct {
	Name string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("missing required argument %s", e.Name)
}

// UnrecognizedArgumentError is returned when the scope carries a variable the component
// does not declare.
type UnrecognizedArgumentError struct {
	Name string
}

func (e *UnrecognizedArgumentError) Error() string {
	return fmt.Sprintf("unrecognized argument %s", e.Name)
}

// DecodeError is returned by UnmarshalScope when a variable cannot be converted to the
// target field type.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ComponentError ties an error to the template element it was raised for.
type ComponentError struct {
	name string
	err  error
	path string
	doc  *etree.Element
}

func newComponentError(compName string, t etree.Token, err error) *ComponentError {
	path := ""
	if el, ok := t.(*etree.Element); ok {
		path = el.GetPath()
	} else if p := t.Parent(); p != nil {
		path = p.GetPath()
	}
	return &ComponentError{
		name: compName,
		err:  err,
		path: path,
		doc:  buildErrorContext(t),
	}
}

func (e *ComponentError) Error() string {
	return e.name + ":" + e.path + ": " + e.err.Error()
}

func (e *ComponentError) Unwrap() error {
	return e.err
}

// Component returns the name of the component the error was raised in.
func (e *ComponentError) Component() string {
	return e.name
}

// Path returns the element path within the component template, e.g. "/div/span".
func (e *ComponentError) Path() string {
	return e.path
}

// HTMLContext renders the failed element together with its nearest siblings and parent.
func (e *ComponentError) HTMLContext() string {
	return renderErrorContext(e.doc)
}

// errorContextBuilder groups helpers for building error context trees.
type errorContextBuilder struct{}

func (b errorContextBuilder) addPrevSiblings(doc *etree.Element, t etree.Token) {
	if t.Parent() == nil {
		return
	}

	siblings, i := t.Parent().Child, t.Index()

	var prev []etree.Token
	more := false
	for j := i - 1; j >= 0; j-- {
		if cd, ok := siblings[j].(*etree.CharData); ok && cd.IsWhitespace() {
			continue
		}
		if len(prev) == 2 {
			more = true
			break
		}
		prev = append(prev, siblings[j])
	}
	if more {
		doc.AddChild(etree.NewText("..."))
	}
	for j := len(prev) - 1; j >= 0; j-- {
		b.addToken(doc, prev[j])
	}
}

func (b errorContextBuilder) addNextSiblings(doc *etree.Element, t etree.Token) {
	if t.Parent() == nil {
		return
	}

	siblings, i := t.Parent().Child, t.Index()

	n := 0
	for j := i + 1; j < len(siblings); j++ {
		if cd, ok := siblings[j].(*etree.CharData); ok && cd.IsWhitespace() {
			continue
		}
		if n == 2 {
			doc.AddChild(etree.NewText("..."))
			return
		}
		b.addToken(doc, siblings[j])
		n++
	}
}

// addToken appends a shallow copy of t: elements keep their attributes, children are elided.
func (b errorContextBuilder) addToken(doc *etree.Element, t etree.Token) {
	switch el := t.(type) {
	case *etree.Element:
		clone := etree.NewElement(el.FullTag())
		clone.Attr = make([]etree.Attr, len(el.Attr))
		copy(clone.Attr, el.Attr)
		if len(el.Child) > 0 {
			clone.AddChild(etree.NewText("..."))
		}
		doc.AddChild(clone)
	case *etree.CharData:
		if !el.IsWhitespace() {
			doc.AddChild(etree.NewText(el.Data))
		}
	}
}

func (b errorContextBuilder) wrapParent(doc *etree.Element, t etree.Token) *etree.Element {
	parent := t.Parent()
	if parent == nil || parent.Tag == "" {
		return doc
	}

	doc.Space = parent.Space
	doc.Tag = parent.Tag
	doc.Attr = make([]etree.Attr, len(parent.Attr))
	copy(doc.Attr, parent.Attr)

	wrapper := &etree.Element{}
	wrapper.AddChild(doc)

	return wrapper
}

// buildErrorContext creates an XML tree around the token t to provide context for an error.
func buildErrorContext(t etree.Token) *etree.Element {
	doc := &etree.Element{}
	b := errorContextBuilder{}
	b.addPrevSiblings(doc, t)
	b.addToken(doc, t)
	b.addNextSiblings(doc, t)
	return b.wrapParent(doc, t)
}

func renderErrorContext(doc *etree.Element) string {
	dst := &html.Node{Type: html.DocumentNode}

	var render func(*html.Node, *etree.Element)
	render = func(dst *html.Node, src *etree.Element) {
		for _, c := range src.Child {
			switch t := c.(type) {
			case *etree.Element:
				n := &html.Node{Type: html.ElementNode, Data: t.FullTag()}
				for _, a := range t.Attr {
					n.Attr = append(n.Attr, html.Attribute{Key: a.FullKey(), Val: a.Value})
				}
				dst.AppendChild(n)
				render(n, t)
			case *etree.CharData:
				dst.AppendChild(&html.Node{Type: html.TextNode, Data: t.Data})
			}
		}
	}

	render(dst, doc)

	var buf strings.Builder
	_ = html.Render(&buf, dst)

	return buf.String()
}
