package colorpages

import (
	"strings"

	"github.com/dpotapov/colorpages/chtml"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// BoxSize is the width and the height of the rendered color box.
const BoxSize = "500px"

// Color is a CSS color specification taken from the URL. It is passed to the browser as is:
// no validation, no normalization. Strings the browser cannot parse leave the box unfilled.
type Color string

// Style is the style descriptor of the color box.
type Style struct {
	Width           string
	Height          string
	BackgroundColor Color
}

// NewStyle returns the descriptor of a BoxSize square filled with c.
func NewStyle(c Color) Style {
	return Style{
		Width:           BoxSize,
		Height:          BoxSize,
		BackgroundColor: c,
	}
}

// cssEscaper escapes the characters that end a declaration or a block. A color containing
// them stays a single, invalid background-color value.
var cssEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	"!", `\!`,
	"{", `\{`,
	"}", `\}`,
)

// String renders the descriptor as an inline CSS declaration list. The color is escaped so
// that it never adds declarations of its own.
func (s Style) String() string {
	return "width: " + s.Width + "; height: " + s.Height + "; background-color: " + cssEscaper.Replace(string(s.BackgroundColor))
}

// Map returns the descriptor keyed by the DOM style property names.
func (s Style) Map() map[string]string {
	return map[string]string{
		"width":           s.Width,
		"height":          s.Height,
		"backgroundColor": string(s.BackgroundColor),
	}
}

// Node returns an empty <div> styled with the descriptor.
func (s Style) Node() *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "style", Val: s.String()}},
	}
}

// ColorsComponent renders the color box for the "color" scope variable.
// The variable is required; any other variable is rejected.
type ColorsComponent struct{}

var _ chtml.Component = ColorsComponent{}

type colorsArgs struct {
	Color *Color `chtml:",required"`
}

func (ColorsComponent) Render(s chtml.Scope) (any, error) {
	var args colorsArgs
	if err := chtml.UnmarshalScopeStrict(s, &args); err != nil {
		return nil, err
	}
	return NewStyle(*args.Color).Node(), nil
}
