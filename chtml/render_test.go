package chtml

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func renderString(t *testing.T, v any) string {
	t.Helper()
	n, ok := v.(*html.Node)
	require.True(t, ok, "expected *html.Node, got %T", v)
	var sb strings.Builder
	require.NoError(t, html.Render(&sb, n))
	return sb.String()
}

func badgeImporter() Importer {
	return ImporterFunc(func(name string) (Component, error) {
		if name != "badge" {
			return nil, ErrComponentNotFound
		}
		return ComponentFunc(func(s Scope) (any, error) {
			var args struct {
				Label string `chtml:",required"`
			}
			if err := UnmarshalScope(s, &args); err != nil {
				return nil, err
			}
			b := &html.Node{Type: html.ElementNode, Data: "b", DataAtom: atom.B}
			b.AppendChild(&html.Node{Type: html.TextNode, Data: args.Label})
			if body, ok := s.Vars()["_"].(*html.Node); ok {
				appendValue(b, body)
			}
			return b, nil
		}), nil
	})
}

func TestTemplate_Render(t *testing.T) {
	tests := []struct {
		name string
		src  string
		vars map[string]any
		want string
	}{
		{
			name: "static element",
			src:  `<header><h1>colors</h1></header>`,
			want: `<header><h1>colors</h1></header>`,
		},
		{
			name: "default args",
			src:  `<c:component color="red"><div style="background-color: ${color}"></div></c:component>`,
			want: `<div style="background-color: red"></div>`,
		},
		{
			name: "args override defaults",
			src:  `<c:component color="red"><div style="background-color: ${color}"></div></c:component>`,
			vars: map[string]any{"color": "blue"},
			want: `<div style="background-color: blue"></div>`,
		},
		{
			name: "text interpolation",
			src:  `<c:component name="box"><p>name: ${name}</p></c:component>`,
			want: `<p>name: box</p>`,
		},
		{
			name: "several root children",
			src:  `<c:component><p>a</p><p>b</p></c:component>`,
			want: `<p>a</p><p>b</p>`,
		},
		{
			name: "c:if hides element",
			src:  `<c:component show="${false}"><p c:if="${show}">hidden</p><p>shown</p></c:component>`,
			want: `<p>shown</p>`,
		},
		{
			name: "c:if shows element",
			src:  `<c:component show="${true}"><p c:if="${show}">visible</p></c:component>`,
			want: `<p>visible</p>`,
		},
		{
			name: "boolean attributes",
			src:  `<c:component><input disabled="${true}" hidden="${false}"/></c:component>`,
			want: `<input disabled=""/>`,
		},
		{
			name: "import component",
			src:  `<c:component><div><c:badge label="new"/></div></c:component>`,
			want: `<div><b>new</b></div>`,
		},
		{
			name: "import component with body",
			src:  `<c:component><c:badge label="x"><i>y</i></c:badge></c:component>`,
			want: `<b>x<i>y</i></b>`,
		},
		{
			name: "conditional import",
			src:  `<c:component><c:badge c:if="${false}" label="x"/></c:component>`,
			want: ``,
		},
		{
			name: "splice node",
			src:  `<c:component content="${nil}"><main c:if="${content != nil}">${content}</main></c:component>`,
			vars: map[string]any{"content": &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}},
			want: `<main><div></div></main>`,
		},
		{
			name: "missing node",
			src:  `<c:component content="${nil}"><main c:if="${content != nil}">${content}</main><footer></footer></c:component>`,
			want: `<footer></footer>`,
		},
		{
			name: "cdata is kept verbatim",
			src:  `<c:component><script><![CDATA[if (a && b) { go("${x}") }]]></script></c:component>`,
			want: `<script>if (a && b) { go("${x}") }</script>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp, err := Parse(tt.name, strings.NewReader(tt.src), badgeImporter())
			require.NoError(t, err)

			got, err := comp.Render(NewBaseScope(tt.vars))
			require.NoError(t, err)
			require.Equal(t, tt.want, renderString(t, got))
		})
	}
}

func TestTemplate_DefaultsSeeOtherInputs(t *testing.T) {
	src := `<c:component color="red" label="${upper(color)}" title="${label + '!'}"><p title="${title}">${label}</p></c:component>`
	c, err := Parse("defaults", strings.NewReader(src), nil)
	require.NoError(t, err)

	// Map iteration order varies between runs; the result must not.
	for i := 0; i < 20; i++ {
		rr, err := c.Render(NewBaseScope(nil))
		require.NoError(t, err)
		require.Equal(t, `<p title="RED!">RED</p>`, renderString(t, rr))

		rr, err = c.Render(NewBaseScope(map[string]any{"color": "blue"}))
		require.NoError(t, err)
		require.Equal(t, `<p title="BLUE!">BLUE</p>`, renderString(t, rr))
	}
}

func TestTemplate_UnrecognizedArgument(t *testing.T) {
	comp, err := Parse("box", strings.NewReader(`<c:component color=""><div/></c:component>`), nil)
	require.NoError(t, err)

	_, err = comp.Render(NewBaseScope(map[string]any{"color": "red", "size": 1}))

	var uae *UnrecognizedArgumentError
	require.True(t, errors.As(err, &uae), "got %v", err)
	require.Equal(t, "size", uae.Name)
}

func TestTemplate_StaticRejectsArguments(t *testing.T) {
	comp, err := Parse("header", strings.NewReader(`<header></header>`), nil)
	require.NoError(t, err)

	_, err = comp.Render(NewBaseScope(map[string]any{"color": "red"}))

	var uae *UnrecognizedArgumentError
	require.True(t, errors.As(err, &uae), "got %v", err)
}

func TestTemplate_ImportErrors(t *testing.T) {
	src := `<c:component><div><p>before</p><c:missing/></div></c:component>`
	comp, err := Parse("page", strings.NewReader(src), badgeImporter())
	require.NoError(t, err)

	rr, err := comp.Render(NewBaseScope(nil))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrComponentNotFound))

	var ce *ComponentError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, "page", ce.Component())
	require.Contains(t, ce.Path(), "missing")
	require.Contains(t, ce.HTMLContext(), "<p>...</p>")

	// The rest of the document is still rendered.
	require.Equal(t, `<div><p>before</p></div>`, renderString(t, rr))
}

func TestTemplate_MissingRequiredArgument(t *testing.T) {
	comp, err := Parse("page", strings.NewReader(`<c:component><c:badge/></c:component>`), badgeImporter())
	require.NoError(t, err)

	_, err = comp.Render(NewBaseScope(nil))

	var mae *MissingArgumentError
	require.True(t, errors.As(err, &mae), "got %v", err)
	require.Equal(t, "label", mae.Name)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty document", ``},
		{"unclosed placeholder", `<div class="${x"></div>`},
		{"invalid expression", `<p>${ 1 + }</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.name, strings.NewReader(tt.src), nil)
			require.Error(t, err)
		})
	}
}

func TestParseFile(t *testing.T) {
	fsys := fstest.MapFS{
		"components/header.chtml": {Data: []byte(`<header>colors</header>`)},
	}

	comp, err := ParseFile(fsys, "/components/header.chtml", nil)
	require.NoError(t, err)

	rr, err := comp.Render(NewBaseScope(nil))
	require.NoError(t, err)
	require.Equal(t, `<header>colors</header>`, renderString(t, rr))

	_, err = ParseFile(fsys, "components/footer.chtml", nil)
	require.ErrorIs(t, err, ErrComponentNotFound)
}
