package chtml

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type shade string

func TestUnmarshalScope_Struct(t *testing.T) {
	var args struct {
		Color    *string `chtml:",required"`
		Shade    shade
		Width    int
		Visible  bool
		Delay    time.Duration
		Ratio    float64
		Internal string `chtml:"-"`
	}

	s := NewBaseScope(map[string]any{
		"color":   "blue",
		"shade":   "dark",
		"width":   "500",
		"visible": "true",
		"delay":   "1s",
		"ratio":   2,
		"extra":   "ignored",
	})

	require.NoError(t, UnmarshalScope(s, &args))
	require.NotNil(t, args.Color)
	require.Equal(t, "blue", *args.Color)
	require.Equal(t, shade("dark"), args.Shade)
	require.Equal(t, 500, args.Width)
	require.True(t, args.Visible)
	require.Equal(t, time.Second, args.Delay)
	require.Equal(t, 2.0, args.Ratio)
	require.Empty(t, args.Internal)
}

func TestUnmarshalScope_Required(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]any
	}{
		{"absent", map[string]any{}},
		{"nil", map[string]any{"color": nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args struct {
				Color string `chtml:"color,required"`
			}
			err := UnmarshalScope(NewBaseScope(tt.vars), &args)

			var mae *MissingArgumentError
			require.True(t, errors.As(err, &mae), "got %v", err)
			require.Equal(t, "color", mae.Name)
		})
	}
}

func TestUnmarshalScope_RequiredEmptyString(t *testing.T) {
	var args struct {
		Color string `chtml:",required"`
	}
	require.NoError(t, UnmarshalScope(NewBaseScope(map[string]any{"color": ""}), &args))
	require.Equal(t, "", args.Color)
}

func TestUnmarshalScopeStrict(t *testing.T) {
	var args struct {
		Color string
	}

	err := UnmarshalScopeStrict(NewBaseScope(map[string]any{"color": "red", "size": "xl"}), &args)

	var uae *UnrecognizedArgumentError
	require.True(t, errors.As(err, &uae), "got %v", err)
	require.Equal(t, "size", uae.Name)

	// The "_" variable carries a component body and is always accepted.
	err = UnmarshalScopeStrict(NewBaseScope(map[string]any{"color": "red", "_": "body"}), &args)
	require.NoError(t, err)
	require.Equal(t, "red", args.Color)
}

func TestUnmarshalScope_DecodeError(t *testing.T) {
	var args struct {
		Width int
	}
	err := UnmarshalScope(NewBaseScope(map[string]any{"width": "wide"}), &args)

	var de *DecodeError
	require.True(t, errors.As(err, &de), "got %v", err)
	require.Equal(t, "width", de.Key)
}

func TestUnmarshalScope_Map(t *testing.T) {
	got := map[string]string{}
	err := UnmarshalScope(NewBaseScope(map[string]any{"backgroundColor": "red", "width": "500px"}), &got)
	require.NoError(t, err)

	want := map[string]string{"background_color": "red", "width": "500px"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UnmarshalScope() mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalScope_InvalidTarget(t *testing.T) {
	s := NewBaseScope(nil)
	var str string
	require.Error(t, UnmarshalScope(s, str))
	require.Error(t, UnmarshalScope(s, &str))
	require.Error(t, UnmarshalScope(s, &map[int]string{}))
}

func TestMarshalScope(t *testing.T) {
	s := NewBaseScope(nil)
	src := struct {
		BackgroundColor string
		Width           int `chtml:"w"`
		hidden          bool
	}{BackgroundColor: "red", Width: 500}

	require.NoError(t, MarshalScope(s, src))

	want := map[string]any{"background_color": "red", "w": 500}
	if diff := cmp.Diff(want, s.Vars()); diff != "" {
		t.Errorf("MarshalScope() mismatch (-want +got):\n%s", diff)
	}
	require.Error(t, MarshalScope(s, "str"))
}

func TestBaseScope_Spawn(t *testing.T) {
	root := NewBaseScope(map[string]any{"a": 1})
	child := root.Spawn(map[string]any{"b": 2})

	require.Equal(t, map[string]any{"b": 2}, child.Vars())
	require.Equal(t, map[string]any{"a": 1}, root.Vars())
	require.NotNil(t, root.Spawn(nil).Vars())
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"color", "color"},
		{"Color", "color"},
		{"backgroundColor", "background_color"},
		{"background-color", "background_color"},
		{"ID", "id"},
		{"HTMLContent", "html_content"},
		{"color2Name", "color2_name"},
		{"_", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := toSnakeCase(tt.in); got != tt.want {
				t.Errorf("toSnakeCase(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
