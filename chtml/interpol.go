package chtml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

const (
	leftDelim  = "${"
	rightDelim = '}'
)

// Interpolation is a compiled string with ${}-style placeholders.
type Interpolation struct {
	parts []interpolPart
}

type interpolPart struct {
	text string
	prog *vm.Program // nil for literal text
	src  string
}

// Interpol compiles a string with ${}-style placeholders. If the string is a plain text with
// no placeholders, it returns (nil, nil).
func Interpol(s string) (*Interpolation, error) {
	if !strings.Contains(s, leftDelim) {
		return nil, nil
	}

	in := &Interpolation{}

	for s != "" {
		i := strings.Index(s, leftDelim)
		if i < 0 {
			in.parts = append(in.parts, interpolPart{text: s})
			break
		}
		if i > 0 {
			in.parts = append(in.parts, interpolPart{text: s[:i]})
		}
		s = s[i+len(leftDelim):]

		end, err := exprEnd(s)
		if err != nil {
			return nil, err
		}

		src := strings.TrimSpace(s[:end])
		if src == "" {
			return nil, errors.New("empty expression")
		}
		prog, err := expr.Compile(src, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", src, err)
		}
		in.parts = append(in.parts, interpolPart{prog: prog, src: src})

		s = s[end+1:]
	}

	return in, nil
}

// exprEnd returns the index of the closing delimiter of an expression, skipping over
// nested braces and quoted strings.
func exprEnd(s string) (int, error) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '{':
			depth++
		case c == rightDelim:
			if depth == 0 {
				return i, nil
			}
			depth--
		}
	}
	return 0, errors.New("unclosed expression, missing '}'")
}

// Single reports whether the interpolation consists of exactly one placeholder and no text.
// Single placeholders evaluate to the raw expression value.
func (in *Interpolation) Single() bool {
	return len(in.parts) == 1 && in.parts[0].prog != nil
}

// Eval evaluates the placeholders against env. A single placeholder yields its raw value,
// everything else is concatenated into a string.
func (in *Interpolation) Eval(env map[string]any) (any, error) {
	if in.Single() {
		return in.run(in.parts[0], env)
	}

	var sb strings.Builder
	for _, p := range in.parts {
		if p.prog == nil {
			sb.WriteString(p.text)
			continue
		}
		v, err := in.run(p, env)
		if err != nil {
			return nil, err
		}
		if v != nil {
			sb.WriteString(fmt.Sprint(v))
		}
	}
	return sb.String(), nil
}

func (in *Interpolation) run(p interpolPart, env map[string]any) (any, error) {
	v, err := expr.Run(p.prog, env)
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", p.src, err)
	}
	return v, nil
}

// truthy follows the template rules for c:if: nil, false, zero numbers and empty strings
// are false.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	}
	return true
}
