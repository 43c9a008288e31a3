package chtml

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/fatih/camelcase"
)

// Scope defines an interface for passing arguments to a Component. Scopes are organized
// hierarchically: a template spawns a child scope for every imported component.
//
// A Scope lives for one render pass. Custom implementations may embed BaseScope to carry
// additional data such as the HTTP request.
type Scope interface {
	// Spawn creates a new child scope initialized with vars.
	Spawn(vars map[string]any) Scope

	// Vars provides access to variables stored in the scope.
	Vars() map[string]any
}

// BaseScope is a base implementation of the Scope interface.
type BaseScope struct {
	vars map[string]any
}

var _ Scope = (*BaseScope)(nil)

func NewBaseScope(vars map[string]any) *BaseScope {
	if vars == nil {
		vars = map[string]any{}
	}
	return &BaseScope{vars: vars}
}

// Spawn creates a new child scope. Children do not inherit the parent variables.
func (s *BaseScope) Spawn(vars map[string]any) Scope {
	return NewBaseScope(vars)
}

func (s *BaseScope) Vars() map[string]any {
	return s.vars
}


// UnmarshalScope reads the variables from the scope and stores them in target, which must
// be a pointer to a struct or a map with string keys.
//
// Struct fields are matched by the snake_case form of their name, or by the name given in a
// `chtml:"name"` tag. A `chtml:",required"` option makes a missing or nil variable an error
// of type *MissingArgumentError. Variables with no matching field are ignored.
func UnmarshalScope(s Scope, target any) error {
	return unmarshalScope(s, target, false)
}

// UnmarshalScopeStrict works like UnmarshalScope, but rejects variables that have no
// matching struct field with *UnrecognizedArgumentError.
func UnmarshalScopeStrict(s Scope, target any) error {
	return unmarshalScope(s, target, true)
}

func unmarshalScope(s Scope, target any, strict bool) error {
	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Ptr || targetValue.IsNil() {
		return errors.New("target must be a non-nil pointer")
	}
	targetElem := targetValue.Elem()

	vars := make(map[string]any, len(s.Vars()))
	for k, v := range s.Vars() {
		vars[toSnakeCase(k)] = v
	}

	switch targetElem.Kind() {
	case reflect.Struct:
		return unmarshalStruct(vars, targetElem, strict)
	case reflect.Map:
		if targetElem.Type().Key().Kind() != reflect.String {
			return errors.New("map key must be a string")
		}
		if targetElem.IsNil() {
			targetElem.Set(reflect.MakeMap(targetElem.Type()))
		}
		elemType := targetElem.Type().Elem()
		for k, v := range vars {
			if v == nil {
				targetElem.SetMapIndex(reflect.ValueOf(k), reflect.Zero(elemType))
				continue
			}
			rv, err := convertValue(reflect.ValueOf(v), elemType)
			if err != nil {
				return &DecodeError{Key: k, Err: err}
			}
			targetElem.SetMapIndex(reflect.ValueOf(k), rv)
		}
		return nil
	default:
		return errors.New("target must be a pointer to a struct or a map")
	}
}

func unmarshalStruct(vars map[string]any, targetElem reflect.Value, strict bool) error {
	t := targetElem.Type()
	known := make(map[string]struct{}, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, required := parseFieldTag(field)
		if name == "-" {
			continue
		}
		known[name] = struct{}{}

		val, ok := vars[name]
		if !ok || val == nil {
			if required {
				return &MissingArgumentError{Name: name}
			}
			continue
		}

		rv, err := convertValue(reflect.ValueOf(val), field.Type)
		if err != nil {
			return &DecodeError{Key: name, Err: err}
		}
		targetElem.Field(i).Set(rv)
	}

	if strict {
		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k == "_" {
				continue
			}
			if _, ok := known[k]; !ok {
				return &UnrecognizedArgumentError{Name: k}
			}
		}
	}

	return nil
}

func parseFieldTag(field reflect.StructField) (name string, required bool) {
	name = toSnakeCase(field.Name)
	tag, ok := field.Tag.Lookup("chtml")
	if !ok {
		return name, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "required" {
			required = true
		}
	}
	return name, required
}

// convertValue converts from to a value assignable to type to. Pointer targets are allocated.
func convertValue(from reflect.Value, to reflect.Type) (reflect.Value, error) {
	if to.Kind() == reflect.Ptr && from.Type() != to {
		elem, err := convertValue(from, to.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(to.Elem())
		p.Elem().Set(elem)
		return p, nil
	}

	if from.Type().AssignableTo(to) {
		return from, nil
	}

	if from.Kind() == reflect.String {
		if v, ok, err := decodeString(from.String(), to); ok || err != nil {
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(v).Convert(to), nil
		}
	}

	if from.Type().ConvertibleTo(to) && (from.Kind() == to.Kind() || isNumber(from.Kind()) && isNumber(to.Kind())) {
		return from.Convert(to), nil
	}

	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", from.Type(), to)
}

// decodeString parses s into a value of kind to. ok is false when to is not a parseable kind.
func decodeString(s string, to reflect.Type) (v any, ok bool, err error) {
	if to == reflect.TypeOf(time.Duration(0)) {
		v, err = time.ParseDuration(s)
		return v, true, err
	}
	switch to.Kind() {
	case reflect.Bool:
		v, err = strconv.ParseBool(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err = strconv.ParseInt(s, 10, 64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err = strconv.ParseUint(s, 10, 64)
	case reflect.Float32, reflect.Float64:
		v, err = strconv.ParseFloat(s, 64)
	default:
		return nil, false, nil
	}
	return v, true, err
}

// MarshalScope stores the exported fields of a struct, or the entries of a map, in the scope
// variables under their snake_case names.
func MarshalScope(s Scope, src any) error {
	vars := s.Vars()
	srcValue := reflect.ValueOf(src)
	switch srcValue.Kind() {
	case reflect.Struct:
		for i := 0; i < srcValue.NumField(); i++ {
			field := srcValue.Type().Field(i)
			if !field.IsExported() {
				continue
			}
			name, _ := parseFieldTag(field)
			if name == "-" {
				continue
			}
			vars[name] = srcValue.Field(i).Interface()
		}
	case reflect.Map:
		for _, key := range srcValue.MapKeys() {
			k := toSnakeCase(fmt.Sprint(key.Interface()))
			vars[k] = srcValue.MapIndex(key).Interface()
		}
	default:
		return errors.New("source must be a struct or a map")
	}

	return nil
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// toSnakeCase converts camelCase and kebab-case names to snake_case.
// Digit runs stick to the preceding word: "color2Name" becomes "color2_name".
func toSnakeCase(s string) string {
	if s == "_" {
		return s
	}

	s = strings.ReplaceAll(s, "-", "_")

	blocks := strings.Split(s, "_")
	for i, block := range blocks {
		if block == "" {
			continue
		}
		var words []string
		for _, w := range camelcase.Split(block) {
			switch {
			case w == "":
			case isDigits(w) && len(words) > 0:
				words[len(words)-1] += w
			default:
				words = append(words, strings.ToLower(w))
			}
		}
		blocks[i] = strings.Join(words, "_")
	}

	return strings.Join(blocks, "_")
}
