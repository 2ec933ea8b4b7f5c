package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ArgType is the primitive type of a tool argument.
type ArgType string

const (
	TypeString  ArgType = "string"
	TypeInteger ArgType = "integer"
	TypeBoolean ArgType = "boolean"
)

// ArgSpec declares one named argument of a tool.
type ArgSpec struct {
	Name        string
	Type        ArgType
	Required    bool
	Description string
}

// ArgError reports a missing or mistyped argument.
type ArgError struct {
	Name     string
	Expected ArgType
	Missing  bool
}

func (e *ArgError) Error() string {
	if e.Missing {
		return "Missing required argument: " + e.Name
	}
	return fmt.Sprintf("Invalid argument '%s': expected %s", e.Name, e.Expected)
}

// Args holds validated call arguments. Accessors assume Validate has passed
// and return the zero value for absent optional arguments.
type Args map[string]any

// Validate checks presence of required arguments and the primitive type of
// every declared argument that is present. Undeclared arguments are ignored.
// Integers are normalised to int64 in place.
func (a Args) Validate(specs []ArgSpec) error {
	for _, spec := range specs {
		v, ok := a[spec.Name]
		if !ok || v == nil {
			if spec.Required {
				return &ArgError{Name: spec.Name, Expected: spec.Type, Missing: true}
			}
			delete(a, spec.Name)
			continue
		}

		switch spec.Type {
		case TypeString:
			s, ok := v.(string)
			if !ok {
				return &ArgError{Name: spec.Name, Expected: spec.Type}
			}
			if spec.Required && s == "" {
				return &ArgError{Name: spec.Name, Expected: spec.Type, Missing: true}
			}
		case TypeInteger:
			n, ok := toInt64(v)
			if !ok {
				return &ArgError{Name: spec.Name, Expected: spec.Type}
			}
			a[spec.Name] = n
		case TypeBoolean:
			if _, ok := v.(bool); !ok {
				return &ArgError{Name: spec.Name, Expected: spec.Type}
			}
		}
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// Has reports whether name was supplied.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// String returns a string argument.
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// OptString returns a pointer to a string argument, or nil when absent.
func (a Args) OptString(name string) *string {
	s, ok := a[name].(string)
	if !ok {
		return nil
	}
	return &s
}

// Int returns an integer argument.
func (a Args) Int(name string) int64 {
	n, _ := toInt64(a[name])
	return n
}

// Bool returns a boolean argument.
func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}
