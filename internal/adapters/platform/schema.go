package platform

import (
	"fmt"
	"sort"
)

// Violation is one structural mismatch between a response body and its
// declared schema.
type Violation struct {
	Path    string
	Value   any
	Message string
}

// ResponseValidationError is the single condition under which the client
// returns an error for a completed HTTP exchange: the upstream service is
// trusted to honor its contract, so a malformed body is an integration bug,
// not a transient condition worth retrying or an outcome worth branching on.
type ResponseValidationError struct {
	Violations []Violation
}

func (e *ResponseValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "response validation failed"
	}
	v := e.Violations[0]
	return fmt.Sprintf("response validation failed at %s: %s (value: %v)", v.Path, v.Message, v.Value)
}

// Schema is a declared structural shape for a decoded JSON value.
type Schema interface {
	check(path string, value any) []Violation
}

type schemaFn func(path string, value any) []Violation

func (f schemaFn) check(path string, value any) []Violation { return f(path, value) }

// String declares a JSON string.
func String() Schema {
	return schemaFn(func(path string, v any) []Violation {
		if _, ok := v.(string); !ok {
			return []Violation{{Path: path, Value: v, Message: "expected string"}}
		}
		return nil
	})
}

// Number declares a JSON number.
func Number() Schema {
	return schemaFn(func(path string, v any) []Violation {
		if _, ok := v.(float64); !ok {
			return []Violation{{Path: path, Value: v, Message: "expected number"}}
		}
		return nil
	})
}

// Bool declares a JSON boolean.
func Bool() Schema {
	return schemaFn(func(path string, v any) []Violation {
		if _, ok := v.(bool); !ok {
			return []Violation{{Path: path, Value: v, Message: "expected boolean"}}
		}
		return nil
	})
}

// Any accepts any present value.
func Any() Schema {
	return schemaFn(func(string, any) []Violation { return nil })
}

// Optional accepts an absent or null value, otherwise defers to inner.
func Optional(inner Schema) Schema {
	return schemaFn(func(path string, v any) []Violation {
		if v == nil {
			return nil
		}
		return inner.check(path, v)
	})
}

// Object declares a JSON object with the given required fields. Fields not
// listed are ignored; upstream platforms add fields without notice.
func Object(fields map[string]Schema) Schema {
	return schemaFn(func(path string, v any) []Violation {
		obj, ok := v.(map[string]any)
		if !ok {
			return []Violation{{Path: path, Value: v, Message: "expected object"}}
		}
		var out []Violation
		for _, name := range sortedKeys(fields) {
			child := joinPath(path, name)
			val, present := obj[name]
			if !present {
				if isOptional(fields[name]) {
					continue
				}
				out = append(out, Violation{Path: child, Value: nil, Message: "missing required field"})
				continue
			}
			out = append(out, fields[name].check(child, val)...)
		}
		return out
	})
}

// Array declares a JSON array with a uniform element shape.
func Array(elem Schema) Schema {
	return schemaFn(func(path string, v any) []Violation {
		arr, ok := v.([]any)
		if !ok {
			return []Violation{{Path: path, Value: v, Message: "expected array"}}
		}
		var out []Violation
		for i, item := range arr {
			out = append(out, elem.check(fmt.Sprintf("%s[%d]", path, i), item)...)
		}
		return out
	})
}

// Validate checks value against schema and returns the deterministic,
// path-ordered list of violations.
func Validate(schema Schema, value any) []Violation {
	return schema.check("$", value)
}

type optionalMarker struct{ Schema }

func isOptional(s Schema) bool {
	_, ok := s.(optionalMarker)
	return ok
}

// OptionalField marks an object field that may be absent entirely.
func OptionalField(inner Schema) Schema {
	return optionalMarker{Optional(inner)}
}

func joinPath(base, field string) string {
	return base + "." + field
}

// sortedKeys keeps violation ordering deterministic across runs.
func sortedKeys(m map[string]Schema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
