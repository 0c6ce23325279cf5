// Package coerce converts XML text values into column values.
package coerce

import (
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/mrlokans/xmlimport/internal/schema"
)

// ErrInvalidValue marks text that cannot be converted to the column type.
// Records failing with it are counted as validation errors.
var ErrInvalidValue = errors.New("invalid value")

// Transform converts raw element text into a column value. raw is nil when
// the element is missing or empty.
type Transform func(raw *string) (any, error)

var truthy = map[string]struct{}{
	"1":    {},
	"true": {},
	"t":    {},
	"yes":  {},
	"y":    {},
	"si":   {},
	"sí":   {},
}

// Bool reports whether s is one of the accepted truthy tokens, ignoring case.
// Decomposed accents ("si" followed by U+0301) match like their composed form.
func Bool(s string) bool {
	key := norm.NFC.String(cases.Fold().String(s))
	_, ok := truthy[key]
	return ok
}

// Value converts raw to the Go value stored for a column of type t.
// A nil raw always yields nil.
func Value(raw *string, t schema.Type) (any, error) {
	if raw == nil {
		return nil, nil
	}
	s := *raw

	switch t {
	case schema.Text:
		return s, nil
	case schema.Boolean:
		return Bool(s), nil
	case schema.Integer:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, s)
		}
		return n, nil
	case schema.Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, s)
		}
		return f, nil
	default:
		return s, nil
	}
}

// Default returns the Transform applying Value for type t.
func Default(t schema.Type) Transform {
	return func(raw *string) (any, error) {
		return Value(raw, t)
	}
}
