package coerce

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrUnknownTransform = errors.New("unknown transform")

// Named transforms that mapping files can refer to by name.
var named = map[string]Transform{
	"trim-zeros":    trimZeros,
	"upper":         mapText(strings.ToUpper),
	"lower":         mapText(strings.ToLower),
	"title":         mapText(func(s string) string { return cases.Title(language.Spanish).String(strings.ToLower(s)) }),
	"decimal-comma": decimalComma,
	"bool":          boolean,
}

// Lookup returns the named transform.
func Lookup(name string) (Transform, error) {
	t, ok := named[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransform, name)
	}
	return t, nil
}

// Names lists the registered transform names in sorted order.
func Names() []string {
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mapText(fn func(string) string) Transform {
	return func(raw *string) (any, error) {
		if raw == nil {
			return nil, nil
		}
		return fn(*raw), nil
	}
}

// trimZeros drops leading zeros from codes such as "0042", keeping a lone "0".
func trimZeros(raw *string) (any, error) {
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimLeft(*raw, "0")
	if s == "" {
		s = "0"
	}
	return s, nil
}

// decimalComma parses numbers written as "1.234,5". Values without a comma
// are parsed as plain numbers.
func decimalComma(raw *string) (any, error) {
	if raw == nil {
		return nil, nil
	}
	s := *raw
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, *raw)
	}
	return f, nil
}

func boolean(raw *string) (any, error) {
	if raw == nil {
		return nil, nil
	}
	return Bool(*raw), nil
}
