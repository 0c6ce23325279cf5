package cli

import (
	"fmt"
	"sort"
	"strings"
)

// pairsFlag collects repeated key=value flags.
type pairsFlag map[string]string

func (p pairsFlag) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + p[k]
	}
	return strings.Join(parts, ",")
}

func (p pairsFlag) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	key, val = strings.TrimSpace(key), strings.TrimSpace(val)
	if !ok || key == "" || val == "" {
		return fmt.Errorf("expected field=value, got %q", value)
	}
	p[key] = val
	return nil
}
