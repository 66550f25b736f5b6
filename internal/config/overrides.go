package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// parseOverrides turns a sequence of "section.key=value" strings into a
// typed layer. Each entry is validated against the schema and its value is
// coerced to the declared type before the merge, so an override can never
// smuggle a raw string into a typed field. Later entries win over earlier
// ones for the same key.
func parseOverrides(overrides []string) (layer, error) {
	l := make(layer)
	for _, entry := range overrides {
		section, key, val, err := parseOverride(entry)
		if err != nil {
			return nil, err
		}
		if l[section] == nil {
			l[section] = make(map[string]cty.Value)
		}
		l[section][key] = val
	}
	return l, nil
}

func parseOverride(entry string) (section, key string, val cty.Value, err error) {
	path, rawValue, found := strings.Cut(entry, "=")
	if !found {
		return "", "", cty.NilVal, &Error{Key: entry, Reason: `override must have the form "section.key=value"`}
	}
	section, key, found = strings.Cut(path, ".")
	if !found || section == "" || key == "" {
		return "", "", cty.NilVal, &Error{Key: entry, Reason: `override path must have the form "section.key"`}
	}

	spec, err := lookupSpec(section, key)
	if err != nil {
		return "", "", cty.NilVal, err
	}

	val, err = coerceString(rawValue, spec.typ)
	if err != nil {
		return "", "", cty.NilVal, &Error{Key: section + "." + key, Reason: err.Error()}
	}
	return section, key, val, nil
}

// coerceString converts the textual right-hand side of an override into a
// cty value of the declared type. Lists are written as comma-separated
// elements, e.g. always_omit=3,17,42.
func coerceString(raw string, want cty.Type) (cty.Value, error) {
	switch {
	case want == cty.String:
		return cty.StringVal(raw), nil
	case want == cty.Number:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return cty.NilVal, fmt.Errorf("cannot coerce %q to number", raw)
		}
		return cty.NumberFloatVal(f), nil
	case want == cty.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return cty.NilVal, fmt.Errorf("cannot coerce %q to bool", raw)
		}
		return cty.BoolVal(b), nil
	case want.IsListType():
		if strings.TrimSpace(raw) == "" {
			return cty.ListValEmpty(want.ElementType()), nil
		}
		parts := strings.Split(raw, ",")
		elems := make([]cty.Value, 0, len(parts))
		for _, part := range parts {
			elem, err := coerceString(strings.TrimSpace(part), want.ElementType())
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, elem)
		}
		return cty.ListVal(elems), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported schema type %s", want.FriendlyName())
	}
}
