package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"gopkg.in/yaml.v3"
)

// loadFile reads one configuration file into a typed layer, dispatching on
// the file extension. Every value is coerced against the schema here, so a
// bad file is reported with the offending key before any merging happens.
func loadFile(path string) (layer, error) {
	switch filepath.Ext(path) {
	case ".hcl":
		return loadHCLFile(path)
	case ".yaml", ".yml":
		return loadYAMLFile(path)
	default:
		return nil, &Error{Reason: fmt.Sprintf("unsupported config file extension %q (want .hcl, .yaml or .yml)", filepath.Ext(path))}
	}
}

// loadHCLFile parses a file laid out as one block per section:
//
//	debias {
//	  run_name = "lysozyme_run"
//	}
func loadHCLFile(path string) (layer, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, &Error{Reason: fmt.Sprintf("failed to parse config file %s: %s", path, diags)}
	}

	blockHeaders := make([]hcl.BlockHeaderSchema, 0, len(schema))
	for _, section := range sectionNames() {
		blockHeaders = append(blockHeaders, hcl.BlockHeaderSchema{Type: section})
	}

	// Content (rather than PartialContent) rejects unknown block types.
	content, diags := file.Body.Content(&hcl.BodySchema{Blocks: blockHeaders})
	if diags.HasErrors() {
		return nil, &Error{Reason: fmt.Sprintf("invalid config file %s: %s", path, diags)}
	}

	l := make(layer)
	for _, block := range content.Blocks {
		attrs, diags := block.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, &Error{Key: block.Type, Reason: fmt.Sprintf("invalid section in %s: %s", path, diags)}
		}
		if l[block.Type] == nil {
			l[block.Type] = make(map[string]cty.Value)
		}
		for name, attr := range attrs {
			spec, err := lookupSpec(block.Type, name)
			if err != nil {
				return nil, err
			}
			raw, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, &Error{Key: block.Type + "." + name, Reason: diags.Error()}
			}
			val, err := convert.Convert(raw, spec.typ)
			if err != nil {
				return nil, &Error{Key: block.Type + "." + name, Reason: fmt.Sprintf("cannot coerce %s to %s", raw.Type().FriendlyName(), spec.typ.FriendlyName())}
			}
			// Within one file the last write wins for a duplicate key.
			l[block.Type][name] = val
		}
	}
	return l, nil
}

// loadYAMLFile parses a file laid out as one mapping per section:
//
//	debias:
//	  run_name: lysozyme_run
func loadYAMLFile(path string) (layer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Reason: fmt.Sprintf("failed to read config file %s: %s", path, err)}
	}

	var doc map[string]map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &Error{Reason: fmt.Sprintf("failed to parse config file %s: %s", path, err)}
	}

	l := make(layer)
	for section, keys := range doc {
		if l[section] == nil {
			l[section] = make(map[string]cty.Value)
		}
		for name, value := range keys {
			spec, err := lookupSpec(section, name)
			if err != nil {
				return nil, err
			}
			val, err := goToCty(value, spec.typ)
			if err != nil {
				return nil, &Error{Key: section + "." + name, Reason: err.Error()}
			}
			l[section][name] = val
		}
	}
	return l, nil
}

// goToCty converts a decoded YAML value into a cty value of the declared
// type. Only the scalar and list shapes the schema can declare are handled.
func goToCty(value any, want cty.Type) (cty.Value, error) {
	var raw cty.Value
	switch v := value.(type) {
	case string:
		raw = cty.StringVal(v)
	case bool:
		raw = cty.BoolVal(v)
	case int:
		raw = cty.NumberIntVal(int64(v))
	case int64:
		raw = cty.NumberIntVal(v)
	case float64:
		raw = cty.NumberFloatVal(v)
	case []any:
		if !want.IsListType() {
			return cty.NilVal, fmt.Errorf("cannot coerce list to %s", want.FriendlyName())
		}
		elems := make([]cty.Value, 0, len(v))
		for _, item := range v {
			elem, err := goToCty(item, want.ElementType())
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, elem)
		}
		if len(elems) == 0 {
			return cty.ListValEmpty(want.ElementType()), nil
		}
		return cty.ListVal(elems), nil
	case nil:
		return cty.NilVal, fmt.Errorf("value is empty, expected %s", want.FriendlyName())
	default:
		return cty.NilVal, fmt.Errorf("unsupported value of type %T, expected %s", value, want.FriendlyName())
	}

	out, err := convert.Convert(raw, want)
	if err != nil {
		return cty.NilVal, fmt.Errorf("cannot coerce %s to %s", raw.Type().FriendlyName(), want.FriendlyName())
	}
	return out, nil
}
