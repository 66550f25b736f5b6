package config

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// keySpec declares one configuration key: its cty type, whether it must be
// present after all layers are merged, and its internal default (cty.NilVal
// when the key has no default).
type keySpec struct {
	typ      cty.Type
	required bool
	def      cty.Value
}

// schema enumerates every legal section and key. Anything outside this table
// is rejected, whichever layer it arrives from, to catch typos early.
var schema = map[string]map[string]keySpec{
	"debias": {
		"run_name":         {typ: cty.String, required: true},
		"omit_type":        {typ: cty.String, def: cty.StringVal(string(OmitAminoAcids))},
		"omit_fraction":    {typ: cty.Number, def: cty.NumberFloatVal(0.1)},
		"iterations":       {typ: cty.Number, def: cty.NumberIntVal(5)},
		"always_omit":      {typ: cty.List(cty.Number), def: cty.ListValEmpty(cty.Number)},
		"seed":             {typ: cty.Number},
		"structure_path":   {typ: cty.String},
		"reflections_path": {typ: cty.String},
		"screening_path":   {typ: cty.String},
	},
	"slurm": {
		"job_name":      {typ: cty.String, def: cty.StringVal("debias_job")},
		"partition":     {typ: cty.String, def: cty.StringVal("cs05r")},
		"time":          {typ: cty.String, def: cty.StringVal("10-00:00:00")},
		"mem_per_cpu":   {typ: cty.String, def: cty.StringVal("1024")},
		"cpus_per_task": {typ: cty.Number, def: cty.NumberIntVal(1)},
		"num_nodes":     {typ: cty.Number, def: cty.NumberIntVal(3)},
	},
	"paths": {
		"work_dir": {typ: cty.String, def: cty.StringVal(".")},
	},
	"tools": {
		"counter_command": {typ: cty.String, def: cty.StringVal("stomp_pool_count")},
		"compute_command": {typ: cty.String, def: cty.StringVal("phenix.composite_omit_map")},
	},
}

// layer is one source of configuration values, keyed section then key.
type layer map[string]map[string]cty.Value

// lookupSpec resolves a (section, key) pair against the schema.
func lookupSpec(section, key string) (keySpec, error) {
	keys, ok := schema[section]
	if !ok {
		return keySpec{}, &Error{Key: section, Reason: fmt.Sprintf("unknown section (known sections: %v)", sectionNames())}
	}
	spec, ok := keys[key]
	if !ok {
		return keySpec{}, &Error{Key: section + "." + key, Reason: "unknown key"}
	}
	return spec, nil
}

func sectionNames() []string {
	names := make([]string, 0, len(schema))
	for s := range schema {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}

// defaultsLayer materializes the internal-defaults layer from the schema.
func defaultsLayer() layer {
	l := make(layer, len(schema))
	for section, keys := range schema {
		l[section] = make(map[string]cty.Value)
		for key, spec := range keys {
			if spec.def != cty.NilVal {
				l[section][key] = spec.def
			}
		}
	}
	return l
}

// merge applies each layer over the base key-by-key: a present key fully
// replaces the lower layer's value, an absent key leaves it untouched.
func merge(layers ...layer) layer {
	out := make(layer)
	for _, l := range layers {
		for section, keys := range l {
			if out[section] == nil {
				out[section] = make(map[string]cty.Value)
			}
			for key, val := range keys {
				out[section][key] = val
			}
		}
	}
	return out
}
