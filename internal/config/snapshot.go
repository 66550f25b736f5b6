package config

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Snapshot renders the resolved configuration as HCL. Attribute order is
// fixed so the snapshot is byte-identical across runs with identical inputs,
// and the output is itself a valid config file for a later resolution pass.
func (c *Config) Snapshot() []byte {
	file := hclwrite.NewEmptyFile()
	root := file.Body()

	debias := root.AppendNewBlock("debias", nil).Body()
	debias.SetAttributeValue("run_name", cty.StringVal(c.Debias.RunName))
	debias.SetAttributeValue("omit_type", cty.StringVal(string(c.Debias.OmitType)))
	debias.SetAttributeValue("omit_fraction", cty.NumberFloatVal(c.Debias.OmitFraction))
	debias.SetAttributeValue("iterations", cty.NumberIntVal(int64(c.Debias.Iterations)))
	debias.SetAttributeValue("always_omit", intListVal(c.Debias.AlwaysOmit))
	if c.Debias.HasSeed {
		debias.SetAttributeValue("seed", cty.NumberIntVal(c.Debias.Seed))
	}
	if c.Debias.StructurePath != "" {
		debias.SetAttributeValue("structure_path", cty.StringVal(c.Debias.StructurePath))
	}
	if c.Debias.ReflectionsPath != "" {
		debias.SetAttributeValue("reflections_path", cty.StringVal(c.Debias.ReflectionsPath))
	}
	if c.Debias.ScreeningPath != "" {
		debias.SetAttributeValue("screening_path", cty.StringVal(c.Debias.ScreeningPath))
	}

	slurm := root.AppendNewBlock("slurm", nil).Body()
	slurm.SetAttributeValue("job_name", cty.StringVal(c.Slurm.JobName))
	slurm.SetAttributeValue("partition", cty.StringVal(c.Slurm.Partition))
	slurm.SetAttributeValue("time", cty.StringVal(c.Slurm.Time))
	slurm.SetAttributeValue("mem_per_cpu", cty.StringVal(c.Slurm.MemPerCPU))
	slurm.SetAttributeValue("cpus_per_task", cty.NumberIntVal(int64(c.Slurm.CPUsPerTask)))
	slurm.SetAttributeValue("num_nodes", cty.NumberIntVal(int64(c.Slurm.NumNodes)))

	paths := root.AppendNewBlock("paths", nil).Body()
	paths.SetAttributeValue("work_dir", cty.StringVal(c.Paths.WorkDir))

	tools := root.AppendNewBlock("tools", nil).Body()
	tools.SetAttributeValue("counter_command", cty.StringVal(c.Tools.CounterCommand))
	tools.SetAttributeValue("compute_command", cty.StringVal(c.Tools.ComputeCommand))

	return file.Bytes()
}

func intListVal(ids []int) cty.Value {
	if len(ids) == 0 {
		return cty.ListValEmpty(cty.Number)
	}
	elems := make([]cty.Value, 0, len(ids))
	for _, id := range ids {
		elems = append(elems, cty.NumberIntVal(int64(id)))
	}
	return cty.ListVal(elems)
}
