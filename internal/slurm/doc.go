// Package slurm renders sbatch job scripts for the external computation
// tool. It only wires resource directives and file paths together; it never
// inspects mask contents and never talks to the scheduler itself; the
// dependency directives in the rendered scripts are the sole coordination
// mechanism with cluster execution.
package slurm
