package config

// OmitType selects which structural elements an omission mask is drawn from.
type OmitType string

const (
	// OmitAminoAcids omits whole residues.
	OmitAminoAcids OmitType = "amino_acids"
	// OmitAtoms omits individual atoms.
	OmitAtoms OmitType = "atoms"
)

// RunConfig describes one debiasing experiment. It is created by Resolve and
// never mutated afterwards.
type RunConfig struct {
	RunName      string
	OmitType     OmitType
	OmitFraction float64
	Iterations   int

	// AlwaysOmit holds element identifiers forced into every mask,
	// sorted ascending and free of duplicates.
	AlwaysOmit []int

	// Seed is only meaningful when HasSeed is true. An absent seed waives
	// the reproducibility guarantee; the mask generator reports that as a
	// warning instead of failing.
	Seed    int64
	HasSeed bool

	// Input paths are opaque to this system; they are handed verbatim to
	// the external toolchain.
	StructurePath   string
	ReflectionsPath string
	ScreeningPath   string
}

// ResourceConfig carries the cluster resource request rendered into every
// job script.
type ResourceConfig struct {
	JobName     string
	Partition   string
	Time        string
	MemPerCPU   string
	CPUsPerTask int
	NumNodes    int
}

// PathConfig locates the root directory under which all run artifacts live.
type PathConfig struct {
	WorkDir string
}

// ToolsConfig names the external collaborator commands. Both are invoked as
// black boxes with file-path arguments.
type ToolsConfig struct {
	CounterCommand string
	ComputeCommand string
}

// Config is the fully resolved, immutable run description.
type Config struct {
	Debias RunConfig
	Slurm  ResourceConfig
	Paths  PathConfig
	Tools  ToolsConfig
}
