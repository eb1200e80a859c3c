package model

// Status of a single file in a directory run.
type Status string

const (
	Translated Status = "translated"
	Fresh      Status = "fresh"
	Failed     Status = "failed"
)

// FileReport holds the outcome of translating one source file.
type FileReport struct {
	Path    string
	Output  string
	Status  Status
	Items   int
	Skipped int
	// Imports maps an imported target module to the symbols bound from it.
	Imports map[string][]string
	Err     string
}

// Dependency is an edge from a source file to a module it imports.
type Dependency struct {
	Source  string
	Target  string
	Symbols []string
}

// Report is the summary of a directory run, ready for serialization.
type Report struct {
	Root         string
	LinkName     string
	Files        []FileReport
	Dependencies []Dependency
}
