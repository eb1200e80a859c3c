// Package graph builds the module import graph of a directory run.
package graph

import (
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/phobologic/rs2zig/internal/model"
)

// BuildGraph creates one edge per (file, imported module). A module that
// names a file of the run (`m.rs` or `m/mod.rs` at the root) resolves to
// that file; anything else targets the bare `m.zig` import.
func BuildGraph(files []model.FileReport) []model.Dependency {
	// Build module index: module name → source file that provides it
	provides := make(map[string]string)
	for i := range files {
		if module := moduleName(files[i].Path); module != "" {
			provides[module] = files[i].Path
		}
	}

	var deps []model.Dependency
	for i := range files {
		fr := &files[i]
		// Iterate in sorted order for determinism
		modules := lo.Keys(fr.Imports)
		sort.Strings(modules)

		for _, module := range modules {
			target, ok := provides[module]
			if !ok {
				target = module + ".zig"
			}
			if target == fr.Path {
				continue // no self-edges
			}
			syms := slices.Clone(fr.Imports[module])
			sort.Strings(syms)
			deps = append(deps, model.Dependency{
				Source:  fr.Path,
				Target:  target,
				Symbols: lo.Uniq(syms),
			})
		}
	}

	// Sort for deterministic output
	sort.SliceStable(deps, func(i, j int) bool {
		if deps[i].Source != deps[j].Source {
			return deps[i].Source < deps[j].Source
		}
		return deps[i].Target < deps[j].Target
	})

	return deps
}

// moduleName returns the top-level module a root-relative source path
// defines, or "" for nested files.
func moduleName(p string) string {
	dir, file := path.Split(filepath.ToSlash(p))
	switch {
	case dir == "":
		return strings.TrimSuffix(file, path.Ext(file))
	case file == "mod.rs" && strings.Count(dir, "/") == 1:
		return strings.TrimSuffix(dir, "/")
	}
	return ""
}
