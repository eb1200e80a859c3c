package translate

import (
	"strings"

	"github.com/phobologic/rs2zig/internal/model"
)

// ImportPath is one fully expanded import, e.g. [shared minwindef DWORD].
type ImportPath []string

func (p ImportPath) String() string {
	return strings.Join(p, ".")
}

// Module is the top-level segment.
func (p ImportPath) Module() string { return p[0] }

// Leaf is the imported name.
func (p ImportPath) Leaf() string { return p[len(p)-1] }

// ExpandUse flattens a use tree into one path per imported leaf, in source
// order. Groups expand to the cross product with the prefix accumulated so
// far. Globs and renames are rejected.
func ExpandUse(tree model.UseTree) ([]ImportPath, error) {
	var paths []ImportPath
	if err := expandUse(tree, nil, &paths); err != nil {
		return nil, err
	}
	return paths, nil
}

func expandUse(tree model.UseTree, prefix ImportPath, out *[]ImportPath) error {
	switch tree := tree.(type) {
	case *model.UsePath:
		return expandUse(tree.Tree, extend(prefix, tree.Ident), out)
	case *model.UseName:
		*out = append(*out, extend(prefix, tree.Ident))
	case *model.UseGroup:
		for _, item := range tree.Items {
			if err := expandUse(item, prefix, out); err != nil {
				return err
			}
		}
	case *model.UseGlob:
		return &UnsupportedSyntaxError{Construct: "glob import " + extend(prefix, "*").String()}
	case *model.UseRename:
		return &UnsupportedSyntaxError{Construct: "renamed import " + tree.Ident + " as " + tree.Alias}
	default:
		return &UnsupportedSyntaxError{Construct: "use tree"}
	}
	return nil
}

// extend returns a copy of prefix with seg appended; prefixes are shared
// between group alternatives.
func extend(prefix ImportPath, seg string) ImportPath {
	path := make(ImportPath, len(prefix), len(prefix)+1)
	copy(path, prefix)
	return append(path, seg)
}
