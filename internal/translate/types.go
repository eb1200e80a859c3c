package translate

import (
	"strings"

	"github.com/phobologic/rs2zig/internal/model"
)

// scalarRenames maps C-style scalar aliases to fixed-width Zig integers.
// Zig has no c char types.
var scalarRenames = map[string]string{
	"c_uchar":  "u8",
	"c_char":   "i8",
	"c_schar":  "i8",
	"__uint64": "u64",
	"__int64":  "i64",
}

// Type returns the Zig spelling of a source type. Single-segment names go
// through the rename table and otherwise pass through unchanged. Raw
// pointers always become optional pointers.
func Type(ty model.Type) (string, error) {
	switch ty := ty.(type) {
	case *model.PathType:
		if ident := ty.Ident(); ident != "" {
			if renamed, ok := scalarRenames[ident]; ok {
				return renamed, nil
			}
			return ident, nil
		}
	case *model.PointerType:
		elem, err := Type(ty.Elem)
		if err != nil {
			return "", err
		}
		if ty.Const {
			return "?*const " + elem, nil
		}
		return "?*" + elem, nil
	}
	return "", &UnsupportedTypeError{Type: describeType(ty)}
}

// ResultType is Type for a function result; a missing result is void.
func ResultType(ty model.Type) (string, error) {
	if ty == nil {
		return "void", nil
	}
	return Type(ty)
}

func describeType(ty model.Type) string {
	switch ty := ty.(type) {
	case *model.PathType:
		s := strings.Join(ty.Segments, "::")
		if ty.Generic {
			s += "<..>"
		}
		return s
	case *model.OtherType:
		if ty.Text != "" {
			return ty.Text
		}
		return ty.Kind
	case nil:
		return "<missing>"
	}
	return "<unknown>"
}
