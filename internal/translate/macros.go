package translate

import (
	"errors"
	"fmt"

	"github.com/phobologic/rs2zig/internal/model"
)

// VisitMacroCall expands the two declaration macros used by winapi-style
// bindings. Only unqualified macro names are recognized.
func (t *Translator) VisitMacroCall(m *model.MacroCall) error {
	if len(m.Path) != 1 {
		return fmt.Errorf("macro path %v: %w", m.Path, ErrNotYetImplemented)
	}
	switch name := m.Path[0]; name {
	case "STRUCT":
		return t.structMacro(m)
	case "DECLARE_HANDLE":
		return t.declareHandle(m)
	default:
		return &UnhandledError{Name: name}
	}
}

func (t *Translator) structMacro(m *model.MacroCall) error {
	if t.opts.ParseRecord == nil {
		return &UnsupportedSyntaxError{Construct: "STRUCT!", Err: errors.New("no record parser configured")}
	}
	s, err := t.opts.ParseRecord(m.Body)
	if err != nil {
		return &UnsupportedSyntaxError{Construct: "STRUCT!", Err: err}
	}

	fields := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		ty, err := Type(f.Type)
		if err != nil {
			return fmt.Errorf("struct %s field %s: %w", s.Name, f.Name, err)
		}
		fields = append(fields, fmt.Sprintf("    %s: %s,", f.Name, ty))
	}

	t.line("pub const %s = extern struct {", s.Name)
	for _, f := range fields {
		t.line("%s", f)
	}
	t.line("};")
	return nil
}

// declareHandle expects `Handle, Opaque`. The separator is not checked.
func (t *Translator) declareHandle(m *model.MacroCall) error {
	if len(m.Tokens) < 3 {
		return fmt.Errorf("DECLARE_HANDLE with %d tokens: %w", len(m.Tokens), ErrNotYetImplemented)
	}
	handle, opaque := m.Tokens[0], m.Tokens[2]
	if handle.Kind != model.IdentToken || opaque.Kind != model.IdentToken {
		return fmt.Errorf("DECLARE_HANDLE(%s, %s): %w", handle.Text, opaque.Text, ErrNotYetImplemented)
	}
	t.line("pub const %s = @Type(.Opaque);", opaque.Text)
	t.line("pub const %s = ?*%s;", handle.Text, opaque.Text)
	return nil
}
