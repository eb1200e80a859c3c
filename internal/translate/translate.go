// Package translate turns a parsed Rust FFI program into Zig declarations.
package translate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/samber/lo"

	"github.com/phobologic/rs2zig/internal/model"
)

// DefaultLinkName is the library every extern declaration links against
// unless configured otherwise.
const DefaultLinkName = "user32"

// scalarNamespace is the module that only brings C scalar aliases into scope.
// Imports from it have no Zig equivalent.
const scalarNamespace = "ctypes"

// callConv is attached to every extern declaration.
const callConv = ".Stdcall"

// RecordParser parses the body of a STRUCT! call into a struct definition.
type RecordParser func(body string) (*model.Struct, error)

// Options configures a translation run.
type Options struct {
	LinkName    string
	ParseRecord RecordParser
	Logger      *slog.Logger
}

// Stats summarizes a run.
type Stats struct {
	Items   int
	Skipped int
	// Imports maps each imported module to the symbols aliased from it.
	Imports map[string][]string
}

// dumper renders items that have no translation rule.
var dumper = spew.ConfigState{
	Indent:                  "    ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Translator carries the context of one translation run: the link name and
// the set of modules already imported. It is not safe for concurrent use.
type Translator struct {
	w       *bufio.Writer
	opts    Options
	log     *slog.Logger
	modules map[string]struct{}
	stats   Stats
	err     error
}

func newTranslator(w io.Writer, opts Options) *Translator {
	if opts.LinkName == "" {
		opts.LinkName = DefaultLinkName
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Translator{
		w:       bufio.NewWriter(w),
		opts:    opts,
		log:     log,
		modules: make(map[string]struct{}),
		stats:   Stats{Imports: make(map[string][]string)},
	}
}

// Translate runs a fresh Translator over prog.
func Translate(w io.Writer, prog *model.Program, opts Options) (Stats, error) {
	return newTranslator(w, opts).Translate(prog)
}

// Translate emits prog item by item in source order. Soft failures become a
// placeholder comment; any other error stops the run. Output written for
// earlier items is kept either way.
func (t *Translator) Translate(prog *model.Program) (Stats, error) {
	for _, item := range prog.Items {
		t.stats.Items++
		err := item.Accept(t)

		switch {
		case err == nil:
		case IsSoft(err):
			t.skip(item, err)
		default:
			// Keep what was written so far, and say so if that failed too.
			return t.stats, errors.Join(fmt.Errorf("line %d: %w", item.Line(), err), t.flush())
		}

		if t.err != nil {
			return t.stats, t.err
		}
	}
	return t.stats, t.flush()
}

// skip replaces a softly failed item with its placeholder comment.
func (t *Translator) skip(item model.Item, err error) {
	t.stats.Skipped++
	var unhandled *UnhandledError
	if errors.As(err, &unhandled) {
		t.log.Debug("skipping item", "line", item.Line(), "name", unhandled.Name)
		t.line("// Unhandled item: %s", unhandled.Name)
		return
	}
	t.log.Debug("skipping item", "line", item.Line(), "reason", err)
	t.line("// Item not yet implemented")
}

func (t *Translator) flush() error {
	if t.err != nil {
		return t.err
	}
	if err := t.w.Flush(); err != nil {
		t.err = fmt.Errorf("writing output: %w", err)
	}
	return t.err
}

// line writes one output line. Write errors are sticky and reported by
// Translate.
func (t *Translator) line(format string, args ...any) {
	if t.err != nil {
		return
	}
	if _, err := fmt.Fprintf(t.w, format+"\n", args...); err != nil {
		t.err = fmt.Errorf("writing output: %w", err)
	}
}

// dump writes an unstructured rendering of v for constructs with no rule.
func (t *Translator) dump(v any) {
	for _, l := range strings.Split(strings.TrimRight(dumper.Sdump(v), "\n"), "\n") {
		t.line("%s", l)
	}
}

func visibility(v model.Visibility) string {
	if v == model.Public {
		return "pub "
	}
	return ""
}

func (t *Translator) VisitUse(u *model.Use) error {
	paths, err := ExpandUse(u.Tree)
	if err != nil {
		return err
	}
	for _, path := range paths {
		module := path.Module()
		if module == scalarNamespace {
			continue
		}
		if _, seen := t.modules[module]; !seen {
			t.line("")
			t.line("const %s = @import(\"%s.zig\");", module, module)
			t.modules[module] = struct{}{}
		}
		leaf := path.Leaf()
		t.line("%sconst %s = %s;", visibility(u.Vis), leaf, path)

		if syms := t.stats.Imports[module]; !lo.Contains(syms, leaf) {
			t.stats.Imports[module] = append(syms, leaf)
		}
	}
	return nil
}

func (t *Translator) VisitConst(c *model.Const) error {
	t.line("%sconst %s = %s;", visibility(c.Vis), c.Name, Expr(c.Value))
	return nil
}

func (t *Translator) VisitTypeAlias(a *model.TypeAlias) error {
	ty, err := Type(a.Type)
	if err != nil {
		return fmt.Errorf("type %s: %w", a.Name, err)
	}
	t.line("%sconst %s = %s;", visibility(a.Vis), a.Name, ty)
	return nil
}

func (t *Translator) VisitForeignMod(fm *model.ForeignMod) error {
	for _, item := range fm.Items {
		switch item := item.(type) {
		case *model.ForeignFn:
			if err := t.foreignFn(item); err != nil {
				return err
			}
		default:
			t.dump(item)
		}
	}
	return nil
}

func (t *Translator) foreignFn(f *model.ForeignFn) error {
	params := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		ty, err := Type(p.Type)
		if err != nil {
			return fmt.Errorf("fn %s: %w", f.Name, err)
		}
		name := p.Name
		if name == "" {
			name = "_"
		}
		params = append(params, fmt.Sprintf("    %s: %s,", name, ty))
	}
	ret, err := ResultType(f.Result)
	if err != nil {
		return fmt.Errorf("fn %s: %w", f.Name, err)
	}

	t.line("%sextern \"%s\" fn %s (", visibility(f.Vis), t.opts.LinkName, f.Name)
	for _, p := range params {
		t.line("%s", p)
	}
	t.line(") callconv(%s) %s;", callConv, ret)
	return nil
}

func (t *Translator) VisitFunction(f *model.Function) error {
	return &UnhandledError{Name: f.Name}
}

func (t *Translator) VisitOther(o *model.Other) error {
	t.log.Debug("dumping item", "line", o.Line(), "kind", o.Kind)
	t.dump(o)
	return nil
}
