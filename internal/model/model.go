// Package model defines the syntax tree consumed by the translator and the
// per-file report structures produced by a translation run.
package model

// Visibility of a source item. Only a bare `pub` is Public; restricted forms
// such as `pub(crate)` are Private.
type Visibility int

const (
	Private Visibility = iota
	Public
)

// Program is a parsed source file: its top-level items in source order.
type Program struct {
	Items []Item
}

// Item is a top-level declaration. The set of implementations is closed;
// callers dispatch through Accept.
type Item interface {
	Accept(v ItemVisitor) error
	// Line is the 1-based source line the item starts on, or 0 if unknown.
	Line() int
}

// ItemVisitor has one method per Item variant.
type ItemVisitor interface {
	VisitUse(*Use) error
	VisitTypeAlias(*TypeAlias) error
	VisitConst(*Const) error
	VisitForeignMod(*ForeignMod) error
	VisitMacroCall(*MacroCall) error
	VisitFunction(*Function) error
	VisitOther(*Other) error
}

// Pos records where an item starts.
type Pos struct {
	StartLine int
}

func (p Pos) Line() int { return p.StartLine }

// Use is a `use` declaration.
type Use struct {
	Pos
	Vis  Visibility
	Tree UseTree
}

// TypeAlias is a `type Name = T;` item.
type TypeAlias struct {
	Pos
	Vis  Visibility
	Name string
	Type Type
}

// Const is a `const NAME: T = expr;` item.
type Const struct {
	Pos
	Vis   Visibility
	Name  string
	Type  Type
	Value Expr
}

// ForeignMod is an `extern "abi" { ... }` block.
type ForeignMod struct {
	Pos
	ABI   string
	Items []ForeignItem
}

// MacroCall is a top-level `name!(...)` invocation.
type MacroCall struct {
	Pos
	Path []string
	// Body is the argument source text without the outer delimiters.
	Body   string
	Tokens []Token
}

// Function is a plain `fn` item with a body.
type Function struct {
	Pos
	Vis  Visibility
	Name string
}

// Other is any item kind the translator has no rule for.
type Other struct {
	Pos
	Kind string
	Name string
	Text string
}

func (u *Use) Accept(v ItemVisitor) error        { return v.VisitUse(u) }
func (t *TypeAlias) Accept(v ItemVisitor) error  { return v.VisitTypeAlias(t) }
func (c *Const) Accept(v ItemVisitor) error      { return v.VisitConst(c) }
func (f *ForeignMod) Accept(v ItemVisitor) error { return v.VisitForeignMod(f) }
func (m *MacroCall) Accept(v ItemVisitor) error  { return v.VisitMacroCall(m) }
func (f *Function) Accept(v ItemVisitor) error   { return v.VisitFunction(f) }
func (o *Other) Accept(v ItemVisitor) error      { return v.VisitOther(o) }

// ForeignItem is a declaration inside an extern block: *ForeignFn or
// *ForeignOther.
type ForeignItem interface {
	foreignItem()
}

// ForeignFn is a function signature inside an extern block.
type ForeignFn struct {
	Vis    Visibility
	Name   string
	Params []Param
	// Result is nil when the signature has no `->` clause.
	Result Type
}

// ForeignOther is a non-function declaration inside an extern block, such as
// a `static`.
type ForeignOther struct {
	Kind string
	Text string
}

func (*ForeignFn) foreignItem()    {}
func (*ForeignOther) foreignItem() {}

// Param is a typed function parameter. Name is empty for wildcard or
// anonymous parameters.
type Param struct {
	Name string
	Type Type
}

// Type describes a source type: *PathType, *PointerType or *OtherType.
type Type interface {
	typeNode()
}

// PathType is a (possibly qualified) type path. Generic reports whether any
// segment carries type arguments.
type PathType struct {
	Segments []string
	Generic  bool
}

// PointerType is a raw pointer `*const T` or `*mut T`.
type PointerType struct {
	Const bool
	Elem  Type
}

// OtherType is any type shape without a dedicated variant (arrays, slices,
// references, tuples, function pointers ...).
type OtherType struct {
	Kind string
	Text string
}

func (*PathType) typeNode()    {}
func (*PointerType) typeNode() {}
func (*OtherType) typeNode()   {}

// Ident returns the single unqualified name of p, or "" when p has more than
// one segment or carries generic arguments.
func (p *PathType) Ident() string {
	if len(p.Segments) != 1 || p.Generic {
		return ""
	}
	return p.Segments[0]
}

// Expr is a constant initializer: *IntLit or *OtherExpr.
type Expr interface {
	exprNode()
}

// IntLit is an integer literal, kept as written.
type IntLit struct {
	Text string
}

// OtherExpr is any other expression.
type OtherExpr struct {
	Kind string
	Text string
}

func (*IntLit) exprNode()    {}
func (*OtherExpr) exprNode() {}

// UseTree is the argument of a use declaration.
type UseTree interface {
	useTree()
}

// UsePath is `ident::tree`.
type UsePath struct {
	Ident string
	Tree  UseTree
}

// UseName is a leaf name.
type UseName struct {
	Ident string
}

// UseGroup is `{a, b::c, ...}`.
type UseGroup struct {
	Items []UseTree
}

// UseRename is `ident as alias`.
type UseRename struct {
	Ident string
	Alias string
}

// UseGlob is `*`.
type UseGlob struct{}

func (*UsePath) useTree()   {}
func (*UseName) useTree()   {}
func (*UseGroup) useTree()  {}
func (*UseRename) useTree() {}
func (*UseGlob) useTree()   {}

// TokenKind classifies a macro argument token.
type TokenKind int

const (
	IdentToken TokenKind = iota
	PunctToken
	LiteralToken
	GroupToken
)

// Token is one top-level token of a macro argument. Nested delimited groups
// are a single GroupToken holding their full text.
type Token struct {
	Kind TokenKind
	Text string
}

// Struct is a record definition recovered from a macro body.
type Struct struct {
	Name   string
	Fields []Field
}

// Field is a named struct field.
type Field struct {
	Name string
	Type Type
}
