// Package parse builds the translator's syntax model from Rust source using
// tree-sitter.
package parse

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/rs2zig/internal/lang"
	"github.com/phobologic/rs2zig/internal/model"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SyntaxError reports the first error node in a source file.
type SyntaxError struct {
	Line   int
	Column int
	Near   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d near %q", e.Line, e.Column, e.Near)
}

// Parser turns Rust source into a model.Program.
// Each goroutine must use its own Parser (not thread-safe).
type Parser struct {
	p *sitter.Parser
}

// New creates a Parser for Rust.
func New() *Parser {
	return &Parser{p: lang.Languages[lang.Rust].NewParser()}
}

// Parse parses a whole source file. Sources containing syntax errors are
// rejected; nothing is translated from them.
func (p *Parser) Parse(ctx context.Context, source []byte) (*model.Program, error) {
	root, tree, err := p.parseTree(ctx, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	prog := &model.Program{}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		if item := convertItem(root.NamedChild(i), source); item != nil {
			prog.Items = append(prog.Items, item)
		}
	}
	return prog, nil
}

func (p *Parser) parseTree(ctx context.Context, source []byte) (*sitter.Node, *sitter.Tree, error) {
	tree, err := p.p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing: %w", err)
	}
	root := tree.RootNode()
	if root.HasError() {
		err := firstError(root, source)
		if err == nil {
			err = &SyntaxError{Line: 1, Column: 1}
		}
		tree.Close()
		return nil, nil, err
	}
	return root, tree, nil
}

func firstError(node *sitter.Node, source []byte) *SyntaxError {
	if node.IsError() || node.IsMissing() {
		near := lang.CollapseWhitespace(lang.NodeText(node, source))
		if node.IsMissing() {
			near = "missing " + node.Type()
		}
		if len(near) > 40 {
			near = near[:40]
		}
		return &SyntaxError{
			Line:   int(node.StartPoint().Row) + 1,
			Column: int(node.StartPoint().Column) + 1,
			Near:   near,
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsMissing() {
			if err := firstError(child, source); err != nil {
				return err
			}
		}
	}
	return nil
}

// skipped reports nodes that carry no declaration: comments, attributes
// (ignored by the translator) and stray semicolons.
func skipped(node *sitter.Node) bool {
	switch node.Type() {
	case "line_comment", "block_comment", "attribute_item", "inner_attribute_item", "empty_statement":
		return true
	}
	return false
}

func pos(node *sitter.Node) model.Pos {
	return model.Pos{StartLine: int(node.StartPoint().Row) + 1}
}

func convertItem(node *sitter.Node, source []byte) model.Item {
	if skipped(node) {
		return nil
	}

	switch node.Type() {
	case "use_declaration":
		tree, ok := convertUseTree(node.ChildByFieldName("argument"), source)
		if !ok {
			break
		}
		return &model.Use{Pos: pos(node), Vis: visibility(node, source), Tree: tree}

	case "const_item":
		return &model.Const{
			Pos:   pos(node),
			Vis:   visibility(node, source),
			Name:  fieldText(node, "name", source),
			Type:  convertType(node.ChildByFieldName("type"), source),
			Value: convertExpr(node.ChildByFieldName("value"), source),
		}

	case "type_item":
		return &model.TypeAlias{
			Pos:  pos(node),
			Vis:  visibility(node, source),
			Name: fieldText(node, "name", source),
			Type: convertType(node.ChildByFieldName("type"), source),
		}

	case "foreign_mod_item":
		return convertForeignMod(node, source)

	case "macro_invocation":
		return convertMacro(node, source)

	case "expression_statement":
		// `NAME!(...);` at the top level.
		if node.NamedChildCount() == 1 && node.NamedChild(0).Type() == "macro_invocation" {
			m := convertMacro(node.NamedChild(0), source)
			m.Pos = pos(node)
			return m
		}

	case "function_item":
		return &model.Function{
			Pos:  pos(node),
			Vis:  visibility(node, source),
			Name: fieldText(node, "name", source),
		}
	}

	return &model.Other{
		Pos:  pos(node),
		Kind: node.Type(),
		Name: fieldText(node, "name", source),
		Text: lang.NodeText(node, source),
	}
}

func visibility(node *sitter.Node, source []byte) model.Visibility {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "visibility_modifier" {
			if lang.NodeText(child, source) == "pub" {
				return model.Public
			}
			return model.Private
		}
	}
	return model.Private
}

func fieldText(node *sitter.Node, field string, source []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return lang.NodeText(child, source)
}

// pathSegments flattens a path node (identifier, scoped_identifier, self,
// crate ...) into its segments.
func pathSegments(node *sitter.Node, source []byte) []string {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "scoped_identifier", "scoped_type_identifier":
		segs := pathSegments(node.ChildByFieldName("path"), source)
		return append(segs, fieldText(node, "name", source))
	case "generic_type":
		return pathSegments(node.ChildByFieldName("type"), source)
	}
	return []string{lang.NodeText(node, source)}
}

func convertUseTree(node *sitter.Node, source []byte) (model.UseTree, bool) {
	if node == nil {
		return nil, false
	}

	switch node.Type() {
	case "identifier", "self", "super", "crate", "metavariable":
		return &model.UseName{Ident: lang.NodeText(node, source)}, true

	case "scoped_identifier":
		leaf := &model.UseName{Ident: fieldText(node, "name", source)}
		return prefixUseTree(pathSegments(node.ChildByFieldName("path"), source), leaf), true

	case "scoped_use_list":
		list, ok := convertUseTree(node.ChildByFieldName("list"), source)
		if !ok {
			return nil, false
		}
		return prefixUseTree(pathSegments(node.ChildByFieldName("path"), source), list), true

	case "use_list":
		group := &model.UseGroup{}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if skipped(child) {
				continue
			}
			item, ok := convertUseTree(child, source)
			if !ok {
				return nil, false
			}
			group.Items = append(group.Items, item)
		}
		return group, true

	case "use_wildcard":
		var prefix []string
		if node.NamedChildCount() > 0 {
			prefix = pathSegments(node.NamedChild(0), source)
		}
		return prefixUseTree(prefix, &model.UseGlob{}), true

	case "use_as_clause":
		segs := pathSegments(node.ChildByFieldName("path"), source)
		if len(segs) == 0 {
			return nil, false
		}
		rename := &model.UseRename{Ident: segs[len(segs)-1], Alias: fieldText(node, "alias", source)}
		return prefixUseTree(segs[:len(segs)-1], rename), true
	}

	return nil, false
}

func prefixUseTree(segs []string, tree model.UseTree) model.UseTree {
	for i := len(segs) - 1; i >= 0; i-- {
		tree = &model.UsePath{Ident: segs[i], Tree: tree}
	}
	return tree
}

func convertType(node *sitter.Node, source []byte) model.Type {
	if node == nil {
		return nil
	}

	switch node.Type() {
	case "type_identifier", "primitive_type", "scoped_type_identifier":
		return &model.PathType{Segments: pathSegments(node, source)}

	case "generic_type":
		return &model.PathType{Segments: pathSegments(node, source), Generic: true}

	case "pointer_type":
		isConst := false
		for i := 0; i < int(node.ChildCount()); i++ {
			if node.Child(i).Type() == "const" {
				isConst = true
				break
			}
		}
		return &model.PointerType{Const: isConst, Elem: convertType(node.ChildByFieldName("type"), source)}
	}

	return &model.OtherType{Kind: node.Type(), Text: lang.CollapseWhitespace(lang.NodeText(node, source))}
}

func convertExpr(node *sitter.Node, source []byte) model.Expr {
	if node == nil {
		return &model.OtherExpr{}
	}
	if node.Type() == "integer_literal" {
		return &model.IntLit{Text: lang.NodeText(node, source)}
	}
	return &model.OtherExpr{Kind: node.Type(), Text: lang.CollapseWhitespace(lang.NodeText(node, source))}
}

func convertForeignMod(node *sitter.Node, source []byte) *model.ForeignMod {
	fm := &model.ForeignMod{Pos: pos(node)}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "extern_modifier" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			if abi := child.NamedChild(j); abi.Type() == "string_literal" {
				fm.ABI = strings.Trim(lang.NodeText(abi, source), `"`)
			}
		}
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return fm
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if skipped(child) {
			continue
		}
		if child.Type() == "function_signature_item" {
			fm.Items = append(fm.Items, convertForeignFn(child, source))
			continue
		}
		fm.Items = append(fm.Items, &model.ForeignOther{
			Kind: child.Type(),
			Text: lang.NodeText(child, source),
		})
	}
	return fm
}

func convertForeignFn(node *sitter.Node, source []byte) *model.ForeignFn {
	fn := &model.ForeignFn{
		Vis:    visibility(node, source),
		Name:   fieldText(node, "name", source),
		Result: convertType(node.ChildByFieldName("return_type"), source),
	}

	params := node.ChildByFieldName("parameters")
	if params == nil {
		return fn
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		switch {
		case skipped(child):
		case child.Type() == "self_parameter", child.Type() == "variadic_parameter":
		case child.Type() == "parameter":
			var name string
			if pat := child.ChildByFieldName("pattern"); pat != nil && pat.Type() == "identifier" {
				name = lang.NodeText(pat, source)
			}
			fn.Params = append(fn.Params, model.Param{
				Name: name,
				Type: convertType(child.ChildByFieldName("type"), source),
			})
		default:
			// Anonymous parameter: a bare type.
			fn.Params = append(fn.Params, model.Param{Type: convertType(child, source)})
		}
	}
	return fn
}

func convertMacro(node *sitter.Node, source []byte) *model.MacroCall {
	m := &model.MacroCall{
		Pos:  pos(node),
		Path: pathSegments(node.ChildByFieldName("macro"), source),
	}

	var tt *sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() == "token_tree" {
			tt = child
		}
	}
	if tt == nil {
		return m
	}

	start, end := tt.StartByte()+1, tt.EndByte()-1
	if end > start {
		m.Body = strings.TrimSpace(string(source[start:end]))
	}

	// The first and last children are the delimiters.
	for i := 1; i < int(tt.ChildCount())-1; i++ {
		child := tt.Child(i)
		if child.Type() == "line_comment" || child.Type() == "block_comment" {
			continue
		}
		m.Tokens = append(m.Tokens, model.Token{
			Kind: tokenKind(child, source),
			Text: lang.NodeText(child, source),
		})
	}
	return m
}

func tokenKind(node *sitter.Node, source []byte) model.TokenKind {
	switch node.Type() {
	case "token_tree":
		return model.GroupToken
	case "identifier", "primitive_type", "mutable_specifier", "self", "super", "crate":
		return model.IdentToken
	case "integer_literal", "float_literal", "string_literal", "raw_string_literal", "char_literal", "boolean_literal":
		return model.LiteralToken
	}
	if !node.IsNamed() && identRe.MatchString(lang.NodeText(node, source)) {
		// Keywords inside token trees.
		return model.IdentToken
	}
	return model.PunctToken
}
