package parse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/rs2zig/internal/model"
)

// ParseRecord parses the body of a declaration macro such as
// `STRUCT!{struct POINT { x: LONG, y: LONG, }}` as a struct with named
// fields. Tuple and unit structs, and bodies holding anything besides the
// struct, are rejected.
func (p *Parser) ParseRecord(body string) (*model.Struct, error) {
	source := []byte(body)
	root, tree, err := p.parseTree(context.Background(), source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var node *sitter.Node
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if skipped(child) {
			continue
		}
		if node != nil {
			return nil, fmt.Errorf("unexpected %s after struct", child.Type())
		}
		node = child
	}
	if node == nil {
		return nil, fmt.Errorf("expected struct, found nothing")
	}
	if node.Type() != "struct_item" {
		return nil, fmt.Errorf("expected struct, found %s", node.Type())
	}

	s := &model.Struct{Name: fieldText(node, "name", source)}
	fields := node.ChildByFieldName("body")
	if fields == nil || fields.Type() != "field_declaration_list" {
		return nil, fmt.Errorf("struct %s has no named fields", s.Name)
	}
	for j := 0; j < int(fields.NamedChildCount()); j++ {
		f := fields.NamedChild(j)
		if f.Type() != "field_declaration" {
			continue
		}
		s.Fields = append(s.Fields, model.Field{
			Name: fieldText(f, "name", source),
			Type: convertType(f.ChildByFieldName("type"), source),
		})
	}
	return s, nil
}
