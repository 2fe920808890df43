// typeparse.go parses a type-position sub-tree, per spec.md §4.1's grammar
// `type := "void" | "int" | "byte" | "ptr" type`, into a TypeDef. A type
// sub-tree is either a bare identifier (a scalar with pointer level 0) or a
// list of identifier tokens in order, e.g. (ptr ptr int) for `int**`.

package ir

import (
	"fmt"

	"sxc/src/frontend"
)

// ParseType reads a TypeDef out of the type-position sub-tree n.
func ParseType(n *frontend.Node) (TypeDef, error) {
	var tokens []string
	switch n.Kind {
	case frontend.Identifier:
		tokens = []string{n.Name}
	case frontend.List:
		for _, c := range n.Children {
			if c.Kind != frontend.Identifier {
				return TypeDef{}, fmt.Errorf("%d:%d: malformed type: expected identifier, got %s", c.Line, c.Pos, c.Shape())
			}
			tokens = append(tokens, c.Name)
		}
	default:
		return TypeDef{}, fmt.Errorf("%d:%d: malformed type: expected identifier or list, got %s", n.Line, n.Pos, n.Shape())
	}

	if len(tokens) == 0 {
		return TypeDef{}, fmt.Errorf("%d:%d: empty type", n.Line, n.Pos)
	}

	level := 0
	for len(tokens) > 1 {
		if tokens[0] != "ptr" {
			return TypeDef{}, fmt.Errorf("%d:%d: trailing identifiers after scalar type %q", n.Line, n.Pos, tokens[0])
		}
		level++
		tokens = tokens[1:]
	}

	var scalar Scalar
	switch tokens[0] {
	case "void":
		if level > 0 {
			return TypeDef{}, fmt.Errorf("%d:%d: \"ptr void\" is not a valid type", n.Line, n.Pos)
		}
		scalar = Void
	case "int":
		scalar = Int
	case "byte":
		scalar = Byte
	default:
		return TypeDef{}, fmt.Errorf("%d:%d: unknown type %q", n.Line, n.Pos, tokens[0])
	}

	return TypeDef{Scalar: scalar, PointerLevel: level}, nil
}
