package typeChecker

import (
	"fmt"
	"io"
	"strings"

	"github.com/paivett/gone/pkg/ast"
	"github.com/paivett/gone/pkg/config"
	"github.com/paivett/gone/pkg/diag"
	"github.com/paivett/gone/pkg/target"
	"github.com/paivett/gone/pkg/token"
	"github.com/paivett/gone/pkg/types"
)

// Info is what checking learned about a tree. A node missing from Types (or
// mapped to nil) either has no value or sits in a subtree that already
// produced an error.
type Info struct {
	Types   map[*ast.Node]*types.Type
	Symbols *SymbolTable
}

func (info *Info) TypeOf(n *ast.Node) *types.Type { return info.Types[n] }

// Dump prints the tree with the type of every node, one node per line.
func (info *Info) Dump(w io.Writer, root *ast.Node) {
	ast.Walk(root, func(n *ast.Node, depth int) {
		fmt.Fprintf(w, "%d: %s%s type: %s\n", n.Line(), strings.Repeat(" ", 4*depth), n, info.TypeOf(n))
	})
}

type TypeChecker struct {
	cfg      *config.Config
	registry *types.Registry
	diags    *diag.Sink
	info     *Info
}

func NewTypeChecker(cfg *config.Config, registry *types.Registry, diags *diag.Sink) *TypeChecker {
	return &TypeChecker{cfg: cfg, registry: registry, diags: diags}
}

// Check walks root once and returns fresh annotations. Errors go to the
// sink; checking never stops at the first one.
func (tc *TypeChecker) Check(root *ast.Node) *Info {
	tc.info = &Info{Types: make(map[*ast.Node]*types.Type), Symbols: NewSymbolTable()}
	tc.checkNode(root)

	if tc.cfg == nil || !tc.cfg.IsWarningEnabled(config.WarnUnused) {
		return tc.info
	}
	for _, sym := range tc.info.Symbols.Ordered() {
		if sym.Reads == 0 {
			tc.diags.Warnf(config.WarnUnused, sym.Node.Tok, "'%s' declared and not used", sym.Name)
		}
	}
	return tc.info
}

func (tc *TypeChecker) setType(n *ast.Node, t *types.Type) {
	if t == nil {
		delete(tc.info.Types, n)
		return
	}
	tc.info.Types[n] = t
}

func (tc *TypeChecker) typeOf(n *ast.Node) *types.Type { return tc.info.Types[n] }

func opOf(t token.Type) types.Op {
	switch t {
	case token.Plus:
		return types.Add
	case token.Minus:
		return types.Sub
	case token.Star:
		return types.Mul
	case token.Slash:
		return types.Div
	}
	return types.Op(t.String())
}

// isLegalName rejects primitive type names and the names the generated
// module uses for itself.
func (tc *TypeChecker) isLegalName(name string) bool {
	if tc.registry.IsTypeName(name) {
		return false
	}
	for _, reserved := range target.ReservedNames {
		if name == reserved {
			return false
		}
	}
	return true
}

// declare runs the checks shared by var and const declarations. It reports
// false when the name may not be bound.
func (tc *TypeChecker) declare(n *ast.Node, name string) bool {
	if !tc.isLegalName(name) {
		tc.diags.Errorf(n.Tok, "Name '%s' is not a legal name for variable declaration", name)
		return false
	}
	if prev := tc.info.Symbols.Lookup(name); prev != nil {
		tc.diags.Errorf(n.Tok, "Name '%s' has already been defined at line %d", name, prev.Line())
		return false
	}
	return true
}

func (tc *TypeChecker) checkNode(node *ast.Node) {
	if node == nil {
		return
	}

	switch d := node.Data.(type) {
	case ast.ProgramNode:
		for _, stmt := range d.Stmts {
			tc.checkNode(stmt)
		}

	case ast.VarDeclNode:
		if !tc.declare(node, d.Name) {
			return
		}
		tc.checkNode(d.Datatype)
		declared := tc.typeOf(d.Datatype)
		if declared == nil {
			tc.checkNode(d.Value)
			return
		}
		if d.Value != nil {
			tc.checkNode(d.Value)
			valueType := tc.typeOf(d.Value)
			if valueType == nil {
				return
			}
			if valueType != declared {
				tc.diags.Errorf(node.Tok, "Declaring variable '%s' of type '%s' but assigned expression of type '%s'", d.Name, declared, valueType)
				return
			}
		}
		tc.setType(node, declared)
		tc.info.Symbols.Insert(d.Name, node)

	case ast.ConstDeclNode:
		if !tc.declare(node, d.Name) {
			return
		}
		tc.checkNode(d.Value)
		tc.setType(node, tc.typeOf(d.Value))
		tc.info.Symbols.Insert(d.Name, node)

	case ast.IntegerLitNode:
		tc.setType(node, tc.registry.Int)
	case ast.FloatLitNode:
		tc.setType(node, tc.registry.Float)
	case ast.CharLitNode:
		tc.setType(node, tc.registry.Char)

	case ast.PrintStmtNode:
		tc.checkNode(d.Value)

	case ast.BinaryOpNode:
		tc.checkNode(d.Left)
		tc.checkNode(d.Right)
		left, right := tc.typeOf(d.Left), tc.typeOf(d.Right)
		if left == nil || right == nil {
			tc.setType(node, nil)
			return
		}
		result := tc.registry.BinaryResult(left, opOf(d.Op), right)
		if result == nil {
			tc.diags.Errorf(node.Tok, "Binary operation '%s %s %s' not supported", left, d.Op, right)
		}
		tc.setType(node, result)

	case ast.UnaryOpNode:
		tc.checkNode(d.Expr)
		operand := tc.typeOf(d.Expr)
		if operand == nil {
			tc.setType(node, nil)
			return
		}
		result := tc.registry.UnaryResult(operand, opOf(d.Op))
		if result == nil {
			tc.diags.Errorf(node.Tok, "Unary operation '%s %s' not supported", d.Op, operand)
		}
		tc.setType(node, result)

	case ast.WriteLocationNode:
		tc.checkNode(d.Location)
		tc.checkNode(d.Value)
		tc.setType(node, nil)
		locType, valueType := tc.typeOf(d.Location), tc.typeOf(d.Value)
		if locType == nil || valueType == nil {
			return
		}
		name := d.Location.Data.(ast.SimpleLocationNode).Name
		if sym := tc.info.Symbols.Lookup(name); sym != nil && sym.IsConst() {
			tc.diags.Errorf(node.Tok, "Cannot write to constant '%s'", name)
			return
		}
		if locType != valueType {
			tc.diags.Errorf(node.Tok, "Cannot assign type '%s' to variable '%s' of type '%s'", valueType, name, locType)
			return
		}
		tc.setType(node, valueType)

	case ast.ReadLocationNode:
		tc.checkNode(d.Location)
		if loc, ok := d.Location.Data.(ast.SimpleLocationNode); ok {
			if sym := tc.info.Symbols.Lookup(loc.Name); sym != nil {
				sym.Reads++
			}
		}
		tc.setType(node, tc.typeOf(d.Location))

	case ast.SimpleLocationNode:
		sym := tc.info.Symbols.Lookup(d.Name)
		if sym == nil {
			tc.diags.Errorf(node.Tok, "Name '%s' was not defined", d.Name)
			tc.setType(node, nil)
			return
		}
		tc.setType(node, tc.typeOf(sym.Node))

	case ast.SimpleTypeNode:
		t := tc.registry.Resolve(d.Name)
		if t == nil {
			tc.diags.Errorf(node.Tok, "Unknown type '%s'", d.Name)
		}
		tc.setType(node, t)

	default:
		panic(fmt.Sprintf("typeChecker: unhandled node %s", node.Type))
	}
}
