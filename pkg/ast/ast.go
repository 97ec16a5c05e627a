// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"fmt"
	"strconv"

	"github.com/paivett/gone/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	Program NodeType = iota

	// Statements
	VarDecl
	ConstDecl
	PrintStmt
	WriteLocation

	// Expressions
	BinaryOp
	UnaryOp
	IntegerLit
	FloatLit
	CharLit
	ReadLocation

	// Names
	SimpleLocation
	SimpleType
)

var nodeTypeNames = [...]string{
	Program:        "Program",
	VarDecl:        "VarDeclaration",
	ConstDecl:      "ConstDeclaration",
	PrintStmt:      "PrintStatement",
	WriteLocation:  "WriteLocation",
	BinaryOp:       "BinOp",
	UnaryOp:        "UnaryOp",
	IntegerLit:     "IntegerLiteral",
	FloatLit:       "FloatLiteral",
	CharLit:        "CharLiteral",
	ReadLocation:   "ReadLocation",
	SimpleLocation: "SimpleLocation",
	SimpleType:     "SimpleType",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Node represents a node in the Abstract Syntax Tree. Passes never write to
// a node; what they learn about it is kept in their own tables keyed by the
// node pointer.
type Node struct {
	Type NodeType
	Tok  token.Token
	Data interface{}
}

func (n *Node) Line() int { return n.Tok.Line }

// --- Node Data Structs ---
type ProgramNode struct{ Stmts []*Node }
type VarDeclNode struct {
	Name     string
	Datatype *Node // SimpleType
	Value    *Node // nil when uninitialized
}
type ConstDeclNode struct {
	Name  string
	Value *Node
}
type PrintStmtNode struct{ Value *Node }
type WriteLocationNode struct{ Location, Value *Node }
type BinaryOpNode struct {
	Op          token.Type
	Left, Right *Node
}
type UnaryOpNode struct {
	Op   token.Type
	Expr *Node
}
type IntegerLitNode struct{ Value int64 }
type FloatLitNode struct{ Value float64 }
type CharLitNode struct{ Value rune }
type ReadLocationNode struct{ Location *Node }
type SimpleLocationNode struct{ Name string }
type SimpleTypeNode struct{ Name string }

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}) *Node {
	return &Node{Type: nodeType, Tok: tok, Data: data}
}

func NewProgram(tok token.Token, stmts []*Node) *Node {
	return newNode(tok, Program, ProgramNode{Stmts: stmts})
}
func NewVarDecl(tok token.Token, name string, datatype, value *Node) *Node {
	return newNode(tok, VarDecl, VarDeclNode{Name: name, Datatype: datatype, Value: value})
}
func NewConstDecl(tok token.Token, name string, value *Node) *Node {
	return newNode(tok, ConstDecl, ConstDeclNode{Name: name, Value: value})
}
func NewPrintStmt(tok token.Token, value *Node) *Node {
	return newNode(tok, PrintStmt, PrintStmtNode{Value: value})
}
func NewWriteLocation(tok token.Token, location, value *Node) *Node {
	return newNode(tok, WriteLocation, WriteLocationNode{Location: location, Value: value})
}
func NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right})
}
func NewUnaryOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr})
}
func NewIntegerLit(tok token.Token, value int64) *Node {
	return newNode(tok, IntegerLit, IntegerLitNode{Value: value})
}
func NewFloatLit(tok token.Token, value float64) *Node {
	return newNode(tok, FloatLit, FloatLitNode{Value: value})
}
func NewCharLit(tok token.Token, value rune) *Node {
	return newNode(tok, CharLit, CharLitNode{Value: value})
}
func NewReadLocation(tok token.Token, location *Node) *Node {
	return newNode(tok, ReadLocation, ReadLocationNode{Location: location})
}
func NewSimpleLocation(tok token.Token, name string) *Node {
	return newNode(tok, SimpleLocation, SimpleLocationNode{Name: name})
}
func NewSimpleType(tok token.Token, name string) *Node {
	return newNode(tok, SimpleType, SimpleTypeNode{Name: name})
}

// Children returns the direct children of n in source evaluation order.
func Children(n *Node) []*Node {
	var kids []*Node
	add := func(c ...*Node) {
		for _, k := range c {
			if k != nil {
				kids = append(kids, k)
			}
		}
	}
	switch d := n.Data.(type) {
	case ProgramNode:
		add(d.Stmts...)
	case VarDeclNode:
		add(d.Datatype, d.Value)
	case ConstDeclNode:
		add(d.Value)
	case PrintStmtNode:
		add(d.Value)
	case WriteLocationNode:
		add(d.Location, d.Value)
	case BinaryOpNode:
		add(d.Left, d.Right)
	case UnaryOpNode:
		add(d.Expr)
	case ReadLocationNode:
		add(d.Location)
	}
	return kids
}

// Walk calls fn for n and then its descendants, depth first.
func Walk(n *Node, fn func(n *Node, depth int)) {
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range Children(n) {
			walk(c, depth+1)
		}
	}
	if n != nil {
		walk(n, 0)
	}
}

func (n *Node) String() string {
	switch d := n.Data.(type) {
	case VarDeclNode:
		return fmt.Sprintf("%s(name=%s)", n.Type, d.Name)
	case ConstDeclNode:
		return fmt.Sprintf("%s(name=%s)", n.Type, d.Name)
	case BinaryOpNode:
		return fmt.Sprintf("%s(op=%s)", n.Type, d.Op)
	case UnaryOpNode:
		return fmt.Sprintf("%s(op=%s)", n.Type, d.Op)
	case IntegerLitNode:
		return fmt.Sprintf("%s(%d)", n.Type, d.Value)
	case FloatLitNode:
		return fmt.Sprintf("%s(%s)", n.Type, strconv.FormatFloat(d.Value, 'g', -1, 64))
	case CharLitNode:
		return fmt.Sprintf("%s(%s)", n.Type, strconv.QuoteRune(d.Value))
	case SimpleLocationNode:
		return fmt.Sprintf("%s(name=%s)", n.Type, d.Name)
	case SimpleTypeNode:
		return fmt.Sprintf("%s(name=%s)", n.Type, d.Name)
	}
	return n.Type.String()
}
