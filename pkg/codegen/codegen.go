package codegen

import (
	"github.com/paivett/gone/pkg/ast"
	"github.com/paivett/gone/pkg/config"
	"github.com/paivett/gone/pkg/diag"
	"github.com/paivett/gone/pkg/ir"
	"github.com/paivett/gone/pkg/token"
	"github.com/paivett/gone/pkg/typeChecker"
	"github.com/paivett/gone/pkg/types"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// ErrHasErrors is returned when IR generation is asked to run on a tree
// that failed checking.
var ErrHasErrors = errors.New("program has errors")

type operation int

const (
	opMov operation = iota
	opVar
	opLoad
	opStore
	opAdd
	opSub
	opMul
	opDiv
	opPrint
)

type opcodeClass map[operation]ir.Opcode

var (
	classI = opcodeClass{
		opMov: ir.OpMovI, opVar: ir.OpVarI, opLoad: ir.OpLoadI, opStore: ir.OpStoreI,
		opAdd: ir.OpAddI, opSub: ir.OpSubI, opMul: ir.OpMulI, opDiv: ir.OpDivI,
		opPrint: ir.OpPrintI,
	}
	classF = opcodeClass{
		opMov: ir.OpMovF, opVar: ir.OpVarF, opLoad: ir.OpLoadF, opStore: ir.OpStoreF,
		opAdd: ir.OpAddF, opSub: ir.OpSubF, opMul: ir.OpMulF, opDiv: ir.OpDivF,
		opPrint: ir.OpPrintF,
	}
	classB = opcodeClass{
		opMov: ir.OpMovB, opVar: ir.OpVarB, opLoad: ir.OpLoadB, opStore: ir.OpStoreB,
		opPrint: ir.OpPrintB,
	}
)

// opcodeTable selects opcodes by type name. char and byte share a class.
var opcodeTable = map[string]opcodeClass{
	"int":   classI,
	"float": classF,
	"char":  classB,
	"byte":  classB,
}

var binaryOps = map[token.Type]operation{
	token.Plus:  opAdd,
	token.Minus: opSub,
	token.Star:  opMul,
	token.Slash: opDiv,
}

// Context generates IR for one checked tree.
type Context struct {
	cfg     *config.Config
	diags   *diag.Sink
	info    *typeChecker.Info
	prog    *ir.Program
	regs    map[*ast.Node]ir.Register
	lastReg ir.Register
}

func NewContext(cfg *config.Config, diags *diag.Sink) *Context {
	return &Context{cfg: cfg, diags: diags}
}

// GenerateIR translates root into a fresh program. It fails with
// ErrHasErrors when the sink holds errors, and with ErrInternal when the
// annotations do not cover the tree.
func (ctx *Context) GenerateIR(root *ast.Node, info *typeChecker.Info) (*ir.Program, error) {
	if ctx.diags != nil && ctx.diags.HasErrors() {
		return nil, ErrHasErrors
	}
	if root == nil || info == nil {
		return nil, errors.Wrap(ErrInternal, "nothing to generate")
	}

	ctx.info = info
	ctx.prog = &ir.Program{}
	ctx.regs = make(map[*ast.Node]ir.Register)
	ctx.lastReg = 0

	if err := ctx.codegenNode(root); err != nil {
		return nil, err
	}
	ctx.prog.NumRegisters = int(ctx.lastReg)

	tlog.V("ir").Printw("ir generated", "instructions", ctx.prog.Len(), "registers", ctx.prog.NumRegisters)

	return ctx.prog, nil
}

func (ctx *Context) newReg() ir.Register {
	ctx.lastReg++
	return ctx.lastReg
}

func (ctx *Context) emit(op ir.Opcode, dest ir.Register, args ...ir.Operand) {
	ctx.prog.Emit(ir.Instruction{Op: op, Args: args, Dest: dest})
}

func (ctx *Context) class(n *ast.Node) (opcodeClass, *types.Type, error) {
	t := ctx.info.TypeOf(n)
	if t == nil {
		return nil, nil, errors.Wrap(ErrInternal, "line %d: %s has no type", n.Line(), n.Type)
	}
	if t.Name == "byte" && (ctx.cfg == nil || !ctx.cfg.IsFeatureEnabled(config.FeatByte)) {
		return nil, nil, errors.Wrap(ErrInternal, "line %d: byte used with the byte feature disabled", n.Line())
	}
	c, ok := opcodeTable[t.Name]
	if !ok {
		return nil, nil, errors.Wrap(ErrInternal, "line %d: no opcodes for type %s", n.Line(), t)
	}
	return c, t, nil
}

func (ctx *Context) opcode(n *ast.Node, op operation) (ir.Opcode, error) {
	c, t, err := ctx.class(n)
	if err != nil {
		return 0, err
	}
	code, ok := c[op]
	if !ok {
		return 0, errors.Wrap(ErrInternal, "line %d: type %s has no opcode for %v", n.Line(), t, op)
	}
	return code, nil
}

func (ctx *Context) codegenNode(node *ast.Node) error {
	switch d := node.Data.(type) {
	case ast.ProgramNode:
		for _, stmt := range d.Stmts {
			if err := ctx.codegenNode(stmt); err != nil {
				return err
			}
		}
		return nil

	case ast.VarDeclNode:
		return ctx.codegenDecl(node, d.Name, d.Value)
	case ast.ConstDeclNode:
		return ctx.codegenDecl(node, d.Name, d.Value)

	case ast.PrintStmtNode:
		r, err := ctx.codegenExpr(d.Value)
		if err != nil {
			return err
		}
		op, err := ctx.opcode(d.Value, opPrint)
		if err != nil {
			return err
		}
		ctx.emit(op, 0, r)
		return nil

	case ast.WriteLocationNode:
		r, err := ctx.codegenExpr(d.Value)
		if err != nil {
			return err
		}
		op, err := ctx.opcode(node, opStore)
		if err != nil {
			return err
		}
		ctx.emit(op, 0, r, locationName(d.Location))
		return nil
	}

	_, err := ctx.codegenExpr(node)
	return err
}

// codegenDecl evaluates the initializer, then reserves storage and stores.
func (ctx *Context) codegenDecl(node *ast.Node, name string, value *ast.Node) error {
	var r ir.Register
	if value != nil {
		var err error
		if r, err = ctx.codegenExpr(value); err != nil {
			return err
		}
	}

	op, err := ctx.opcode(node, opVar)
	if err != nil {
		return err
	}
	ctx.emit(op, 0, ir.Name(name))

	if value == nil {
		return nil
	}

	op, err = ctx.opcode(node, opStore)
	if err != nil {
		return err
	}
	ctx.emit(op, 0, r, ir.Name(name))
	return nil
}

func (ctx *Context) codegenExpr(node *ast.Node) (ir.Register, error) {
	if r, ok := ctx.regs[node]; ok {
		return r, nil
	}

	var r ir.Register
	var err error

	switch d := node.Data.(type) {
	case ast.IntegerLitNode:
		r, err = ctx.codegenMov(node, ir.Int(d.Value))
	case ast.FloatLitNode:
		r, err = ctx.codegenMov(node, ir.Float(d.Value))
	case ast.CharLitNode:
		r, err = ctx.codegenMov(node, ir.Int(d.Value))

	case ast.ReadLocationNode:
		var op ir.Opcode
		if op, err = ctx.opcode(node, opLoad); err != nil {
			return 0, err
		}
		r = ctx.newReg()
		ctx.emit(op, r, locationName(d.Location))

	case ast.BinaryOpNode:
		r, err = ctx.codegenBinaryOp(node, d)
	case ast.UnaryOpNode:
		r, err = ctx.codegenUnaryOp(node, d)

	default:
		return 0, errors.Wrap(ErrInternal, "line %d: %s is not an expression", node.Line(), node.Type)
	}
	if err != nil {
		return 0, err
	}

	ctx.regs[node] = r
	return r, nil
}

func (ctx *Context) codegenMov(node *ast.Node, lit ir.Operand) (ir.Register, error) {
	op, err := ctx.opcode(node, opMov)
	if err != nil {
		return 0, err
	}
	r := ctx.newReg()
	ctx.emit(op, r, lit)
	return r, nil
}

func (ctx *Context) codegenBinaryOp(node *ast.Node, d ast.BinaryOpNode) (ir.Register, error) {
	left, err := ctx.codegenExpr(d.Left)
	if err != nil {
		return 0, err
	}
	right, err := ctx.codegenExpr(d.Right)
	if err != nil {
		return 0, err
	}

	kind, ok := binaryOps[d.Op]
	if !ok {
		return 0, errors.Wrap(ErrInternal, "line %d: unknown binary operator %v", node.Line(), d.Op)
	}
	op, err := ctx.opcode(node, kind)
	if err != nil {
		return 0, err
	}

	r := ctx.newReg()
	ctx.emit(op, r, left, right)
	return r, nil
}

// codegenUnaryOp lowers -x to 0 - x. +x is x itself.
func (ctx *Context) codegenUnaryOp(node *ast.Node, d ast.UnaryOpNode) (ir.Register, error) {
	operand, err := ctx.codegenExpr(d.Expr)
	if err != nil {
		return 0, err
	}

	switch d.Op {
	case token.Plus:
		return operand, nil
	case token.Minus:
	default:
		return 0, errors.Wrap(ErrInternal, "line %d: unknown unary operator %v", node.Line(), d.Op)
	}

	_, t, err := ctx.class(node)
	if err != nil {
		return 0, err
	}
	var zero ir.Operand = ir.Int(0)
	if t.Name == "float" {
		zero = ir.Float(0)
	}

	z, err := ctx.codegenMov(node, zero)
	if err != nil {
		return 0, err
	}
	op, err := ctx.opcode(node, opSub)
	if err != nil {
		return 0, err
	}

	r := ctx.newReg()
	ctx.emit(op, r, z, operand)
	return r, nil
}

func locationName(loc *ast.Node) ir.Name {
	return ir.Name(loc.Data.(ast.SimpleLocationNode).Name)
}

func (op operation) String() string {
	switch op {
	case opMov:
		return "mov"
	case opVar:
		return "var"
	case opLoad:
		return "load"
	case opStore:
		return "store"
	case opAdd:
		return "add"
	case opSub:
		return "sub"
	case opMul:
		return "mul"
	case opDiv:
		return "div"
	case opPrint:
		return "print"
	}
	return "unknown"
}
