package codegen

import (
	"github.com/paivett/gone/pkg/ir"
	"github.com/paivett/gone/pkg/target"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// ErrInternal marks a failure that well-formed input can never cause.
var ErrInternal = errors.New("internal compiler error")

// runtimeFuncs lists the print entry points in the order their externs are
// declared.
var runtimeFuncs = []struct {
	name string
	typ  target.Type
}{
	{target.PrintIntName, target.TypeW},
	{target.PrintFloatName, target.TypeD},
	{target.PrintByteName, target.TypeB},
}

type lowering struct {
	mod   *target.Module
	block *target.Block
	regs  map[ir.Register]target.Value
	types map[ir.Register]target.Type
	calls map[string]bool
}

// Lower turns an IR program into a module holding one exported entry
// procedure. Variables become zero-initialized globals.
func Lower(prog *ir.Program) (*target.Module, error) {
	l := &lowering{
		mod:   &target.Module{},
		block: &target.Block{Label: "start"},
		regs:  make(map[ir.Register]target.Value),
		types: make(map[ir.Register]target.Type),
		calls: make(map[string]bool),
	}

	for i, in := range prog.Instrs {
		if err := l.lowerInstr(in); err != nil {
			return nil, errors.Wrap(err, "instruction %d (%v)", i, in)
		}
	}

	l.add(&target.Instruction{
		Op:   target.OpRet,
		Typ:  target.TypeW,
		Args: []target.Value{&target.Const{Value: 0, Typ: target.TypeW}},
	})

	l.mod.Funcs = append(l.mod.Funcs, &target.Func{
		Name:       target.EntryName,
		Export:     true,
		ReturnType: target.TypeW,
		Blocks:     []*target.Block{l.block},
	})

	for _, rf := range runtimeFuncs {
		if l.calls[rf.name] {
			l.mod.Externs = append(l.mod.Externs, &target.Extern{Name: rf.name, Params: []target.Type{rf.typ}})
		}
	}

	tlog.V("lower").Printw("module lowered", "globals", len(l.mod.Globals), "instructions", len(l.block.Instructions), "externs", len(l.mod.Externs))

	return l.mod, nil
}

func (l *lowering) add(in *target.Instruction) {
	l.block.Instructions = append(l.block.Instructions, in)
}

func (l *lowering) define(r ir.Register, v target.Value, t target.Type) {
	l.regs[r] = v
	l.types[r] = t
}

func (l *lowering) temp(r ir.Register, t target.Type) *target.Temporary {
	tmp := &target.Temporary{Name: r.String()}
	l.define(r, tmp, t)
	return tmp
}

func (l *lowering) use(arg ir.Operand) (target.Value, target.Type, error) {
	r, ok := arg.(ir.Register)
	if !ok {
		return nil, target.TypeNone, errors.Wrap(ErrInternal, "operand %v is not a register", arg)
	}
	v, ok := l.regs[r]
	if !ok {
		return nil, target.TypeNone, errors.Wrap(ErrInternal, "register %v is undefined", r)
	}
	return v, l.types[r], nil
}

func nameOf(arg ir.Operand) (string, error) {
	n, ok := arg.(ir.Name)
	if !ok {
		return "", errors.Wrap(ErrInternal, "operand %v is not a name", arg)
	}
	return string(n), nil
}

// global returns the storage for a name VAR has declared.
func (l *lowering) global(arg ir.Operand) (*target.Global, error) {
	n, err := nameOf(arg)
	if err != nil {
		return nil, err
	}
	if l.mod.FindGlobal(n) == nil {
		return nil, errors.Wrap(ErrInternal, "unknown global %s", n)
	}
	return &target.Global{Name: n}, nil
}

func (l *lowering) declare(in ir.Instruction, t target.Type) error {
	if len(in.Args) != 1 {
		return errors.Wrap(ErrInternal, "want 1 operand")
	}
	n, err := nameOf(in.Args[0])
	if err != nil {
		return err
	}
	if l.mod.FindGlobal(n) == nil {
		l.mod.Globals = append(l.mod.Globals, &target.Data{Name: n, Typ: t})
	}
	return nil
}

func (l *lowering) mov(in ir.Instruction, t target.Type) error {
	if len(in.Args) != 1 {
		return errors.Wrap(ErrInternal, "want 1 operand")
	}
	switch lit := in.Args[0].(type) {
	case ir.Int:
		l.define(in.Dest, &target.Const{Value: int64(lit), Typ: t}, t)
	case ir.Float:
		if t != target.TypeD {
			return errors.Wrap(ErrInternal, "float literal for %v", t)
		}
		l.define(in.Dest, &target.FloatConst{Value: float64(lit)}, t)
	default:
		return errors.Wrap(ErrInternal, "operand %v is not a literal", in.Args[0])
	}
	return nil
}

func (l *lowering) load(in ir.Instruction, t target.Type) error {
	if len(in.Args) != 1 {
		return errors.Wrap(ErrInternal, "want 1 operand")
	}
	g, err := l.global(in.Args[0])
	if err != nil {
		return err
	}
	l.add(&target.Instruction{Op: target.OpLoad, Typ: t, Result: l.temp(in.Dest, t), Args: []target.Value{g}})
	return nil
}

func (l *lowering) store(in ir.Instruction, t target.Type) error {
	if len(in.Args) != 2 {
		return errors.Wrap(ErrInternal, "want 2 operands")
	}
	v, _, err := l.use(in.Args[0])
	if err != nil {
		return err
	}
	g, err := l.global(in.Args[1])
	if err != nil {
		return err
	}
	l.add(&target.Instruction{Op: target.OpStore, Typ: t, Args: []target.Value{v, g}})
	return nil
}

func (l *lowering) arith(in ir.Instruction, op target.Op, t target.Type) error {
	if len(in.Args) != 2 {
		return errors.Wrap(ErrInternal, "want 2 operands")
	}
	a, _, err := l.use(in.Args[0])
	if err != nil {
		return err
	}
	b, _, err := l.use(in.Args[1])
	if err != nil {
		return err
	}
	l.add(&target.Instruction{Op: op, Typ: t, Result: l.temp(in.Dest, t), Args: []target.Value{a, b}})
	return nil
}

func (l *lowering) print(in ir.Instruction, fn string, t target.Type) error {
	if len(in.Args) != 1 {
		return errors.Wrap(ErrInternal, "want 1 operand")
	}
	v, _, err := l.use(in.Args[0])
	if err != nil {
		return err
	}
	l.calls[fn] = true
	l.add(&target.Instruction{
		Op:       target.OpCall,
		Args:     []target.Value{&target.Global{Name: fn}, v},
		ArgTypes: []target.Type{t},
	})
	return nil
}

func (l *lowering) lowerInstr(in ir.Instruction) error {
	if in.Op.HasDest() {
		if in.Dest == 0 {
			return errors.Wrap(ErrInternal, "missing destination")
		}
		if _, ok := l.regs[in.Dest]; ok {
			return errors.Wrap(ErrInternal, "register %v written twice", in.Dest)
		}
	}

	switch in.Op {
	case ir.OpMovI:
		return l.mov(in, target.TypeW)
	case ir.OpMovF:
		return l.mov(in, target.TypeD)
	case ir.OpMovB:
		return l.mov(in, target.TypeB)

	case ir.OpVarI:
		return l.declare(in, target.TypeW)
	case ir.OpVarF:
		return l.declare(in, target.TypeD)
	case ir.OpVarB:
		return l.declare(in, target.TypeB)

	case ir.OpLoadI:
		return l.load(in, target.TypeW)
	case ir.OpLoadF:
		return l.load(in, target.TypeD)
	case ir.OpLoadB:
		return l.load(in, target.TypeB)

	case ir.OpStoreI:
		return l.store(in, target.TypeW)
	case ir.OpStoreF:
		return l.store(in, target.TypeD)
	case ir.OpStoreB:
		return l.store(in, target.TypeB)

	case ir.OpAddI:
		return l.arith(in, target.OpAdd, target.TypeW)
	case ir.OpAddF:
		return l.arith(in, target.OpAdd, target.TypeD)
	case ir.OpSubI:
		return l.arith(in, target.OpSub, target.TypeW)
	case ir.OpSubF:
		return l.arith(in, target.OpSub, target.TypeD)
	case ir.OpMulI:
		return l.arith(in, target.OpMul, target.TypeW)
	case ir.OpMulF:
		return l.arith(in, target.OpMul, target.TypeD)
	case ir.OpDivI:
		return l.arith(in, target.OpDiv, target.TypeW)
	case ir.OpDivF:
		return l.arith(in, target.OpDiv, target.TypeD)

	case ir.OpPrintI:
		return l.print(in, target.PrintIntName, target.TypeW)
	case ir.OpPrintF:
		return l.print(in, target.PrintFloatName, target.TypeD)
	case ir.OpPrintB:
		return l.print(in, target.PrintByteName, target.TypeB)
	}

	return errors.Wrap(ErrInternal, "unknown opcode %v", in.Op)
}
