package codegen

import (
	"bytes"

	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/paivett/gone/pkg/config"
	"github.com/paivett/gone/pkg/target"
	"tlog.app/go/errors"
)

type llvmBackend struct {
	m       *llir.Module
	globals map[string]*llir.Global
	funcs   map[string]*llir.Func
	temps   map[string]value.Value
}

func NewLLVMBackend() Backend { return &llvmBackend{} }

func (b *llvmBackend) Name() string { return "llvm" }
func (b *llvmBackend) Ext() string  { return ".ll" }

func (b *llvmBackend) GenerateIR(mod *target.Module, cfg *config.Config) (string, error) {
	b.m = llir.NewModule()
	b.globals = make(map[string]*llir.Global)
	b.funcs = make(map[string]*llir.Func)
	b.temps = make(map[string]value.Value)

	for _, e := range mod.Externs {
		params := make([]*llir.Param, len(e.Params))
		for i, p := range e.Params {
			params[i] = llir.NewParam("", b.llvmType(p))
		}
		b.funcs[e.Name] = b.m.NewFunc(e.Name, b.llvmType(e.ReturnType), params...)
	}

	for _, g := range mod.Globals {
		def := b.m.NewGlobalDef(g.Name, b.zero(g.Typ))
		def.Linkage = enum.LinkageInternal
		b.globals[g.Name] = def
	}

	for _, fn := range mod.Funcs {
		if err := b.genFunc(fn); err != nil {
			return "", errors.Wrap(err, "function %s", fn.Name)
		}
	}

	return b.m.String(), nil
}

// Generate returns the textual module; clang assembles it.
func (b *llvmBackend) Generate(mod *target.Module, cfg *config.Config) (*bytes.Buffer, error) {
	text, err := b.GenerateIR(mod, cfg)
	if err != nil {
		return nil, err
	}
	return bytes.NewBufferString(text), nil
}

func (b *llvmBackend) Runtime(cfg *config.Config) (*bytes.Buffer, error) {
	return bytes.NewBufferString(llvmRuntime), nil
}

func (b *llvmBackend) llvmType(t target.Type) types.Type {
	switch t {
	case target.TypeB:
		return types.I8
	case target.TypeW:
		return types.I32
	case target.TypeD:
		return types.Double
	}
	return types.Void
}

func (b *llvmBackend) zero(t target.Type) constant.Constant {
	switch t {
	case target.TypeB:
		return constant.NewInt(types.I8, 0)
	case target.TypeD:
		return constant.NewFloat(types.Double, 0)
	}
	return constant.NewInt(types.I32, 0)
}

func (b *llvmBackend) genFunc(fn *target.Func) error {
	f := b.m.NewFunc(fn.Name, b.llvmType(fn.ReturnType))
	b.funcs[fn.Name] = f

	for _, block := range fn.Blocks {
		bb := f.NewBlock(block.Label)
		for _, instr := range block.Instructions {
			if err := b.genInstr(bb, instr); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *llvmBackend) genInstr(bb *llir.Block, instr *target.Instruction) error {
	args := make([]value.Value, len(instr.Args))
	for i, a := range instr.Args {
		v, err := b.value(a, instr.Typ)
		if err != nil {
			return err
		}
		args[i] = v
	}

	var result interface{ SetName(string) }
	var v value.Value

	switch instr.Op {
	case target.OpLoad:
		load := bb.NewLoad(b.llvmType(instr.Typ), args[0])
		result, v = load, load
	case target.OpStore:
		bb.NewStore(args[0], args[1])
	case target.OpCall:
		bb.NewCall(args[0], args[1:]...)
	case target.OpRet:
		if len(args) == 0 {
			bb.NewRet(nil)
		} else {
			bb.NewRet(args[0])
		}

	case target.OpAdd:
		if instr.Typ == target.TypeD {
			inst := bb.NewFAdd(args[0], args[1])
			result, v = inst, inst
		} else {
			inst := bb.NewAdd(args[0], args[1])
			result, v = inst, inst
		}
	case target.OpSub:
		if instr.Typ == target.TypeD {
			inst := bb.NewFSub(args[0], args[1])
			result, v = inst, inst
		} else {
			inst := bb.NewSub(args[0], args[1])
			result, v = inst, inst
		}
	case target.OpMul:
		if instr.Typ == target.TypeD {
			inst := bb.NewFMul(args[0], args[1])
			result, v = inst, inst
		} else {
			inst := bb.NewMul(args[0], args[1])
			result, v = inst, inst
		}
	case target.OpDiv:
		if instr.Typ == target.TypeD {
			inst := bb.NewFDiv(args[0], args[1])
			result, v = inst, inst
		} else {
			inst := bb.NewSDiv(args[0], args[1])
			result, v = inst, inst
		}

	default:
		return errors.Wrap(ErrInternal, "llvm: unsupported op %v", instr.Op)
	}

	if tmp, ok := instr.Result.(*target.Temporary); ok && result != nil {
		result.SetName(tmp.Name)
		b.temps[tmp.Name] = v
	}
	return nil
}

// value maps an operand to its LLVM value. Integer constants take their
// own width, falling back to the instruction type.
func (b *llvmBackend) value(v target.Value, t target.Type) (value.Value, error) {
	switch val := v.(type) {
	case *target.Const:
		typ := val.Typ
		if typ == target.TypeNone {
			typ = t
		}
		if typ == target.TypeB {
			return constant.NewInt(types.I8, val.Value), nil
		}
		return constant.NewInt(types.I32, val.Value), nil
	case *target.FloatConst:
		return constant.NewFloat(types.Double, val.Value), nil
	case *target.Global:
		if g, ok := b.globals[val.Name]; ok {
			return g, nil
		}
		if f, ok := b.funcs[val.Name]; ok {
			return f, nil
		}
		return nil, errors.Wrap(ErrInternal, "llvm: unknown global %s", val.Name)
	case *target.Temporary:
		if tv, ok := b.temps[val.Name]; ok {
			return tv, nil
		}
		return nil, errors.Wrap(ErrInternal, "llvm: undefined temporary %s", val.Name)
	}
	return nil, errors.Wrap(ErrInternal, "llvm: unsupported value %T", v)
}
