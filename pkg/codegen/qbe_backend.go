package codegen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/paivett/gone/pkg/config"
	"github.com/paivett/gone/pkg/target"
	"tlog.app/go/errors"
)

type qbeBackend struct {
	out *strings.Builder
	mod *target.Module
}

func NewQBEBackend() Backend { return &qbeBackend{} }

func (b *qbeBackend) Name() string { return "qbe" }
func (b *qbeBackend) Ext() string  { return ".s" }

func (b *qbeBackend) GenerateIR(mod *target.Module, cfg *config.Config) (string, error) {
	var qbeIRBuilder strings.Builder
	b.out = &qbeIRBuilder
	b.mod = mod

	if err := b.gen(); err != nil {
		return "", err
	}
	return qbeIRBuilder.String(), nil
}

func (b *qbeBackend) Generate(mod *target.Module, cfg *config.Config) (*bytes.Buffer, error) {
	qbeIR, err := b.GenerateIR(mod, cfg)
	if err != nil {
		return nil, err
	}
	return assembleQBE(qbeIR, cfg)
}

func (b *qbeBackend) Runtime(cfg *config.Config) (*bytes.Buffer, error) {
	return assembleQBE(qbeRuntime, cfg)
}

func (b *qbeBackend) gen() error {
	for _, e := range b.mod.Externs {
		params := make([]string, len(e.Params))
		for i, p := range e.Params {
			params[i] = b.formatType(p)
		}
		fmt.Fprintf(b.out, "# extern $%s(%s)\n", e.Name, strings.Join(params, ", "))
	}
	if len(b.mod.Externs) > 0 {
		b.out.WriteString("\n")
	}

	for _, g := range b.mod.Globals {
		b.genGlobal(g)
	}

	for _, fn := range b.mod.Funcs {
		if err := b.genFunc(fn); err != nil {
			return errors.Wrap(err, "function %s", fn.Name)
		}
	}
	return nil
}

// genGlobal emits file-local storage, so user names never collide with
// symbols from the C library.
func (b *qbeBackend) genGlobal(g *target.Data) {
	zero := "0"
	if g.Typ == target.TypeD {
		zero = "d_0"
	}
	fmt.Fprintf(b.out, "data $%s = align %d { %s %s }\n", g.Name, target.SizeOfType(g.Typ), b.formatType(g.Typ), zero)
}

func (b *qbeBackend) genFunc(fn *target.Func) error {
	retTypeStr := b.formatType(fn.ReturnType)
	if retTypeStr != "" {
		retTypeStr = " " + retTypeStr
	}
	export := ""
	if fn.Export {
		export = "export "
	}

	fmt.Fprintf(b.out, "\n%sfunction%s $%s() {\n", export, retTypeStr, fn.Name)
	for _, block := range fn.Blocks {
		fmt.Fprintf(b.out, "@%s\n", block.Label)
		for _, instr := range block.Instructions {
			if err := b.genInstr(instr); err != nil {
				return err
			}
		}
	}
	b.out.WriteString("}\n")
	return nil
}

func (b *qbeBackend) genInstr(instr *target.Instruction) error {
	b.out.WriteString("\t")

	switch instr.Op {
	case target.OpCall:
		return b.genCall(instr)

	case target.OpRet:
		b.out.WriteString("ret")
		if len(instr.Args) > 0 {
			fmt.Fprintf(b.out, " %s", b.formatValue(instr.Args[0]))
		}
		b.out.WriteString("\n")
		return nil

	case target.OpStore:
		fmt.Fprintf(b.out, "store%s %s, %s\n", b.formatType(instr.Typ), b.formatValue(instr.Args[0]), b.formatValue(instr.Args[1]))
		return nil

	case target.OpLoad:
		fmt.Fprintf(b.out, "%s =%s %s %s\n", b.formatValue(instr.Result), b.formatType(b.regType(instr.Typ)), b.loadOp(instr.Typ), b.formatValue(instr.Args[0]))
		return nil

	case target.OpAdd, target.OpSub, target.OpMul, target.OpDiv:
		fmt.Fprintf(b.out, "%s =%s %s %s, %s\n", b.formatValue(instr.Result), b.formatType(b.regType(instr.Typ)), instr.Op, b.formatValue(instr.Args[0]), b.formatValue(instr.Args[1]))
		return nil
	}

	return errors.Wrap(ErrInternal, "qbe: unsupported op %v", instr.Op)
}

// genCall emits a call to a function the module defines or declares.
func (b *qbeBackend) genCall(instr *target.Instruction) error {
	callee, ok := instr.Args[0].(*target.Global)
	if !ok || (b.mod.FindExtern(callee.Name) == nil && b.mod.FindFunc(callee.Name) == nil) {
		return errors.Wrap(ErrInternal, "qbe: call to undeclared function %v", instr.Args[0])
	}

	fmt.Fprintf(b.out, "call %s(", b.formatValue(callee))
	for i, arg := range instr.Args[1:] {
		argType := target.TypeW
		if i < len(instr.ArgTypes) {
			argType = b.regType(instr.ArgTypes[i])
		}
		if i > 0 {
			b.out.WriteString(", ")
		}
		fmt.Fprintf(b.out, "%s %s", b.formatType(argType), b.formatValue(arg))
	}
	b.out.WriteString(")\n")
	return nil
}

// regType widens sub-word types: QBE temporaries are at least a word.
func (b *qbeBackend) regType(t target.Type) target.Type {
	if t == target.TypeB {
		return target.TypeW
	}
	return t
}

func (b *qbeBackend) loadOp(t target.Type) string {
	if t == target.TypeB {
		return "loadub"
	}
	return "load" + b.formatType(t)
}

func (b *qbeBackend) formatType(t target.Type) string { return t.String() }

func (b *qbeBackend) formatValue(v target.Value) string {
	switch val := v.(type) {
	case *target.Const:
		return strconv.FormatInt(val.Value, 10)
	case *target.FloatConst:
		return "d_" + strconv.FormatFloat(val.Value, 'g', -1, 64)
	case *target.Global:
		return "$" + val.Name
	case *target.Temporary:
		return "%" + val.Name
	}
	return ""
}
