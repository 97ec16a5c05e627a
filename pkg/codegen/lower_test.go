package codegen

import (
	"fmt"
	"testing"

	"github.com/paivett/gone/pkg/ir"
	"github.com/paivett/gone/pkg/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	fn  string
	arg interface{}
}

// run executes the entry procedure of mod and records runtime calls.
func run(t *testing.T, mod *target.Module) []call {
	t.Helper()

	entry := mod.FindFunc(target.EntryName)
	require.NotNil(t, entry)
	require.Len(t, entry.Blocks, 1)

	mem := map[string]interface{}{}
	for _, g := range mod.Globals {
		if g.Typ == target.TypeD {
			mem[g.Name] = 0.0
		} else {
			mem[g.Name] = int64(0)
		}
	}
	temps := map[string]interface{}{}

	val := func(v target.Value) interface{} {
		switch v := v.(type) {
		case *target.Const:
			return v.Value
		case *target.FloatConst:
			return v.Value
		case *target.Temporary:
			x, ok := temps[v.Name]
			require.True(t, ok, "temporary %s read before written", v.Name)
			return x
		}
		t.Fatalf("unexpected operand %T", v)
		return nil
	}

	var calls []call
	for _, in := range entry.Blocks[0].Instructions {
		switch in.Op {
		case target.OpLoad:
			temps[in.Result.String()] = mem[in.Args[0].String()]
		case target.OpStore:
			x := val(in.Args[0])
			if in.Typ == target.TypeB {
				x = int64(uint8(x.(int64)))
			}
			mem[in.Args[1].String()] = x
		case target.OpAdd, target.OpSub, target.OpMul, target.OpDiv:
			a, b := val(in.Args[0]), val(in.Args[1])
			temps[in.Result.String()] = arith(in.Op, a, b)
		case target.OpCall:
			require.NotNil(t, mod.FindExtern(in.Args[0].String()), "call to undeclared %s", in.Args[0])
			calls = append(calls, call{in.Args[0].String(), val(in.Args[1])})
		case target.OpRet:
			assert.Equal(t, int64(0), val(in.Args[0]))
			return calls
		}
	}
	t.Fatal("entry procedure does not return")
	return nil
}

func arith(op target.Op, a, b interface{}) interface{} {
	if x, ok := a.(float64); ok {
		y := b.(float64)
		switch op {
		case target.OpAdd:
			return x + y
		case target.OpSub:
			return x - y
		case target.OpMul:
			return x * y
		}
		return x / y
	}
	x, y := int32(a.(int64)), int32(b.(int64))
	switch op {
	case target.OpAdd:
		return int64(x + y)
	case target.OpSub:
		return int64(x - y)
	case target.OpMul:
		return int64(x * y)
	}
	return int64(x / y)
}

func lower(t *testing.T, src string) *target.Module {
	t.Helper()
	mod, err := Lower(generate(t, src))
	require.NoError(t, err)
	return mod
}

func TestLowerConstPrint(t *testing.T) {
	mod := lower(t, "const a = 42;\nprint a;")

	assert.Equal(t, []call{{target.PrintIntName, int64(42)}}, run(t, mod))

	require.Len(t, mod.Externs, 1)
	assert.Equal(t, target.PrintIntName, mod.Externs[0].Name)
	assert.Equal(t, []target.Type{target.TypeW}, mod.Externs[0].Params)

	require.Len(t, mod.Globals, 1)
	assert.Equal(t, &target.Data{Name: "a", Typ: target.TypeW}, mod.Globals[0])

	entry := mod.FindFunc(target.EntryName)
	assert.True(t, entry.Export)
	assert.Equal(t, target.TypeW, entry.ReturnType)
	assert.Equal(t, "start", entry.Blocks[0].Label)
}

func TestLowerExecution(t *testing.T) {
	mod := lower(t, `
var a int = 10;
var f float = 1.5;
const c = 'A';
a = a * 3 - -4;
print a / 5;
f = f * f;
print f;
print c;
print 7 / 2;
`)

	assert.Equal(t, []call{
		{target.PrintIntName, int64(6)},
		{target.PrintFloatName, 2.25},
		{target.PrintByteName, int64(65)},
		{target.PrintIntName, int64(3)},
	}, run(t, mod))

	var names []string
	for _, e := range mod.Externs {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{target.PrintIntName, target.PrintFloatName, target.PrintByteName}, names)
}

func TestLowerIntegerWraps(t *testing.T) {
	mod := lower(t, "var big int = 2147483647;\nprint big + 1;")

	assert.Equal(t, []call{{target.PrintIntName, int64(-2147483648)}}, run(t, mod))
}

func TestLowerUninitialized(t *testing.T) {
	mod := lower(t, "var x int;\nvar y float;\nprint x;\nprint y;")

	assert.Equal(t, []call{
		{target.PrintIntName, int64(0)},
		{target.PrintFloatName, 0.0},
	}, run(t, mod))
	assert.Len(t, mod.Globals, 2)
}

func TestLowerNoPrints(t *testing.T) {
	mod := lower(t, "var x int = 3;")

	assert.Empty(t, mod.Externs)
	assert.Empty(t, run(t, mod))
}

func TestLowerInternalErrors(t *testing.T) {
	for i, prog := range []*ir.Program{
		{Instrs: []ir.Instruction{{Op: ir.Opcode(99)}}},
		{Instrs: []ir.Instruction{{Op: ir.OpLoadI, Args: []ir.Operand{ir.Name("nope")}, Dest: 1}}},
		{Instrs: []ir.Instruction{{Op: ir.OpPrintI, Args: []ir.Operand{ir.Register(3)}}}},
		{Instrs: []ir.Instruction{{Op: ir.OpMovI, Args: []ir.Operand{ir.Int(1)}}}},
		{Instrs: []ir.Instruction{
			{Op: ir.OpMovI, Args: []ir.Operand{ir.Int(1)}, Dest: 1},
			{Op: ir.OpMovI, Args: []ir.Operand{ir.Int(2)}, Dest: 1},
		}},
		{Instrs: []ir.Instruction{{Op: ir.OpMovI, Args: []ir.Operand{ir.Float(1)}, Dest: 1}, {Op: ir.OpMovF, Args: []ir.Operand{ir.Name("x")}, Dest: 2}}},
		{Instrs: []ir.Instruction{{Op: ir.OpVarI}}},
	} {
		_, err := Lower(prog)
		assert.ErrorIs(t, err, ErrInternal, fmt.Sprintf("case %d", i))
	}
}
