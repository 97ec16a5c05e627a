package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Program {
	p := &Program{NumRegisters: 4}
	p.Emit(Instruction{Op: OpMovI, Args: []Operand{Int(2)}, Dest: 1})
	p.Emit(Instruction{Op: OpVarI, Args: []Operand{Name("a")}})
	p.Emit(Instruction{Op: OpStoreI, Args: []Operand{Register(1), Name("a")}})
	p.Emit(Instruction{Op: OpLoadI, Args: []Operand{Name("a")}, Dest: 2})
	p.Emit(Instruction{Op: OpMovF, Args: []Operand{Float(2)}, Dest: 3})
	p.Emit(Instruction{Op: OpAddI, Args: []Operand{Register(1), Register(2)}, Dest: 4})
	p.Emit(Instruction{Op: OpPrintI, Args: []Operand{Register(4)}})
	return p
}

func TestString(t *testing.T) {
	want := `MOVI 2 R1
VARI a
STOREI R1 a
LOADI a R2
MOVF 2.0 R3
ADDI R1 R2 R4
PRINTI R4
`
	if diff := cmp.Diff(want, sample().String()); diff != "" {
		t.Errorf("program mismatch (-want +got):\n%s", diff)
	}
}

func TestOperandStrings(t *testing.T) {
	assert.Equal(t, "-", Register(0).String())
	assert.Equal(t, "R12", Register(12).String())
	assert.Equal(t, "3.14", Float(3.14).String())
	assert.Equal(t, "1e+21", Float(1e21).String())
	assert.Equal(t, "-7", Int(-7).String())
	assert.Equal(t, "Opcode(99)", Opcode(99).String())
}

func TestMnemonicsUnique(t *testing.T) {
	seen := map[string]Opcode{}
	for op := Opcode(0); op < opcodeCount; op++ {
		require.NotEmpty(t, op.String())
		prev, dup := seen[op.String()]
		assert.False(t, dup, "%v shares its mnemonic with %d", op, prev)
		seen[op.String()] = op
	}
}

func TestHasDest(t *testing.T) {
	assert.True(t, OpMovB.HasDest())
	assert.True(t, OpLoadF.HasDest())
	assert.True(t, OpDivI.HasDest())
	assert.False(t, OpVarI.HasDest())
	assert.False(t, OpStoreF.HasDest())
	assert.False(t, OpPrintB.HasDest())
}

func TestValidate(t *testing.T) {
	require.NoError(t, sample().Validate())
	require.NoError(t, (&Program{}).Validate())

	for _, tc := range []struct {
		name string
		in   Instruction
		msg  string
	}{
		{"use before def", Instruction{Op: OpPrintI, Args: []Operand{Register(9)}}, "R9 used before definition"},
		{"rewrite", Instruction{Op: OpMovI, Args: []Operand{Int(1)}, Dest: 1}, "R1 already written by instruction 0"},
		{"missing dest", Instruction{Op: OpLoadI, Args: []Operand{Name("a")}}, "missing destination"},
		{"extra dest", Instruction{Op: OpVarI, Args: []Operand{Name("b")}, Dest: 5}, "unexpected destination"},
		{"arity", Instruction{Op: OpAddI, Args: []Operand{Register(1)}, Dest: 5}, "want 2 operands, got 1"},
		{"shape", Instruction{Op: OpStoreI, Args: []Operand{Name("a"), Register(1)}}, "operand 0 must be a register"},
		{"unknown", Instruction{Op: opcodeCount}, "unknown opcode"},
	} {
		p := sample()
		p.Emit(tc.in)
		err := p.Validate()
		require.Error(t, err, tc.name)
		assert.Contains(t, err.Error(), tc.msg, tc.name)
	}
}
