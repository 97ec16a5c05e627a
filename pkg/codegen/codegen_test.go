package codegen

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paivett/gone/pkg/ast"
	"github.com/paivett/gone/pkg/config"
	"github.com/paivett/gone/pkg/diag"
	"github.com/paivett/gone/pkg/ir"
	"github.com/paivett/gone/pkg/lexer"
	"github.com/paivett/gone/pkg/parser"
	"github.com/paivett/gone/pkg/typeChecker"
	"github.com/paivett/gone/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checked struct {
	cfg   *config.Config
	diags *diag.Sink
	root  *ast.Node
	info  *typeChecker.Info
}

func check(t *testing.T, src string) *checked {
	t.Helper()

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatByte, true)
	diags := diag.NewSink(cfg, diag.SourceFileRecord{Name: "test.gone", Content: []rune(src)})
	root := parser.NewParser(lexer.NewLexer([]rune(src), 0, cfg, diags).Tokenize(), diags).Parse()
	info := typeChecker.NewTypeChecker(cfg, types.NewRegistry(true), diags).Check(root)

	return &checked{cfg: cfg, diags: diags, root: root, info: info}
}

func generate(t *testing.T, src string) *ir.Program {
	t.Helper()

	c := check(t, src)
	require.False(t, c.diags.HasErrors(), "%v", c.diags.All())

	prog, err := NewContext(c.cfg, c.diags).GenerateIR(c.root, c.info)
	require.NoError(t, err)
	require.NoError(t, prog.Validate())
	return prog
}

func TestGenerateIR(t *testing.T) {
	prog := generate(t, `
var a int = 2;
var b float;
b = 1.5 * 2.0;
print -a + 3;
print +b;
const c = 'h';
print c;
`)

	want := `MOVI 2 R1
VARI a
STOREI R1 a
VARF b
MOVF 1.5 R2
MOVF 2.0 R3
MULF R2 R3 R4
STOREF R4 b
LOADI a R5
MOVI 0 R6
SUBI R6 R5 R7
MOVI 3 R8
ADDI R7 R8 R9
PRINTI R9
LOADF b R10
PRINTF R10
MOVB 104 R11
VARB c
STOREB R11 c
LOADB c R12
PRINTB R12
`
	if diff := cmp.Diff(want, prog.String()); diff != "" {
		t.Errorf("ir mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 12, prog.NumRegisters)
}

func TestConstDeclaration(t *testing.T) {
	prog := generate(t, "const a = 42;\nprint a;")

	assert.Equal(t, "MOVI 42 R1\nVARI a\nSTOREI R1 a\nLOADI a R2\nPRINTI R2\n", prog.String())
}

func TestFloatArithmetic(t *testing.T) {
	prog := generate(t, "var x float = -(1.0 / 4.0);\nprint x - 0.5;")

	assert.Equal(t, `MOVF 1.0 R1
MOVF 4.0 R2
DIVF R1 R2 R3
MOVF 0.0 R4
SUBF R4 R3 R5
VARF x
STOREF R5 x
LOADF x R6
MOVF 0.5 R7
SUBF R6 R7 R8
PRINTF R8
`, prog.String())
}

func TestByteVariables(t *testing.T) {
	prog := generate(t, "var b byte;\nvar c byte = b;\nprint c;")

	assert.Equal(t, "VARB b\nLOADB b R1\nVARB c\nSTOREB R1 c\nLOADB c R2\nPRINTB R2\n", prog.String())
}

func TestSingleAssignment(t *testing.T) {
	prog := generate(t, "var a int = 1;\nvar b int = a * (a + 2) - a / 3;\nb = b + b;\nprint b * -b;")

	seen := map[ir.Register]bool{}
	last := ir.Register(0)
	for _, in := range prog.Instrs {
		if in.Dest == 0 {
			continue
		}
		assert.False(t, seen[in.Dest], "%v written twice", in.Dest)
		assert.Greater(t, in.Dest, last, "registers are not increasing at %v", in)
		seen[in.Dest] = true
		last = in.Dest
	}
	assert.Equal(t, int(last), prog.NumRegisters)
}

func TestGenerateIRDeterministic(t *testing.T) {
	src := "var a int = 2;\nprint a * 3 + 1;\nconst z = 'z';\nprint z;"
	assert.Equal(t, generate(t, src).String(), generate(t, src).String())
}

func TestGenerateIRRefusesErrors(t *testing.T) {
	for _, src := range []string{
		"const b = 42;\nb = 37;",
		"var a int = 2;\nvar b float = 3.14;\nvar d int = a + b;",
	} {
		c := check(t, src)
		require.True(t, c.diags.HasErrors(), src)

		prog, err := NewContext(c.cfg, c.diags).GenerateIR(c.root, c.info)
		assert.ErrorIs(t, err, ErrHasErrors, src)
		assert.Nil(t, prog, src)
	}
}

func TestGenerateIRMissingTypes(t *testing.T) {
	c := check(t, "print 1 + 2;")
	require.False(t, c.diags.HasErrors())

	_, err := NewContext(c.cfg, c.diags).GenerateIR(c.root, nil)
	assert.ErrorIs(t, err, ErrInternal)

	empty := &typeChecker.Info{Types: map[*ast.Node]*types.Type{}, Symbols: c.info.Symbols}
	_, err = NewContext(c.cfg, c.diags).GenerateIR(c.root, empty)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestEmptyProgram(t *testing.T) {
	prog := generate(t, "// nothing to do")
	assert.Zero(t, prog.Len())
	assert.Zero(t, prog.NumRegisters)
}

func TestByteNeedsFeature(t *testing.T) {
	c := check(t, "var b byte;\nprint b;")
	require.False(t, c.diags.HasErrors())

	_, err := NewContext(config.NewConfig(), c.diags).GenerateIR(c.root, c.info)
	assert.ErrorIs(t, err, ErrInternal)

	prog, err := NewContext(c.cfg, c.diags).GenerateIR(c.root, c.info)
	require.NoError(t, err)
	assert.Equal(t, "VARB b\nLOADB b R1\nPRINTB R1\n", prog.String())
}
