package codegen

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paivett/gone/pkg/config"
	"github.com/paivett/gone/pkg/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQBEText(t *testing.T) {
	mod := lower(t, "var a int = 2;\nprint a + 3;")

	got, err := NewQBEBackend().GenerateIR(mod, config.NewConfig())
	require.NoError(t, err)

	want := `# extern $_print_int(w)

data $a = align 4 { w 0 }

export function w $main() {
@start
	storew 2, $a
	%R2 =w loadw $a
	%R4 =w add %R2, 3
	call $_print_int(w %R4)
	ret 0
}
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("qbe mismatch (-want +got):\n%s", diff)
	}
}

func TestQBEFloatAndByte(t *testing.T) {
	mod := lower(t, "var f float = 2.5;\nvar b byte;\nconst c = 'x';\nprint f / 0.5;\nprint b;\nprint c;")

	got, err := NewQBEBackend().GenerateIR(mod, config.NewConfig())
	require.NoError(t, err)

	for _, line := range []string{
		"data $f = align 8 { d d_0 }",
		"data $b = align 1 { b 0 }",
		"storeb 120, $c",
		"stored d_2.5, $f",
		"%R5 =d div %R3, d_0.5",
		"call $_print_float(d %R5)",
		"%R6 =w loadub $b",
		"call $_print_byte(w %R6)",
	} {
		assert.Contains(t, got, line)
	}
	assert.True(t, strings.HasPrefix(got, "# extern $_print_float(d)\n# extern $_print_byte(b)\n"), got)
}

func TestQBEUnsupportedOp(t *testing.T) {
	mod := &target.Module{Funcs: []*target.Func{{
		Name:   "main",
		Blocks: []*target.Block{{Label: "start", Instructions: []*target.Instruction{{Op: target.Op(42)}}}},
	}}}

	_, err := NewQBEBackend().GenerateIR(mod, config.NewConfig())
	assert.ErrorIs(t, err, ErrInternal)
}

func TestSelectBackend(t *testing.T) {
	for name, want := range map[string]string{"": "qbe", "qbe": "qbe", "llvm": "llvm"} {
		b, err := SelectBackend(name)
		require.NoError(t, err)
		assert.Equal(t, want, b.Name())
	}

	_, err := SelectBackend("gcc")
	assert.Error(t, err)
}

func TestRuntimeSources(t *testing.T) {
	for _, fn := range []string{target.PrintIntName, target.PrintFloatName, target.PrintByteName} {
		assert.Contains(t, qbeRuntime, "export function $"+fn+"(")
		assert.Contains(t, llvmRuntime, "@"+fn+"(")
	}
}

func TestQBEUndeclaredCall(t *testing.T) {
	mod := lower(t, "print 1;")
	mod.Externs = nil

	_, err := NewQBEBackend().GenerateIR(mod, config.NewConfig())
	assert.ErrorIs(t, err, ErrInternal)
}
