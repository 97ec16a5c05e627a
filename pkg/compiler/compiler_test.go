package compiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paivett/gone/pkg/config"
	"github.com/paivett/gone/pkg/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/tlog"
)

func testContext() context.Context {
	return tlog.ContextWithSpan(context.Background(), tlog.Root())
}

func TestCompile(t *testing.T) {
	res, err := Compile(testContext(), "main.gone", "const a = 42;\nprint a;\n", nil)
	require.NoError(t, err)

	assert.Empty(t, res.Diags.All())
	assert.Equal(t, "MOVI 42 R1\nVARI a\nSTOREI R1 a\nLOADI a R2\nPRINTI R2\n", res.Program.String())
	assert.Equal(t, "qbe", res.Backend.Name())
	assert.Contains(t, res.Text, "call $_print_int(w %R2)")
	assert.NotZero(t, res.Fingerprint)

	var calls int
	for _, in := range res.Module.FindFunc(target.EntryName).Blocks[0].Instructions {
		if in.Op == target.OpCall {
			calls++
			assert.Equal(t, target.PrintIntName, in.Args[0].String())
		}
	}
	assert.Equal(t, 1, calls)
}

func TestCompileDeterministic(t *testing.T) {
	src := "var x float = 1.5;\nvar n int = 3;\nprint x * 2.0;\nprint n - 1;\nprint 'z';\n"

	a, err := Compile(testContext(), "a.gone", src, nil)
	require.NoError(t, err)
	b, err := Compile(testContext(), "b.gone", src, nil)
	require.NoError(t, err)

	assert.Equal(t, a.Text, b.Text)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)

	c, err := Compile(testContext(), "c.gone", src+"print n;\n", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestCompileLLVM(t *testing.T) {
	cfg := config.NewConfig()
	require.NoError(t, cfg.SetTarget("linux", "amd64", "llvm"))

	res, err := Compile(testContext(), "main.gone", "print 6 * 7;", cfg)
	require.NoError(t, err)
	assert.Equal(t, "llvm", res.Backend.Name())
	assert.Contains(t, res.Text, "define i32 @main()")
}

func TestCompileErrors(t *testing.T) {
	res, err := Compile(testContext(), "bad.gone", "const b = 42;\nb = 37;\nvar q int = 1 + 2.0;\n", nil)
	require.ErrorIs(t, err, ErrDiagnostics)
	require.NotNil(t, res)

	assert.Equal(t, 2, res.Diags.ErrorCount())
	assert.Nil(t, res.Program)
	assert.Nil(t, res.Module)
	assert.Empty(t, res.Text)
}

func TestCompileSyntaxErrors(t *testing.T) {
	res, err := Compile(testContext(), "bad.gone", "print ;\nvar x int = y;", nil)
	require.ErrorIs(t, err, ErrDiagnostics)

	var msgs []string
	for _, d := range res.Diags.Errors() {
		msgs = append(msgs, d.String())
	}
	assert.Equal(t, []string{
		"1: Syntax error in input at token ';'",
		"2: Name 'y' was not defined",
	}, msgs)
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "prog.gone")
	require.NoError(t, os.WriteFile(name, []byte("var c char = 'a';\nprint c;\n"), 0o644))

	res, err := CompileFile(testContext(), name, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "call $_print_byte(w %R2)")

	_, err = CompileFile(testContext(), filepath.Join(dir, "missing.gone"), nil)
	assert.Error(t, err)
}

func TestCompileRejectsNonASCII(t *testing.T) {
	for _, tc := range []struct {
		src string
		msg string
	}{
		{"var c char = '中';\nprint c;", "1: Character literal out of range"},
		{"var é int = 1;\nprint 2;", "1: Illegal character 'é'"},
	} {
		res, err := Compile(testContext(), "u.gone", tc.src, nil)
		require.ErrorIs(t, err, ErrDiagnostics, tc.src)
		require.NotEmpty(t, res.Diags.Errors(), tc.src)
		assert.Equal(t, tc.msg, res.Diags.Errors()[0].String(), tc.src)
		assert.Empty(t, res.Text, tc.src)
	}
}
