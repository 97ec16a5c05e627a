// Package compiler runs the whole pipeline over one source file: lexing and
// parsing, checking, IR generation, lowering and rendering the module.
package compiler

import (
	"context"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/paivett/gone/pkg/ast"
	"github.com/paivett/gone/pkg/codegen"
	"github.com/paivett/gone/pkg/config"
	"github.com/paivett/gone/pkg/diag"
	"github.com/paivett/gone/pkg/ir"
	"github.com/paivett/gone/pkg/lexer"
	"github.com/paivett/gone/pkg/parser"
	"github.com/paivett/gone/pkg/target"
	"github.com/paivett/gone/pkg/typeChecker"
	"github.com/paivett/gone/pkg/types"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// ErrDiagnostics means the source has errors; they are in Result.Diags.
var ErrDiagnostics = errors.New("compilation failed")

// Result holds the output of every stage that ran.
type Result struct {
	Diags       *diag.Sink
	Root        *ast.Node
	Info        *typeChecker.Info
	Program     *ir.Program
	Module      *target.Module
	Backend     codegen.Backend
	Text        string
	Fingerprint uint64
}

func CompileFile(ctx context.Context, name string, cfg *config.Config) (*Result, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, string(text), cfg)
}

// Compile runs every stage over source. Stages after checking run only when
// no errors were reported. A non-nil Result is returned whenever the source
// could be parsed, even if err is ErrDiagnostics.
func Compile(ctx context.Context, name, source string, cfg *config.Config) (res *Result, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name)
	defer tr.Finish("err", &err)

	if cfg == nil {
		cfg = config.NewConfig()
	}

	res = &Result{
		Diags: diag.NewSink(cfg, diag.SourceFileRecord{Name: name, Content: []rune(source)}),
	}

	tokens := lexer.NewLexer([]rune(source), 0, cfg, res.Diags).Tokenize()
	res.Root = parser.NewParser(tokens, res.Diags).Parse()

	tr.V("parse").Printw("parsed", "tokens", len(tokens), "errors", res.Diags.ErrorCount())

	registry := types.NewRegistry(cfg.IsFeatureEnabled(config.FeatByte))
	res.Info = typeChecker.NewTypeChecker(cfg, registry, res.Diags).Check(res.Root)

	tr.V("check").Printw("checked", "symbols", res.Info.Symbols.Len(), "errors", res.Diags.ErrorCount(), "warnings", len(res.Diags.Warnings()))

	if res.Diags.HasErrors() {
		return res, ErrDiagnostics
	}

	res.Program, err = codegen.NewContext(cfg, res.Diags).GenerateIR(res.Root, res.Info)
	if err != nil {
		return res, errors.Wrap(err, "generate ir")
	}
	if err = res.Program.Validate(); err != nil {
		return res, errors.Wrap(err, "validate ir")
	}

	res.Module, err = codegen.Lower(res.Program)
	if err != nil {
		return res, errors.Wrap(err, "lower")
	}

	res.Backend, err = codegen.SelectBackend(cfg.Backend)
	if err != nil {
		return res, errors.Wrap(err, "backend")
	}

	res.Text, err = res.Backend.GenerateIR(res.Module, cfg)
	if err != nil {
		return res, errors.Wrap(err, "render %s", res.Backend.Name())
	}
	res.Fingerprint = xxhash.Sum64String(res.Text)

	tr.V("emit").Printw("module rendered", "backend", res.Backend.Name(), "bytes", len(res.Text), "fingerprint", res.Fingerprint)

	return res, nil
}
