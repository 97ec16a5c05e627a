package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/paivett/gone/pkg/cli"
	"github.com/paivett/gone/pkg/codegen"
	"github.com/paivett/gone/pkg/compiler"
	"github.com/paivett/gone/pkg/config"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

func main() {
	app := cli.NewApp("gonec")
	app.Synopsis = "[options] <input.gone>"
	app.Description = "A compiler for the gone language: constants, variables, arithmetic and print, down to a native executable."
	app.Authors = []string{"paivett"}
	app.Repository = "<https://github.com/paivett/gone>"
	app.Since = 2025

	var (
		outFile    string
		target     string
		emit       string
		verbosity  string
		linkerArgs []string
		showTypes  bool
		wall       bool
		pedantic   bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "a.out", "Place the output into <file>.", "file")
	fs.String(&target, "target", "t", "qbe", "Set the backend and target ABI.", "backend/target")
	fs.String(&emit, "emit", "", "exe", "What to produce: ir, module, asm or exe.", "kind")
	fs.String(&verbosity, "verbose", "v", "", "Enable debug logs for the given topics (e.g. ir,lower).", "topics")
	fs.List(&linkerArgs, "linker-arg", "L", []string{}, "Pass an argument to the linker.", "arg")
	fs.Bool(&showTypes, "show-types", "", false, "Print the checked tree with its types.")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings except pedantic ones.")
	fs.Bool(&pedantic, "pedantic", "", false, "Issue all warnings.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		if verbosity != "" {
			tlog.SetVerbosity(verbosity)
		}

		if wall {
			if err := cfg.ApplyFlag("-Wall"); err != nil {
				return err
			}
		}
		if pedantic {
			cfg.SetWarning(config.WarnPedantic, true)
		}
		cfg.ApplyFlagGroups(warningFlags, featureFlags)

		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target); err != nil {
			return fail(err)
		}

		switch len(inputFiles) {
		case 0:
			return fail(errors.New("no input files specified"))
		case 1:
		default:
			return fail(errors.New("exactly one input file expected, got %d", len(inputFiles)))
		}

		ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

		res, err := compiler.CompileFile(ctx, inputFiles[0], cfg)
		if res != nil {
			res.Diags.Render(os.Stderr)
			if showTypes && res.Info != nil {
				res.Info.Dump(os.Stdout, res.Root)
			}
		}
		if isDiagnostics(err) {
			return err
		}
		if err != nil {
			return fail(err)
		}

		switch emit {
		case "ir":
			fmt.Print(res.Program)
			return nil
		case "module":
			fmt.Print(res.Text)
			return nil
		case "asm":
			out, err := res.Backend.Generate(res.Module, cfg)
			if err != nil {
				return fail(errors.Wrap(err, "backend code generation"))
			}
			return fail(writeOutput(outFile, out.Bytes()))
		case "exe":
		default:
			return fail(errors.New("unknown --emit kind '%s'", emit))
		}

		out, err := res.Backend.Generate(res.Module, cfg)
		if err != nil {
			return fail(errors.Wrap(err, "backend code generation"))
		}
		rt, err := res.Backend.Runtime(cfg)
		if err != nil {
			return fail(errors.Wrap(err, "runtime"))
		}

		tlog.V("link").Printw("linking", "output", outFile, "backend", res.Backend.Name())

		if err := assembleAndLink(res.Backend, outFile, out.String(), rt.String(), linkerArgs); err != nil {
			return fail(errors.Wrap(err, "assembler/linker"))
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// isDiagnostics reports whether err means the source had errors that have
// already been rendered.
func isDiagnostics(err error) bool { return errors.Is(err, compiler.ErrDiagnostics) }

func fail(err error) error {
	if err != nil {
		fmt.Fprintf(os.Stderr, "gonec: error: %v\n", err)
	}
	return err
}

func writeOutput(name string, data []byte) error {
	if name == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(name, data, 0o644)
}

func writeTemp(pattern, text string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "write %s", f.Name())
	}
	return f.Name(), nil
}

// assembleAndLink builds the program and the runtime as two units and links
// them with the system C compiler.
func assembleAndLink(backend codegen.Backend, outFile, mainText, runtimeText string, linkerArgs []string) error {
	mainFile, err := writeTemp("gone-main-*"+backend.Ext(), mainText)
	if err != nil {
		return err
	}
	defer os.Remove(mainFile)

	rtFile, err := writeTemp("gone-rt-*"+backend.Ext(), runtimeText)
	if err != nil {
		return err
	}
	defer os.Remove(rtFile)

	cc := "cc"
	if backend.Name() == "llvm" {
		cc = "clang"
	}

	ccArgs := []string{"-no-pie", "-o", outFile, mainFile, rtFile}
	ccArgs = append(ccArgs, linkerArgs...)

	cmd := exec.Command(cc, ccArgs...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrap(err, "%s command failed\nOutput:\n%s", cc, output)
	}
	return nil
}
