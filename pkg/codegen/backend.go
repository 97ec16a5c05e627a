package codegen

import (
	"bytes"
	_ "embed"

	"github.com/paivett/gone/pkg/config"
	"github.com/paivett/gone/pkg/target"
	"tlog.app/go/errors"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	Name() string
	// Ext is the file extension of what Generate and Runtime produce.
	Ext() string
	// GenerateIR renders the module in the backend's textual IR.
	GenerateIR(mod *target.Module, cfg *config.Config) (string, error)
	// Generate produces the text handed to the system toolchain: assembly
	// for qbe, IR for llvm.
	Generate(mod *target.Module, cfg *config.Config) (*bytes.Buffer, error)
	// Runtime produces the print runtime in the same form as Generate.
	Runtime(cfg *config.Config) (*bytes.Buffer, error)
}

//go:embed runtime.ssa
var qbeRuntime string

//go:embed runtime.ll
var llvmRuntime string

// SelectBackend returns the backend registered under name.
func SelectBackend(name string) (Backend, error) {
	switch name {
	case "", "qbe":
		return NewQBEBackend(), nil
	case "llvm":
		return NewLLVMBackend(), nil
	}
	return nil, errors.New("unsupported backend '%s'", name)
}
