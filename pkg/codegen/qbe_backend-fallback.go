//go:build windows

package codegen

import (
	"bytes"
	"io"
	"os"
	"os/exec"

	"github.com/paivett/gone/pkg/config"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

func assembleQBE(qbeIR string, cfg *config.Config) (*bytes.Buffer, error) {
	tlog.Printw("self-contained QBE backend is not supported on Windows, falling back to the system's qbe")
	if _, err := exec.LookPath("qbe"); err != nil {
		return nil, errors.Wrap(err, "qbe not found in PATH")
	}

	inputFile, err := os.CreateTemp("", "gone-qbe-*.temp.ssa")
	if err != nil {
		return nil, err
	}
	defer os.Remove(inputFile.Name())
	defer inputFile.Close()

	if _, err = inputFile.WriteString(qbeIR); err != nil {
		return nil, err
	}

	args := []string{"-o", inputFile.Name() + ".asm"}
	if cfg.QbeTarget != "" {
		args = append(args, "-t", cfg.QbeTarget)
	}
	args = append(args, inputFile.Name())

	outputFileName := inputFile.Name() + ".asm"
	if err = exec.Command("qbe", args...).Run(); err != nil {
		return nil, errors.Wrap(err, "qbe compilation failed\n--- generated IR ---\n%s\n--- qbe", qbeIR)
	}

	outputFile, err := os.Open(outputFileName)
	if err != nil {
		return nil, err
	}
	defer os.Remove(outputFileName)
	defer outputFile.Close()

	var asmBuf bytes.Buffer
	if _, err = io.Copy(&asmBuf, outputFile); err != nil {
		return nil, err
	}
	return &asmBuf, nil
}
