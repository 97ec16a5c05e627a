//go:build !windows

package codegen

import (
	"bytes"
	"runtime"
	"strings"

	"github.com/paivett/gone/pkg/config"
	"modernc.org/libqbe"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

func assembleQBE(qbeIR string, cfg *config.Config) (*bytes.Buffer, error) {
	abi := cfg.QbeTarget
	if abi == "" {
		abi = libqbe.DefaultTarget(runtime.GOOS, runtime.GOARCH)
	}
	tlog.V("qbe").Printw("assembling", "target", abi, "bytes", len(qbeIR))

	var asmBuf bytes.Buffer
	err := libqbe.Main(abi, "input.ssa", strings.NewReader(qbeIR), &asmBuf, nil)
	if err != nil {
		return nil, errors.Wrap(err, "qbe compilation failed\n--- generated IR ---\n%s\n--- libqbe", qbeIR)
	}
	return &asmBuf, nil
}
