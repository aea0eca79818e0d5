package deploy_ops

import (
	"github.com/fabricml/fabricml/fabric"

	"fmt"
)

// CheckTool verifies a vendor tool is installed before we try to spawn it.
func CheckTool(path string) error {
	if !fabric.FileExists(path) {
		return fmt.Errorf("vendor tool %s not found (is MLSUITE_ROOT set?)", path)
	}
	return nil
}

// CheckInputs verifies that a stage's inputs, usually outputs of an
// earlier stage, are present before the tool that consumes them is
// spawned.
func CheckInputs(op string, fnames ...string) error {
	for _, fname := range fnames {
		if !fabric.FileExists(fname) {
			return fmt.Errorf("%s: missing input %s", op, fname)
		}
	}
	return nil
}

// CheckOutputs verifies that a tool produced the outputs it is supposed to
// leave in the workspace.
func CheckOutputs(tool string, fnames ...string) error {
	for _, fname := range fnames {
		if !fabric.FileExists(fname) {
			return fmt.Errorf("%s did not produce %s", tool, fname)
		}
	}
	return nil
}

// RunTool spawns a vendor tool, forwards its stderr into the log and the
// stage's line callback, and waits for it to exit.
func RunTool(prefix string, ctx *fabric.StageContext, path string, args ...string) error {
	if err := CheckTool(path); err != nil {
		return err
	}
	cmd := fabric.Command(prefix, fabric.CommandOptions{
		NoStdin: true,
		NoStdout: true,
		AllStderrLines: true,
		LineFunc: ctx.LineFunc,
	}, path, args...)
	return cmd.Wait()
}