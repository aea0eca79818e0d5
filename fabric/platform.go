package fabric

import (
	"os"
	"path/filepath"
)

// Vendor tool names under <root>/bin/.
const (
	QuantizerTool = "accel-quantizer"
	CompilerTool = "accel-compiler"
	CutterTool = "accel-cut"
	RuntimeTool = "accel-runtime"
)

const DefaultPlatform = "alveo-u200"

// Platforms that ship with an overlay bitstream.
var Platforms = []string{
	"alveo-u200",
	"alveo-u250",
	"aws-f1",
}

// RootDir returns the suite installation root.
// It honors MLSUITE_ROOT, and falls back to $HOME/ml-suite.
func RootDir() string {
	if root := os.Getenv("MLSUITE_ROOT"); root != "" {
		return root
	}
	home := os.Getenv("HOME")
	return filepath.Join(home, "ml-suite")
}

// A target hardware platform.
// The bitstream is the accelerator image loaded onto the FPGA.
type Platform struct {
	Name string
	Bitstream string
}

// PlatformByName returns the Platform with the given name.
// The bitstream path is fixed by convention under the suite root; we do not
// check that it exists, the runtime reports a load failure if it doesn't.
func PlatformByName(name string) Platform {
	return Platform{
		Name: name,
		Bitstream: filepath.Join(RootDir(), "overlaybins", name, "overlay.xclbin"),
	}
}

// GetPlatform resolves MLSUITE_PLATFORM (default alveo-u200) to a Platform.
func GetPlatform() Platform {
	name := os.Getenv("MLSUITE_PLATFORM")
	if name == "" {
		name = DefaultPlatform
	}
	return PlatformByName(name)
}

// ToolPath returns the path of a vendor tool binary.
func ToolPath(name string) string {
	return filepath.Join(RootDir(), "bin", name)
}