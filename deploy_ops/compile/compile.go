package compile

import (
	"github.com/fabricml/fabricml/fabric"
	"github.com/fabricml/fabricml/deploy_ops"
)

// Options is the configuration mapping handed to the vendor compiler.
type Options map[string]interface{}

// DefaultOptions returns the hand-tuned option set for the supported
// overlay: the target hardware's resource limits (pixel byte-width, DSP
// slices, on-chip memory banks, DDR bandwidth class) and the optimization
// toggles the overlay was validated with. Do not touch; these constants
// come from the hardware team, not from anything we compute.
func DefaultOptions() Options {
	return Options{
		"bytesperpixels": 1,
		"dsp": 96,
		"memory": 9,
		"ddr": 256,
		"cpulayermustgo": true,
		"forceweightsfullyconnected": true,
		"mixmemorystrategy": true,
		"pipelineconvmaxpool": true,
		"usedeephi": true,
	}
}

type Compile struct{}

func Prepare(dep fabric.Deployment, stage fabric.Stage) (fabric.DeployOp, error) {
	return &Compile{}, nil
}

// Apply invokes the vendor compiler on the quantized artifacts. The
// compiler schedules the network onto the accelerator and leaves the
// instruction stream and its metadata in work/.
func (e *Compile) Apply(ctx *fabric.StageContext) error {
	ws := ctx.Deployment.Workspace
	if err := deploy_ops.CheckInputs("compile", ctx.Artifacts.QuantGraph, ctx.Artifacts.QuantWeights, ctx.Artifacts.QuantInfo); err != nil {
		return err
	}
	if err := fabric.WriteJSONFile(ws.CompilerOptions(), DefaultOptions()); err != nil {
		return err
	}
	err := deploy_ops.RunTool("compile", ctx, fabric.ToolPath(fabric.CompilerTool),
		"--network", ctx.Artifacts.QuantGraph,
		"--weights", ctx.Artifacts.QuantWeights,
		"--quant_info", ctx.Artifacts.QuantInfo,
		"--options", ws.CompilerOptions(),
		"--output_dir", ws.WorkDir(),
	)
	if err != nil {
		return err
	}
	return deploy_ops.CheckOutputs("compiler", ctx.Artifacts.Instructions, ctx.Artifacts.CompilerMeta)
}

func (e *Compile) Close() {}

func init() {
	fabric.DeployOpImpls["compile"] = fabric.DeployOpImpl{
		Prepare: Prepare,
	}
}