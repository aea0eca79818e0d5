package quantize

import (
	"github.com/fabricml/fabricml/fabric"
	"github.com/fabricml/fabricml/deploy_ops"

	"log"
	"strconv"
)

type Params struct {
	// calibration iterations over the sample set
	CalibIter int
}

func (p Params) GetCalibIter() int {
	if p.CalibIter == 0 {
		return 8
	}
	return p.CalibIter
}

type Quantize struct {
	Params Params
}

func Prepare(dep fabric.Deployment, stage fabric.Stage) (fabric.DeployOp, error) {
	var params Params
	fabric.JsonUnmarshal([]byte(stage.Params), &params)
	return &Quantize{Params: params}, nil
}

// Apply invokes the vendor quantizer once. The quantizer reads the
// floating-point model and leaves its fixed-point rendition plus the
// calibration-derived scale factors in quantize_results/.
func (e *Quantize) Apply(ctx *fabric.StageContext) error {
	ws := ctx.Deployment.Workspace
	if err := deploy_ops.CheckInputs("quantize", ctx.Artifacts.Graph, ctx.Artifacts.Weights); err != nil {
		return err
	}
	err := deploy_ops.RunTool("quantize", ctx, fabric.ToolPath(fabric.QuantizerTool),
		"--model", ctx.Artifacts.Graph,
		"--weights", ctx.Artifacts.Weights,
		"--output_dir", ws.QuantizeDir(),
		"--calib_iter", strconv.Itoa(e.Params.GetCalibIter()),
	)
	if err != nil {
		return err
	}
	if err := deploy_ops.CheckOutputs("quantizer", ctx.Artifacts.QuantGraph, ctx.Artifacts.QuantWeights, ctx.Artifacts.QuantInfo); err != nil {
		return err
	}

	var quantInfo map[string]interface{}
	if err := fabric.ReadJSONFile(ws.QuantInfo(), &quantInfo); err == nil {
		log.Printf("[quantize] recorded scale factors for %d layers", len(quantInfo))
	}
	return nil
}

func (e *Quantize) Close() {}

func init() {
	fabric.DeployOpImpls["quantize"] = fabric.DeployOpImpl{
		Prepare: Prepare,
	}
}