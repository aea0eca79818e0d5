package cut

import (
	"github.com/fabricml/fabricml/fabric"
	"github.com/fabricml/fabricml/deploy_ops"

	"fmt"
	"log"
	"strings"
)

type Params struct {
	// layer name where the graph is split; empty lets the tool choose
	Layer string
}

type Cut struct {
	Params Params
}

func Prepare(dep fabric.Deployment, stage fabric.Stage) (fabric.DeployOp, error) {
	var params Params
	fabric.JsonUnmarshal([]byte(stage.Params), &params)
	return &Cut{Params: params}, nil
}

// Apply invokes the vendor cutter, which replaces the compiled portion of
// the graph with a single accelerator layer referencing the bitstream.
// The rewritten description is rendered afterwards so a human can review
// where the cut landed.
func (e *Cut) Apply(ctx *fabric.StageContext) error {
	ws := ctx.Deployment.Workspace
	if err := deploy_ops.CheckInputs("cut", ctx.Artifacts.QuantGraph, ctx.Artifacts.Instructions, ctx.Artifacts.CompilerMeta); err != nil {
		return err
	}

	if e.Params.Layer != "" {
		net, err := fabric.ParseNetFile(ctx.Artifacts.QuantGraph)
		if err != nil {
			return err
		}
		if !net.HasLayer(e.Params.Layer) {
			return fmt.Errorf("cut layer %s is not in %s", e.Params.Layer, ctx.Artifacts.QuantGraph)
		}
	}

	args := []string{
		"--network", ctx.Artifacts.QuantGraph,
		"--instructions", ctx.Artifacts.Instructions,
		"--meta", ctx.Artifacts.CompilerMeta,
		"--bitstream", ctx.Deployment.Platform.Bitstream,
		"--output", ws.CutGraph(),
	}
	if e.Params.Layer != "" {
		args = append(args, "--cut_layer", e.Params.Layer)
	}
	err := deploy_ops.RunTool("cut", ctx, fabric.ToolPath(fabric.CutterTool), args...)
	if err != nil {
		return err
	}
	if err := deploy_ops.CheckOutputs("cutter", ctx.Artifacts.CutGraph); err != nil {
		return err
	}

	cutNet, err := fabric.ParseNetFile(ctx.Artifacts.CutGraph)
	if err != nil {
		return fmt.Errorf("parsing rewritten graph: %v", err)
	}
	for _, layer := range cutNet.Layers {
		if layer.Type == fabric.AccelLayerType {
			log.Printf("[cut] accelerator layer %s inserted (%d layers remain on CPU)", layer.Name, len(cutNet.Layers)-1)
		}
	}
	return fabric.WriteNetRenders(cutNet, strings.TrimSuffix(ws.CutGraph(), ".prototxt"))
}

func (e *Cut) Close() {}

func init() {
	fabric.DeployOpImpls["cut"] = fabric.DeployOpImpl{
		Prepare: Prepare,
	}
}