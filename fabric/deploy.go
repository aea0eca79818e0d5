package fabric

import (
	"os"
	"path/filepath"
)

// A Workspace is the directory a deployment runs in. Stage outputs land at
// fixed locations under it, which is the entire inter-stage protocol: each
// stage expects its predecessor's outputs to already be there.
type Workspace string

func (ws Workspace) QuantizeDir() string {
	return filepath.Join(string(ws), "quantize_results")
}

func (ws Workspace) WorkDir() string {
	return filepath.Join(string(ws), "work")
}

// quantizer outputs

func (ws Workspace) QuantGraph() string {
	return filepath.Join(ws.QuantizeDir(), "deploy.prototxt")
}

func (ws Workspace) QuantWeights() string {
	return filepath.Join(ws.QuantizeDir(), "deploy.caffemodel")
}

func (ws Workspace) QuantInfo() string {
	return filepath.Join(ws.QuantizeDir(), "quantize_info.json")
}

// compiler outputs

func (ws Workspace) CompilerOptions() string {
	return filepath.Join(ws.WorkDir(), "compiler_options.json")
}

func (ws Workspace) Instructions() string {
	return filepath.Join(ws.WorkDir(), "compiler.cmds")
}

func (ws Workspace) CompilerMeta() string {
	return filepath.Join(ws.WorkDir(), "compiler.json")
}

// cutter and classifier outputs

func (ws Workspace) CutGraph() string {
	return filepath.Join(ws.WorkDir(), "cut_deploy.prototxt")
}

func (ws Workspace) Predictions() string {
	return filepath.Join(ws.WorkDir(), "predictions.json")
}

func (ws Workspace) AnnotatedImage() string {
	return filepath.Join(ws.WorkDir(), "annotated.png")
}

// Setup creates the fixed output directories.
func (ws Workspace) Setup() error {
	if err := os.MkdirAll(ws.QuantizeDir(), 0755); err != nil {
		return err
	}
	return os.MkdirAll(ws.WorkDir(), 0755)
}

// Artifacts is the hand-off state threaded through the pipeline: every
// field is a file path, fixed per workspace up front, written by the stage
// that produces it and read back by later stages.
type Artifacts struct {
	// the selected model
	Graph string
	Weights string

	// from the quantizer
	QuantGraph string
	QuantWeights string
	QuantInfo string

	// from the compiler
	Instructions string
	CompilerMeta string

	// from the subgraph cutter
	CutGraph string

	// from the classifier
	Predictions string
}

// InitArtifacts resolves the artifact paths for a run of the given model
// in this workspace. The paths are determined entirely by convention, so
// a stage can also run on its own against a workspace where the earlier
// stages already left their outputs.
func (ws Workspace) InitArtifacts(model Model) *Artifacts {
	return &Artifacts{
		Graph: model.Graph,
		Weights: model.Weights,
		QuantGraph: ws.QuantGraph(),
		QuantWeights: ws.QuantWeights(),
		QuantInfo: ws.QuantInfo(),
		Instructions: ws.Instructions(),
		CompilerMeta: ws.CompilerMeta(),
		CutGraph: ws.CutGraph(),
		Predictions: ws.Predictions(),
	}
}

// A Deployment takes one model onto one platform inside one workspace.
type Deployment struct {
	ID int
	Name string
	Model Model
	Platform Platform
	Workspace Workspace
}

// One step of a deployment plan.
// Params is op-specific configuration encoded as JSON.
type Stage struct {
	Name string
	Op string
	Params string
}

type StageContext struct {
	Deployment Deployment
	Stage Stage
	Artifacts *Artifacts

	// optional callback receiving tool output lines for job state
	LineFunc func(line string)
}

type DeployOp interface {
	Apply(ctx *StageContext) error
	Close()
}

type DeployOpImpl struct {
	Prepare func(dep Deployment, stage Stage) (DeployOp, error)

	// whether the stage needs exclusive use of an FPGA device
	NeedsDevice bool
}

var DeployOpImpls = make(map[string]DeployOpImpl)

func GetDeployOpImpl(opName string) *DeployOpImpl {
	impl, ok := DeployOpImpls[opName]
	if !ok {
		return nil
	}
	return &impl
}