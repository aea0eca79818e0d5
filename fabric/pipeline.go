package fabric

import (
	"fmt"
	"log"
)

// Configuration for the canonical 4-stage deployment pipeline.
type DeployParams struct {
	// quantizer calibration iterations
	CalibIter int
	// layer name where the cutter splits the graph
	CutLayer string
	// inference-time inputs
	Image string
	Labels string
	TopK int
}

// DefaultStages returns the canonical plan:
// quantize -> compile -> cut -> classify.
func DefaultStages(params DeployParams) []Stage {
	return []Stage{
		{
			Name: "Quantize",
			Op: "quantize",
			Params: string(JsonMarshal(struct {
				CalibIter int
			}{params.CalibIter})),
		},
		{
			Name: "Compile",
			Op: "compile",
			Params: "{}",
		},
		{
			Name: "Cut",
			Op: "cut",
			Params: string(JsonMarshal(struct {
				Layer string
			}{params.CutLayer})),
		},
		{
			Name: "Classify",
			Op: "classify",
			Params: string(JsonMarshal(struct {
				Image string
				Labels string
				TopK int
			}{params.Image, params.Labels, params.TopK})),
		},
	}
}

// Hooks let the caller observe and steer a running pipeline.
type RunHooks struct {
	// called just before each stage runs
	OnStage func(index int, stage Stage)
	// receives stage/tool output lines
	LineFunc func(line string)
	// checked between stages; when it returns true the run aborts
	Stopped func() bool
	// if set, stages that need the FPGA hold a device while they run
	Devices *DeviceSet
}

// RunDeployment runs the plan strictly sequentially: prepare, apply, close,
// stop on the first error. Every stage sees the same Artifacts, so each
// reads its inputs at exactly the paths its predecessor wrote them to.
func RunDeployment(dep Deployment, stages []Stage, hooks RunHooks) (*Artifacts, error) {
	if err := dep.Workspace.Setup(); err != nil {
		return nil, err
	}
	art := dep.Workspace.InitArtifacts(dep.Model)
	for i, stage := range stages {
		if hooks.Stopped != nil && hooks.Stopped() {
			return art, fmt.Errorf("deployment stopped before stage %s", stage.Name)
		}
		if hooks.OnStage != nil {
			hooks.OnStage(i, stage)
		}
		impl := GetDeployOpImpl(stage.Op)
		if impl == nil {
			return art, fmt.Errorf("no such deploy op %s", stage.Op)
		}
		log.Printf("[deploy %s] starting stage %s", dep.Name, stage.Name)
		err := func() error {
			if impl.NeedsDevice && hooks.Devices != nil {
				device := hooks.Devices.Acquire()
				log.Printf("[deploy %s] acquired device %s", dep.Name, device)
				defer hooks.Devices.Release(device)
			}
			op, err := impl.Prepare(dep, stage)
			if err != nil {
				return err
			}
			defer op.Close()
			return op.Apply(&StageContext{
				Deployment: dep,
				Stage: stage,
				Artifacts: art,
				LineFunc: hooks.LineFunc,
			})
		}()
		if err != nil {
			return art, fmt.Errorf("%s: %v", stage.Name, err)
		}
		log.Printf("[deploy %s] stage %s done", dep.Name, stage.Name)
	}
	return art, nil
}