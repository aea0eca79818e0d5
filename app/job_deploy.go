package app

import (
	"github.com/fabricml/fabricml/fabric"

	"sync"
)

// A JobOp for a running deployment pipeline.
type DeployJobOp struct {
	mu sync.Mutex
	Job *DBJob

	// the stage plan
	// the field can change but the slice itself must not
	Plan []fabric.Stage

	// which index in the plan are we executing next (or right now)?
	PlanIndex int

	// trailing tool output
	Lines []string

	stopped bool
}

type DeployJobState struct {
	Plan []fabric.Stage
	PlanIndex int
	Lines []string
	Stopped bool
}

func (op *DeployJobOp) Encode() string {
	op.mu.Lock()
	defer op.mu.Unlock()
	return string(fabric.JsonMarshal(DeployJobState{
		Plan: op.Plan,
		PlanIndex: op.PlanIndex,
		Lines: op.Lines,
		Stopped: op.stopped,
	}))
}

func (op *DeployJobOp) Update(lines []string) {
	op.mu.Lock()
	op.Lines = append(op.Lines, lines...)
	if n := len(op.Lines) - fabric.TailJobOpNumLines; n > 0 {
		op.Lines = append([]string{}, op.Lines[n:]...)
	}
	op.mu.Unlock()
}

// Stop marks the job stopped. The pipeline checks the flag between stages,
// so a vendor tool that is already running finishes first.
func (op *DeployJobOp) Stop() error {
	op.mu.Lock()
	op.stopped = true
	op.mu.Unlock()
	op.save()
	return nil
}

func (op *DeployJobOp) IsStopped() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.stopped
}

// ChangeStage records that the pipeline moved on to the given stage.
func (op *DeployJobOp) ChangeStage(index int, stage fabric.Stage) {
	op.mu.Lock()
	op.PlanIndex = index
	op.mu.Unlock()
	op.save()
}

// AddLine is the pipeline LineFunc hook.
func (op *DeployJobOp) AddLine(line string) {
	op.Update([]string{line})
	op.save()
}

func (op *DeployJobOp) save() {
	op.Job.UpdateState(op.Encode())
}
