package fabric

import (
	"fmt"
	"sync"
	"time"
)

type Job struct {
	ID int
	Name string
	Type string
	Op string
	Metadata string
	StartTime time.Time
	State string

	// If the job succeeds, Done=true and Error="".
	// If it fails, then Done=true and Error is set.
	// If Done=false it implies the job is still running.
	Done bool
	Error string
}

// JobOp tracks the live state of a running job.
type JobOp interface {
	// Incorporate newly received lines of job output.
	Update(lines []string)
	// Encode the current state for storage and display.
	Encode() string
	// Request that the job stop early.
	Stop() error
}

const TailJobOpNumLines int = 1000

// JobOp implementation that just keeps the latest lines of output.
type TailJobOp struct {
	mu sync.Mutex
	Lines []string

	// optional hook that stops the underlying work
	StopFunc func() error
}

func (op *TailJobOp) Update(lines []string) {
	op.mu.Lock()
	op.Lines = append(op.Lines, lines...)
	if n := len(op.Lines) - TailJobOpNumLines; n > 0 {
		op.Lines = append([]string{}, op.Lines[n:]...)
	}
	op.mu.Unlock()
}

func (op *TailJobOp) Encode() string {
	op.mu.Lock()
	defer op.mu.Unlock()
	return string(JsonMarshal(op.Lines))
}

func (op *TailJobOp) Stop() error {
	op.mu.Lock()
	f := op.StopFunc
	op.mu.Unlock()
	if f == nil {
		return fmt.Errorf("this job does not support stopping")
	}
	return f()
}