package fabric

import (
	"fmt"
	"strconv"
	"testing"
)

func TestTailJobOp(t *testing.T) {
	op := &TailJobOp{}
	op.Update([]string{"one", "two"})
	op.Update([]string{"three"})
	var lines []string
	JsonUnmarshal([]byte(op.Encode()), &lines)
	if len(lines) != 3 || lines[2] != "three" {
		t.Errorf("Encode() = %v; want [one two three]", lines)
	}
}

func TestTailJobOpTrims(t *testing.T) {
	op := &TailJobOp{}
	var batch []string
	for i := 0; i < TailJobOpNumLines+50; i++ {
		batch = append(batch, strconv.Itoa(i))
	}
	op.Update(batch)
	var lines []string
	JsonUnmarshal([]byte(op.Encode()), &lines)
	if len(lines) != TailJobOpNumLines {
		t.Fatalf("kept %d lines; want %d", len(lines), TailJobOpNumLines)
	}
	if lines[0] != "50" {
		t.Errorf("lines[0] = %s; want 50 (oldest lines dropped)", lines[0])
	}
}

func TestTailJobOpStop(t *testing.T) {
	op := &TailJobOp{}
	if err := op.Stop(); err == nil {
		t.Errorf("Stop without StopFunc should fail")
	}

	stopped := false
	op.StopFunc = func() error {
		stopped = true
		return nil
	}
	if err := op.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if !stopped {
		t.Errorf("StopFunc was not called")
	}

	op.StopFunc = func() error {
		return fmt.Errorf("already exited")
	}
	if err := op.Stop(); err == nil || err.Error() != "already exited" {
		t.Errorf("Stop = %v; want already exited", err)
	}
}
