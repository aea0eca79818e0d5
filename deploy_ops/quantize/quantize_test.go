package quantize

import (
	"github.com/fabricml/fabricml/fabric"

	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParamsDefaults(t *testing.T) {
	var params Params
	if params.GetCalibIter() != 8 {
		t.Errorf("GetCalibIter() = %d; want 8", params.GetCalibIter())
	}
	params.CalibIter = 32
	if params.GetCalibIter() != 32 {
		t.Errorf("GetCalibIter() = %d; want 32", params.GetCalibIter())
	}
}

func TestApplyMissingModel(t *testing.T) {
	dir, err := ioutil.TempDir("", "quantize-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	ws := fabric.Workspace(dir)
	if err := ws.Setup(); err != nil {
		t.Fatal(err)
	}

	model := fabric.Model{
		Graph: filepath.Join(dir, "nope_deploy.prototxt"),
		Weights: filepath.Join(dir, "nope.caffemodel"),
	}
	op := &Quantize{}
	err = op.Apply(&fabric.StageContext{
		Deployment: fabric.Deployment{Workspace: ws, Model: model},
		Artifacts: ws.InitArtifacts(model),
	})
	if err == nil || !strings.Contains(err.Error(), "missing input") {
		t.Errorf("got %v; want missing input error", err)
	}
}
