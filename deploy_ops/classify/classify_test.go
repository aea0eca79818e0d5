package classify

import (
	"github.com/fabricml/fabricml/fabric"

	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTopK(t *testing.T) {
	scores := []float64{0.05, 0.6, 0.1, 0.25}
	categories := []string{"cat", "dog", "fish", "bird"}
	predictions := TopK(scores, categories, 3)
	if len(predictions) != 3 {
		t.Fatalf("TopK returned %d predictions; want 3", len(predictions))
	}
	check := func(i int, category string, score float64) {
		if predictions[i].Category != category || predictions[i].Score != score {
			t.Errorf("predictions[%d] = %v; want {%s %v}", i, predictions[i], category, score)
		}
	}
	check(0, "dog", 0.6)
	check(1, "bird", 0.25)
	check(2, "fish", 0.1)
}

func TestTopKTies(t *testing.T) {
	// equal scores keep the lower category index first
	scores := []float64{0.2, 0.5, 0.2, 0.5}
	categories := []string{"a", "b", "c", "d"}
	predictions := TopK(scores, categories, 4)
	var got []string
	for _, pred := range predictions {
		got = append(got, pred.Category)
	}
	if s := strings.Join(got, ","); s != "b,d,a,c" {
		t.Errorf("tie order = %s; want b,d,a,c", s)
	}
}

func TestTopKBounds(t *testing.T) {
	// k past the end keeps everything, and categories shorter than the
	// score vector fall back to a numeric name
	predictions := TopK([]float64{0.9, 0.1}, []string{"only"}, 5)
	if len(predictions) != 2 {
		t.Fatalf("TopK returned %d predictions; want 2", len(predictions))
	}
	if predictions[0].Category != "only" {
		t.Errorf("predictions[0].Category = %s; want only", predictions[0].Category)
	}
	if predictions[1].Category != "category 1" {
		t.Errorf("predictions[1].Category = %s; want category 1", predictions[1].Category)
	}
}

func TestParamsDefaults(t *testing.T) {
	var params Params
	if params.GetTopK() != 5 {
		t.Errorf("GetTopK() = %d; want 5", params.GetTopK())
	}
	params.TopK = 3
	if params.GetTopK() != 3 {
		t.Errorf("GetTopK() = %d; want 3", params.GetTopK())
	}
	params.Labels = "/tmp/labels.txt"
	if params.GetLabels() != "/tmp/labels.txt" {
		t.Errorf("GetLabels() = %s; want /tmp/labels.txt", params.GetLabels())
	}
}

func TestLoadLabels(t *testing.T) {
	dir, err := ioutil.TempDir("", "classify-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	fname := filepath.Join(dir, "synset_words.txt")
	contents := "n01440764 tench\n\nn01443537 goldfish\n  \nn01484850 great white shark\n"
	if err := ioutil.WriteFile(fname, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	labels, err := loadLabels(fname)
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 3 {
		t.Fatalf("loadLabels returned %d labels; want 3", len(labels))
	}
	if labels[1] != "n01443537 goldfish" {
		t.Errorf("labels[1] = %s; want n01443537 goldfish", labels[1])
	}
}

const classifyTestGraph = `name: "miniNet_fpga"
input: "data"
input_dim: 1
input_dim: 3
input_dim: 2
input_dim: 2
layer {
  name: "fpga_accel"
  type: "FPGAAccel"
  bottom: "data"
  top: "prob"
}
`

// Scripted runtime standing in for the vendor binary: greet, consume one
// 2x2 BGR float32 payload (48 bytes), emit the score line.
const classifyTestRuntime = `#!/bin/sh
echo ready
head -c 48 > /dev/null
echo 'json[0.1, 0.7, 0.2]'
`

func TestApplyRuntimeWire(t *testing.T) {
	dir, err := ioutil.TempDir("", "classify-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	os.Setenv("MLSUITE_ROOT", dir)
	defer os.Unsetenv("MLSUITE_ROOT")

	if err := os.MkdirAll(filepath.Join(dir, "bin"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(filepath.Join(dir, "bin", "accel-runtime"), []byte(classifyTestRuntime), 0755); err != nil {
		t.Fatal(err)
	}

	ws := fabric.Workspace(filepath.Join(dir, "ws"))
	if err := ws.Setup(); err != nil {
		t.Fatal(err)
	}
	for fname, contents := range map[string]string{
		ws.CutGraph(): classifyTestGraph,
		ws.QuantWeights(): "weights",
		ws.CompilerMeta(): "{}",
	} {
		if err := ioutil.WriteFile(fname, []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
	}
	imFname := filepath.Join(dir, "cat.png")
	if err := ioutil.WriteFile(imFname, fabric.NewImage(32, 32).AsPNG(), 0644); err != nil {
		t.Fatal(err)
	}
	labelsFname := filepath.Join(dir, "labels.txt")
	if err := ioutil.WriteFile(labelsFname, []byte("cat\ndog\nfish\n"), 0644); err != nil {
		t.Fatal(err)
	}

	dep := fabric.Deployment{
		Name: "test",
		Platform: fabric.PlatformByName(fabric.DefaultPlatform),
		Workspace: ws,
	}
	stage := fabric.Stage{
		Name: "Classify",
		Op: "classify",
		Params: string(fabric.JsonMarshal(Params{
			Image: imFname,
			Labels: labelsFname,
		})),
	}
	op, err := Prepare(dep, stage)
	if err != nil {
		t.Fatal(err)
	}
	defer op.Close()
	err = op.Apply(&fabric.StageContext{
		Deployment: dep,
		Stage: stage,
		Artifacts: ws.InitArtifacts(fabric.Model{}),
	})
	if err != nil {
		t.Fatal(err)
	}

	// the ranked results must land in the workspace
	var predictions []Prediction
	if err := fabric.ReadJSONFile(ws.Predictions(), &predictions); err != nil {
		t.Fatal(err)
	}
	if len(predictions) != 3 {
		t.Fatalf("got %d predictions; want 3", len(predictions))
	}
	check := func(i int, category string, score float64) {
		if predictions[i].Category != category || predictions[i].Score != score {
			t.Errorf("predictions[%d] = %v; want {%s %v}", i, predictions[i], category, score)
		}
	}
	check(0, "dog", 0.7)
	check(1, "fish", 0.2)
	check(2, "cat", 0.1)

	dims, err := fabric.GetImageDimsFromFile(ws.AnnotatedImage())
	if err != nil {
		t.Fatalf("annotated image: %v", err)
	}
	if dims != [2]int{32, 32} {
		t.Errorf("annotated image dims = %v; want [32 32]", dims)
	}
}

func TestApplyMissingInputs(t *testing.T) {
	dir, err := ioutil.TempDir("", "classify-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	ws := fabric.Workspace(filepath.Join(dir, "ws"))
	if err := ws.Setup(); err != nil {
		t.Fatal(err)
	}

	// nothing was cut or compiled in this workspace
	op := &Classify{Params: Params{Image: filepath.Join(dir, "cat.png")}}
	err = op.Apply(&fabric.StageContext{
		Deployment: fabric.Deployment{Workspace: ws},
		Artifacts: ws.InitArtifacts(fabric.Model{}),
	})
	if err == nil || !strings.Contains(err.Error(), "missing input") {
		t.Errorf("got %v; want missing input error", err)
	}
}

func TestPrepare(t *testing.T) {
	dir, err := ioutil.TempDir("", "classify-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	fname := filepath.Join(dir, "labels.txt")
	if err := ioutil.WriteFile(fname, []byte("tench\ngoldfish\n"), 0644); err != nil {
		t.Fatal(err)
	}

	params := Params{
		Image: filepath.Join(dir, "cat.jpg"),
		Labels: fname,
	}
	stage := fabric.Stage{
		Name: "Classify",
		Op: "classify",
		Params: string(fabric.JsonMarshal(params)),
	}
	op, err := Prepare(fabric.Deployment{}, stage)
	if err != nil {
		t.Fatal(err)
	}
	e := op.(*Classify)
	if len(e.categories) != 2 || e.categories[0] != "tench" {
		t.Errorf("categories = %v; want [tench goldfish]", e.categories)
	}

	if _, err := Prepare(fabric.Deployment{}, fabric.Stage{Op: "classify", Params: "{}"}); err == nil {
		t.Errorf("Prepare with no image should fail")
	}
}
