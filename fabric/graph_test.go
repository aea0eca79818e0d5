package fabric

import (
	"strings"
	"testing"
)

const testPrototxt = `name: "miniNet"
input: "data"
input_dim: 1
input_dim: 3
input_dim: 224
input_dim: 224
layer {
  name: "conv1"
  type: "Convolution"
  bottom: "data"
  top: "conv1"
  convolution_param {
    num_output: 64
    kernel_size: 7
    stride: 2
  }
}
layer {
  name: "relu1"
  type: "ReLU"
  bottom: "conv1"
  top: "conv1"
}
# trailing comment
layer {
  name: "fc"
  type: "InnerProduct"
  bottom: "conv1"
  top: "fc"
}
layer {
  name: "prob"
  type: "Softmax"
  bottom: "fc"
  top: "prob"
}
`

func TestParseNet(t *testing.T) {
	net, err := ParseNet(testPrototxt)
	if err != nil {
		t.Fatal(err)
	}
	if net.Name != "miniNet" {
		t.Errorf("name = %s; want miniNet", net.Name)
	}
	if len(net.Inputs) != 1 || net.Inputs[0] != "data" {
		t.Errorf("inputs = %v; want [data]", net.Inputs)
	}
	if len(net.InputDims) != 4 || net.InputDims[1] != 3 {
		t.Errorf("input dims = %v", net.InputDims)
	}
	if size := net.InputSize(); size != [2]int{224, 224} {
		t.Errorf("input size = %v; want [224 224]", size)
	}

	if len(net.Layers) != 4 {
		t.Fatalf("got %d layers; want 4", len(net.Layers))
	}
	conv := net.FindLayer("conv1")
	if conv == nil {
		t.Fatal("conv1 not found")
	}
	if conv.Type != "Convolution" {
		t.Errorf("conv1 type = %s", conv.Type)
	}
	if len(conv.Bottoms) != 1 || conv.Bottoms[0] != "data" {
		t.Errorf("conv1 bottoms = %v", conv.Bottoms)
	}
	// the nested convolution_param block must not leak into the layer params
	if _, ok := conv.Params["num_output"]; ok {
		t.Errorf("nested param leaked into layer params: %v", conv.Params)
	}
	if !net.HasLayer("prob") || net.HasLayer("prob2") {
		t.Errorf("HasLayer misbehaves")
	}
}

func TestParseNetUnbalanced(t *testing.T) {
	if _, err := ParseNet("layer {\n  name: \"x\"\n"); err == nil {
		t.Errorf("expected error for unterminated block")
	}
	if _, err := ParseNet("}\n"); err == nil {
		t.Errorf("expected error for stray }")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	net, err := ParseNet(testPrototxt)
	if err != nil {
		t.Fatal(err)
	}
	// rewrite the graph the way the cutter does and re-parse it
	accel := Layer{
		Name: "fpga_accel",
		Type: AccelLayerType,
		Bottoms: []string{"data"},
		Tops: []string{"fc"},
		Params: map[string]string{"bitstream": "overlay.xclbin", "cmds": "work/compiler.cmds"},
	}
	cut := NetDescription{
		Name: net.Name + "_fpga",
		Inputs: net.Inputs,
		InputDims: net.InputDims,
		Layers: append([]Layer{accel}, net.Layers[3]),
	}
	parsed, err := ParseNet(cut.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Name != "miniNet_fpga" {
		t.Errorf("name = %s", parsed.Name)
	}
	if len(parsed.Layers) != 2 {
		t.Fatalf("got %d layers; want 2", len(parsed.Layers))
	}
	got := parsed.Layers[0]
	if got.Type != AccelLayerType || got.Name != "fpga_accel" {
		t.Errorf("accel layer = %+v", got)
	}
	if got.Params["bitstream"] != "overlay.xclbin" {
		t.Errorf("accel params = %v", got.Params)
	}
	if parsed.InputSize() != [2]int{224, 224} {
		t.Errorf("input size lost in round trip")
	}
}

func TestEncodeKeepsParamQuoting(t *testing.T) {
	src := `layer {
  name: "data"
  type: "Data"
  top: "data"
  mean_file: "imagenet_mean.binaryproto"
  pool: MAX
  kernel_size: 3
}
`
	net, err := ParseNet(src)
	if err != nil {
		t.Fatal(err)
	}
	layer := net.FindLayer("data")
	if layer == nil {
		t.Fatal("data layer not found")
	}
	// string params keep their quotes, bare scalars stay bare
	if layer.Params["mean_file"] != `"imagenet_mean.binaryproto"` {
		t.Errorf("mean_file = %s; want quoted", layer.Params["mean_file"])
	}
	if layer.Params["pool"] != "MAX" || layer.Params["kernel_size"] != "3" {
		t.Errorf("params = %v", layer.Params)
	}

	encoded := net.Encode()
	if !strings.Contains(encoded, "mean_file: \"imagenet_mean.binaryproto\"") {
		t.Errorf("encoded output lost param quoting:\n%s", encoded)
	}
	if !strings.Contains(encoded, "pool: MAX") {
		t.Errorf("encoded output quoted a bare scalar:\n%s", encoded)
	}
	reparsed, err := ParseNet(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if reparsed.Encode() != encoded {
		t.Errorf("encode is not stable across a parse round trip")
	}
}

func TestEdges(t *testing.T) {
	net, err := ParseNet(testPrototxt)
	if err != nil {
		t.Fatal(err)
	}
	edges := net.Edges()
	var got []string
	for _, edge := range edges {
		got = append(got, net.Layers[edge.Src].Name+">"+net.Layers[edge.Dst].Name)
	}
	// relu1 is in-place on conv1, so fc must hang off relu1, not conv1
	want := "conv1>relu1,relu1>fc,fc>prob"
	if strings.Join(got, ",") != want {
		t.Errorf("edges = %v; want %s", got, want)
	}
}
