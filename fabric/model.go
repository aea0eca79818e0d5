package fabric

import (
	"fmt"
	"path/filepath"
)

// A pretrained model to deploy: a network description file plus a weights
// file. Models either come from the bundled zoo (resolved by name under the
// suite root) or are registered with custom paths.
type Model struct {
	ID int
	Name string

	// "zoo" or "custom"
	Type string

	// path of the network description file
	Graph string
	// path of the weights file
	Weights string
}

// Names of the models bundled with the suite, in display order.
var ZooModels = []string{
	"bvlc_googlenet",
	"resnet50",
	"inception_v4",
	"mobilenet",
	"squeezenet",
	"vgg16",
}

func IsZooModel(name string) bool {
	for _, s := range ZooModels {
		if s == name {
			return true
		}
	}
	return false
}

// ZooModelPaths maps a zoo model name to its fixed (graph, weights) pair.
// The mapping is pure path construction; missing files surface downstream
// when the first tool tries to read them.
func ZooModelPaths(name string) (string, string) {
	dir := filepath.Join(RootDir(), "models", "caffe", name, "fp32")
	graph := filepath.Join(dir, name+"_deploy.prototxt")
	weights := filepath.Join(dir, name+".caffemodel")
	return graph, weights
}

func GetZooModel(name string) (Model, error) {
	if !IsZooModel(name) {
		return Model{}, fmt.Errorf("no such zoo model %s", name)
	}
	graph, weights := ZooModelPaths(name)
	return Model{
		Name: name,
		Type: "zoo",
		Graph: graph,
		Weights: weights,
	}, nil
}

// CustomModel wraps user-supplied paths without touching them.
func CustomModel(name string, graph string, weights string) Model {
	return Model{
		Name: name,
		Type: "custom",
		Graph: graph,
		Weights: weights,
	}
}