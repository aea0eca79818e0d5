package main

import (
	"github.com/fabricml/fabricml/fabric"

	_ "github.com/fabricml/fabricml/ops"

	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

func usage() {
	fmt.Println("usage: ./fabricctl [command] ...")
	fmt.Println("")
	fmt.Println("local commands:")
	fmt.Println("  deploy     run the full pipeline (quantize, compile, cut, classify)")
	fmt.Println("  quantize   run the quantizer only")
	fmt.Println("  compile    run the compiler only")
	fmt.Println("  cut        run the subgraph cutter only")
	fmt.Println("  classify   run inference on the deployed model")
	fmt.Println("  render     render a network description to dot/svg/png")
	fmt.Println("  inspect    summarize a weights file")
	fmt.Println("  zoo        list the bundled models")
	fmt.Println("")
	fmt.Println("remote commands (talk to a running coordinator):")
	fmt.Println("  models     list registered models")
	fmt.Println("  jobs       list jobs")
	fmt.Println("  submit     start a deployment job")
}

// modelFlags are shared by every local stage command.
type modelFlags struct {
	fs *flag.FlagSet
	workspace *string
	model *string
	graph *string
	weights *string
	platform *string
}

func newModelFlags(name string) modelFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return modelFlags{
		fs: fs,
		workspace: fs.String("workspace", ".", "workspace directory"),
		model: fs.String("model", "", "zoo model name (see ./fabricctl zoo)"),
		graph: fs.String("graph", "", "network description file (custom model)"),
		weights: fs.String("weights", "", "weights file (custom model)"),
		platform: fs.String("platform", "", "target platform (default MLSUITE_PLATFORM)"),
	}
}

func (f modelFlags) resolve() (fabric.Deployment, error) {
	var model fabric.Model
	if *f.model != "" {
		var err error
		model, err = fabric.GetZooModel(*f.model)
		if err != nil {
			return fabric.Deployment{}, err
		}
	} else if *f.graph != "" && *f.weights != "" {
		name := strings.TrimSuffix(filepath.Base(*f.graph), filepath.Ext(*f.graph))
		model = fabric.CustomModel(name, *f.graph, *f.weights)
	} else {
		return fabric.Deployment{}, fmt.Errorf("specify either -model or both -graph and -weights")
	}
	platform := fabric.GetPlatform()
	if *f.platform != "" {
		platform = fabric.PlatformByName(*f.platform)
	}
	return fabric.Deployment{
		Name: model.Name,
		Model: model,
		Platform: platform,
		Workspace: fabric.Workspace(*f.workspace),
	}, nil
}

func runStages(dep fabric.Deployment, stages []fabric.Stage) {
	_, err := fabric.RunDeployment(dep, stages, fabric.RunHooks{})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "deploy":
		f := newModelFlags("deploy")
		calibIter := f.fs.Int("calib-iter", 0, "quantizer calibration iterations")
		cutLayer := f.fs.String("cut-layer", "", "layer where the cutter splits the graph")
		image := f.fs.String("image", "", "image to classify")
		labels := f.fs.String("labels", "", "labels file")
		topK := f.fs.Int("topk", 0, "number of ranked results")
		f.fs.Parse(os.Args[2:])
		if *image == "" {
			fmt.Println("deploy: -image is required")
			return
		}
		dep, err := f.resolve()
		if err != nil {
			fmt.Println(err)
			return
		}
		runStages(dep, fabric.DefaultStages(fabric.DeployParams{
			CalibIter: *calibIter,
			CutLayer: *cutLayer,
			Image: *image,
			Labels: *labels,
			TopK: *topK,
		}))
		fmt.Printf("predictions written to %s\n", dep.Workspace.Predictions())

	case "quantize":
		f := newModelFlags("quantize")
		calibIter := f.fs.Int("calib-iter", 0, "quantizer calibration iterations")
		f.fs.Parse(os.Args[2:])
		dep, err := f.resolve()
		if err != nil {
			fmt.Println(err)
			return
		}
		runStages(dep, []fabric.Stage{{
			Name: "Quantize",
			Op: "quantize",
			Params: string(fabric.JsonMarshal(struct {
				CalibIter int
			}{*calibIter})),
		}})

	case "compile":
		f := newModelFlags("compile")
		f.fs.Parse(os.Args[2:])
		dep, err := f.resolve()
		if err != nil {
			fmt.Println(err)
			return
		}
		runStages(dep, []fabric.Stage{{Name: "Compile", Op: "compile", Params: "{}"}})

	case "cut":
		f := newModelFlags("cut")
		cutLayer := f.fs.String("cut-layer", "", "layer where the cutter splits the graph")
		f.fs.Parse(os.Args[2:])
		dep, err := f.resolve()
		if err != nil {
			fmt.Println(err)
			return
		}
		runStages(dep, []fabric.Stage{{
			Name: "Cut",
			Op: "cut",
			Params: string(fabric.JsonMarshal(struct {
				Layer string
			}{*cutLayer})),
		}})

	case "classify":
		f := newModelFlags("classify")
		image := f.fs.String("image", "", "image to classify")
		labels := f.fs.String("labels", "", "labels file")
		topK := f.fs.Int("topk", 0, "number of ranked results")
		f.fs.Parse(os.Args[2:])
		if *image == "" {
			fmt.Println("classify: -image is required")
			return
		}
		dep, err := f.resolve()
		if err != nil {
			fmt.Println(err)
			return
		}
		runStages(dep, []fabric.Stage{{
			Name: "Classify",
			Op: "classify",
			Params: string(fabric.JsonMarshal(struct {
				Image string
				Labels string
				TopK int
			}{*image, *labels, *topK})),
		}})

	case "render":
		fs := flag.NewFlagSet("render", flag.ExitOnError)
		out := fs.String("out", "", "output prefix (default: graph path without extension)")
		fs.Parse(os.Args[2:])
		fname := fs.Arg(0)
		if fname == "" {
			fmt.Println("usage: ./fabricctl render [-out prefix] graph.prototxt")
			return
		}
		net, err := fabric.ParseNetFile(fname)
		if err != nil {
			fmt.Println(err)
			return
		}
		prefix := *out
		if prefix == "" {
			prefix = strings.TrimSuffix(fname, filepath.Ext(fname))
		}
		if err := fabric.WriteNetRenders(net, prefix); err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("rendered %s.dot and %s.svg\n", prefix, prefix)

	case "inspect":
		fs := flag.NewFlagSet("inspect", flag.ExitOnError)
		fs.Parse(os.Args[2:])
		fname := fs.Arg(0)
		if fname == "" {
			fmt.Println("usage: ./fabricctl inspect weights.caffemodel")
			return
		}
		info, err := fabric.InspectWeights(fname)
		if err != nil {
			fmt.Println(err)
			return
		}
		if info.Name != "" {
			fmt.Printf("network %s\n", info.Name)
		}
		for _, layer := range info.Layers {
			fmt.Printf("%s: %d params\n", layer.Name, layer.Params)
		}
		fmt.Printf("total: %d params in %d layers\n", info.TotalParams, len(info.Layers))

	case "zoo":
		for _, name := range fabric.ZooModels {
			graph, weights := fabric.ZooModelPaths(name)
			status := "missing"
			if fabric.FileExists(graph) && fabric.FileExists(weights) {
				status = "installed"
			}
			fmt.Printf("%s (%s)\n  %s\n  %s\n", name, status, graph, weights)
		}

	case "models":
		url := remoteURL("models")
		var models []fabric.Model
		if err := fabric.JsonGet(url, "/models", &models); err != nil {
			fmt.Println(err)
			return
		}
		for _, model := range models {
			fmt.Printf("%d %s (%s) graph=%s weights=%s\n", model.ID, model.Name, model.Type, model.Graph, model.Weights)
		}

	case "jobs":
		url := remoteURL("jobs")
		var jobs []fabric.Job
		if err := fabric.JsonGet(url, "/jobs", &jobs); err != nil {
			fmt.Println(err)
			return
		}
		for _, job := range jobs {
			status := "running"
			if job.Done && job.Error != "" {
				status = "error: " + job.Error
			} else if job.Done {
				status = "done"
			}
			fmt.Printf("%d %s [%s]\n", job.ID, job.Name, status)
		}

	case "submit":
		fs := flag.NewFlagSet("submit", flag.ExitOnError)
		url := fs.String("url", "http://127.0.0.1:8080", "coordinator URL")
		depID := fs.Int("dep", 0, "deployment ID")
		calibIter := fs.Int("calib-iter", 0, "quantizer calibration iterations")
		cutLayer := fs.String("cut-layer", "", "layer where the cutter splits the graph")
		image := fs.String("image", "", "image to classify")
		labels := fs.String("labels", "", "labels file")
		topK := fs.Int("topk", 0, "number of ranked results")
		fs.Parse(os.Args[2:])
		if *depID == 0 || *image == "" {
			fmt.Println("submit: -dep and -image are required")
			return
		}
		var job fabric.Job
		err := fabric.JsonPost(*url, fmt.Sprintf("/deployments/%d/deploy", *depID), fabric.DeployParams{
			CalibIter: *calibIter,
			CutLayer: *cutLayer,
			Image: *image,
			Labels: *labels,
			TopK: *topK,
		}, &job)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("started job %d (%s)\n", job.ID, job.Name)

	default:
		usage()
	}
}

// remoteURL parses the -url flag for the simple remote listing commands.
func remoteURL(name string) string {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	url := fs.String("url", "http://127.0.0.1:8080", "coordinator URL")
	fs.Parse(os.Args[2:])
	return *url
}
