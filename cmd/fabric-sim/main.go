package main

// Simulator for the vendor tools, for development machines without the
// accelerator suite installed. Symlink it as accel-quantizer, accel-compiler,
// accel-cut, and accel-runtime under $MLSUITE_ROOT/bin and the pipeline runs
// end to end with fabricated outputs. It honors the same CLI and wire
// contracts as the real tools.

import (
	"github.com/fabricml/fabricml/fabric"

	"bufio"
	"flag"
	"fmt"
	"hash/fnv"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const numCategories = 1000

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	tool := filepath.Base(os.Args[0])
	args := os.Args[1:]
	if !strings.HasPrefix(tool, "accel-") {
		if len(os.Args) < 2 {
			usage()
			return
		}
		tool = os.Args[1]
		args = os.Args[2:]
	}

	switch tool {
	case fabric.QuantizerTool, "quantize":
		runQuantizer(args)
	case fabric.CompilerTool, "compile":
		runCompiler(args)
	case fabric.CutterTool, "cut":
		runCutter(args)
	case fabric.RuntimeTool, "runtime":
		runRuntime(args)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: ./fabric-sim [quantize|compile|cut|runtime] ...")
	fmt.Println("or symlink it as the accel-* tools under $MLSUITE_ROOT/bin")
}

func mustParse(fname string) fabric.NetDescription {
	net, err := fabric.ParseNetFile(fname)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return net
}

func writeFile(fname string, data []byte) {
	if err := ioutil.WriteFile(fname, data, 0644); err != nil {
		log.Fatalf("%v", err)
	}
}

func runQuantizer(args []string) {
	fs := flag.NewFlagSet(fabric.QuantizerTool, flag.ExitOnError)
	model := fs.String("model", "", "network description file")
	weights := fs.String("weights", "", "weights file")
	outputDir := fs.String("output_dir", "quantize_results", "output directory")
	calibIter := fs.Int("calib_iter", 8, "calibration iterations")
	fs.Parse(args)

	net := mustParse(*model)
	for i := 1; i <= *calibIter; i++ {
		log.Printf("calibration iteration %d/%d", i, *calibIter)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("%v", err)
	}
	quantInfo := make(map[string]interface{})
	for i, layer := range net.Layers {
		quantInfo[layer.Name] = map[string]interface{}{
			"bw": 8,
			"scale": 1.0 / float64(64+i%64),
		}
	}
	writeFile(filepath.Join(*outputDir, "deploy.prototxt"), []byte(net.Encode()))
	if err := fabric.CopyFile(*weights, filepath.Join(*outputDir, "deploy.caffemodel")); err != nil {
		log.Fatalf("%v", err)
	}
	if err := fabric.WriteJSONFile(filepath.Join(*outputDir, "quantize_info.json"), quantInfo); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("quantized %d layers to %s", len(net.Layers), *outputDir)
}

func runCompiler(args []string) {
	fs := flag.NewFlagSet(fabric.CompilerTool, flag.ExitOnError)
	network := fs.String("network", "", "quantized network description")
	weights := fs.String("weights", "", "quantized weights file")
	quantInfoPath := fs.String("quant_info", "", "quantization scale factors")
	optionsPath := fs.String("options", "", "compiler options JSON")
	outputDir := fs.String("output_dir", "work", "output directory")
	fs.Parse(args)

	net := mustParse(*network)
	var options map[string]interface{}
	if err := fabric.ReadJSONFile(*optionsPath, &options); err != nil {
		log.Fatalf("%v", err)
	}
	var quantInfo map[string]interface{}
	if err := fabric.ReadJSONFile(*quantInfoPath, &quantInfo); err != nil {
		log.Fatalf("%v", err)
	}
	if !fabric.FileExists(*weights) {
		log.Fatalf("missing weights %s", *weights)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("%v", err)
	}
	var b strings.Builder
	var layers []string
	for i, layer := range net.Layers {
		fmt.Fprintf(&b, "%04d %s %s\n", i, strings.ToUpper(layer.Type), layer.Name)
		layers = append(layers, layer.Name)
	}
	writeFile(filepath.Join(*outputDir, "compiler.cmds"), []byte(b.String()))
	meta := map[string]interface{}{
		"network": net.Name,
		"layers": layers,
		"options": options,
	}
	if err := fabric.WriteJSONFile(filepath.Join(*outputDir, "compiler.json"), meta); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("compiled %d instructions (%d options)", len(net.Layers), len(options))
}

func runCutter(args []string) {
	fs := flag.NewFlagSet(fabric.CutterTool, flag.ExitOnError)
	network := fs.String("network", "", "quantized network description")
	instructions := fs.String("instructions", "", "compiled instruction stream")
	meta := fs.String("meta", "", "compiler metadata")
	bitstream := fs.String("bitstream", "", "accelerator bitstream")
	output := fs.String("output", "", "rewritten network description")
	cutLayer := fs.String("cut_layer", "", "last layer to offload (default: all but the final layer)")
	fs.Parse(args)

	net := mustParse(*network)
	if len(net.Layers) == 0 {
		log.Fatalf("%s has no layers", *network)
	}
	cutIdx := len(net.Layers) - 2
	if cutIdx < 0 {
		cutIdx = 0
	}
	if *cutLayer != "" {
		cutIdx = -1
		for i, layer := range net.Layers {
			if layer.Name == *cutLayer {
				cutIdx = i
			}
		}
		if cutIdx < 0 {
			log.Fatalf("no layer %s in %s", *cutLayer, *network)
		}
	}

	accel := fabric.Layer{
		Name: "fpga_accel",
		Type: fabric.AccelLayerType,
		Bottoms: net.Inputs,
		Tops: net.Layers[cutIdx].Tops,
		Params: map[string]string{
			"bitstream": *bitstream,
			"cmds": *instructions,
			"netcfg": *meta,
		},
	}
	cut := fabric.NetDescription{
		Name: net.Name + "_fpga",
		Inputs: net.Inputs,
		InputDims: net.InputDims,
		Layers: append([]fabric.Layer{accel}, net.Layers[cutIdx+1:]...),
	}
	writeFile(*output, []byte(cut.Encode()))
	log.Printf("offloaded %d layers up to %s", cutIdx+1, net.Layers[cutIdx].Name)
}

func runRuntime(args []string) {
	fs := flag.NewFlagSet(fabric.RuntimeTool, flag.ExitOnError)
	network := fs.String("network", "", "rewritten network description")
	weights := fs.String("weights", "", "quantized weights file")
	netcfg := fs.String("netcfg", "", "compiler metadata")
	bitstream := fs.String("bitstream", "", "accelerator bitstream")
	fs.Parse(args)

	net := mustParse(*network)
	if !fabric.FileExists(*weights) {
		log.Fatalf("missing weights %s", *weights)
	}
	if !fabric.FileExists(*netcfg) {
		log.Fatalf("missing netcfg %s", *netcfg)
	}
	size := net.InputSize()
	if size[0] == 0 {
		size = [2]int{224, 224}
	}
	// planar BGR float32
	payloadLen := 3 * size[0] * size[1] * 4

	log.Printf("programming %s", *bitstream)
	fmt.Println("ready")

	rd := bufio.NewReader(os.Stdin)
	buf := make([]byte, payloadLen)
	for {
		_, err := io.ReadFull(rd, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		} else if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Printf("json%s\n", fabric.JsonMarshal(fabricateScores(buf)))
	}
}

// fabricateScores derives a deterministic score vector from the input so
// repeated runs on the same image rank the same categories.
func fabricateScores(payload []byte) []float64 {
	h := fnv.New64a()
	h.Write(payload)
	state := h.Sum64()
	scores := make([]float64, numCategories)
	var sum float64
	for i := range scores {
		state = state*6364136223846793005 + 1442695040888963407
		scores[i] = float64(state >> 40)
		sum += scores[i]
	}
	for i := range scores {
		scores[i] /= sum
	}
	return scores
}
