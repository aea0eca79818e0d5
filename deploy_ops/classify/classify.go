package classify

import (
	"github.com/fabricml/fabricml/fabric"
	"github.com/fabricml/fabricml/deploy_ops"

	"bufio"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

type Params struct {
	// image to classify
	Image string
	// labels file, one category per line; empty uses the bundled set
	Labels string
	// how many ranked results to keep
	TopK int
	// network input size; zero derives it from the rewritten graph
	InputDims [2]int
}

func (p Params) GetTopK() int {
	if p.TopK == 0 {
		return 5
	}
	return p.TopK
}

func (p Params) GetLabels() string {
	if p.Labels == "" {
		return filepath.Join(fabric.RootDir(), "data", "ilsvrc12", "synset_words.txt")
	}
	return p.Labels
}

type Prediction struct {
	Category string
	Score float64
}

type Classify struct {
	Params Params
	categories []string

	mu sync.Mutex
	cmd *fabric.Cmd
	stdin io.WriteCloser
	rd *bufio.Reader
}

func Prepare(dep fabric.Deployment, stage fabric.Stage) (fabric.DeployOp, error) {
	var params Params
	fabric.JsonUnmarshal([]byte(stage.Params), &params)
	if params.Image == "" {
		return nil, fmt.Errorf("classify params missing Image")
	}
	categories, err := loadLabels(params.GetLabels())
	if err != nil {
		return nil, fmt.Errorf("error reading labels: %v", err)
	}
	return &Classify{
		Params: params,
		categories: categories,
	}, nil
}

func loadLabels(fname string) ([]string, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var labels []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}

// startRuntime launches the vendor inference runtime on the rewritten
// graph. The runtime loads the bitstream, prints "ready", then serves
// forward passes over stdin/stdout.
func (e *Classify) startRuntime(ctx *fabric.StageContext) error {
	tool := fabric.ToolPath(fabric.RuntimeTool)
	if err := deploy_ops.CheckTool(tool); err != nil {
		return err
	}
	cmd := fabric.Command("classify-runtime", fabric.CommandOptions{
		AllStderrLines: true,
		LineFunc: ctx.LineFunc,
	}, tool,
		"--network", ctx.Artifacts.CutGraph,
		"--weights", ctx.Artifacts.QuantWeights,
		"--netcfg", ctx.Artifacts.CompilerMeta,
		"--bitstream", ctx.Deployment.Platform.Bitstream,
	)
	rd := bufio.NewReader(cmd.Stdout())
	line, err := rd.ReadString('\n')
	if err != nil {
		cmd.Wait()
		return fmt.Errorf("error waiting for runtime: %v", err)
	}
	if !strings.HasPrefix(line, "ready") {
		cmd.Wait()
		return fmt.Errorf("unexpected runtime greeting: %s", strings.TrimSpace(line))
	}
	e.cmd = cmd
	e.stdin = cmd.Stdin()
	e.rd = rd
	return nil
}

// Apply preprocesses the image with the fixed convention (resize, RGB to
// BGR, mean subtraction), streams it through the runtime, and records the
// ranked results.
func (e *Classify) Apply(ctx *fabric.StageContext) error {
	ws := ctx.Deployment.Workspace
	if err := deploy_ops.CheckInputs("classify", ctx.Artifacts.CutGraph, ctx.Artifacts.QuantWeights, ctx.Artifacts.CompilerMeta); err != nil {
		return err
	}

	dims, err := fabric.GetImageDimsFromFile(e.Params.Image)
	if err != nil {
		return fmt.Errorf("error reading image %s: %v", e.Params.Image, err)
	}
	log.Printf("[classify] input image %s (%dx%d)", e.Params.Image, dims[0], dims[1])

	im, err := fabric.LoadImage(e.Params.Image)
	if err != nil {
		return err
	}
	opts := fabric.DefaultPreprocess()
	if e.Params.InputDims[0] > 0 && e.Params.InputDims[1] > 0 {
		opts.Dims = e.Params.InputDims
	} else if cutNet, err := fabric.ParseNetFile(ctx.Artifacts.CutGraph); err == nil {
		if size := cutNet.InputSize(); size[0] > 0 {
			opts.Dims = size
		}
	}
	payload := fabric.Float32Bytes(im.Preprocess(opts))

	e.mu.Lock()
	if e.cmd == nil {
		if err := e.startRuntime(ctx); err != nil {
			e.mu.Unlock()
			return err
		}
	}

	// write the input and scan for the score line
	if _, err := e.stdin.Write(payload); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("error writing to runtime: %v", err)
	}
	signature := "json"
	var line string
	for {
		line, err = e.rd.ReadString('\n')
		if err != nil || strings.HasPrefix(line, signature) {
			break
		}
	}
	e.mu.Unlock()

	if err != nil {
		return fmt.Errorf("error reading from runtime: %v", err)
	}
	var scores []float64
	fabric.JsonUnmarshal([]byte(strings.TrimSpace(line[len(signature):])), &scores)

	predictions := TopK(scores, e.categories, e.Params.GetTopK())
	report := func(s string) {
		log.Printf("[classify] %s", s)
		if ctx.LineFunc != nil {
			ctx.LineFunc(s)
		}
	}
	report(fmt.Sprintf("top %d of %d categories:", len(predictions), len(scores)))
	for i, pred := range predictions {
		report(fmt.Sprintf("%d. [%.4f] %s", i+1, pred.Score, pred.Category))
	}

	if err := fabric.WriteJSONFile(ctx.Artifacts.Predictions, predictions); err != nil {
		return err
	}

	if len(predictions) > 0 {
		annotated := im.Copy()
		annotated.DrawText(fabric.RichText{
			Text: fmt.Sprintf("%s (%.2f)", predictions[0].Category, predictions[0].Score),
		})
		if err := ioutil.WriteFile(ws.AnnotatedImage(), annotated.AsPNG(), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (e *Classify) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd != nil {
		e.stdin.Close()
		e.cmd.Wait()
		e.cmd = nil
	}
}

// TopK ranks scores descending and keeps the best k with their category
// names. Ties keep the lower category index first.
func TopK(scores []float64, categories []string, k int) []Prediction {
	predictions := make([]Prediction, len(scores))
	for i, score := range scores {
		predictions[i] = Prediction{
			Category: categoryName(categories, i),
			Score: score,
		}
	}
	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Score > predictions[j].Score
	})
	if len(predictions) > k {
		predictions = predictions[0:k]
	}
	return predictions
}

func categoryName(categories []string, i int) string {
	if i < len(categories) {
		return categories[i]
	}
	return fmt.Sprintf("category %d", i)
}

func init() {
	fabric.DeployOpImpls["classify"] = fabric.DeployOpImpl{
		Prepare: Prepare,
		NeedsDevice: true,
	}
}