package fabric

import (
	svglib "github.com/ajstarks/svgo"

	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"os/exec"
	"strings"
)

// Rendering of network descriptions for human review, e.g. to check where
// the subgraph cutter placed the accelerator layer.

func layerColor(layer Layer) string {
	if layer.Type == AccelLayerType {
		return "lightblue"
	}
	return "lightyellow"
}

// NetDOT builds Graphviz DOT text for the network.
// Declared inputs are drawn as ovals, layers as boxes, and the accelerator
// layer is highlighted.
func NetDOT(net NetDescription) string {
	var sb strings.Builder
	sb.WriteString("digraph Net {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=\"Arial\"];\n")
	sb.WriteString("  edge [fontname=\"Arial\", fontsize=10];\n\n")

	for i, input := range net.Inputs {
		sb.WriteString(fmt.Sprintf("  I%d [label=\"%s\", shape=oval, fillcolor=\"lightgreen\"];\n", i, input))
	}
	for i, layer := range net.Layers {
		label := fmt.Sprintf("%s\\n%s", layer.Name, layer.Type)
		sb.WriteString(fmt.Sprintf("  L%d [label=\"%s\", fillcolor=\"%s\"];\n", i, label, layerColor(layer)))
	}

	sb.WriteString("\n")

	// edges from declared inputs to the layers consuming them
	for i, input := range net.Inputs {
		for j, layer := range net.Layers {
			for _, bottom := range layer.Bottoms {
				if bottom == input {
					sb.WriteString(fmt.Sprintf("  I%d -> L%d;\n", i, j))
				}
			}
			// stop at the first producer of the input blob, if any
			produced := false
			for _, top := range layer.Tops {
				if top == input {
					produced = true
				}
			}
			if produced {
				break
			}
		}
	}
	for _, edge := range net.Edges() {
		sb.WriteString(fmt.Sprintf("  L%d -> L%d [label=\"%s\"];\n", edge.Src, edge.Dst, edge.Blob))
	}

	sb.WriteString("}\n")
	return sb.String()
}

// RenderDOT converts a .dot file to .png with the Graphviz dot command.
func RenderDOT(dotFname string, pngFname string) error {
	cmd := exec.Command("dot", "-Tpng", dotFname, "-o", pngFname)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("graphviz error: %v (%s)", err, strings.TrimSpace(string(output)))
	}
	if !FileExists(pngFname) {
		return fmt.Errorf("graphviz did not produce %s", pngFname)
	}
	return nil
}

// layerRows assigns each layer a row one past its deepest producer, so
// branches (e.g. inception modules) share a row.
func layerRows(net NetDescription) []int {
	rows := make([]int, len(net.Layers))
	for _, edge := range net.Edges() {
		if rows[edge.Src]+1 > rows[edge.Dst] {
			rows[edge.Dst] = rows[edge.Src] + 1
		}
	}
	return rows
}

// NetSVG renders the network natively as SVG, so graphs can be reviewed
// without Graphviz installed.
func NetSVG(net NetDescription, w io.Writer) {
	const boxW, boxH = 180, 36
	const hgap, vgap = 40, 50

	rows := layerRows(net)
	numRows := 0
	colOf := make([]int, len(net.Layers))
	colsInRow := make(map[int]int)
	for i := range net.Layers {
		colOf[i] = colsInRow[rows[i]]
		colsInRow[rows[i]]++
		if rows[i]+1 > numRows {
			numRows = rows[i] + 1
		}
	}
	maxCols := 1
	for _, n := range colsInRow {
		if n > maxCols {
			maxCols = n
		}
	}

	width := maxCols*(boxW+hgap) + hgap
	height := numRows*(boxH+vgap) + vgap

	centerX := func(i int) int {
		n := colsInRow[rows[i]]
		rowWidth := n*(boxW+hgap) - hgap
		left := (width-rowWidth)/2 + colOf[i]*(boxW+hgap)
		return left + boxW/2
	}
	centerY := func(i int) int {
		return vgap + rows[i]*(boxH+vgap) + boxH/2
	}

	canvas := svglib.New(w)
	canvas.Start(width, height)
	for _, edge := range net.Edges() {
		canvas.Line(centerX(edge.Src), centerY(edge.Src)+boxH/2, centerX(edge.Dst), centerY(edge.Dst)-boxH/2, "stroke:black;stroke-width:1")
	}
	for i, layer := range net.Layers {
		x := centerX(i) - boxW/2
		y := centerY(i) - boxH/2
		canvas.Roundrect(x, y, boxW, boxH, 6, 6, fmt.Sprintf("fill:%s;stroke:black", layerColor(layer)))
		canvas.Text(centerX(i), centerY(i)-3, layer.Name, "text-anchor:middle;font-size:11px;font-family:Arial")
		canvas.Text(centerX(i), centerY(i)+11, layer.Type, "text-anchor:middle;font-size:9px;font-family:Arial;fill:gray")
	}
	canvas.End()
}

// WriteNetRenders writes basePath.dot, basePath.svg, and (if Graphviz is
// available) basePath.png for the given network description.
func WriteNetRenders(net NetDescription, basePath string) error {
	dotFname := basePath + ".dot"
	if err := ioutil.WriteFile(dotFname, []byte(NetDOT(net)), 0644); err != nil {
		return err
	}

	svgFile, err := os.Create(basePath + ".svg")
	if err != nil {
		return err
	}
	NetSVG(net, svgFile)
	if err := svgFile.Close(); err != nil {
		return err
	}

	// PNG needs the external dot binary; treat absence as non-fatal
	if err := RenderDOT(dotFname, basePath+".png"); err != nil {
		log.Printf("[render] skipping png render: %v", err)
	}
	return nil
}