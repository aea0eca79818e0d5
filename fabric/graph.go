package fabric

import (
	"fmt"
	"io/ioutil"
	"sort"
	"strconv"
	"strings"
)

// Layer type that the subgraph cutter inserts to delegate execution of the
// replaced subgraph to the accelerator.
const AccelLayerType = "FPGAAccel"

// A network description: the serialized graph-definition format consumed and
// produced by the vendor tools. The format is line-oriented text with braced
// blocks; we model the graph structure (layers and the blobs connecting
// them) and skip nested parameter blocks, which only the vendor tools
// interpret.
type NetDescription struct {
	Name string
	// declared input blobs, with flattened input_dim values if present
	Inputs []string
	InputDims []int
	Layers []Layer
}

type Layer struct {
	Name string
	Type string
	// input and output blob names
	Bottoms []string
	Tops []string
	// remaining scalar fields on the layer itself, values as written
	// (string params keep their quotes)
	Params map[string]string
}

func ParseNetFile(fname string) (NetDescription, error) {
	bytes, err := ioutil.ReadFile(fname)
	if err != nil {
		return NetDescription{}, err
	}
	net, err := ParseNet(string(bytes))
	if err != nil {
		return net, fmt.Errorf("%s: %v", fname, err)
	}
	return net, nil
}

func ParseNet(s string) (NetDescription, error) {
	var net NetDescription
	var cur *Layer
	depth := 0
	for lineIdx, rawLine := range strings.Split(s, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if line == "}" {
			depth--
			if depth < 0 {
				return net, fmt.Errorf("line %d: unbalanced }", lineIdx+1)
			}
			if depth == 0 && cur != nil {
				net.Layers = append(net.Layers, *cur)
				cur = nil
			}
			continue
		}

		if strings.HasSuffix(line, "{") {
			key := strings.TrimSpace(strings.TrimSuffix(line, "{"))
			depth++
			if depth == 1 && (key == "layer" || key == "layers") {
				cur = &Layer{Params: make(map[string]string)}
			}
			continue
		}

		idx := strings.Index(line, ":")
		if idx < 0 {
			return net, fmt.Errorf("line %d: expected key: value, got %s", lineIdx+1, line)
		}
		key := strings.TrimSpace(line[0:idx])
		// raw keeps any quoting so scalar params survive re-encoding
		raw := strings.TrimSpace(line[idx+1:])
		value := strings.Trim(raw, "\"")

		if depth == 0 {
			if key == "name" {
				net.Name = value
			} else if key == "input" {
				net.Inputs = append(net.Inputs, value)
			} else if key == "input_dim" {
				dim, err := strconv.Atoi(value)
				if err != nil {
					return net, fmt.Errorf("line %d: bad input_dim %s", lineIdx+1, value)
				}
				net.InputDims = append(net.InputDims, dim)
			}
			// other top-level fields are irrelevant to the graph structure
			continue
		}

		if depth == 1 && cur != nil {
			if key == "name" {
				cur.Name = value
			} else if key == "type" {
				cur.Type = value
			} else if key == "bottom" {
				cur.Bottoms = append(cur.Bottoms, value)
			} else if key == "top" {
				cur.Tops = append(cur.Tops, value)
			} else {
				cur.Params[key] = raw
			}
		}
		// deeper levels are vendor parameter blocks
	}
	if depth != 0 {
		return net, fmt.Errorf("unbalanced { at end of input")
	}
	return net, nil
}

// Encode writes the modeled subset back out in the vendor text format.
// Nested parameter blocks skipped by ParseNet are not reproduced.
func (net NetDescription) Encode() string {
	var b strings.Builder
	if net.Name != "" {
		fmt.Fprintf(&b, "name: %q\n", net.Name)
	}
	for _, input := range net.Inputs {
		fmt.Fprintf(&b, "input: %q\n", input)
	}
	for _, dim := range net.InputDims {
		fmt.Fprintf(&b, "input_dim: %d\n", dim)
	}
	for _, layer := range net.Layers {
		b.WriteString("layer {\n")
		fmt.Fprintf(&b, "  name: %q\n", layer.Name)
		fmt.Fprintf(&b, "  type: %q\n", layer.Type)
		for _, s := range layer.Bottoms {
			fmt.Fprintf(&b, "  bottom: %q\n", s)
		}
		for _, s := range layer.Tops {
			fmt.Fprintf(&b, "  top: %q\n", s)
		}
		var keys []string
		for k := range layer.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, layer.Params[k])
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func (net NetDescription) FindLayer(name string) *Layer {
	for i := range net.Layers {
		if net.Layers[i].Name == name {
			return &net.Layers[i]
		}
	}
	return nil
}

func (net NetDescription) HasLayer(name string) bool {
	return net.FindLayer(name) != nil
}

// InputSize returns the declared (width, height) of the network input, or
// (0, 0) if the description doesn't carry input_dim values.
// input_dim order is (batch, channels, height, width).
func (net NetDescription) InputSize() [2]int {
	if len(net.InputDims) < 4 {
		return [2]int{0, 0}
	}
	return [2]int{net.InputDims[3], net.InputDims[2]}
}

// An edge in the rendered graph: the blob connecting two layers.
type NetEdge struct {
	Src int
	Dst int
	Blob string
}

// Edges derives layer-to-layer edges by matching each layer's bottoms
// against the most recent earlier layer producing that blob. In-place
// layers (top == bottom) chain naturally under this rule.
func (net NetDescription) Edges() []NetEdge {
	producer := make(map[string]int)
	var edges []NetEdge
	for i, layer := range net.Layers {
		for _, bottom := range layer.Bottoms {
			if src, ok := producer[bottom]; ok {
				edges = append(edges, NetEdge{Src: src, Dst: i, Blob: bottom})
			}
		}
		for _, top := range layer.Tops {
			producer[top] = i
		}
	}
	return edges
}