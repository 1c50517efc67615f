// Package irjson loads a normalized graph IR from a plain JSON
// document into codegen's types. It is explicitly not an ONNX parser:
// there is no protobuf, no .onnx byte format, no shape inference, no
// topological sort, and no constant folding here — the JSON document
// is assumed to already carry a topologically-ordered node list and
// fully resolved tensor shapes/dtypes, exactly the contract
// codegen.Emit expects from its external collaborator (§6 of the
// emitter's own spec). This package exists only so the CLI has
// something concrete to run against a fixture.
package irjson

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/scriptmaster/onnx_codegen/codegen"
)

type tensorProtoRefDoc struct {
	DataType  string    `json:"data_type,omitempty"`
	Int64Data []int64   `json:"int64_data,omitempty"`
	FloatData []float32 `json:"float_data,omitempty"`
}

type tensorDoc struct {
	Category       string             `json:"category"`
	Dtype          string             `json:"dtype"`
	Shape          []int64            `json:"shape"`
	TensorProtoRef *tensorProtoRefDoc `json:"tensor_proto_ref,omitempty"`
}

type attributeDoc struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type nodeDoc struct {
	OpType     string         `json:"op_type"`
	Name       string         `json:"name"`
	Attributes []attributeDoc `json:"attributes"`
	// Inputs entries are nullable: a JSON null marks an absent
	// optional positional input (§3's ReadyNode.Inputs invariant).
	Inputs  []*string `json:"inputs"`
	Outputs []string  `json:"outputs"`
}

type configDoc struct {
	Dynamic bool `json:"dynamic"`
	Comm    bool `json:"comm"`
	Log     bool `json:"log"`
}

type graphDoc struct {
	Tensors       map[string]tensorDoc `json:"tensors"`
	Nodes         []nodeDoc            `json:"nodes"`
	NetworkOutput string               `json:"network_output"`
	Config        configDoc            `json:"config"`
}

// Graph is the fully-resolved result of Load, ready to pass straight
// into codegen.Emit.
type Graph struct {
	Tensors       codegen.GlobalTensorMap
	Nodes         []*codegen.ReadyNode
	NetworkOutput string
	Config        codegen.EmitterConfig
}

func parseCategory(s string) (codegen.Category, error) {
	switch s {
	case "INITIALIZER":
		return codegen.Initializer, nil
	case "INPUT":
		return codegen.Input, nil
	case "ACTIVATION":
		return codegen.Activation, nil
	case "OUTPUT":
		return codegen.Output, nil
	default:
		return 0, fmt.Errorf("irjson: unknown tensor category %q", s)
	}
}

func decodeAttribute(ad attributeDoc) (codegen.Attribute, error) {
	a := codegen.Attribute{Name: ad.Name}
	switch ad.Type {
	case "INT":
		a.Kind = codegen.AttrInt
		if err := json.Unmarshal(ad.Value, &a.Int); err != nil {
			return a, fmt.Errorf("irjson: attribute %q: %w", ad.Name, err)
		}
	case "FLOAT":
		var v float64
		if err := json.Unmarshal(ad.Value, &v); err != nil {
			return a, fmt.Errorf("irjson: attribute %q: %w", ad.Name, err)
		}
		a.Kind = codegen.AttrFloat
		a.Float = float32(v)
	case "STRING":
		a.Kind = codegen.AttrString
		if err := json.Unmarshal(ad.Value, &a.Str); err != nil {
			return a, fmt.Errorf("irjson: attribute %q: %w", ad.Name, err)
		}
	case "INTS":
		a.Kind = codegen.AttrInts
		if err := json.Unmarshal(ad.Value, &a.Ints); err != nil {
			return a, fmt.Errorf("irjson: attribute %q: %w", ad.Name, err)
		}
	case "FLOATS":
		var vs []float64
		if err := json.Unmarshal(ad.Value, &vs); err != nil {
			return a, fmt.Errorf("irjson: attribute %q: %w", ad.Name, err)
		}
		a.Kind = codegen.AttrFloats
		a.Floats = make([]float32, len(vs))
		for i, v := range vs {
			a.Floats[i] = float32(v)
		}
	case "STRINGS":
		a.Kind = codegen.AttrStrings
		if err := json.Unmarshal(ad.Value, &a.Strs); err != nil {
			return a, fmt.Errorf("irjson: attribute %q: %w", ad.Name, err)
		}
	case "TENSOR", "SPARSE_TENSOR":
		var td tensorProtoRefDoc
		if err := json.Unmarshal(ad.Value, &td); err != nil {
			return a, fmt.Errorf("irjson: attribute %q: %w", ad.Name, err)
		}
		if ad.Type == "TENSOR" {
			a.Kind = codegen.AttrTensor
		} else {
			a.Kind = codegen.AttrSparseTensor
		}
		a.Tensor = &codegen.TensorProtoRef{
			DataType:  codegen.Dtype(td.DataType),
			Int64Data: td.Int64Data,
			FloatData: td.FloatData,
		}
	default:
		return a, fmt.Errorf("irjson: unknown attribute type %q for %q", ad.Type, ad.Name)
	}
	return a, nil
}

// Load reads path and decodes it into a Graph. Every tensor named by a
// node's inputs/outputs must already have an entry in the tensors map
// — irjson does no shape inference and will not invent one.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc graphDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("irjson: parse %s: %w", path, err)
	}

	tensors := make(codegen.GlobalTensorMap, len(doc.Tensors))
	for name, td := range doc.Tensors {
		category, err := parseCategory(td.Category)
		if err != nil {
			return nil, fmt.Errorf("irjson: tensor %q: %w", name, err)
		}
		t := &codegen.ReadyTensor{
			Name:     name,
			Category: category,
			DType:    codegen.Dtype(td.Dtype),
			Shape:    td.Shape,
		}
		if td.TensorProtoRef != nil {
			t.TensorProtoRef = &codegen.TensorProtoRef{
				DataType:  codegen.Dtype(td.TensorProtoRef.DataType),
				Int64Data: td.TensorProtoRef.Int64Data,
				FloatData: td.TensorProtoRef.FloatData,
			}
		}
		tensors[name] = t
	}

	nodes := make([]*codegen.ReadyNode, 0, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		attrs := make([]codegen.Attribute, 0, len(nd.Attributes))
		for _, ad := range nd.Attributes {
			a, err := decodeAttribute(ad)
			if err != nil {
				return nil, fmt.Errorf("irjson: node %q: %w", nd.Name, err)
			}
			attrs = append(attrs, a)
		}

		inputs := make([]*codegen.ReadyTensor, len(nd.Inputs))
		for i, name := range nd.Inputs {
			if name == nil {
				continue
			}
			t, err := tensors.Lookup(*name, nd.Name)
			if err != nil {
				return nil, err
			}
			inputs[i] = t
		}

		outputs := make([]*codegen.ReadyTensor, len(nd.Outputs))
		for i, name := range nd.Outputs {
			t, err := tensors.Lookup(name, nd.Name)
			if err != nil {
				return nil, err
			}
			outputs[i] = t
		}

		nodes = append(nodes, &codegen.ReadyNode{
			OpType:     nd.OpType,
			Name:       nd.Name,
			Attributes: attrs,
			Inputs:     inputs,
			Outputs:    outputs,
		})
	}

	return &Graph{
		Tensors:       tensors,
		Nodes:         nodes,
		NetworkOutput: doc.NetworkOutput,
		Config: codegen.EmitterConfig{
			Dynamic: doc.Config.Dynamic,
			Comm:    doc.Config.Comm,
			Log:     doc.Config.Log,
		},
	}, nil
}
