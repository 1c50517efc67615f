// Package codegen implements the operator-dispatch and kernel-emission
// engine: given a normalized per-node IR with resolved tensor
// identities, shapes, dtypes, and category tags, it emits one
// correctly-typed kernel invocation per node into a generated source
// file. It contains no ONNX parser and no graph walker; both are
// external collaborators (see internal/irjson for the loader that
// feeds this package, which is explicitly not an ONNX parser).
package codegen

import "fmt"

// Dtype is the closed element-type token set tensors resolve to.
type Dtype string

const (
	F16       Dtype = "F16"
	F32       Dtype = "F32"
	F64       Dtype = "F64"
	I8        Dtype = "I8"
	U8        Dtype = "U8"
	I16       Dtype = "I16"
	I32       Dtype = "I32"
	I64       Dtype = "I64"
	Bool      Dtype = "BOOL"
	String    Dtype = "STRING"
	Undefined Dtype = "UNDEFINED"
)

// Category is exactly one of the four tensor addressing classes.
type Category int

const (
	Initializer Category = iota
	Input
	Activation
	Output
)

func (c Category) String() string {
	switch c {
	case Initializer:
		return "INITIALIZER"
	case Input:
		return "INPUT"
	case Activation:
		return "ACTIVATION"
	case Output:
		return "OUTPUT"
	default:
		return "UNKNOWN_CATEGORY"
	}
}

// TensorProtoRef is the handle to the original ONNX TensorProto. Only
// the element type and the small constant payload are modeled; the
// rest of the protobuf (raw_data, dims, segment, ...) is out of scope
// for this package and lives on the external loader's side.
type TensorProtoRef struct {
	DataType Dtype
	// Int64Data / FloatData hold the materialized constant payload
	// for small tensors (Pad's pads and OneHot's depth are read from
	// here at emission time instead of re-parsing raw_data).
	Int64Data []int64
	FloatData []float32
}

// ReadyTensor is the normalized view of an ONNX tensor at emit time.
// Never mutated after construction (§3 lifetime invariant).
type ReadyTensor struct {
	Name          string
	Category      Category
	DType         Dtype
	Shape         []int64
	TensorProtoRef *TensorProtoRef
}

// ResolvedDType returns the tensor's element type per the §4.A
// priority: explicit DType first, then the proto ref's DataType, else
// MissingTypeInformation. Never silently defaults to F32.
func (t *ReadyTensor) ResolvedDType() (Dtype, error) {
	if t.DType != "" && t.DType != Undefined {
		return t.DType, nil
	}
	if t.TensorProtoRef != nil && t.TensorProtoRef.DataType != "" && t.TensorProtoRef.DataType != Undefined {
		return t.TensorProtoRef.DataType, nil
	}
	return "", &Diagnostic{
		Kind:   MissingTypeInformation,
		Tensor: t.Name,
	}
}

// AttributeKind is the type tag of a single ONNX node attribute.
type AttributeKind int

const (
	AttrInt AttributeKind = iota
	AttrFloat
	AttrString
	AttrInts
	AttrFloats
	AttrTensor
	AttrSparseTensor
	AttrStrings
)

func (k AttributeKind) String() string {
	switch k {
	case AttrInt:
		return "INT"
	case AttrFloat:
		return "FLOAT"
	case AttrString:
		return "STRING"
	case AttrInts:
		return "INTS"
	case AttrFloats:
		return "FLOATS"
	case AttrTensor:
		return "TENSOR"
	case AttrSparseTensor:
		return "SPARSE_TENSOR"
	case AttrStrings:
		return "STRINGS"
	default:
		return "UNKNOWN_ATTR_KIND"
	}
}

// Attribute is one entry of a ReadyNode's attribute list, as produced
// by the external protobuf layer.
type Attribute struct {
	Name   string
	Kind   AttributeKind
	Int    int64
	Float  float32
	Str    string
	Ints   []int64
	Floats []float32
	Tensor *TensorProtoRef
	Strs   []string
}

// ReadyNode is one node of the topologically-ordered graph.
type ReadyNode struct {
	OpType     string
	Name       string
	Attributes []Attribute
	// Inputs holds ordered optional tensor references; a nil entry
	// means the positional input slot is absent (§3 invariant).
	Inputs  []*ReadyTensor
	Outputs []*ReadyTensor
}

func (n *ReadyNode) String() string {
	return fmt.Sprintf("%s(%s)", n.OpType, n.Name)
}

// GlobalTensorMap is the only legal way to resolve a tensor handle
// referenced by name. Read-only during emission.
type GlobalTensorMap map[string]*ReadyTensor

// Lookup resolves name or returns TensorNotFound naming the node.
func (m GlobalTensorMap) Lookup(name, node string) (*ReadyTensor, error) {
	t, ok := m[name]
	if !ok {
		return nil, &Diagnostic{Kind: TensorNotFound, Node: node, Tensor: name}
	}
	return t, nil
}

// EmitterConfig is the fully enumerated set of recognized knobs.
type EmitterConfig struct {
	Dynamic bool
	Comm    bool
	Log     bool
}
