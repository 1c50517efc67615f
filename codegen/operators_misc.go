package codegen

import (
	"fmt"
	"strconv"

	ort "github.com/yalue/onnxruntime_go"
)

// constantValueAttrNames is the set Constant accepts; exactly one must be
// present on the node (§4.D). Order fixes which wins if an exporter
// illegally sets more than one.
var constantValueAttrNames = []string{
	"value", "sparse_value",
	"value_float", "value_floats",
	"value_int", "value_ints",
	"value_string", "value_strings",
}

// emitConstant: a TENSOR/SPARSE_TENSOR payload is assumed already
// hoisted into param_lib by the external pre-pass, so only a
// cross-reference comment is emitted here. Scalar/1-D numeric values
// are materialized inline as a fill kernel; string values get a
// zero-placeholder comment since the kernel set has no string fill.
func emitConstant(ctx *EmissionContext, node *ReadyNode) (string, error) {
	byName := make(map[string]Attribute, len(node.Attributes))
	for _, a := range node.Attributes {
		byName[a.Name] = a
	}
	var found string
	for _, name := range constantValueAttrNames {
		if _, ok := byName[name]; ok {
			found = name
			break
		}
	}
	if found == "" {
		return "", attrMissing(node.OpType, node.Name, "value")
	}
	if len(node.Outputs) == 0 {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	y := node.Outputs[0]
	args := NewArgBuilder(ctx.Resolver)

	switch found {
	case "value", "sparse_value":
		err := ctx.Sink.WriteLine(fmt.Sprintf(
			"// Constant %q folded into param_lib (see param_lib.tensor_%s)",
			node.Name, ctx.Resolver.Sanitize(y.Name)))
		return "", err
	case "value_float":
		return RenderKernelCall("constant_fill_f32", []string{
			args.TensorPointer(y),
			args.ScalarLiteral(byName["value_float"]),
		}), nil
	case "value_int":
		return RenderKernelCall("constant_fill_i64", []string{
			args.TensorPointer(y),
			args.ScalarLiteral(byName["value_int"]),
		}), nil
	case "value_floats":
		return RenderKernelCall("constant_fill_f32_array", []string{
			args.TensorPointer(y),
			args.FloatArray(byName["value_floats"].Floats),
		}), nil
	case "value_ints":
		return RenderKernelCall("constant_fill_i64_array", []string{
			args.TensorPointer(y),
			args.IntArray(byName["value_ints"].Ints),
		}), nil
	default: // value_string, value_strings
		err := ctx.Sink.WriteLine(fmt.Sprintf(
			"// Constant %q has a string value, emitted as a zero placeholder", node.Name))
		return "", err
	}
}

var oneHotAttrs = []AttributeSpec{
	opt("axis", AttrInt, Attribute{Int: -1}),
}

// emitOneHot requires depth to be a constant scalar known at emission
// time; the emitted kernel is type-specialized on values' resolved
// dtype (§4.D).
func emitOneHot(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, oneHotAttrs)
	if err != nil {
		return "", err
	}
	indices, depthT, values := inputAt(node, 0), inputAt(node, 1), inputAt(node, 2)
	if indices == nil || depthT == nil || values == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	if depthT.TensorProtoRef == nil {
		return "", invalidShape(node.OpType, node.Name, depthT.Name)
	}
	var depthVal int64
	switch {
	case len(depthT.TensorProtoRef.Int64Data) > 0:
		depthVal = depthT.TensorProtoRef.Int64Data[0]
	case len(depthT.TensorProtoRef.FloatData) > 0:
		depthVal = int64(depthT.TensorProtoRef.FloatData[0])
	default:
		return "", invalidShape(node.OpType, node.Name, depthT.Name)
	}
	valuesType, err := ctx.Resolver.ResolveType(values, node.Name)
	if err != nil {
		return "", err
	}
	kernel := "one_hot_" + KernelTypeToken(valuesType)

	args := NewArgBuilder(ctx.Resolver)
	callArgs := []string{
		args.TensorPointer(indices),
		strconv.FormatInt(depthVal, 10),
		args.TensorPointer(values),
		args.ScalarLiteral(attrs["axis"]),
		args.TensorPointer(node.Outputs[0]),
	}
	return RenderKernelCall(kernel, callArgs), nil
}

var castAttrs = []AttributeSpec{
	req("to", AttrInt),
}

// emitCast resolves both the source dtype (from the input tensor) and
// the target dtype (from the to attribute's ONNX TensorProto_DataType
// code, which lines up one-to-one with onnxruntime_go's enum) and
// selects the matching two-type kernel.
func emitCast(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, castAttrs)
	if err != nil {
		return "", err
	}
	x := inputAt(node, 0)
	if x == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	srcType, err := ctx.Resolver.ResolveType(x, node.Name)
	if err != nil {
		return "", err
	}
	targetCode := ort.TensorElementDataType(attrs["to"].Int)
	targetType, ok := DtypeFromORT(targetCode)
	if !ok {
		return "", unsupportedMode(node.OpType, node.Name, "to", strconv.FormatInt(attrs["to"].Int, 10))
	}
	kernel := fmt.Sprintf("cast_%s_to_%s", KernelTypeToken(srcType), KernelTypeToken(targetType))

	args := NewArgBuilder(ctx.Resolver)
	return RenderKernelCall(kernel, []string{
		args.TensorPointer(x),
		args.TensorPointer(node.Outputs[0]),
	}), nil
}

// emitDynamicQuantizeLinear has a fixed three-output contract enforced
// by the registry's arity range; here it only needs to wire them up
// in order.
func emitDynamicQuantizeLinear(ctx *EmissionContext, node *ReadyNode) (string, error) {
	x := inputAt(node, 0)
	if x == nil || len(node.Outputs) != 3 {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	args := NewArgBuilder(ctx.Resolver)
	return RenderKernelCall("dynamic_quantize_linear", []string{
		args.TensorPointer(x),
		args.TensorPointer(node.Outputs[0]),
		args.TensorPointer(node.Outputs[1]),
		args.TensorPointer(node.Outputs[2]),
	}), nil
}
