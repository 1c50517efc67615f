package codegen

import "strconv"

// constIntsFromInitializer reads a compile-time-known integer payload
// off an initializer tensor (Pad's pads). Returns
// InvalidShape if t isn't an initializer or carries no int64 payload —
// the spec requires these particular inputs to be constant-foldable.
func constIntsFromInitializer(t *ReadyTensor, op, node string) ([]int64, error) {
	if t.Category != Initializer || t.TensorProtoRef == nil || len(t.TensorProtoRef.Int64Data) == 0 {
		return nil, invalidShape(op, node, t.Name)
	}
	return t.TensorProtoRef.Int64Data, nil
}

// emitConcat: inputs of equal rank get the uniform-rank kernel; a
// ragged mix along axis 0 falls back to the tolerant runtime variant
// that warns instead of failing emission (§4.D).
func emitConcat(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, []AttributeSpec{
		req("axis", AttrInt),
	})
	if err != nil {
		return "", err
	}
	if len(node.Inputs) == 0 {
		return "", emptyInputList(node.OpType, node.Name)
	}
	rank := -1
	ragged := false
	for _, in := range node.Inputs {
		if in == nil {
			return "", invalidShape(node.OpType, node.Name, "")
		}
		if rank == -1 {
			rank = len(in.Shape)
		} else if len(in.Shape) != rank {
			ragged = true
		}
	}
	kernel := "concat"
	if attrs["axis"].Int == 0 && ragged {
		kernel = "concat_ragged"
	}
	args := NewArgBuilder(ctx.Resolver)
	callArgs := make([]string, 0, len(node.Inputs)+2)
	for _, in := range node.Inputs {
		callArgs = append(callArgs, args.TensorPointer(in))
	}
	callArgs = append(callArgs, args.ScalarLiteral(attrs["axis"]), args.TensorPointer(node.Outputs[0]))
	return RenderKernelCall(kernel, callArgs), nil
}

var splitAttrs = []AttributeSpec{
	opt("axis", AttrInt, Attribute{Int: 0}),
	opt("split", AttrInts, Attribute{Ints: nil}),
}

// emitSplit reads sizes from the optional split tensor input, else
// from the (deprecated) split attribute, else passes null for an
// even division the kernel computes itself. The split-sizes tensor's
// actual resolved dtype drives the runtime conversion — Split's §9
// float-cast bug is deliberately not reproduced.
func emitSplit(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, splitAttrs)
	if err != nil {
		return "", err
	}
	data := inputAt(node, 0)
	if data == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	splitTensor := inputAt(node, 1)

	args := NewArgBuilder(ctx.Resolver)
	var splitArg string
	switch {
	case splitTensor != nil:
		dtype, err := ctx.Resolver.ResolveType(splitTensor, node.Name)
		if err != nil {
			return "", err
		}
		splitArg = args.RuntimeSlice("split_sizes", splitTensor, dtype, "usize")
	case len(attrs["split"].Ints) > 0:
		splitArg = args.UsizeArray(attrs["split"].Ints)
	default:
		splitArg = "null"
	}

	callArgs := []string{
		args.TensorPointer(data),
		args.ScalarLiteral(attrs["axis"]),
		splitArg,
	}
	for _, out := range node.Outputs {
		callArgs = append(callArgs, args.TensorPointer(out))
	}
	return FinalizeCall(ctx, "split", callArgs, args)
}

var gatherAttrs = []AttributeSpec{
	opt("axis", AttrInt, Attribute{Int: 0}),
}

// emitGather casts int64 indices to the kernel's native index width at
// the call site rather than through a materialized runtime slice,
// since the indices tensor is consumed whole, not reshaped.
func emitGather(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, gatherAttrs)
	if err != nil {
		return "", err
	}
	data, indices := inputAt(node, 0), inputAt(node, 1)
	if data == nil || indices == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	idxDtype, err := ctx.Resolver.ResolveType(indices, node.Name)
	if err != nil {
		return "", err
	}
	args := NewArgBuilder(ctx.Resolver)
	idxExpr := args.TensorPointer(indices)
	if idxDtype == I64 {
		idxExpr = "tensor_math.castIndices(" + idxExpr + ")"
	}
	callArgs := []string{
		args.TensorPointer(data),
		idxExpr,
		args.ScalarLiteral(attrs["axis"]),
		args.TensorPointer(node.Outputs[0]),
	}
	return RenderKernelCall("gather", callArgs), nil
}

var reshapeAttrs = []AttributeSpec{
	opt("allowzero", AttrInt, Attribute{Int: 0}),
	opt("shape", AttrInts, Attribute{Ints: nil}),
}

// emitReshape prefers the shape attribute (rarely present on modern
// exporters) over the shape tensor input (S2); shape entries may be
// -1 or 0, so both forms use the signed compile-time/runtime form.
func emitReshape(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, reshapeAttrs)
	if err != nil {
		return "", err
	}
	data := inputAt(node, 0)
	if data == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	args := NewArgBuilder(ctx.Resolver)
	var shapeArg string
	if HasAttr(node.Attributes, "shape") {
		shapeArg = args.IntArray(attrs["shape"].Ints)
	} else {
		shapeTensor := inputAt(node, 1)
		if shapeTensor == nil {
			return "", invalidShape(node.OpType, node.Name, "")
		}
		dtype, err := ctx.Resolver.ResolveType(shapeTensor, node.Name)
		if err != nil {
			return "", err
		}
		shapeArg = args.RuntimeSlice("reshape_shape", shapeTensor, dtype, "isize")
	}
	callArgs := []string{
		args.TensorPointer(data),
		shapeArg,
		args.ScalarLiteral(attrs["allowzero"]),
		args.TensorPointer(node.Outputs[0]),
	}
	return FinalizeCall(ctx, "reshape", callArgs, args)
}

var resizeModes = map[string]bool{"nearest": true, "linear": true, "cubic": true}
var resizeCoordModes = map[string]bool{
	"half_pixel": true, "pytorch_half_pixel": true, "align_corners": true,
	"asymmetric": true, "tf_crop_and_resize": true,
}
var resizeNearestModes = map[string]bool{
	"round_prefer_floor": true, "round_prefer_ceil": true, "floor": true, "ceil": true,
}
var resizeAspectPolicies = map[string]bool{"stretch": true, "not_larger": true, "not_smaller": true}

var resizeAttrs = []AttributeSpec{
	opt("antialias", AttrInt, Attribute{Int: 0}),
	opt("axes", AttrInts, Attribute{Ints: nil}),
	opt("coordinate_transformation_mode", AttrString, Attribute{Str: "half_pixel"}),
	opt("cubic_coeff_a", AttrFloat, Attribute{Float: -0.75}),
	opt("exclude_outside", AttrInt, Attribute{Int: 0}),
	opt("extrapolation_value", AttrFloat, Attribute{Float: 0.0}),
	opt("keep_aspect_ratio_policy", AttrString, Attribute{Str: "stretch"}),
	opt("mode", AttrString, Attribute{Str: "nearest"}),
	opt("nearest_mode", AttrString, Attribute{Str: "round_prefer_floor"}),
}

func emitResize(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, resizeAttrs)
	if err != nil {
		return "", err
	}
	if !resizeModes[attrs["mode"].Str] {
		return "", unsupportedMode(node.OpType, node.Name, "mode", attrs["mode"].Str)
	}
	if !resizeCoordModes[attrs["coordinate_transformation_mode"].Str] {
		return "", unsupportedMode(node.OpType, node.Name, "coordinate_transformation_mode", attrs["coordinate_transformation_mode"].Str)
	}
	if !resizeNearestModes[attrs["nearest_mode"].Str] {
		return "", unsupportedMode(node.OpType, node.Name, "nearest_mode", attrs["nearest_mode"].Str)
	}
	if !resizeAspectPolicies[attrs["keep_aspect_ratio_policy"].Str] {
		return "", unsupportedMode(node.OpType, node.Name, "keep_aspect_ratio_policy", attrs["keep_aspect_ratio_policy"].Str)
	}
	x := inputAt(node, 0)
	if x == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	roi, scales, sizes := inputAt(node, 1), inputAt(node, 2), inputAt(node, 3)

	args := NewArgBuilder(ctx.Resolver)
	callArgs := []string{
		args.TensorPointer(x),
		args.NullOrPointer(roi),
		args.NullOrPointer(scales),
		args.NullOrPointer(sizes),
		args.ScalarLiteral(attrs["antialias"]),
		args.UsizeArray(attrs["axes"].Ints),
		args.ScalarLiteral(attrs["coordinate_transformation_mode"]),
		args.ScalarLiteral(attrs["cubic_coeff_a"]),
		args.ScalarLiteral(attrs["exclude_outside"]),
		args.ScalarLiteral(attrs["extrapolation_value"]),
		args.ScalarLiteral(attrs["keep_aspect_ratio_policy"]),
		args.ScalarLiteral(attrs["mode"]),
		args.ScalarLiteral(attrs["nearest_mode"]),
		args.TensorPointer(node.Outputs[0]),
	}
	return RenderKernelCall("resize", callArgs), nil
}

var padModes = map[string]bool{"constant": true, "reflect": true, "edge": true, "wrap": true}

var padAttrs = []AttributeSpec{
	opt("mode", AttrString, Attribute{Str: "constant"}),
}

// emitPad requires pads to be an initializer (§4.D) so its values are
// readable at emission time instead of needing a runtime conversion.
func emitPad(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, padAttrs)
	if err != nil {
		return "", err
	}
	if !padModes[attrs["mode"].Str] {
		return "", unsupportedMode(node.OpType, node.Name, "mode", attrs["mode"].Str)
	}
	data, padsT := inputAt(node, 0), inputAt(node, 1)
	if data == nil || padsT == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	padsVals, err := constIntsFromInitializer(padsT, node.OpType, node.Name)
	if err != nil {
		return "", err
	}
	constantValue := inputAt(node, 2)
	axes := inputAt(node, 3)

	args := NewArgBuilder(ctx.Resolver)
	callArgs := []string{
		args.TensorPointer(data),
		args.UsizeArray(padsVals),
		args.NullOrPointer(constantValue),
		args.NullOrPointer(axes),
		args.ScalarLiteral(attrs["mode"]),
		args.TensorPointer(node.Outputs[0]),
	}
	return RenderKernelCall("pad", callArgs), nil
}

// emitSlice: starts and ends are mandatory tensor inputs; axes and
// steps are optional. Every present input is materialized as a
// runtime-built isize slice and released at the end of the node's
// emission window (§4.D).
func emitSlice(ctx *EmissionContext, node *ReadyNode) (string, error) {
	data, startsT, endsT := inputAt(node, 0), inputAt(node, 1), inputAt(node, 2)
	if data == nil || startsT == nil || endsT == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	axesT, stepsT := inputAt(node, 3), inputAt(node, 4)

	args := NewArgBuilder(ctx.Resolver)
	startsDtype, err := ctx.Resolver.ResolveType(startsT, node.Name)
	if err != nil {
		return "", err
	}
	startsArg := args.RuntimeSlice("slice_starts", startsT, startsDtype, "isize")

	endsDtype, err := ctx.Resolver.ResolveType(endsT, node.Name)
	if err != nil {
		return "", err
	}
	endsArg := args.RuntimeSlice("slice_ends", endsT, endsDtype, "isize")

	axesArg := "null"
	if axesT != nil {
		axesDtype, err := ctx.Resolver.ResolveType(axesT, node.Name)
		if err != nil {
			return "", err
		}
		axesArg = args.RuntimeSlice("slice_axes", axesT, axesDtype, "isize")
	}
	stepsArg := "null"
	if stepsT != nil {
		stepsDtype, err := ctx.Resolver.ResolveType(stepsT, node.Name)
		if err != nil {
			return "", err
		}
		stepsArg = args.RuntimeSlice("slice_steps", stepsT, stepsDtype, "isize")
	}

	callArgs := []string{
		args.TensorPointer(data),
		startsArg,
		endsArg,
		axesArg,
		stepsArg,
		args.TensorPointer(node.Outputs[0]),
	}
	return FinalizeCall(ctx, "slice", callArgs, args)
}

// emitShape: start/end default to the whole-range sentinel "null" when
// absent, distinct from an explicit 0.
func emitShape(ctx *EmissionContext, node *ReadyNode) (string, error) {
	x := inputAt(node, 0)
	if x == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	startArg, endArg := "null", "null"
	for _, a := range node.Attributes {
		switch a.Name {
		case "start":
			if a.Kind != AttrInt {
				return "", attrTypeMismatch(node.OpType, node.Name, "start", AttrInt, a.Kind)
			}
			startArg = strconv.FormatInt(a.Int, 10)
		case "end":
			if a.Kind != AttrInt {
				return "", attrTypeMismatch(node.OpType, node.Name, "end", AttrInt, a.Kind)
			}
			endArg = strconv.FormatInt(a.Int, 10)
		}
	}
	args := NewArgBuilder(ctx.Resolver)
	callArgs := []string{
		args.TensorPointer(x),
		startArg,
		endArg,
		args.TensorPointer(node.Outputs[0]),
	}
	return RenderKernelCall("shape", callArgs), nil
}

// emitTranspose defaults perm to the reversed axis order when absent,
// and threads the runtime allocator through for its stride-reordering
// scratch buffer.
func emitTranspose(ctx *EmissionContext, node *ReadyNode) (string, error) {
	x := inputAt(node, 0)
	if x == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, []AttributeSpec{
		opt("perm", AttrInts, Attribute{Ints: nil}),
	})
	if err != nil {
		return "", err
	}
	perm := attrs["perm"].Ints
	if len(perm) == 0 {
		rank := len(x.Shape)
		perm = make([]int64, rank)
		for i := range perm {
			perm[i] = int64(rank - 1 - i)
		}
	}
	args := NewArgBuilder(ctx.Resolver)
	callArgs := []string{
		args.TensorPointer(x),
		args.UsizeArray(perm),
		"allocator",
		args.TensorPointer(node.Outputs[0]),
	}
	return RenderKernelCall("transpose", callArgs), nil
}

// emitUnsqueeze reads axes from the attribute (opset <= 12) or the
// optional input tensor (opset >= 13), whichever is present.
func emitUnsqueeze(ctx *EmissionContext, node *ReadyNode) (string, error) {
	data := inputAt(node, 0)
	if data == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, []AttributeSpec{
		opt("axes", AttrInts, Attribute{Ints: nil}),
	})
	if err != nil {
		return "", err
	}
	args := NewArgBuilder(ctx.Resolver)
	var axesArg string
	switch {
	case HasAttr(node.Attributes, "axes"):
		axesArg = args.IntArray(attrs["axes"].Ints)
	default:
		axesT := inputAt(node, 1)
		if axesT == nil {
			return "", invalidShape(node.OpType, node.Name, "")
		}
		dtype, err := ctx.Resolver.ResolveType(axesT, node.Name)
		if err != nil {
			return "", err
		}
		axesArg = args.RuntimeSlice("unsqueeze_axes", axesT, dtype, "isize")
	}
	callArgs := []string{args.TensorPointer(data), axesArg, args.TensorPointer(node.Outputs[0])}
	return FinalizeCall(ctx, "unsqueeze", callArgs, args)
}

// emitSqueeze: axes is an optional input tensor only (no attribute
// form survives past opset 12's deprecation here); absent means
// "squeeze every size-1 dimension", the kernel's own default.
func emitSqueeze(ctx *EmissionContext, node *ReadyNode) (string, error) {
	data := inputAt(node, 0)
	if data == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	args := NewArgBuilder(ctx.Resolver)
	axesArg := "null"
	if axesT := inputAt(node, 1); axesT != nil {
		dtype, err := ctx.Resolver.ResolveType(axesT, node.Name)
		if err != nil {
			return "", err
		}
		axesArg = args.RuntimeSlice("squeeze_axes", axesT, dtype, "isize")
	}
	callArgs := []string{args.TensorPointer(data), axesArg, args.TensorPointer(node.Outputs[0])}
	return FinalizeCall(ctx, "squeeze", callArgs, args)
}

var flattenAttrs = []AttributeSpec{
	opt("axis", AttrInt, Attribute{Int: 1}),
}

func emitFlatten(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, flattenAttrs)
	if err != nil {
		return "", err
	}
	data := inputAt(node, 0)
	if data == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	args := NewArgBuilder(ctx.Resolver)
	callArgs := []string{
		args.TensorPointer(data),
		args.ScalarLiteral(attrs["axis"]),
		args.TensorPointer(node.Outputs[0]),
	}
	return RenderKernelCall("flatten", callArgs), nil
}
