package codegen

var validAutoPad = map[string]bool{
	"NOTSET": true, "SAME_UPPER": true, "SAME_LOWER": true, "VALID": true,
}

func intsOrDefault(a Attribute, def []int64) []int64 {
	if len(a.Ints) == 0 {
		return def
	}
	return a.Ints
}

func onesOf(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func zerosOf(n int) []int64 {
	return make([]int64, n)
}

var convAttrs = []AttributeSpec{
	opt("auto_pad", AttrString, Attribute{Str: "NOTSET"}),
	opt("dilations", AttrInts, Attribute{Ints: nil}),
	opt("group", AttrInt, Attribute{Int: 1}),
	opt("kernel_shape", AttrInts, Attribute{Ints: nil}),
	opt("pads", AttrInts, Attribute{Ints: nil}),
	req("strides", AttrInts),
}

// emitConv: bias optional; strides mandatory (§4.D, no default
// fallback). Pad/dilation/kernel_shape attributes fall back to
// spatial-rank-derived defaults only when the attribute itself is
// absent, per the table's "inferred"/"1*"/"0*" notation.
func emitConv(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, convAttrs)
	if err != nil {
		return "", err
	}
	if !validAutoPad[attrs["auto_pad"].Str] {
		return "", unsupportedMode(node.OpType, node.Name, "auto_pad", attrs["auto_pad"].Str)
	}
	x, w := inputAt(node, 0), inputAt(node, 1)
	if x == nil || w == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	b := inputAt(node, 2)

	spatialRank := len(w.Shape) - 2
	if spatialRank < 0 {
		return "", invalidShape(node.OpType, node.Name, w.Name)
	}
	kernelShape := attrs["kernel_shape"].Ints
	if !HasAttr(node.Attributes, "kernel_shape") {
		kernelShape = w.Shape[2:]
	}
	dilations := attrs["dilations"].Ints
	if !HasAttr(node.Attributes, "dilations") {
		dilations = onesOf(spatialRank)
	}
	pads := attrs["pads"].Ints
	if !HasAttr(node.Attributes, "pads") {
		pads = zerosOf(spatialRank * 2)
	}
	strides := attrs["strides"].Ints

	args := NewArgBuilder(ctx.Resolver)
	return RenderKernelCall("conv", []string{
		args.TensorPointer(x),
		args.TensorPointer(w),
		args.NullOrPointer(b),
		args.UsizeArray(kernelShape),
		args.UsizeArray(strides),
		args.UsizeArray(pads),
		args.UsizeArray(dilations),
		args.ScalarLiteral(attrs["group"]),
		args.TensorPointer(node.Outputs[0]),
	}), nil
}

// emitConvInteger: inputs are u8/i8, accumulator is i32; optional
// zero-points default to null (treated as 0).
func emitConvInteger(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, convAttrs)
	if err != nil {
		return "", err
	}
	if !validAutoPad[attrs["auto_pad"].Str] {
		return "", unsupportedMode(node.OpType, node.Name, "auto_pad", attrs["auto_pad"].Str)
	}
	x, w := inputAt(node, 0), inputAt(node, 1)
	if x == nil || w == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	xZeroPoint := inputAt(node, 2)
	wZeroPoint := inputAt(node, 3)

	spatialRank := len(w.Shape) - 2
	if spatialRank < 0 {
		return "", invalidShape(node.OpType, node.Name, w.Name)
	}
	kernelShape := attrs["kernel_shape"].Ints
	if !HasAttr(node.Attributes, "kernel_shape") {
		kernelShape = w.Shape[2:]
	}
	dilations := attrs["dilations"].Ints
	if !HasAttr(node.Attributes, "dilations") {
		dilations = onesOf(spatialRank)
	}
	pads := attrs["pads"].Ints
	if !HasAttr(node.Attributes, "pads") {
		pads = zerosOf(spatialRank * 2)
	}
	strides := attrs["strides"].Ints

	args := NewArgBuilder(ctx.Resolver)
	return RenderKernelCall("conv_integer", []string{
		args.TensorPointer(x),
		args.TensorPointer(w),
		args.NullOrPointer(xZeroPoint),
		args.NullOrPointer(wZeroPoint),
		args.UsizeArray(kernelShape),
		args.UsizeArray(strides),
		args.UsizeArray(pads),
		args.UsizeArray(dilations),
		args.ScalarLiteral(attrs["group"]),
		args.TensorPointer(node.Outputs[0]),
	}), nil
}

func poolCommonAttrs(extra ...AttributeSpec) []AttributeSpec {
	base := []AttributeSpec{
		req("kernel_shape", AttrInts),
		req("strides", AttrInts),
		req("pads", AttrInts),
		opt("dilations", AttrInts, Attribute{Ints: nil}),
		opt("auto_pad", AttrString, Attribute{Str: "NOTSET"}),
	}
	return append(base, extra...)
}

var maxPoolAttrs = poolCommonAttrs(
	opt("storage_order", AttrInt, Attribute{Int: 0}),
	opt("ceil_mode", AttrInt, Attribute{Int: 0}),
)

var avgPoolAttrs = poolCommonAttrs(
	opt("count_include_pad", AttrInt, Attribute{Int: 0}),
)

// emitMaxPool: kernel_shape/strides/pads are mandatory — emission
// fails with AttributeMissing if any is absent (§4.D, S3).
func emitMaxPool(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, maxPoolAttrs)
	if err != nil {
		return "", err
	}
	if !validAutoPad[attrs["auto_pad"].Str] {
		return "", unsupportedMode(node.OpType, node.Name, "auto_pad", attrs["auto_pad"].Str)
	}
	x := inputAt(node, 0)
	if x == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	kernelShape := attrs["kernel_shape"].Ints
	dilations := intsOrDefault(attrs["dilations"], onesOf(len(kernelShape)))

	args := NewArgBuilder(ctx.Resolver)
	return RenderKernelCall("max_pool", []string{
		args.TensorPointer(x),
		args.UsizeArray(kernelShape),
		args.UsizeArray(attrs["strides"].Ints),
		args.UsizeArray(attrs["pads"].Ints),
		args.UsizeArray(dilations),
		args.ScalarLiteral(attrs["storage_order"]),
		args.ScalarLiteral(attrs["ceil_mode"]),
		args.TensorPointer(node.Outputs[0]),
	}), nil
}

func emitAveragePool(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, avgPoolAttrs)
	if err != nil {
		return "", err
	}
	if !validAutoPad[attrs["auto_pad"].Str] {
		return "", unsupportedMode(node.OpType, node.Name, "auto_pad", attrs["auto_pad"].Str)
	}
	x := inputAt(node, 0)
	if x == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	kernelShape := attrs["kernel_shape"].Ints
	dilations := intsOrDefault(attrs["dilations"], onesOf(len(kernelShape)))

	args := NewArgBuilder(ctx.Resolver)
	return RenderKernelCall("average_pool", []string{
		args.TensorPointer(x),
		args.UsizeArray(kernelShape),
		args.UsizeArray(attrs["strides"].Ints),
		args.UsizeArray(attrs["pads"].Ints),
		args.UsizeArray(dilations),
		args.ScalarLiteral(attrs["count_include_pad"]),
		args.TensorPointer(node.Outputs[0]),
	}), nil
}

var batchNormAttrs = []AttributeSpec{
	opt("epsilon", AttrFloat, Attribute{Float: 1e-5}),
	opt("momentum", AttrFloat, Attribute{Float: 0.9}),
	opt("training_mode", AttrInt, Attribute{Int: 0}),
}

// emitBatchNormalization: training_mode != 0 fails with
// TrainingNotSupported and emits no kernel call (§4.D, S6). Types of
// X/scale/mean may differ; each is addressed independently, the
// kernel itself resolves the mixed-type arithmetic.
func emitBatchNormalization(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, batchNormAttrs)
	if err != nil {
		return "", err
	}
	if attrs["training_mode"].Int != 0 {
		return "", &Diagnostic{Kind: TrainingNotSupported, Op: node.OpType, Node: node.Name}
	}
	x, scale, bias, mean, variance := inputAt(node, 0), inputAt(node, 1), inputAt(node, 2), inputAt(node, 3), inputAt(node, 4)
	if x == nil || scale == nil || bias == nil || mean == nil || variance == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	args := NewArgBuilder(ctx.Resolver)
	return RenderKernelCall("batch_norm", []string{
		args.TensorPointer(x),
		args.TensorPointer(scale),
		args.TensorPointer(bias),
		args.TensorPointer(mean),
		args.TensorPointer(variance),
		args.ScalarLiteral(attrs["epsilon"]),
		args.TensorPointer(node.Outputs[0]),
	}), nil
}
