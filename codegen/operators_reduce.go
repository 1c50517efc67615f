package codegen

var reduceMeanAttrs = []AttributeSpec{
	opt("keepdims", AttrInt, Attribute{Int: 1}),
	opt("noop_with_empty_axes", AttrInt, Attribute{Int: 0}),
	opt("axes", AttrInts, Attribute{Ints: nil}),
}

// emitReduceMean: axes come from the attribute (older opsets), the
// optional input tensor (opset >= 18), or neither — meaning "reduce
// every axis", which the kernel implements when passed null.
func emitReduceMean(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, reduceMeanAttrs)
	if err != nil {
		return "", err
	}
	data := inputAt(node, 0)
	if data == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	args := NewArgBuilder(ctx.Resolver)
	var axesArg string
	switch {
	case HasAttr(node.Attributes, "axes"):
		axesArg = args.IntArray(attrs["axes"].Ints)
	default:
		if axesT := inputAt(node, 1); axesT != nil {
			dtype, err := ctx.Resolver.ResolveType(axesT, node.Name)
			if err != nil {
				return "", err
			}
			axesArg = args.RuntimeSlice("reduce_axes", axesT, dtype, "isize")
		} else {
			axesArg = "null"
		}
	}
	callArgs := []string{
		args.TensorPointer(data),
		axesArg,
		args.ScalarLiteral(attrs["keepdims"]),
		args.ScalarLiteral(attrs["noop_with_empty_axes"]),
		args.TensorPointer(node.Outputs[0]),
	}
	return FinalizeCall(ctx, "reduce_mean", callArgs, args)
}
