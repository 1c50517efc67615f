package codegen

// binaryElementwise covers Add, Sub, Mul, Div: exactly two required
// inputs, broadcasting handled inside the kernel, no attributes.
func binaryElementwise(kernel string) EmitterFunc {
	return func(ctx *EmissionContext, node *ReadyNode) (string, error) {
		a, b := inputAt(node, 0), inputAt(node, 1)
		if a == nil || b == nil {
			return "", invalidShape(node.OpType, node.Name, "")
		}
		args := NewArgBuilder(ctx.Resolver)
		call := RenderKernelCall(kernel, []string{
			args.TensorPointer(a),
			args.TensorPointer(b),
			args.TensorPointer(node.Outputs[0]),
		})
		return call, nil
	}
}

// variadicElementwise covers Sum and Mean: n required inputs, 0
// optional, no attributes.
func variadicElementwise(kernel string) EmitterFunc {
	return func(ctx *EmissionContext, node *ReadyNode) (string, error) {
		if len(node.Inputs) == 0 {
			return "", emptyInputList(node.OpType, node.Name)
		}
		args := NewArgBuilder(ctx.Resolver)
		callArgs := make([]string, 0, len(node.Inputs)+1)
		for _, in := range node.Inputs {
			if in == nil {
				return "", invalidShape(node.OpType, node.Name, "")
			}
			callArgs = append(callArgs, args.TensorPointer(in))
		}
		callArgs = append(callArgs, args.TensorPointer(node.Outputs[0]))
		return RenderKernelCall(kernel, callArgs), nil
	}
}

// unaryElementwise covers Relu, Sigmoid, Tanh, Floor, Ceil, Sqrt, Neg,
// Identity: one input, one output, no attributes.
func unaryElementwise(kernel string) EmitterFunc {
	return func(ctx *EmissionContext, node *ReadyNode) (string, error) {
		x := inputAt(node, 0)
		if x == nil {
			return "", invalidShape(node.OpType, node.Name, "")
		}
		args := NewArgBuilder(ctx.Resolver)
		return RenderKernelCall(kernel, []string{
			args.TensorPointer(x),
			args.TensorPointer(node.Outputs[0]),
		}), nil
	}
}

func emitSoftmax(ctx *EmissionContext, node *ReadyNode) (string, error) {
	return unaryElementwise("softmax")(ctx, node)
}

// emitLogSoftmaxStub: LogSoftmax is currently unimplemented per §4.D —
// emit a comment stub, no kernel call, and no fallible-suffix.
func emitLogSoftmaxStub(ctx *EmissionContext, node *ReadyNode) (string, error) {
	err := ctx.Sink.WriteLine("// LogSoftmax not implemented: " + node.Name)
	return "", err
}

var leakyReluAttrs = []AttributeSpec{
	opt("alpha", AttrFloat, Attribute{Float: 0.01}),
}

func emitLeakyRelu(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, leakyReluAttrs)
	if err != nil {
		return "", err
	}
	x := inputAt(node, 0)
	if x == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	args := NewArgBuilder(ctx.Resolver)
	return RenderKernelCall("leaky_relu", []string{
		args.TensorPointer(x),
		args.ScalarLiteral(attrs["alpha"]),
		args.TensorPointer(node.Outputs[0]),
	}), nil
}

var eluAttrs = []AttributeSpec{
	opt("alpha", AttrFloat, Attribute{Float: 1.0}),
}

func emitElu(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, eluAttrs)
	if err != nil {
		return "", err
	}
	x := inputAt(node, 0)
	if x == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	args := NewArgBuilder(ctx.Resolver)
	return RenderKernelCall("elu", []string{
		args.TensorPointer(x),
		args.ScalarLiteral(attrs["alpha"]),
		args.TensorPointer(node.Outputs[0]),
	}), nil
}

var geluAttrs = []AttributeSpec{
	opt("approximate", AttrString, Attribute{Str: "none"}),
}

func emitGelu(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, geluAttrs)
	if err != nil {
		return "", err
	}
	x := inputAt(node, 0)
	if x == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	kernel := "gelu"
	switch attrs["approximate"].Str {
	case "none":
		kernel = "gelu"
	case "tanh":
		kernel = "gelu_tanh"
	default:
		return "", unsupportedMode(node.OpType, node.Name, "approximate", attrs["approximate"].Str)
	}
	args := NewArgBuilder(ctx.Resolver)
	return RenderKernelCall(kernel, []string{
		args.TensorPointer(x),
		args.TensorPointer(node.Outputs[0]),
	}), nil
}

// emitClip: min/max are optional inputs (opset >= 11), not attributes;
// absent ones render as the null marker (§4.D).
func emitClip(ctx *EmissionContext, node *ReadyNode) (string, error) {
	x := inputAt(node, 0)
	if x == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	minT := inputAt(node, 1)
	maxT := inputAt(node, 2)
	args := NewArgBuilder(ctx.Resolver)
	return RenderKernelCall("clip", []string{
		args.TensorPointer(x),
		args.NullOrPointer(minT),
		args.NullOrPointer(maxT),
		args.TensorPointer(node.Outputs[0]),
	}), nil
}
