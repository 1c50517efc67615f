package codegen

// cacheLineBytes is the target platform's assumed cache-line width,
// used only to pick between MatMul's naive and blocked kernels (§4.D,
// S5). Both kernels produce identical outputs; this is a performance
// choice, never a correctness one.
const cacheLineBytes = 64

func dtypeSize(d Dtype) int {
	switch d {
	case I8, U8, Bool:
		return 1
	case F16, I16:
		return 2
	case F32, I32:
		return 4
	case F64, I64:
		return 8
	default:
		return 4
	}
}

// emitMatMul chooses the blocked kernel when B's last-dimension width
// times its element size is at least one cache line, else naive (S5).
func emitMatMul(ctx *EmissionContext, node *ReadyNode) (string, error) {
	a, b := inputAt(node, 0), inputAt(node, 1)
	if a == nil || b == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	bDtype, err := ctx.Resolver.ResolveType(b, node.Name)
	if err != nil {
		return "", err
	}
	if len(b.Shape) == 0 {
		return "", invalidShape(node.OpType, node.Name, b.Name)
	}
	lastDim := b.Shape[len(b.Shape)-1]
	kernel := "matmul_naive"
	if lastDim*int64(dtypeSize(bDtype)) >= cacheLineBytes {
		kernel = "matmul_blocked"
	}
	args := NewArgBuilder(ctx.Resolver)
	return RenderKernelCall(kernel, []string{
		args.TensorPointer(a),
		args.TensorPointer(b),
		args.TensorPointer(node.Outputs[0]),
	}), nil
}

var gemmAttrs = []AttributeSpec{
	opt("alpha", AttrFloat, Attribute{Float: 1.0}),
	opt("beta", AttrFloat, Attribute{Float: 1.0}),
	opt("transA", AttrInt, Attribute{Int: 0}),
	opt("transB", AttrInt, Attribute{Int: 0}),
}

// emitGemm: Y = alpha*op(A)*op(B) + beta*C, with C optional (null
// means "treat as zero").
func emitGemm(ctx *EmissionContext, node *ReadyNode) (string, error) {
	attrs, err := ExtractAttributes(node.OpType, node.Name, node.Attributes, gemmAttrs)
	if err != nil {
		return "", err
	}
	a, b := inputAt(node, 0), inputAt(node, 1)
	if a == nil || b == nil {
		return "", invalidShape(node.OpType, node.Name, "")
	}
	c := inputAt(node, 2)
	args := NewArgBuilder(ctx.Resolver)
	return RenderKernelCall("gemm", []string{
		args.TensorPointer(a),
		args.TensorPointer(b),
		args.NullOrPointer(c),
		args.ScalarLiteral(attrs["alpha"]),
		args.ScalarLiteral(attrs["beta"]),
		args.ScalarLiteral(attrs["transA"]),
		args.ScalarLiteral(attrs["transB"]),
		args.TensorPointer(node.Outputs[0]),
	}), nil
}
