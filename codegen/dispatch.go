package codegen

import (
	"fmt"
	"io"
)

// registry is the Operator Emitter Registry (§4.D): one contract per
// supported ONNX operator. Built once as a package-level value — it
// holds only pure function pointers and arity metadata, never
// per-emission state, so concurrent Emit calls (from separate
// goroutines, each with its own EmissionContext) can share it safely
// even though a single Emit call itself runs single-threaded (§5).
var registry = map[string]operatorContract{
	"Add": {2, 2, 1, 1, "add", binaryElementwise("add")},
	"Sub": {2, 2, 1, 1, "sub", binaryElementwise("sub")},
	"Mul": {2, 2, 1, 1, "mul", binaryElementwise("mul")},
	"Div": {2, 2, 1, 1, "div", binaryElementwise("div")},
	"Sum": {1, -1, 1, 1, "sum", variadicElementwise("sum")},
	"Mean": {1, -1, 1, 1, "mean", variadicElementwise("mean")},

	"Relu":    {1, 1, 1, 1, "relu", unaryElementwise("relu")},
	"Sigmoid": {1, 1, 1, 1, "sigmoid", unaryElementwise("sigmoid")},
	"Tanh":    {1, 1, 1, 1, "tanh", unaryElementwise("tanh")},
	"Floor":   {1, 1, 1, 1, "floor", unaryElementwise("floor")},
	"Ceil":    {1, 1, 1, 1, "ceil", unaryElementwise("ceil")},
	"Sqrt":    {1, 1, 1, 1, "sqrt", unaryElementwise("sqrt")},
	"Neg":     {1, 1, 1, 1, "neg", unaryElementwise("neg")},
	"Identity": {1, 1, 1, 1, "identity", unaryElementwise("identity")},
	"Softmax":  {1, 1, 1, 1, "softmax", emitSoftmax},
	"LogSoftmax": {1, 1, 1, 1, "", emitLogSoftmaxStub},
	"LeakyRelu":  {1, 1, 1, 1, "leaky_relu", emitLeakyRelu},
	"Elu":        {1, 1, 1, 1, "elu", emitElu},
	"Gelu":       {1, 1, 1, 1, "gelu", emitGelu},
	"Clip":       {1, 3, 1, 1, "clip", emitClip},

	"MatMul": {2, 2, 1, 1, "matmul_naive/matmul_blocked", emitMatMul},
	"Gemm":   {2, 3, 1, 1, "gemm", emitGemm},

	"Conv":        {2, 3, 1, 1, "conv", emitConv},
	"ConvInteger": {2, 4, 1, 1, "conv_integer", emitConvInteger},
	"MaxPool":     {1, 1, 1, 1, "max_pool", emitMaxPool},
	"AveragePool": {1, 1, 1, 1, "average_pool", emitAveragePool},
	"BatchNormalization": {5, 5, 1, 1, "batch_norm", emitBatchNormalization},

	"Concat":    {1, -1, 1, 1, "concat/concat_ragged", emitConcat},
	"Split":     {1, 2, 1, -1, "split", emitSplit},
	"Gather":    {2, 2, 1, 1, "gather", emitGather},
	"Reshape":   {1, 2, 1, 1, "reshape", emitReshape},
	"Resize":    {1, 4, 1, 1, "resize", emitResize},
	"Pad":       {2, 4, 1, 1, "pad", emitPad},
	"ReduceMean": {1, 2, 1, 1, "reduce_mean", emitReduceMean},
	"Slice":     {3, 5, 1, 1, "slice", emitSlice},
	"Constant":  {0, 0, 1, 1, "", emitConstant},
	"Shape":     {1, 1, 1, 1, "shape", emitShape},
	"Transpose": {1, 1, 1, 1, "transpose", emitTranspose},
	"Unsqueeze": {1, 2, 1, 1, "unsqueeze", emitUnsqueeze},
	"Squeeze":   {1, 2, 1, 1, "squeeze", emitSqueeze},
	"Flatten":   {1, 1, 1, 1, "flatten", emitFlatten},
	"OneHot":    {3, 3, 1, 1, "one_hot", emitOneHot},
	"Cast":      {1, 1, 1, 1, "cast", emitCast},
	"DynamicQuantizeLinear": {1, 1, 3, 3, "dynamic_quantize_linear", emitDynamicQuantizeLinear},
}

// Dispatcher routes a node to its emitter by operator type (§4.E).
func Dispatcher(ctx *EmissionContext, node *ReadyNode) error {
	if err := EmitPreamble(ctx, node); err != nil {
		return err
	}

	contract, ok := registry[node.OpType]
	if !ok {
		return EmitUnsupportedStub(ctx, node)
	}

	if err := checkArity(node.OpType, node.Name, len(node.Inputs), contract.MinInputs, contract.MaxInputs, true); err != nil {
		return err
	}
	if err := checkArity(node.OpType, node.Name, len(node.Outputs), contract.MinOutputs, contract.MaxOutputs, false); err != nil {
		return err
	}

	callLine, err := contract.Fn(ctx, node)
	if err != nil {
		return err
	}
	if callLine == "" {
		return nil
	}
	return ctx.Sink.WriteLine(callLine + FallibleSuffix)
}

// Emit runs the Dispatcher over nodes in visit order, writing the
// generated source to w. Emission order of statements equals
// node-visit order (§5, §8 property 7) — nodes are never reordered,
// batched, or parallelized here.
func Emit(tensors GlobalTensorMap, nodes []*ReadyNode, networkOutput string, config EmitterConfig, w io.Writer) error {
	ctx := &EmissionContext{
		Tensors:       tensors,
		NetworkOutput: networkOutput,
		Config:        config,
		Sink:          NewSink(w),
		Resolver:      NewResolver(),
	}
	for _, node := range nodes {
		if err := Dispatcher(ctx, node); err != nil {
			return fmt.Errorf("emit node %s: %w", node, err)
		}
	}
	return ctx.Sink.Flush()
}

// SupportedOperators returns the operator type names the registry can
// emit, in map iteration order (unsorted and not stable between calls).
func SupportedOperators() []string {
	ops := make([]string, 0, len(registry))
	for op := range registry {
		ops = append(ops, op)
	}
	return ops
}
