package codegen

import (
	"bytes"
	"strings"
	"testing"
)

func dispatchAndCapture(t *testing.T, node *ReadyNode) string {
	t.Helper()
	var buf bytes.Buffer
	ctx := &EmissionContext{Sink: NewSink(&buf), Resolver: NewResolver()}
	if err := Dispatcher(ctx, node); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx.Sink.Flush()
	return buf.String()
}

func TestOperatorsNoAttributeKernelSelection(t *testing.T) {
	tests := []struct {
		name string
		node *ReadyNode
		want string
	}{
		{
			name: "Add",
			node: &ReadyNode{OpType: "Add", Name: "n1",
				Inputs:  []*ReadyTensor{mustTensor("a", Activation, F32, 2), mustTensor("b", Activation, F32, 2)},
				Outputs: []*ReadyTensor{mustTensor("y", Output, F32, 2)}},
			want: "tensor_math.add(&tensor_a, &tensor_b, &tensor_y)",
		},
		{
			name: "Sum variadic",
			node: &ReadyNode{OpType: "Sum", Name: "n2",
				Inputs: []*ReadyTensor{
					mustTensor("a", Activation, F32, 2),
					mustTensor("b", Activation, F32, 2),
					mustTensor("c", Activation, F32, 2),
				},
				Outputs: []*ReadyTensor{mustTensor("y", Output, F32, 2)}},
			want: "tensor_math.sum(&tensor_a, &tensor_b, &tensor_c, &tensor_y)",
		},
		{
			name: "Identity",
			node: &ReadyNode{OpType: "Identity", Name: "n3",
				Inputs:  []*ReadyTensor{mustTensor("a", Activation, F32, 2)},
				Outputs: []*ReadyTensor{mustTensor("y", Output, F32, 2)}},
			want: "tensor_math.identity(&tensor_a, &tensor_y)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dispatchAndCapture(t, tt.node)
			if !strings.Contains(got, tt.want) {
				t.Fatalf("got %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestLogSoftmaxStub(t *testing.T) {
	node := &ReadyNode{OpType: "LogSoftmax", Name: "ls1",
		Inputs:  []*ReadyTensor{mustTensor("x", Activation, F32, 4)},
		Outputs: []*ReadyTensor{mustTensor("y", Output, F32, 4)}}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "// LogSoftmax not implemented: ls1") {
		t.Fatalf("got %q", got)
	}
	if strings.Contains(got, FallibleSuffix) {
		t.Fatalf("stub must not carry the fallible suffix, got %q", got)
	}
}

func TestGeluApproximateDispatch(t *testing.T) {
	tests := []struct {
		approx string
		kernel string
	}{
		{"none", "tensor_math.gelu("},
		{"tanh", "tensor_math.gelu_tanh("},
	}
	for _, tt := range tests {
		t.Run(tt.approx, func(t *testing.T) {
			node := &ReadyNode{OpType: "Gelu", Name: "g1",
				Attributes: []Attribute{{Name: "approximate", Kind: AttrString, Str: tt.approx}},
				Inputs:     []*ReadyTensor{mustTensor("x", Activation, F32, 4)},
				Outputs:    []*ReadyTensor{mustTensor("y", Output, F32, 4)}}
			got := dispatchAndCapture(t, node)
			if !strings.Contains(got, tt.kernel) {
				t.Fatalf("got %q, want %q", got, tt.kernel)
			}
		})
	}
}

func TestGeluUnknownApproximateFails(t *testing.T) {
	node := &ReadyNode{OpType: "Gelu", Name: "g1",
		Attributes: []Attribute{{Name: "approximate", Kind: AttrString, Str: "bogus"}},
		Inputs:     []*ReadyTensor{mustTensor("x", Activation, F32, 4)},
		Outputs:    []*ReadyTensor{mustTensor("y", Output, F32, 4)}}
	var buf bytes.Buffer
	ctx := &EmissionContext{Sink: NewSink(&buf), Resolver: NewResolver()}
	err := Dispatcher(ctx, node)
	d, ok := err.(*Diagnostic)
	if !ok || d.Kind != UnsupportedMode {
		t.Fatalf("expected UnsupportedMode, got %v", err)
	}
}

func TestSplitFromSizesTensorUsesResolvedDtype(t *testing.T) {
	data := mustTensor("data", Activation, F32, 6)
	sizes := mustTensor("sizes", Initializer, I32, 2)
	out0 := mustTensor("y0", Output, F32, 3)
	out1 := mustTensor("y1", Output, F32, 3)
	node := &ReadyNode{OpType: "Split", Name: "split1",
		Inputs:  []*ReadyTensor{data, sizes},
		Outputs: []*ReadyTensor{out0, out1},
	}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "toIndexSliceI32") {
		t.Fatalf("expected the I32-specific cast since sizes resolved to I32, got %q", got)
	}
	if !strings.Contains(got, "tensor_math.split(") {
		t.Fatalf("got %q", got)
	}
}

func TestSplitWithoutSizesPassesNull(t *testing.T) {
	data := mustTensor("data", Activation, F32, 6)
	out0 := mustTensor("y0", Output, F32, 3)
	out1 := mustTensor("y1", Output, F32, 3)
	node := &ReadyNode{OpType: "Split", Name: "split1",
		Inputs:  []*ReadyTensor{data},
		Outputs: []*ReadyTensor{out0, out1},
	}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "tensor_math.split(&tensor_data, 0, null, &tensor_y0, &tensor_y1)") {
		t.Fatalf("got %q", got)
	}
}

func TestGatherCastsInt64Indices(t *testing.T) {
	data := mustTensor("data", Activation, F32, 6)
	indices := mustTensor("idx", Activation, I64, 2)
	y := mustTensor("y", Output, F32, 2)
	node := &ReadyNode{OpType: "Gather", Name: "g1", Inputs: []*ReadyTensor{data, indices}, Outputs: []*ReadyTensor{y}}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "tensor_math.castIndices(&tensor_idx)") {
		t.Fatalf("got %q", got)
	}
}

func TestGatherLeavesI32IndicesUncast(t *testing.T) {
	data := mustTensor("data", Activation, F32, 6)
	indices := mustTensor("idx", Activation, I32, 2)
	y := mustTensor("y", Output, F32, 2)
	node := &ReadyNode{OpType: "Gather", Name: "g1", Inputs: []*ReadyTensor{data, indices}, Outputs: []*ReadyTensor{y}}
	got := dispatchAndCapture(t, node)
	if strings.Contains(got, "castIndices") {
		t.Fatalf("did not expect a cast for I32 indices, got %q", got)
	}
}

func TestConstantValueFloat(t *testing.T) {
	y := mustTensor("y", Output, F32, 1)
	node := &ReadyNode{OpType: "Constant", Name: "c1",
		Attributes: []Attribute{{Name: "value_float", Kind: AttrFloat, Float: 3.5}},
		Outputs:    []*ReadyTensor{y},
	}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "tensor_math.constant_fill_f32(&tensor_y, 3.5)") {
		t.Fatalf("got %q", got)
	}
}

func TestConstantTensorValueIsCommentOnly(t *testing.T) {
	y := mustTensor("big_weight", Output, F32, 4, 4)
	node := &ReadyNode{OpType: "Constant", Name: "c1",
		Attributes: []Attribute{{Name: "value", Kind: AttrTensor, Tensor: &TensorProtoRef{DataType: F32}}},
		Outputs:    []*ReadyTensor{y},
	}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "folded into param_lib") {
		t.Fatalf("got %q", got)
	}
	if strings.Contains(got, "tensor_math.") {
		t.Fatalf("expected no kernel call for a TENSOR constant, got %q", got)
	}
}

func TestConstantMissingValueAttribute(t *testing.T) {
	node := &ReadyNode{OpType: "Constant", Name: "c1", Outputs: []*ReadyTensor{mustTensor("y", Output, F32, 1)}}
	var buf bytes.Buffer
	ctx := &EmissionContext{Sink: NewSink(&buf), Resolver: NewResolver()}
	err := Dispatcher(ctx, node)
	d, ok := err.(*Diagnostic)
	if !ok || d.Kind != AttributeMissing || d.Attr != "value" {
		t.Fatalf("expected AttributeMissing(value), got %v", err)
	}
}

func TestCastSelectsTwoTypeKernel(t *testing.T) {
	x := mustTensor("x", Activation, F32, 4)
	y := mustTensor("y", Output, I64, 4)
	node := &ReadyNode{OpType: "Cast", Name: "cast1",
		Attributes: []Attribute{{Name: "to", Kind: AttrInt, Int: 7}}, // ONNX INT64 = 7
		Inputs:     []*ReadyTensor{x},
		Outputs:    []*ReadyTensor{y},
	}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "tensor_math.cast_f32_to_i64(&tensor_x, &tensor_y)") {
		t.Fatalf("got %q", got)
	}
}

func TestCastUnknownTargetCodeFails(t *testing.T) {
	x := mustTensor("x", Activation, F32, 4)
	y := mustTensor("y", Output, F32, 4)
	node := &ReadyNode{OpType: "Cast", Name: "cast1",
		Attributes: []Attribute{{Name: "to", Kind: AttrInt, Int: 999}},
		Inputs:     []*ReadyTensor{x},
		Outputs:    []*ReadyTensor{y},
	}
	var buf bytes.Buffer
	ctx := &EmissionContext{Sink: NewSink(&buf), Resolver: NewResolver()}
	err := Dispatcher(ctx, node)
	d, ok := err.(*Diagnostic)
	if !ok || d.Kind != UnsupportedMode {
		t.Fatalf("expected UnsupportedMode, got %v", err)
	}
}

func TestOneHotReadsDepthFromInitializer(t *testing.T) {
	indices := mustTensor("idx", Activation, I64, 4)
	depth := mustTensor("depth", Initializer, I64)
	depth.TensorProtoRef = &TensorProtoRef{DataType: I64, Int64Data: []int64{10}}
	values := mustTensor("values", Initializer, F32, 2)
	y := mustTensor("y", Output, F32, 4, 10)
	node := &ReadyNode{OpType: "OneHot", Name: "oh1",
		Inputs:  []*ReadyTensor{indices, depth, values},
		Outputs: []*ReadyTensor{y},
	}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "tensor_math.one_hot_f32(&tensor_idx, 10, @const_ref(param_lib.tensor_values), -1, &tensor_y)") {
		t.Fatalf("got %q", got)
	}
}

func TestDynamicQuantizeLinearThreeOutputs(t *testing.T) {
	x := mustTensor("x", Activation, F32, 4)
	y := mustTensor("y", Output, U8, 4)
	scale := mustTensor("y_scale", Output, F32)
	zp := mustTensor("y_zero_point", Output, U8)
	node := &ReadyNode{OpType: "DynamicQuantizeLinear", Name: "dq1",
		Inputs:  []*ReadyTensor{x},
		Outputs: []*ReadyTensor{y, scale, zp},
	}
	got := dispatchAndCapture(t, node)
	want := "tensor_math.dynamic_quantize_linear(&tensor_x, &tensor_y, &tensor_y_scale, &tensor_y_zero_point)"
	if !strings.Contains(got, want) {
		t.Fatalf("got %q, want substring %q", got, want)
	}
}

func TestConcatUniformRank(t *testing.T) {
	a := mustTensor("a", Activation, F32, 2, 4)
	b := mustTensor("b", Activation, F32, 2, 4)
	y := mustTensor("y", Output, F32, 2, 8)
	node := &ReadyNode{OpType: "Concat", Name: "c1",
		Attributes: []Attribute{{Name: "axis", Kind: AttrInt, Int: 1}},
		Inputs:     []*ReadyTensor{a, b},
		Outputs:    []*ReadyTensor{y},
	}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "tensor_math.concat(") {
		t.Fatalf("got %q", got)
	}
}

func TestConcatRaggedRankFallsBackToTolerantKernel(t *testing.T) {
	a := mustTensor("a", Activation, F32, 2, 4)
	b := mustTensor("b", Activation, F32, 3)
	y := mustTensor("y", Output, F32, 5)
	node := &ReadyNode{OpType: "Concat", Name: "c1",
		Attributes: []Attribute{{Name: "axis", Kind: AttrInt, Int: 0}},
		Inputs:     []*ReadyTensor{a, b},
		Outputs:    []*ReadyTensor{y},
	}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "tensor_math.concat_ragged(") {
		t.Fatalf("got %q", got)
	}
}

func TestPadRequiresInitializerPads(t *testing.T) {
	data := mustTensor("data", Activation, F32, 4)
	pads := mustTensor("pads", Activation, I64, 2) // not an initializer
	y := mustTensor("y", Output, F32, 6)
	node := &ReadyNode{OpType: "Pad", Name: "p1", Inputs: []*ReadyTensor{data, pads}, Outputs: []*ReadyTensor{y}}
	var buf bytes.Buffer
	ctx := &EmissionContext{Sink: NewSink(&buf), Resolver: NewResolver()}
	err := Dispatcher(ctx, node)
	d, ok := err.(*Diagnostic)
	if !ok || d.Kind != InvalidShape {
		t.Fatalf("expected InvalidShape when pads isn't an initializer, got %v", err)
	}
}

func TestPadWithInitializerPads(t *testing.T) {
	data := mustTensor("data", Activation, F32, 4)
	pads := mustTensor("pads", Initializer, I64, 2)
	pads.TensorProtoRef = &TensorProtoRef{DataType: I64, Int64Data: []int64{1, 1}}
	y := mustTensor("y", Output, F32, 6)
	node := &ReadyNode{OpType: "Pad", Name: "p1", Inputs: []*ReadyTensor{data, pads}, Outputs: []*ReadyTensor{y}}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "tensor_math.pad(&tensor_data, &[_]usize{1, 1}, null, null, \"constant\", &tensor_y)") {
		t.Fatalf("got %q", got)
	}
}

func TestSliceMaterializesFourRuntimeSlices(t *testing.T) {
	data := mustTensor("data", Activation, F32, 10)
	starts := mustTensor("starts", Initializer, I64, 1)
	ends := mustTensor("ends", Initializer, I64, 1)
	axes := mustTensor("axes", Initializer, I64, 1)
	steps := mustTensor("steps", Initializer, I64, 1)
	y := mustTensor("y", Output, F32, 5)
	node := &ReadyNode{OpType: "Slice", Name: "s1",
		Inputs:  []*ReadyTensor{data, starts, ends, axes, steps},
		Outputs: []*ReadyTensor{y},
	}
	got := dispatchAndCapture(t, node)
	for _, want := range []string{"slice_starts", "slice_ends", "slice_axes", "slice_steps", "tensor_math.slice("} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
	for _, want := range []string{"allocator.free(slice_starts)", "allocator.free(slice_ends)", "allocator.free(slice_axes)", "allocator.free(slice_steps)"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected release %q in %q", want, got)
		}
	}
}

func TestTransposeDefaultsToReversedPerm(t *testing.T) {
	x := mustTensor("x", Activation, F32, 2, 3, 4)
	y := mustTensor("y", Output, F32, 4, 3, 2)
	node := &ReadyNode{OpType: "Transpose", Name: "t1", Inputs: []*ReadyTensor{x}, Outputs: []*ReadyTensor{y}}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "tensor_math.transpose(&tensor_x, &[_]usize{2, 1, 0}, allocator, &tensor_y)") {
		t.Fatalf("got %q", got)
	}
}

func TestShapeStartEndDefaultToNull(t *testing.T) {
	x := mustTensor("x", Activation, F32, 2, 3)
	y := mustTensor("y", Output, I64, 2)
	node := &ReadyNode{OpType: "Shape", Name: "sh1", Inputs: []*ReadyTensor{x}, Outputs: []*ReadyTensor{y}}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "tensor_math.shape(&tensor_x, null, null, &tensor_y)") {
		t.Fatalf("got %q", got)
	}
}

func TestClipOptionalBoundsNullWhenAbsent(t *testing.T) {
	x := mustTensor("x", Activation, F32, 4)
	y := mustTensor("y", Output, F32, 4)
	node := &ReadyNode{OpType: "Clip", Name: "cl1", Inputs: []*ReadyTensor{x}, Outputs: []*ReadyTensor{y}}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "tensor_math.clip(&tensor_x, null, null, &tensor_y)") {
		t.Fatalf("got %q", got)
	}
}

func TestAveragePoolRequiresMandatoryAttrs(t *testing.T) {
	x := mustTensor("x", Activation, F32, 1, 1, 4, 4)
	y := mustTensor("y", Output, F32, 1, 1, 2, 2)
	node := &ReadyNode{OpType: "AveragePool", Name: "avg1",
		Attributes: []Attribute{{Name: "kernel_shape", Kind: AttrInts, Ints: []int64{2, 2}}},
		Inputs:     []*ReadyTensor{x},
		Outputs:    []*ReadyTensor{y},
	}
	var buf bytes.Buffer
	ctx := &EmissionContext{Sink: NewSink(&buf), Resolver: NewResolver()}
	err := Dispatcher(ctx, node)
	d, ok := err.(*Diagnostic)
	if !ok || d.Kind != AttributeMissing || d.Attr != "strides" {
		t.Fatalf("expected AttributeMissing for strides, got %v", err)
	}
}

func TestAveragePoolEmitsCountIncludePad(t *testing.T) {
	x := mustTensor("x", Activation, F32, 1, 1, 4, 4)
	y := mustTensor("y", Output, F32, 1, 1, 2, 2)
	node := &ReadyNode{OpType: "AveragePool", Name: "avg1",
		Attributes: []Attribute{
			{Name: "kernel_shape", Kind: AttrInts, Ints: []int64{2, 2}},
			{Name: "strides", Kind: AttrInts, Ints: []int64{2, 2}},
			{Name: "pads", Kind: AttrInts, Ints: []int64{0, 0, 0, 0}},
			{Name: "count_include_pad", Kind: AttrInt, Int: 1},
		},
		Inputs:  []*ReadyTensor{x},
		Outputs: []*ReadyTensor{y},
	}
	got := dispatchAndCapture(t, node)
	want := "tensor_math.average_pool(&tensor_x, &[_]usize{2, 2}, &[_]usize{2, 2}, &[_]usize{0, 0, 0, 0}, &[_]usize{1, 1}, 1, &tensor_y)"
	if !strings.Contains(got, want) {
		t.Fatalf("got %q, want substring %q", got, want)
	}
}

func TestConvIntegerZeroPointsDefaultNull(t *testing.T) {
	x := mustTensor("x", Activation, U8, 1, 1, 4, 4)
	w := mustTensor("w", Initializer, I8, 1, 1, 3, 3)
	y := mustTensor("y", Output, I32, 1, 1, 2, 2)
	node := &ReadyNode{OpType: "ConvInteger", Name: "ci1",
		Attributes: []Attribute{{Name: "strides", Kind: AttrInts, Ints: []int64{1, 1}}},
		Inputs:     []*ReadyTensor{x, w},
		Outputs:    []*ReadyTensor{y},
	}
	got := dispatchAndCapture(t, node)
	want := "tensor_math.conv_integer(&tensor_x, @const_ref(param_lib.tensor_w), null, null,"
	if !strings.Contains(got, want) {
		t.Fatalf("got %q, want substring %q", got, want)
	}
}

func TestReduceMeanAxesFromAttribute(t *testing.T) {
	x := mustTensor("x", Activation, F32, 2, 3, 4)
	y := mustTensor("y", Output, F32, 2, 1, 4)
	node := &ReadyNode{OpType: "ReduceMean", Name: "rm1",
		Attributes: []Attribute{{Name: "axes", Kind: AttrInts, Ints: []int64{-2}}},
		Inputs:     []*ReadyTensor{x},
		Outputs:    []*ReadyTensor{y},
	}
	got := dispatchAndCapture(t, node)
	want := "tensor_math.reduce_mean(&tensor_x, &[_]isize{-2}, 1, 0, &tensor_y)"
	if !strings.Contains(got, want) {
		t.Fatalf("got %q, want substring %q", got, want)
	}
}

func TestReduceMeanAxesFromTensorInput(t *testing.T) {
	x := mustTensor("x", Activation, F32, 2, 3, 4)
	axes := mustTensor("axes", Initializer, I64, 1)
	y := mustTensor("y", Output, F32, 2, 1, 4)
	node := &ReadyNode{OpType: "ReduceMean", Name: "rm1",
		Inputs:  []*ReadyTensor{x, axes},
		Outputs: []*ReadyTensor{y},
	}
	got := dispatchAndCapture(t, node)
	if !strings.Contains(got, "toIndexSliceI64") || !strings.Contains(got, "tensor_math.reduce_mean(") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "allocator.free(reduce_axes)") {
		t.Fatalf("expected the runtime slice to be released, got %q", got)
	}
}

func TestGemmDefaults(t *testing.T) {
	a := mustTensor("a", Activation, F32, 2, 3)
	b := mustTensor("b", Initializer, F32, 3, 4)
	y := mustTensor("y", Output, F32, 2, 4)
	node := &ReadyNode{OpType: "Gemm", Name: "gemm1", Inputs: []*ReadyTensor{a, b}, Outputs: []*ReadyTensor{y}}
	got := dispatchAndCapture(t, node)
	want := "tensor_math.gemm(&tensor_a, @const_ref(param_lib.tensor_b), null, 1, 1, 0, 0, &tensor_y)"
	if !strings.Contains(got, want) {
		t.Fatalf("got %q, want substring %q", got, want)
	}
}
