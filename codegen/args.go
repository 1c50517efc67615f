package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/stacks/arraystack"
)

// ArgBuilder is the Argument Materializer (§4.C). One ArgBuilder is
// created per node and discarded once its acquire/release lines are
// flushed into the node's emission window — this is the node-scoped
// scratch arena the §9 design note calls for, with a single release
// point per node.
type ArgBuilder struct {
	r            *Resolver
	acquireLines []string
	releases     *arraystack.Stack
}

// NewArgBuilder returns a fresh materializer bound to resolver r.
func NewArgBuilder(r *Resolver) *ArgBuilder {
	return &ArgBuilder{r: r, releases: arraystack.New()}
}

// TensorPointer is the "tensor pointer" canonical form (§4.C).
func (b *ArgBuilder) TensorPointer(t *ReadyTensor) string {
	return b.r.Address(t).Pointer
}

// TensorValue is the value-read canonical form.
func (b *ArgBuilder) TensorValue(t *ReadyTensor) string {
	return b.r.Address(t).Value
}

// UsizeArray is the "compile-time usize array" canonical form built
// from an attribute int-list. An empty list is rendered as an explicit
// empty-slice marker, never omitted or confused with absence.
func (b *ArgBuilder) UsizeArray(vals []int64) string {
	if len(vals) == 0 {
		return "&[_]usize{}"
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return "&[_]usize{" + strings.Join(parts, ", ") + "}"
}

// IntArray is UsizeArray's signed counterpart, used where a
// compile-time list may legitimately contain negative values (a
// Reshape dimension of -1, a negative ReduceMean axis).
func (b *ArgBuilder) IntArray(vals []int64) string {
	if len(vals) == 0 {
		return "&[_]isize{}"
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return "&[_]isize{" + strings.Join(parts, ", ") + "}"
}

// FloatArray renders a compile-time float32 array literal.
func (b *ArgBuilder) FloatArray(vals []float32) string {
	if len(vals) == 0 {
		return "&[_]f32{}"
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return "&[_]f32{" + strings.Join(parts, ", ") + "}"
}

// IsAllZeroMarker reports whether an ostensibly-present optional
// tensor is really ONNX's all-zero-shape placeholder for "absent".
func IsAllZeroMarker(t *ReadyTensor) bool {
	if t == nil {
		return true
	}
	if len(t.Shape) == 0 {
		return true
	}
	for _, d := range t.Shape {
		if d != 0 {
			return false
		}
	}
	return true
}

// NullOrPointer is the "null-or-pointer" canonical form for optional
// inputs (§4.C): the literal null marker if the positional slot is
// absent or is an all-zero marker, else a valid pointer form.
func (b *ArgBuilder) NullOrPointer(t *ReadyTensor) string {
	if IsAllZeroMarker(t) {
		return "null"
	}
	return b.TensorPointer(t)
}

// RuntimeSlice is the "runtime-built slice" canonical form: a local
// conversion from the tensor's data buffer into an isize/usize slice.
// kind selects the element width/signedness of the conversion
// ("isize" or "usize"); elemDType names the source tensor's resolved
// dtype for the cast so int64 vs int32 data is read correctly (§9:
// the Split float-cast bug is deliberately not reproduced here).
// The acquire statement is appended to the node's acquire-line buffer
// and a matching release is pushed onto the LIFO release stack; both
// must be drained via Flush before the node's emission window closes.
func (b *ArgBuilder) RuntimeSlice(varName string, t *ReadyTensor, elemDType Dtype, kind string) string {
	addr := b.r.Address(t)
	castFn := "toIndexSliceI64"
	switch elemDType {
	case I32:
		castFn = "toIndexSliceI32"
	case I64:
		castFn = "toIndexSliceI64"
	}
	acquire := fmt.Sprintf(
		"const %s = try tensor_math.%s(%s.data, allocator, .%s);",
		varName, castFn, addr.Value, kind,
	)
	b.acquireLines = append(b.acquireLines, acquire)
	b.releases.Push(fmt.Sprintf("allocator.free(%s);", varName))
	return varName
}

// ScalarLiteral is the "scalar literal" canonical form for an
// attribute that maps directly onto a kernel argument.
func (b *ArgBuilder) ScalarLiteral(a Attribute) string {
	switch a.Kind {
	case AttrInt:
		return strconv.FormatInt(a.Int, 10)
	case AttrFloat:
		return strconv.FormatFloat(float64(a.Float), 'g', -1, 32)
	case AttrString:
		return strconv.Quote(a.Str)
	default:
		return "undefined"
	}
}

// Flush drains the materializer's acquire lines (in emission order)
// and release lines (in LIFO order, matching nested scratch
// allocation), satisfying the §4.C invariant that every runtime-built
// slice's acquire is paired with exactly one release within the node's
// emission window.
func (b *ArgBuilder) Flush() (acquireLines, releaseLines []string) {
	acquireLines = b.acquireLines
	for !b.releases.Empty() {
		v, ok := b.releases.Pop()
		if !ok {
			break
		}
		releaseLines = append(releaseLines, v.(string))
	}
	return acquireLines, releaseLines
}

// PendingReleases reports how many releases are still queued — used by
// tests asserting the acquire/release count invariant (§8).
func (b *ArgBuilder) PendingReleases() int {
	return b.releases.Size()
}

// FinalizeCall closes out a node's emission window given a materializer
// that may or may not have accumulated acquire/release lines. When it
// hasn't, the call expression is simply returned for the dispatcher to
// suffix and write, same as any attribute-only emitter. When it has,
// this writes the acquire lines, the suffixed call, and the release
// lines directly to the sink (in that order) and returns an empty
// string so the dispatcher skips its own write — the convention
// documented on EmitterFunc.
func FinalizeCall(ctx *EmissionContext, kernel string, callArgs []string, b *ArgBuilder) (string, error) {
	acquire, release := b.Flush()
	if len(acquire) == 0 && len(release) == 0 {
		return RenderKernelCall(kernel, callArgs), nil
	}
	for _, line := range acquire {
		if err := ctx.Sink.WriteLine(line); err != nil {
			return "", err
		}
	}
	if err := ctx.Sink.WriteLine(RenderKernelCall(kernel, callArgs) + FallibleSuffix); err != nil {
		return "", err
	}
	for _, line := range release {
		if err := ctx.Sink.WriteLine(line); err != nil {
			return "", err
		}
	}
	return "", nil
}
