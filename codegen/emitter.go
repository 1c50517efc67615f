package codegen

import (
	"bufio"
	"fmt"
	"io"
)

// FallibleSuffix is the common fallible-suffix (§4.F): the uniform
// token appended after every kernel invocation so its failure
// propagates through the generated predict function instead of being
// silently consumed.
const FallibleSuffix = " catch |err| return err;"

// Sink is the output sink: write-only, exclusively owned by the
// running Emit call (§5). It never buffers across node boundaries in
// a way that would let a later node's output interleave with an
// earlier one out of order.
type Sink struct {
	w *bufio.Writer
}

// NewSink wraps w for line-oriented emission.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: bufio.NewWriter(w)}
}

// WriteLine appends one line of generated source. It never panics: a
// write error from the underlying writer is returned so callers can
// bail out of an emission early per §5's abort-on-error cancellation
// model.
func (s *Sink) WriteLine(line string) error {
	if _, err := s.w.WriteString(line); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

// Flush pushes any buffered bytes to the underlying writer.
func (s *Sink) Flush() error {
	return s.w.Flush()
}

// EmissionContext is handed to every emitter as a pointer to one
// per-run value; there is no process-wide mutable state for the tensor
// map, network-output name, or config.
type EmissionContext struct {
	Tensors       GlobalTensorMap
	NetworkOutput string
	Config        EmitterConfig
	Sink          *Sink
	Resolver      *Resolver
}

// EmitterFunc is one operator's emission contract: return the kernel
// call expression (without the common fallible-suffix, which the
// dispatcher appends uniformly), or an empty string when the emitter
// has already written everything itself and no suffixed call line
// follows (Constant's TENSOR case, the LogSoftmax stub). Returning a
// *Diagnostic aborts emission for the whole graph (§7); an EmitterFunc
// never partially writes past a fatal error.
type EmitterFunc func(ctx *EmissionContext, node *ReadyNode) (string, error)

// operatorContract documents one operator's emission contract (§4.D):
// input/output arity range (a max of -1 means unbounded), the emitted
// kernel name, and the emitter function. The attributes each operator
// consumes are declared by its emitter, not recorded here.
type operatorContract struct {
	MinInputs, MaxInputs   int
	MinOutputs, MaxOutputs int
	Kernel                 string
	Fn                     EmitterFunc
}

// inputAt returns node's i'th input, or nil if the slot is absent or
// out of range (ONNX allows trailing optional inputs to be omitted
// entirely rather than passed as explicit nulls).
func inputAt(node *ReadyNode, i int) *ReadyTensor {
	if i < 0 || i >= len(node.Inputs) {
		return nil
	}
	return node.Inputs[i]
}

func checkArity(op, node string, got, min, max int, isInput bool) error {
	if got < min || (max >= 0 && got > max) {
		kind := "output"
		if isInput {
			kind = "input"
		}
		return &Diagnostic{
			Kind: InvalidShape, Op: op, Node: node,
			Expected: fmt.Sprintf("%d..%d %ss", min, max, kind),
			Actual:   fmt.Sprintf("%d %ss", got, kind),
		}
	}
	return nil
}
