package codegen

import "fmt"

// EmitPreamble is the Preamble Emitter (§4.F), run unconditionally for
// every node before dispatch: the comment block (iff comm=on), the
// dynamic-allocation prologue (iff dynamic=on), then the log hook (iff
// log=on). Order matches the teacher's banner-then-work convention
// (announce, then act).
func EmitPreamble(ctx *EmissionContext, node *ReadyNode) error {
	if ctx.Config.Comm {
		if err := emitComment(ctx, node); err != nil {
			return err
		}
	}
	if ctx.Config.Dynamic {
		if err := emitDynamicPrologue(ctx, node); err != nil {
			return err
		}
	}
	if ctx.Config.Log {
		if err := ctx.Sink.WriteLine(RenderLogHook(node.OpType)); err != nil {
			return err
		}
	}
	return nil
}

func emitComment(ctx *EmissionContext, node *ReadyNode) error {
	inputs := make([]string, 0, len(node.Inputs))
	for _, in := range node.Inputs {
		if in == nil {
			inputs = append(inputs, "<absent>")
			continue
		}
		inputs = append(inputs, in.Name)
	}
	outputs := make([]string, 0, len(node.Outputs))
	for _, out := range node.Outputs {
		outputs = append(outputs, out.Name)
	}
	return ctx.Sink.WriteLine(RenderComment(node.OpType, inputs, outputs))
}

// emitDynamicPrologue emits, for every output of node, a shape
// constant and a heap allocation bound to the output's local, plus a
// scoped release unless the output is the network's return value
// (§4.F, §8 property 4).
func emitDynamicPrologue(ctx *EmissionContext, node *ReadyNode) error {
	for _, out := range node.Outputs {
		if out == nil {
			continue
		}
		dtype, err := ctx.Resolver.ResolveType(out, node.Name)
		if err != nil {
			if diag, ok := err.(*Diagnostic); ok {
				diag.Op = node.OpType
			}
			return err
		}
		sanitized := ctx.Resolver.Sanitize(out.Name)
		if err := ctx.Sink.WriteLine(RenderShapeConst(sanitized, out.Shape)); err != nil {
			return err
		}
		if err := ctx.Sink.WriteLine(RenderAlloc(sanitized, KernelTypeToken(dtype))); err != nil {
			return err
		}
		if out.Name != ctx.NetworkOutput {
			if err := ctx.Sink.WriteLine(RenderRelease(sanitized)); err != nil {
				return err
			}
		}
	}
	return nil
}

// EmitUnsupportedStub is the single soft-failure path (§4.D, §7): an
// operator not in the registry produces a runtime-unreachable marker
// naming the operator and no kernel invocation; emission continues.
func EmitUnsupportedStub(ctx *EmissionContext, node *ReadyNode) error {
	line := fmt.Sprintf("unreachable; // unsupported operator %q (node %q)", node.OpType, node.Name)
	return ctx.Sink.WriteLine(line)
}
