package codegen

import (
	"bytes"
	"strings"
	"testing"
)

func newTestContext(buf *bytes.Buffer, cfg EmitterConfig, networkOutput string) *EmissionContext {
	return &EmissionContext{
		NetworkOutput: networkOutput,
		Config:        cfg,
		Sink:          NewSink(buf),
		Resolver:      NewResolver(),
	}
}

func TestEmitPreambleGating(t *testing.T) {
	node := &ReadyNode{
		OpType: "Relu",
		Name:   "relu1",
		Inputs: []*ReadyTensor{{Name: "x", Category: Activation, DType: F32, Shape: []int64{1, 4}}},
		Outputs: []*ReadyTensor{{Name: "y", Category: Activation, DType: F32, Shape: []int64{1, 4}}},
	}

	t.Run("all off emits nothing", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := newTestContext(&buf, EmitterConfig{}, "")
		if err := EmitPreamble(ctx, node); err != nil {
			t.Fatal(err)
		}
		ctx.Sink.Flush()
		if buf.Len() != 0 {
			t.Fatalf("expected no output, got %q", buf.String())
		}
	})

	t.Run("comm on emits a comment", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := newTestContext(&buf, EmitterConfig{Comm: true}, "")
		if err := EmitPreamble(ctx, node); err != nil {
			t.Fatal(err)
		}
		ctx.Sink.Flush()
		if !strings.HasPrefix(buf.String(), "// Relu(x) -> y") {
			t.Fatalf("got %q", buf.String())
		}
	})

	t.Run("log on emits a log hook", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := newTestContext(&buf, EmitterConfig{Log: true}, "")
		if err := EmitPreamble(ctx, node); err != nil {
			t.Fatal(err)
		}
		ctx.Sink.Flush()
		if !strings.Contains(buf.String(), `log_function("Relu");`) {
			t.Fatalf("got %q", buf.String())
		}
	})

	t.Run("dynamic on allocates and releases non-network outputs", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := newTestContext(&buf, EmitterConfig{Dynamic: true}, "")
		if err := EmitPreamble(ctx, node); err != nil {
			t.Fatal(err)
		}
		ctx.Sink.Flush()
		out := buf.String()
		if !strings.Contains(out, "const shape_y") || !strings.Contains(out, "allocator.alloc") {
			t.Fatalf("expected shape const + alloc, got %q", out)
		}
		if !strings.Contains(out, "allocator.free(tensor_y)") {
			t.Fatalf("expected a scoped release for non-network output, got %q", out)
		}
	})

	t.Run("dynamic on skips release for the network output", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := newTestContext(&buf, EmitterConfig{Dynamic: true}, "y")
		if err := EmitPreamble(ctx, node); err != nil {
			t.Fatal(err)
		}
		ctx.Sink.Flush()
		if strings.Contains(buf.String(), "allocator.free") {
			t.Fatalf("expected no release for the network output, got %q", buf.String())
		}
	})
}

func TestEmitUnsupportedStub(t *testing.T) {
	var buf bytes.Buffer
	ctx := newTestContext(&buf, EmitterConfig{}, "")
	node := &ReadyNode{OpType: "Einsum", Name: "einsum1"}
	if err := EmitUnsupportedStub(ctx, node); err != nil {
		t.Fatal(err)
	}
	ctx.Sink.Flush()
	got := buf.String()
	if !strings.Contains(got, "unreachable;") || !strings.Contains(got, `"Einsum"`) || !strings.Contains(got, `"einsum1"`) {
		t.Fatalf("got %q", got)
	}
}
