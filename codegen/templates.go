package codegen

import (
	"strconv"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// templateSet renders the small, fixed vocabulary of text fragments
// the Preamble/Postamble Emitter and Argument Materializer produce:
// kernel call sites, comment blocks, log hooks, and the dynamic-
// allocation prologue. Declarative fill-in-the-blanks templates, the
// same mechanism the teacher uses for chat_template.jinja, keep every
// emitted fragment's shape in one place instead of scattered
// fmt.Sprintf calls.
var (
	templatesOnce sync.Once
	kernelCallTpl *pongo2.Template
	commentTpl    *pongo2.Template
	logHookTpl    *pongo2.Template
	shapeConstTpl *pongo2.Template
	allocTpl      *pongo2.Template
	releaseTpl    *pongo2.Template
)

func mustCompile(src string) *pongo2.Template {
	t, err := pongo2.FromString(src)
	if err != nil {
		panic("codegen: template compile error: " + err.Error())
	}
	return t
}

func initTemplates() {
	templatesOnce.Do(func() {
		// The output is source code, not HTML: strings that may hold
		// '&' or quotes are marked safe so pongo2's default
		// autoescaping leaves them untouched.
		kernelCallTpl = mustCompile(`tensor_math.{{ fn }}({{ args|join:", "|safe }})`)
		commentTpl = mustCompile(`// {{ op|safe }}({{ inputs|join:", "|safe }}) -> {{ outputs|join:", "|safe }}`)
		logHookTpl = mustCompile(`log_function("{{ op|safe }}");`)
		shapeConstTpl = mustCompile(`const shape_{{ name }} = [{{ dims|join:", " }}];`)
		allocTpl = mustCompile(`var tensor_{{ name }} = try allocator.alloc({{ dtype }}, &shape_{{ name }});`)
		releaseTpl = mustCompile(`defer allocator.free(tensor_{{ name }});`)
	})
}

func render(t *pongo2.Template, ctx pongo2.Context) string {
	out, err := t.Execute(ctx)
	if err != nil {
		panic("codegen: template execute error: " + err.Error())
	}
	return out
}

// RenderKernelCall produces the kernel-invocation expression
// "tensor_math.<fn>(<args>)", without the common fallible-suffix — the
// dispatcher appends FallibleSuffix uniformly (§4.E step 5).
func RenderKernelCall(fn string, args []string) string {
	initTemplates()
	return render(kernelCallTpl, pongo2.Context{"fn": fn, "args": args})
}

// RenderComment produces the §4.F comment block for a node.
func RenderComment(op string, inputs, outputs []string) string {
	initTemplates()
	return render(commentTpl, pongo2.Context{
		"op": op, "inputs": inputs, "outputs": outputs,
	})
}

// RenderLogHook produces the §4.F log hook invocation.
func RenderLogHook(op string) string {
	initTemplates()
	return render(logHookTpl, pongo2.Context{"op": op})
}

// RenderShapeConst produces the shape-literal constant for a dynamic
// allocation.
func RenderShapeConst(name string, dims []int64) string {
	initTemplates()
	strDims := make([]string, len(dims))
	for i, d := range dims {
		strDims[i] = strconv.FormatInt(d, 10)
	}
	return render(shapeConstTpl, pongo2.Context{"name": name, "dims": strDims})
}

// RenderAlloc produces the heap-allocation statement for a dynamic
// output.
func RenderAlloc(name, dtype string) string {
	initTemplates()
	return render(allocTpl, pongo2.Context{"name": name, "dtype": dtype})
}

// RenderRelease produces the scoped-release statement for a dynamic
// output whose name is not the network output.
func RenderRelease(name string) string {
	initTemplates()
	return render(releaseTpl, pongo2.Context{"name": name})
}
