package codegen

import (
	"fmt"
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/rivo/uniseg"
	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/text/unicode/norm"
)

// dtypeToORT and ortToDtype back the closed Dtype token set onto
// onnxruntime_go's authoritative TensorElementDataType enum, the same
// mapping shape viam-modules-onnx-cpu keeps as DataTypeMap. This is
// type-table reuse only — no ONNX session is ever created here.
var dtypeToORT = map[Dtype]ort.TensorElementDataType{
	F16:    ort.TensorElementDataTypeFloat16,
	F32:    ort.TensorElementDataTypeFloat,
	F64:    ort.TensorElementDataTypeDouble,
	I8:     ort.TensorElementDataTypeInt8,
	U8:     ort.TensorElementDataTypeUint8,
	I16:    ort.TensorElementDataTypeInt16,
	I32:    ort.TensorElementDataTypeInt32,
	I64:    ort.TensorElementDataTypeInt64,
	Bool:   ort.TensorElementDataTypeBool,
	String: ort.TensorElementDataTypeString,
}

var ortToDtype = func() map[ort.TensorElementDataType]Dtype {
	m := make(map[ort.TensorElementDataType]Dtype, len(dtypeToORT))
	for k, v := range dtypeToORT {
		m[v] = k
	}
	return m
}()

// ORTType resolves a Dtype to its onnxruntime_go element-type enum,
// used by Cast's target-type attribute and by diagnostic rendering
// that wants the canonical ONNX name instead of our internal token.
func ORTType(d Dtype) (ort.TensorElementDataType, bool) {
	t, ok := dtypeToORT[d]
	return t, ok
}

// DtypeFromORT is the inverse of ORTType.
func DtypeFromORT(t ort.TensorElementDataType) (Dtype, bool) {
	d, ok := ortToDtype[t]
	return d, ok
}

// KernelTypeToken returns the lowercase token the emitted call sites
// use to select a type-specialized kernel overload, e.g. "f32", "i64".
func KernelTypeToken(d Dtype) string {
	return strings.ToLower(string(d))
}

// Resolver is the Name & Type Resolver (§4.A). It is constructed once
// per Emit call and discarded afterward — the sanitize cache is
// strictly scoped to one emission run, matching §5's "released before
// the next node" scratch-allocator model at the granularity of a run
// rather than a node, since sanitized spellings are stable for the
// lifetime of the whole graph.
type Resolver struct {
	sanitizeCache *cache.Cache
}

// NewResolver builds a Resolver with a fresh, unshared memoization
// table (cache.NoExpiration: entries live exactly as long as the
// Resolver does, never across Emit calls).
func NewResolver() *Resolver {
	return &Resolver{sanitizeCache: cache.New(cache.NoExpiration, 0)}
}

// Sanitize produces the identifier-legal, deterministic, collision-free
// spelling of an ONNX tensor name. Multi-byte names are normalized to
// NFC and then walked grapheme-cluster by grapheme-cluster (not byte
// by byte) so that visually identical names collapse to the same
// identifier and no grapheme is split across an escape boundary.
func (r *Resolver) Sanitize(name string) string {
	if v, ok := r.sanitizeCache.Get(name); ok {
		return v.(string)
	}
	out := sanitizeIdentifier(name)
	r.sanitizeCache.Set(name, out, cache.DefaultExpiration)
	return out
}

func sanitizeIdentifier(name string) string {
	normalized := norm.NFC.String(name)
	var b strings.Builder
	gr := uniseg.NewGraphemes(normalized)
	for gr.Next() {
		cluster := gr.Str()
		r := []rune(cluster)[0]
		legal := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
		if legal {
			b.WriteRune(r)
		} else {
			fmt.Fprintf(&b, "_%04x_", r)
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	out := b.String()
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

// AddressForm is the textual expression denoting a tensor's storage in
// the emitted code, per the §4.A rules.
type AddressForm struct {
	Pointer string // mutable-looking pointer form, e.g. &tensor_X / @const_ref(param_lib.tensor_X)
	Value   string // value-read form, e.g. tensor_X / param_lib.tensor_X
}

// Address returns the two canonical address forms for t.
func (r *Resolver) Address(t *ReadyTensor) AddressForm {
	sanitized := r.Sanitize(t.Name)
	switch t.Category {
	case Initializer:
		value := fmt.Sprintf("param_lib.tensor_%s", sanitized)
		return AddressForm{
			Pointer: fmt.Sprintf("@const_ref(%s)", value),
			Value:   value,
		}
	default: // Input, Activation, Output
		value := fmt.Sprintf("tensor_%s", sanitized)
		return AddressForm{
			Pointer: "&" + value,
			Value:   value,
		}
	}
}

// ResolveType returns t's type token, failing per §4.A priority
// without ever silently defaulting to F32.
func (r *Resolver) ResolveType(t *ReadyTensor, node string) (Dtype, error) {
	d, err := t.ResolvedDType()
	if err != nil {
		if diag, ok := err.(*Diagnostic); ok {
			diag.Node = node
		}
		return "", err
	}
	return d, nil
}
