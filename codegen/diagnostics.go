package codegen

import "fmt"

// DiagnosticKind is the closed taxonomy of emission-time errors (§4.G, §7).
type DiagnosticKind int

const (
	TensorNotFound DiagnosticKind = iota
	MissingTypeInformation
	AttributeTypeMismatch
	AttributeMissing
	EmptyInputList
	InvalidShape
	TrainingNotSupported
	UnsupportedMode
)

func (k DiagnosticKind) String() string {
	switch k {
	case TensorNotFound:
		return "TensorNotFound"
	case MissingTypeInformation:
		return "MissingTypeInformation"
	case AttributeTypeMismatch:
		return "AttributeTypeMismatch"
	case AttributeMissing:
		return "AttributeMissing"
	case EmptyInputList:
		return "EmptyInputList"
	case InvalidShape:
		return "InvalidShape"
	case TrainingNotSupported:
		return "TrainingNotSupported"
	case UnsupportedMode:
		return "UnsupportedMode"
	default:
		return "UnknownDiagnosticKind"
	}
}

// Diagnostic is a structured emitter error naming the offending node
// and, where applicable, tensor, attribute, and expected-vs-actual.
// It implements error so it can be wrapped with fmt.Errorf("...: %w")
// at dispatcher/CLI boundaries like any other Go error.
type Diagnostic struct {
	Kind     DiagnosticKind
	Op       string
	Node     string
	Tensor   string
	Attr     string
	Expected string
	Actual   string
}

func (d *Diagnostic) Error() string {
	msg := d.Kind.String()
	if d.Op != "" {
		msg += fmt.Sprintf(" op=%s", d.Op)
	}
	if d.Node != "" {
		msg += fmt.Sprintf(" node=%s", d.Node)
	}
	if d.Tensor != "" {
		msg += fmt.Sprintf(" tensor=%s", d.Tensor)
	}
	if d.Attr != "" {
		msg += fmt.Sprintf(" attr=%s", d.Attr)
	}
	if d.Expected != "" || d.Actual != "" {
		msg += fmt.Sprintf(" expected=%s actual=%s", d.Expected, d.Actual)
	}
	return msg
}

// attrMissing builds an AttributeMissing diagnostic (§4.B).
func attrMissing(op, node, attr string) error {
	return &Diagnostic{Kind: AttributeMissing, Op: op, Node: node, Attr: attr}
}

// attrTypeMismatch builds an AttributeTypeMismatch diagnostic (§4.B).
func attrTypeMismatch(op, node, attr string, expected, actual AttributeKind) error {
	return &Diagnostic{
		Kind: AttributeTypeMismatch, Op: op, Node: node, Attr: attr,
		Expected: expected.String(), Actual: actual.String(),
	}
}

// unsupportedMode builds an UnsupportedMode diagnostic for an
// enumerated-string attribute that received an unknown value.
func unsupportedMode(op, node, attr, actual string) error {
	return &Diagnostic{Kind: UnsupportedMode, Op: op, Node: node, Attr: attr, Actual: actual}
}

// invalidShape builds an InvalidShape diagnostic.
func invalidShape(op, node, tensor string) error {
	return &Diagnostic{Kind: InvalidShape, Op: op, Node: node, Tensor: tensor}
}

// emptyInputList builds an EmptyInputList diagnostic for a variadic op.
func emptyInputList(op, node string) error {
	return &Diagnostic{Kind: EmptyInputList, Op: op, Node: node}
}
