package codegen

// AttributeSpec declares one attribute an operator emitter recognizes:
// its name, expected kind, default value (used when optional and
// absent), and whether it is required. Emitters declare their specs as
// data (§9 design note) instead of hand-rolling extraction per op.
type AttributeSpec struct {
	Name     string
	Kind     AttributeKind
	Required bool
	Default  Attribute
}

func opt(name string, kind AttributeKind, def Attribute) AttributeSpec {
	def.Name = name
	def.Kind = kind
	return AttributeSpec{Name: name, Kind: kind, Required: false, Default: def}
}

func req(name string, kind AttributeKind) AttributeSpec {
	return AttributeSpec{Name: name, Kind: kind, Required: true}
}

// ExtractAttributes reads node's attribute list against specs,
// returning a name-keyed map of resolved values (explicit or default).
// Unknown attributes on the node are ignored (ONNX forward
// compatibility, §4.B). A required spec with no matching attribute on
// the node raises AttributeMissing; a present attribute whose Kind tag
// does not match the spec raises AttributeTypeMismatch.
func ExtractAttributes(op, node string, attrs []Attribute, specs []AttributeSpec) (map[string]Attribute, error) {
	byName := make(map[string]Attribute, len(attrs))
	for _, a := range attrs {
		byName[a.Name] = a
	}

	out := make(map[string]Attribute, len(specs))
	for _, spec := range specs {
		a, present := byName[spec.Name]
		if !present {
			if spec.Required {
				return nil, attrMissing(op, node, spec.Name)
			}
			out[spec.Name] = spec.Default
			continue
		}
		if a.Kind != spec.Kind {
			return nil, attrTypeMismatch(op, node, spec.Name, spec.Kind, a.Kind)
		}
		out[spec.Name] = a
	}
	return out, nil
}

// HasAttr reports whether node carries an attribute with the given
// name, independent of any spec — used by emitters that branch on
// "attribute present vs. input present" (Reshape.shape, Split.split,
// Unsqueeze.axes) before deciding which spec list to extract with.
func HasAttr(attrs []Attribute, name string) bool {
	for _, a := range attrs {
		if a.Name == name {
			return true
		}
	}
	return false
}
