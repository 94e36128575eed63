package scene

import "sort"

// Kind is the closed set of prim types the variant engine dispatches on.
// Any other type tag maps to KindOther and is kept verbatim in Prim.TypeName.
type Kind int

const (
	KindOther Kind = iota
	KindXform      // transform group, owns meshes and a Looks folder
	KindScope      // plain folder (Looks, MME, Look_N)
	KindMesh
	KindMaterial
	KindShader
)

func (k Kind) String() string {
	switch k {
	case KindXform:
		return "Xform"
	case KindScope:
		return "Scope"
	case KindMesh:
		return "Mesh"
	case KindMaterial:
		return "Material"
	case KindShader:
		return "Shader"
	default:
		return "Other"
	}
}

// ParseKind maps a type tag to its Kind.
func ParseKind(typeName string) Kind {
	switch typeName {
	case "Xform":
		return KindXform
	case "Scope":
		return KindScope
	case "Mesh":
		return KindMesh
	case "Material":
		return KindMaterial
	case "Shader":
		return KindShader
	default:
		return KindOther
	}
}

// Attribute is a typed, named value on a prim. Connections point at other
// properties (shader outputs, for instance).
type Attribute struct {
	Name        string
	Type        ValueType
	Value       any // nil until authored
	Custom      bool
	Variability Variability
	Connections []Path
}

// Relationship is a named list of target paths.
type Relationship struct {
	Name    string
	Targets []Path
}

// Prim is one node of the stage.
type Prim struct {
	Path     Path
	TypeName string
	Kind     Kind
	Children []string // ordered child names

	attrs map[string]*Attribute
	rels  map[string]*Relationship
	intID uint32
}

func newPrim(path Path, typeName string) *Prim {
	return &Prim{
		Path:     path,
		TypeName: typeName,
		Kind:     ParseKind(typeName),
		attrs:    make(map[string]*Attribute),
		rels:     make(map[string]*Relationship),
	}
}

// Name is the last path segment.
func (p *Prim) Name() string { return p.Path.Name() }

// Attribute returns the named attribute, or nil.
func (p *Prim) Attribute(name string) *Attribute { return p.attrs[name] }

// Relationship returns the named relationship, or nil.
func (p *Prim) Relationship(name string) *Relationship { return p.rels[name] }

// Attributes returns the prim's attributes ordered by name.
func (p *Prim) Attributes() []*Attribute {
	out := make([]*Attribute, 0, len(p.attrs))
	for _, a := range p.attrs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Relationships returns the prim's relationships ordered by name.
func (p *Prim) Relationships() []*Relationship {
	out := make([]*Relationship, 0, len(p.rels))
	for _, r := range p.rels {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HasChild reports whether a child with the given name exists.
func (p *Prim) HasChild(name string) bool {
	for _, c := range p.Children {
		if c == name {
			return true
		}
	}
	return false
}

func (p *Prim) removeChild(name string) {
	for i, c := range p.Children {
		if c == name {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			return
		}
	}
}

// rewriteTargets applies ReplacePrefix to every relationship target and
// attribute connection on the prim.
func (p *Prim) rewriteTargets(old, repl Path) {
	for _, r := range p.rels {
		for i, t := range r.Targets {
			r.Targets[i] = t.ReplacePrefix(old, repl)
		}
	}
	for _, a := range p.attrs {
		for i, c := range a.Connections {
			a.Connections[i] = c.ReplacePrefix(old, repl)
		}
	}
}

// copyFrom deep-copies src's properties onto p.
func (p *Prim) copyFrom(src *Prim) {
	for name, a := range src.attrs {
		cp := *a
		cp.Value = cloneValue(a.Value)
		cp.Connections = append([]Path(nil), a.Connections...)
		p.attrs[name] = &cp
	}
	for name, r := range src.rels {
		p.rels[name] = &Relationship{Name: r.Name, Targets: append([]Path(nil), r.Targets...)}
	}
}
