package scene

// Document renders the stage as a generic JSON-shaped tree (maps, slices and
// scalars only) for JSONPath queries and debugging dumps.
func Document(s *Stage) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := s.document(s.prims[Root])
	doc["default_prim"] = s.defaultPrim
	return doc
}

// document must be called with s.mu held.
func (s *Stage) document(p *Prim) map[string]any {
	attrs := map[string]any{}
	for _, a := range p.Attributes() {
		entry := map[string]any{
			"type":  a.Type.String(),
			"value": Generic(a.Value),
		}
		if len(a.Connections) > 0 {
			entry["connections"] = pathsToAny(a.Connections)
		}
		attrs[a.Name] = entry
	}
	rels := map[string]any{}
	for _, r := range p.Relationships() {
		rels[r.Name] = pathsToAny(r.Targets)
	}
	children := make([]any, 0, len(p.Children))
	for _, name := range p.Children {
		if c, ok := s.prims[p.Path.AppendChild(name)]; ok {
			children = append(children, s.document(c))
		}
	}
	return map[string]any{
		"path":          string(p.Path),
		"name":          p.Name(),
		"type":          p.TypeName,
		"attributes":    attrs,
		"relationships": rels,
		"children":      children,
	}
}

// Generic converts a canonical attribute value to plain JSON-compatible types.
func Generic(v any) any {
	switch t := v.(type) {
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case [3]float64:
		return []any{t[0], t[1], t[2]}
	default:
		return v
	}
}

func pathsToAny(ps []Path) []any {
	out := make([]any, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}
