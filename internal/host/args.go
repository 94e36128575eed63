package host

import (
	"fmt"

	"github.com/agentic-research/mme/internal/scene"
)

// Args are a command's keyword arguments.
type Args map[string]any

// Has reports whether key was supplied.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Path reads a required prim path.
func (a Args) Path(key string) (scene.Path, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrBadArgs, key)
	}
	var s string
	switch t := v.(type) {
	case scene.Path:
		s = string(t)
	case string:
		s = t
	default:
		return "", fmt.Errorf("%w: %q is %T, want path", ErrBadArgs, key, v)
	}
	p, err := scene.ParsePath(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrBadArgs, key, err)
	}
	return p, nil
}

// PathOr reads an optional prim path.
func (a Args) PathOr(key string, def scene.Path) (scene.Path, error) {
	if !a.Has(key) {
		return def, nil
	}
	return a.Path(key)
}

// PropertyPath reads a required "<prim>.<property>" path.
func (a Args) PropertyPath(key string) (scene.Path, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrBadArgs, key)
	}
	var s string
	switch t := v.(type) {
	case scene.Path:
		s = string(t)
	case string:
		s = t
	default:
		return "", fmt.Errorf("%w: %q is %T, want property path", ErrBadArgs, key, v)
	}
	p, err := scene.ParsePropertyPath(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrBadArgs, key, err)
	}
	return p, nil
}

// Paths reads a list of prim paths. A single path is accepted as a
// one-element list.
func (a Args) Paths(key string) ([]scene.Path, error) {
	v, ok := a[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrBadArgs, key)
	}
	var raw []string
	switch t := v.(type) {
	case scene.Path:
		raw = []string{string(t)}
	case string:
		raw = []string{t}
	case []scene.Path:
		for _, p := range t {
			raw = append(raw, string(p))
		}
	case []string:
		raw = t
	case []any:
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %q holds %T", ErrBadArgs, key, e)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("%w: %q is %T, want path list", ErrBadArgs, key, v)
	}
	out := make([]scene.Path, 0, len(raw))
	for _, s := range raw {
		p, err := scene.ParsePath(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadArgs, key, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// StringOr reads an optional string.
func (a Args) StringOr(key, def string) (string, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, want string", ErrBadArgs, key, v)
	}
	return s, nil
}

// BoolOr reads an optional bool.
func (a Args) BoolOr(key string, def bool) (bool, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q is %T, want bool", ErrBadArgs, key, v)
	}
	return b, nil
}

// clone copies the map so history entries do not alias caller state.
func (a Args) clone() Args {
	out := make(Args, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
