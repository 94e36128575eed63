package scene

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned when a string is not a well-formed prim or property path.
var ErrInvalidPath = errors.New("invalid path")

// Path is an absolute, slash separated prim path ("/World/Chair/Looks").
// A property path appends ".name" to a prim path ("/World/Chair/Mesh.material:binding").
type Path string

// Root is the pseudo-root of every stage.
const Root Path = "/"

// ParsePath validates s as an absolute prim path.
func ParsePath(s string) (Path, error) {
	if s == "" || s[0] != '/' {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, s)
	}
	if s == "/" {
		return Root, nil
	}
	s = strings.TrimSuffix(s, "/")
	for _, seg := range strings.Split(s[1:], "/") {
		if !validName(seg) {
			return "", fmt.Errorf("%w: bad segment %q in %q", ErrInvalidPath, seg, s)
		}
	}
	return Path(s), nil
}

// ParsePropertyPath validates s as "<prim path>.<property name>".
func ParsePropertyPath(s string) (Path, error) {
	prim, prop := SplitProperty(Path(s))
	if prop == "" {
		return "", fmt.Errorf("%w: %q has no property", ErrInvalidPath, s)
	}
	if _, err := ParsePath(string(prim)); err != nil {
		return "", err
	}
	if !validPropertyName(prop) {
		return "", fmt.Errorf("%w: bad property %q", ErrInvalidPath, prop)
	}
	return Path(s), nil
}

// MustPath is ParsePath for literals; it panics on malformed input.
func MustPath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string { return string(p) }

// IsRoot reports whether p is the pseudo-root.
func (p Path) IsRoot() bool { return p == Root }

// Name returns the last segment, or "" for the root.
func (p Path) Name() string {
	if p.IsRoot() || p == "" {
		return ""
	}
	return string(p[strings.LastIndexByte(string(p), '/')+1:])
}

// Parent returns the parent prim path. The parent of a top-level prim is Root.
func (p Path) Parent() Path {
	if p.IsRoot() || p == "" {
		return Root
	}
	i := strings.LastIndexByte(string(p), '/')
	if i <= 0 {
		return Root
	}
	return p[:i]
}

// AppendChild returns the path of child name under p.
func (p Path) AppendChild(name string) Path {
	if p.IsRoot() {
		return Path("/" + name)
	}
	return Path(string(p) + "/" + name)
}

// AppendProperty returns the property path p.name.
func (p Path) AppendProperty(name string) Path {
	return Path(string(p) + "." + name)
}

// Depth is the number of segments; Root has depth 0.
func (p Path) Depth() int {
	if p.IsRoot() || p == "" {
		return 0
	}
	return strings.Count(string(p), "/")
}

// HasPrefix reports whether p equals prefix or lies beneath it. Comparison is
// segment-wise, so /World/Chair is not a prefix of /World/Chairs.
func (p Path) HasPrefix(prefix Path) bool {
	prim, _ := SplitProperty(p)
	if prefix.IsRoot() {
		return true
	}
	if prim == prefix {
		return true
	}
	return strings.HasPrefix(string(prim), string(prefix)+"/")
}

// ReplacePrefix rewrites the leading old segments of p to repl. Property
// suffixes are kept. Paths outside old are returned unchanged.
func (p Path) ReplacePrefix(old, repl Path) Path {
	if !p.HasPrefix(old) {
		return p
	}
	prim, prop := SplitProperty(p)
	var rest string
	if old.IsRoot() {
		rest = string(prim)
	} else {
		rest = string(prim)[len(old):]
	}
	var out Path
	switch {
	case rest == "" || rest == "/":
		out = repl
	case repl.IsRoot():
		out = Path(rest)
	default:
		out = Path(string(repl) + rest)
	}
	if prop != "" {
		out = out.AppendProperty(prop)
	}
	return out
}

// SplitProperty splits a property path into its prim path and property name.
// For prim paths the property name is "".
func SplitProperty(p Path) (Path, string) {
	s := string(p)
	slash := strings.LastIndexByte(s, '/')
	dot := strings.IndexByte(s[slash+1:], '.')
	if dot < 0 {
		return p, ""
	}
	dot += slash + 1
	prim := Path(s[:dot])
	if prim == "" {
		prim = Root
	}
	return prim, s[dot+1:]
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func validPropertyName(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ":") {
		if !validName(part) {
			return false
		}
	}
	return true
}
