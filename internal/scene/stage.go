package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

var (
	ErrNotFound = errors.New("prim not found")
	ErrExists   = errors.New("prim already exists")
	ErrNoAttr   = errors.New("attribute not found")
)

// Stage is a single-layer, in-memory scene graph keyed by prim path.
//
// A roaring bitmap per Kind indexes prims by type so that "all meshes under
// /World/Chair" costs O(k) in the number of meshes rather than a full walk.
type Stage struct {
	mu          sync.RWMutex
	prims       map[Path]*Prim
	defaultPrim string

	kindIndex map[Kind]*roaring.Bitmap // Kind -> bitmap of internal prim ids
	intToPath []Path                   // reverse: internal id -> path ("" once removed)
	nextIntID uint32
}

// NewStage returns an empty stage holding only the pseudo-root.
func NewStage() *Stage {
	s := &Stage{
		prims:     make(map[Path]*Prim),
		kindIndex: make(map[Kind]*roaring.Bitmap),
	}
	s.prims[Root] = newPrim(Root, "")
	return s
}

// DefaultPrim returns the name of the stage's default root prim.
func (s *Stage) DefaultPrim() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultPrim
}

// SetDefaultPrim records the default root prim name.
func (s *Stage) SetDefaultPrim(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultPrim = name
}

// DefaultPrimPath returns /<default prim>, or Root when unset.
func (s *Stage) DefaultPrimPath() Path {
	name := s.DefaultPrim()
	if name == "" {
		return Root
	}
	return Root.AppendChild(name)
}

// Prim resolves a path.
func (s *Stage) Prim(path Path) (*Prim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prims[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return p, nil
}

// Has reports whether path resolves to a live prim.
func (s *Stage) Has(path Path) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.prims[path]
	return ok
}

// Define creates a prim. The parent must already exist.
func (s *Stage) Define(path Path, typeName string) (*Prim, error) {
	if path.IsRoot() {
		return nil, fmt.Errorf("%w: cannot define the pseudo-root", ErrExists)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.define(path, typeName)
}

// define must be called with s.mu held.
func (s *Stage) define(path Path, typeName string) (*Prim, error) {
	if _, ok := s.prims[path]; ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, path)
	}
	parent, ok := s.prims[path.Parent()]
	if !ok {
		return nil, fmt.Errorf("%w: parent of %s", ErrNotFound, path)
	}
	p := newPrim(path, typeName)
	s.prims[path] = p
	parent.Children = append(parent.Children, path.Name())
	s.indexPrim(p)
	return p, nil
}

// indexPrim assigns an internal bitmap id and registers the prim under its kind.
// Must be called with s.mu held.
func (s *Stage) indexPrim(p *Prim) {
	p.intID = s.nextIntID
	s.nextIntID++
	for uint32(len(s.intToPath)) <= p.intID {
		s.intToPath = append(s.intToPath, "")
	}
	s.intToPath[p.intID] = p.Path
	bm, ok := s.kindIndex[p.Kind]
	if !ok {
		bm = roaring.New()
		s.kindIndex[p.Kind] = bm
	}
	bm.Add(p.intID)
}

// unindexPrim must be called with s.mu held.
func (s *Stage) unindexPrim(p *Prim) {
	if bm, ok := s.kindIndex[p.Kind]; ok {
		bm.Remove(p.intID)
		if bm.IsEmpty() {
			delete(s.kindIndex, p.Kind)
		}
	}
	if int(p.intID) < len(s.intToPath) {
		s.intToPath[p.intID] = ""
	}
}

// Remove deletes a prim and its whole subtree.
func (s *Stage) Remove(path Path) error {
	if path.IsRoot() {
		return fmt.Errorf("%w: cannot remove the pseudo-root", ErrNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prims[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	for _, sub := range s.subtree(p) {
		s.unindexPrim(sub)
		delete(s.prims, sub.Path)
	}
	if parent, ok := s.prims[path.Parent()]; ok {
		parent.removeChild(path.Name())
	}
	return nil
}

// subtree returns p and its descendants in depth-first pre-order.
// Must be called with s.mu held.
func (s *Stage) subtree(p *Prim) []*Prim {
	out := []*Prim{p}
	for _, name := range p.Children {
		if c, ok := s.prims[p.Path.AppendChild(name)]; ok {
			out = append(out, s.subtree(c)...)
		}
	}
	return out
}

// Move re-parents the subtree at from to to. Relationship targets and
// connections anywhere on the stage that pointed into the subtree follow it.
func (s *Stage) Move(from, to Path) error {
	if from.IsRoot() || to.IsRoot() || to.HasPrefix(from) {
		return fmt.Errorf("%w: cannot move %s to %s", ErrInvalidPath, from, to)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prims[from]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, from)
	}
	if _, ok := s.prims[to]; ok {
		return fmt.Errorf("%w: %s", ErrExists, to)
	}
	newParent, ok := s.prims[to.Parent()]
	if !ok {
		return fmt.Errorf("%w: parent of %s", ErrNotFound, to)
	}

	moved := s.subtree(p)
	for _, sub := range moved {
		delete(s.prims, sub.Path)
	}
	for _, sub := range moved {
		sub.Path = sub.Path.ReplacePrefix(from, to)
		s.prims[sub.Path] = sub
		s.intToPath[sub.intID] = sub.Path
	}
	if oldParent, ok := s.prims[from.Parent()]; ok {
		oldParent.removeChild(from.Name())
	}
	newParent.Children = append(newParent.Children, to.Name())

	for _, q := range s.prims {
		q.rewriteTargets(from, to)
	}
	return nil
}

// Children returns the prim's children in authored order.
func (s *Stage) Children(path Path) ([]*Prim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prims[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	out := make([]*Prim, 0, len(p.Children))
	for _, name := range p.Children {
		if c, ok := s.prims[path.AppendChild(name)]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Descendants returns every prim of the given kind strictly beneath path,
// in creation order.
func (s *Stage) Descendants(path Path, kind Kind) []*Prim {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bm, ok := s.kindIndex[kind]
	if !ok {
		return nil
	}
	var out []*Prim
	it := bm.Iterator()
	for it.HasNext() {
		id := it.Next()
		if int(id) >= len(s.intToPath) {
			continue
		}
		p := s.intToPath[id]
		if p == "" || p == path || !p.HasPrefix(path) {
			continue
		}
		if prim, ok := s.prims[p]; ok {
			out = append(out, prim)
		}
	}
	return out
}

// Count returns the number of prims of a kind on the stage.
func (s *Stage) Count(kind Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bm, ok := s.kindIndex[kind]; ok {
		return int(bm.GetCardinality())
	}
	return 0
}

// Walk visits root and its descendants depth-first. The callback runs
// without the stage lock held, so it may mutate the stage; prims removed
// during the walk are still visited.
func (s *Stage) Walk(root Path, fn func(*Prim) error) error {
	s.mu.RLock()
	p, ok := s.prims[root]
	if !ok {
		s.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrNotFound, root)
	}
	all := s.subtree(p)
	s.mu.RUnlock()
	for _, prim := range all {
		if err := fn(prim); err != nil {
			return err
		}
	}
	return nil
}

// CreateAttribute declares an attribute. Re-declaring with the same type is a
// no-op that returns the existing attribute.
func (s *Stage) CreateAttribute(path Path, name string, t ValueType, custom bool, v Variability) (*Attribute, error) {
	if !validPropertyName(name) {
		return nil, fmt.Errorf("%w: bad property %q", ErrInvalidPath, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prims[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if a, ok := p.attrs[name]; ok {
		if a.Type != t {
			return nil, fmt.Errorf("%w: %s.%s is %s, not %s", ErrTypeMismatch, path, name, a.Type, t)
		}
		return a, nil
	}
	a := &Attribute{Name: name, Type: t, Custom: custom, Variability: v}
	p.attrs[name] = a
	return a, nil
}

// SetAttribute authors a value on an existing attribute.
func (s *Stage) SetAttribute(path Path, name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prims[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	a, ok := p.attrs[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrNoAttr, path, name)
	}
	v, err := Coerce(a.Type, value)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", path, name, err)
	}
	a.Value = v
	return nil
}

// AttributeValue returns the authored value of path.name.
func (s *Stage) AttributeValue(path Path, name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prims[path]
	if !ok {
		return nil, false
	}
	a, ok := p.attrs[name]
	if !ok || a.Value == nil {
		return nil, false
	}
	return cloneValue(a.Value), true
}

// SetConnections replaces the connection list of an existing attribute.
func (s *Stage) SetConnections(path Path, name string, conns []Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prims[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	a, ok := p.attrs[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrNoAttr, path, name)
	}
	a.Connections = append([]Path(nil), conns...)
	return nil
}

// SetRelationship creates or replaces a relationship's targets.
func (s *Stage) SetRelationship(path Path, name string, targets []Path) error {
	if !validPropertyName(name) {
		return fmt.Errorf("%w: bad property %q", ErrInvalidPath, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prims[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	p.rels[name] = &Relationship{Name: name, Targets: append([]Path(nil), targets...)}
	return nil
}

// RelationshipTargets returns a copy of path.name's targets (nil if absent).
func (s *Stage) RelationshipTargets(path Path, name string) []Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prims[path]
	if !ok {
		return nil
	}
	r, ok := p.rels[name]
	if !ok {
		return nil
	}
	return append([]Path(nil), r.Targets...)
}

// RewriteTargets rewrites old-prefixed relationship targets and connections
// to repl on every prim under root.
func (s *Stage) RewriteTargets(root, old, repl Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prims[root]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, root)
	}
	for _, sub := range s.subtree(p) {
		sub.rewriteTargets(old, repl)
	}
	return nil
}

// Flatten returns a deep, independent copy of the composed stage. The stage
// holds a single layer, so flattening is a copy.
func (s *Stage) Flatten() *Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := NewStage()
	out.defaultPrim = s.defaultPrim
	for _, p := range s.subtree(s.prims[Root])[1:] {
		q, _ := out.define(p.Path, p.TypeName)
		q.copyFrom(p)
	}
	return out
}

// Restore replaces the stage contents with a copy of snap.
func (s *Stage) Restore(snap *Stage) {
	c := snap.Flatten()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prims = c.prims
	s.defaultPrim = c.defaultPrim
	s.kindIndex = c.kindIndex
	s.intToPath = c.intToPath
	s.nextIntID = c.nextIntID
}

// CopySpec copies the subtree at srcPath on src to dstPath on dst. dstPath's
// parent must exist and dstPath itself must not. Targets are copied verbatim;
// use RewriteTargets to relocate internal references.
func CopySpec(src *Stage, srcPath Path, dst *Stage, dstPath Path) error {
	src.mu.RLock()
	root, ok := src.prims[srcPath]
	if !ok {
		src.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrNotFound, srcPath)
	}
	var copies []*Prim
	for _, p := range src.subtree(root) {
		q := newPrim(p.Path.ReplacePrefix(srcPath, dstPath), p.TypeName)
		q.copyFrom(p)
		copies = append(copies, q)
	}
	src.mu.RUnlock()

	dst.mu.Lock()
	defer dst.mu.Unlock()
	for _, q := range copies {
		p, err := dst.define(q.Path, q.TypeName)
		if err != nil {
			return err
		}
		p.copyFrom(q)
	}
	return nil
}
