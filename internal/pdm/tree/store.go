package tree

import (
	"sort"
	"sync"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
)

type storedAssembly struct {
	seq uint64
	v   entity.Assembly
}

type storedPart struct {
	seq uint64
	v   entity.Part
}

// Store 以 id 为键保存装配体和零件，读取时派生树
//
// 每次修改后会通知 Watch 注册的回调（锁外调用）。
type Store struct {
	mu         sync.RWMutex
	seq        uint64
	assemblies map[uint]storedAssembly
	parts      map[uint]storedPart
	opts       []Option
	watchers   []func()
}

// NewStore creates an empty store; opts are applied on every Forest call.
func NewStore(opts ...Option) *Store {
	return &Store{
		assemblies: make(map[uint]storedAssembly),
		parts:      make(map[uint]storedPart),
		opts:       opts,
	}
}

// Watch registers fn to run after every mutation.
func (s *Store) Watch(fn func()) {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	watchers := append([]func(){}, s.watchers...)
	s.mu.RUnlock()
	for _, fn := range watchers {
		fn()
	}
}

// Load replaces the whole content, keeping the input order.
func (s *Store) Load(assemblies []entity.Assembly, parts []entity.Part) {
	s.mu.Lock()
	s.assemblies = make(map[uint]storedAssembly, len(assemblies))
	s.parts = make(map[uint]storedPart, len(parts))
	for _, a := range assemblies {
		s.seq++
		s.assemblies[a.ID] = storedAssembly{seq: s.seq, v: a}
	}
	for _, p := range parts {
		s.seq++
		s.parts[p.ID] = storedPart{seq: s.seq, v: p}
	}
	s.mu.Unlock()
	s.notify()
}

// UpsertAssembly inserts a or replaces the assembly with the same id in place.
func (s *Store) UpsertAssembly(a entity.Assembly) {
	s.mu.Lock()
	cur, ok := s.assemblies[a.ID]
	if !ok {
		s.seq++
		cur.seq = s.seq
	}
	cur.v = a
	s.assemblies[a.ID] = cur
	s.mu.Unlock()
	s.notify()
}

// UpsertPart inserts p or replaces the part with the same id in place.
func (s *Store) UpsertPart(p entity.Part) {
	s.mu.Lock()
	cur, ok := s.parts[p.ID]
	if !ok {
		s.seq++
		cur.seq = s.seq
	}
	cur.v = p
	s.parts[p.ID] = cur
	s.mu.Unlock()
	s.notify()
}

// RemoveAssembly removes the assembly, its sub-assemblies and their parts.
// It returns the removed assembly ids.
func (s *Store) RemoveAssembly(id uint) []uint {
	s.mu.Lock()
	ids := SubtreeIDs(s.assemblyList(), id)
	if len(ids) == 0 {
		s.mu.Unlock()
		return nil
	}
	gone := make(map[uint]bool, len(ids))
	for _, aid := range ids {
		gone[aid] = true
		delete(s.assemblies, aid)
	}
	for pid, p := range s.parts {
		if p.v.AssemblyID != nil && gone[*p.v.AssemblyID] {
			delete(s.parts, pid)
		}
	}
	s.mu.Unlock()
	s.notify()
	return ids
}

// RemovePart removes a part. It reports whether the part existed.
func (s *Store) RemovePart(id uint) bool {
	s.mu.Lock()
	_, ok := s.parts[id]
	delete(s.parts, id)
	s.mu.Unlock()
	if ok {
		s.notify()
	}
	return ok
}

// Remove deletes the node ref points at.
func (s *Store) Remove(ref Ref) bool {
	switch ref.Kind {
	case KindAssembly:
		return len(s.RemoveAssembly(ref.ID)) > 0
	case KindPart:
		return s.RemovePart(ref.ID)
	default:
		return false
	}
}

// Assembly returns a stored assembly by id.
func (s *Store) Assembly(id uint) (entity.Assembly, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assemblies[id]
	return a.v, ok
}

// Part returns a stored part by id.
func (s *Store) Part(id uint) (entity.Part, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parts[id]
	return p.v, ok
}

// Assemblies returns the stored assemblies in insertion order.
func (s *Store) Assemblies() []entity.Assembly {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assemblyList()
}

// Parts returns the stored parts in insertion order.
func (s *Store) Parts() []entity.Part {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partList()
}

// Forest derives the tree from the current content.
func (s *Store) Forest() Forest {
	s.mu.RLock()
	assemblies := s.assemblyList()
	parts := s.partList()
	s.mu.RUnlock()
	return Build(assemblies, parts, s.opts...)
}

func (s *Store) assemblyList() []entity.Assembly {
	items := make([]storedAssembly, 0, len(s.assemblies))
	for _, a := range s.assemblies {
		items = append(items, a)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].seq < items[j].seq })
	out := make([]entity.Assembly, len(items))
	for i, a := range items {
		out[i] = a.v
	}
	return out
}

func (s *Store) partList() []entity.Part {
	items := make([]storedPart, 0, len(s.parts))
	for _, p := range s.parts {
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].seq < items[j].seq })
	out := make([]entity.Part, len(items))
	for i, p := range items {
		out[i] = p.v
	}
	return out
}
