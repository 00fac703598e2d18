package tree

import (
	"sort"

	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
)

type options struct {
	less   func(a, b entity.Assembly) bool
	logger *zap.Logger
}

// Option configures Build.
type Option func(*options)

// WithOrder sorts sibling assemblies with less instead of keeping input order.
func WithOrder(less func(a, b entity.Assembly) bool) Option {
	return func(o *options) {
		o.less = less
	}
}

// WithLogger reports orphaned parents and cycles at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// ByName orders assemblies by name, then id.
func ByName(a, b entity.Assembly) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

type builder struct {
	opts       options
	assemblies []entity.Assembly
	childrenOf map[uint][]int
	partsOf    map[uint][]entity.Part
	placed     map[uint]bool
	index      map[Ref]*Node
}

// Build 将扁平的装配体、零件列表还原为树
//
// 父装配不存在的装配体作为根节点；仅能通过环到达的装配体按输入顺序提升为根节点。
// 每个装配体只出现一次。入参不会被修改。
func Build(assemblies []entity.Assembly, parts []entity.Part, opts ...Option) Forest {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	b := &builder{
		opts:       o,
		assemblies: assemblies,
		childrenOf: make(map[uint][]int),
		partsOf:    make(map[uint][]entity.Part),
		placed:     make(map[uint]bool, len(assemblies)),
		index:      make(map[Ref]*Node, len(assemblies)+len(parts)),
	}

	known := make(map[uint]bool, len(assemblies))
	for _, a := range assemblies {
		known[a.ID] = true
	}

	var roots []int
	for i, a := range assemblies {
		if a.IsRoot() {
			roots = append(roots, i)
			continue
		}
		if !known[*a.ParentAssemblyID] {
			o.logger.Debug("assembly parent not found, treating as root",
				zap.Uint("assembly_id", a.ID),
				zap.Uint("parent_assembly_id", *a.ParentAssemblyID))
			roots = append(roots, i)
			continue
		}
		b.childrenOf[*a.ParentAssemblyID] = append(b.childrenOf[*a.ParentAssemblyID], i)
	}

	forest := Forest{
		Roots:       []*Node{},
		DirectParts: []*Node{},
		OrphanParts: []*Node{},
	}

	for _, p := range parts {
		switch {
		case p.AssemblyID == nil:
			n := newPartNode(p, 0, true)
			forest.DirectParts = append(forest.DirectParts, n)
			b.index[n.Ref()] = n
		case known[*p.AssemblyID]:
			b.partsOf[*p.AssemblyID] = append(b.partsOf[*p.AssemblyID], p)
		default:
			o.logger.Debug("part assembly not found",
				zap.Uint("part_id", p.ID),
				zap.Uint("assembly_id", *p.AssemblyID))
			forest.OrphanParts = append(forest.OrphanParts, newPartNode(p, 0, false))
		}
	}

	b.sortIndexes(roots)
	visited := make(map[uint]bool)
	for _, i := range roots {
		if n := b.buildNode(i, 0, visited); n != nil {
			forest.Roots = append(forest.Roots, n)
		}
	}

	// 环上的装配体
	for i, a := range assemblies {
		if b.placed[a.ID] {
			continue
		}
		o.logger.Debug("assembly only reachable through a cycle, promoting to root",
			zap.Uint("assembly_id", a.ID))
		if n := b.buildNode(i, 0, visited); n != nil {
			forest.Roots = append(forest.Roots, n)
		}
	}

	forest.index = b.index
	return forest
}

// buildNode uses visited for cycle detection along the current path.
func (b *builder) buildNode(i, depth int, visited map[uint]bool) *Node {
	a := b.assemblies[i]
	if visited[a.ID] {
		b.opts.logger.Debug("assembly cycle detected", zap.Uint("assembly_id", a.ID))
		return nil
	}
	if b.placed[a.ID] {
		return nil
	}
	b.placed[a.ID] = true
	visited[a.ID] = true
	defer func() { visited[a.ID] = false }()

	node := newAssemblyNode(a, depth)
	b.index[node.Ref()] = node

	children := append([]int(nil), b.childrenOf[a.ID]...)
	b.sortIndexes(children)
	for _, c := range children {
		if child := b.buildNode(c, depth+1, visited); child != nil {
			node.Children = append(node.Children, child)
		}
	}
	for _, p := range b.partsOf[a.ID] {
		child := newPartNode(p, depth+1, false)
		if _, dup := b.index[child.Ref()]; !dup {
			b.index[child.Ref()] = child
		}
		node.Children = append(node.Children, child)
	}
	return node
}

func (b *builder) sortIndexes(idx []int) {
	if b.opts.less == nil {
		return
	}
	sort.SliceStable(idx, func(x, y int) bool {
		return b.opts.less(b.assemblies[idx[x]], b.assemblies[idx[y]])
	})
}
