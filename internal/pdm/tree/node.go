// Package tree derives the assembly/part hierarchy of a project from flat
// entity lists.
package tree

import (
	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
)

// Kind 节点类型
type Kind string

const (
	KindAssembly Kind = "assembly"
	KindPart     Kind = "part"
)

// Valid reports whether k is one of the known node kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindAssembly, KindPart:
		return true
	}
	return false
}

// Ref identifies a node independent of any particular derivation of the tree.
type Ref struct {
	Kind Kind `json:"type"`
	ID   uint `json:"id"`
}

// Node 树节点。Assembly 与 Part 二选一，由 Kind 决定
type Node struct {
	Kind         Kind             `json:"type"`
	ID           uint             `json:"id"`
	Name         string           `json:"name"`
	PartNumber   string           `json:"part_number,omitempty"`
	Quantity     int              `json:"quantity,omitempty"`
	IsDirectPart bool             `json:"is_direct_part"`
	Depth        int              `json:"depth"`
	Assembly     *entity.Assembly `json:"assembly,omitempty"`
	Part         *entity.Part     `json:"part,omitempty"`
	Children     []*Node          `json:"parts"`
}

// Ref returns the node's identity.
func (n *Node) Ref() Ref {
	return Ref{Kind: n.Kind, ID: n.ID}
}

// OwnerAssemblyID returns the enclosing assembly of a part node, or nil for
// assemblies and direct parts.
func (n *Node) OwnerAssemblyID() *uint {
	if n.Kind == KindPart && n.Part != nil {
		return n.Part.AssemblyID
	}
	return nil
}

// IsTopLevel reports whether n is a root assembly of its project.
func (n *Node) IsTopLevel() bool {
	return n.Kind == KindAssembly && n.Depth == 0
}

func newAssemblyNode(a entity.Assembly, depth int) *Node {
	return &Node{
		Kind:     KindAssembly,
		ID:       a.ID,
		Name:     a.Name,
		Depth:    depth,
		Assembly: &a,
		Children: []*Node{},
	}
}

func newPartNode(p entity.Part, depth int, direct bool) *Node {
	return &Node{
		Kind:         KindPart,
		ID:           p.ID,
		Name:         p.Name,
		PartNumber:   p.PartNumber,
		Quantity:     p.Quantity,
		IsDirectPart: direct,
		Depth:        depth,
		Part:         &p,
		Children:     []*Node{},
	}
}

// Forest 项目的完整树：装配树 + 直属零件
type Forest struct {
	Roots       []*Node `json:"assemblies"`
	DirectParts []*Node `json:"direct_parts"`
	// OrphanParts 指向不存在装配体的零件
	OrphanParts []*Node `json:"orphan_parts"`

	index map[Ref]*Node
}

// Find looks a node up by reference. Orphan parts are not addressable.
func (f Forest) Find(ref Ref) *Node {
	if f.index != nil {
		return f.index[ref]
	}
	var found *Node
	f.Walk(func(n *Node) bool {
		if n.Ref() == ref {
			found = n
			return false
		}
		return true
	})
	return found
}

// Contains reports whether ref exists in the forest.
func (f Forest) Contains(ref Ref) bool {
	return f.Find(ref) != nil
}

// Walk visits the assembly trees depth-first and then the direct parts.
// Returning false from fn stops the walk.
func (f Forest) Walk(fn func(n *Node) bool) {
	var visit func(nodes []*Node) bool
	visit = func(nodes []*Node) bool {
		for _, n := range nodes {
			if !fn(n) {
				return false
			}
			if !visit(n.Children) {
				return false
			}
		}
		return true
	}
	if visit(f.Roots) {
		visit(f.DirectParts)
	}
}

// Len returns the number of addressable nodes.
func (f Forest) Len() int {
	count := 0
	f.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}
