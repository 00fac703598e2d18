// Package resolver decides which documents belong to a tree node.
package resolver

import (
	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

// Target 待解析文档的节点
type Target struct {
	Kind         tree.Kind
	ID           uint
	IsDirectPart bool
	// AssemblyID 成员零件所属装配体
	AssemblyID *uint
}

// TargetOf builds the resolution target for a tree node.
func TargetOf(n *tree.Node) Target {
	return Target{
		Kind:         n.Kind,
		ID:           n.ID,
		IsDirectPart: n.IsDirectPart,
		AssemblyID:   n.OwnerAssemblyID(),
	}
}

// Result 解析结果
type Result struct {
	Documents []entity.Document `json:"documents"`
	// Inherited 零件本身无文档，继承了所属装配体的文档
	Inherited bool `json:"inherited"`
}

// Empty reports whether nothing belongs to the node.
func (r Result) Empty() bool {
	return len(r.Documents) == 0
}

// Resolve 按优先级返回节点的文档：
//   - 直属零件：part_id 匹配
//   - 装配体内零件：优先 part_id 匹配，没有则取所属装配体的文档
//   - 装配体：assembly_id 匹配
//
// 输入顺序保持不变，结果永不为 nil。
func Resolve(target Target, docs []entity.Document) Result {
	switch target.Kind {
	case tree.KindPart:
		own := byPart(docs, target.ID)
		if target.IsDirectPart || len(own) > 0 || target.AssemblyID == nil {
			return Result{Documents: own}
		}
		inherited := byAssembly(docs, *target.AssemblyID)
		return Result{Documents: inherited, Inherited: len(inherited) > 0}
	case tree.KindAssembly:
		return Result{Documents: byAssembly(docs, target.ID)}
	default:
		return Result{Documents: []entity.Document{}}
	}
}

func byPart(docs []entity.Document, id uint) []entity.Document {
	out := []entity.Document{}
	for _, d := range docs {
		if d.PartID != nil && *d.PartID == id {
			out = append(out, d)
		}
	}
	return out
}

func byAssembly(docs []entity.Document, id uint) []entity.Document {
	out := []entity.Document{}
	for _, d := range docs {
		if d.AssemblyID != nil && *d.AssemblyID == id {
			out = append(out, d)
		}
	}
	return out
}
