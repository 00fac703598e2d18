package tree

import (
	"strings"

	"golang.org/x/text/cases"
)

// Filter 按名称或类型过滤树（不区分大小写的子串匹配）
//
// 节点自身匹配时保留整棵子树；否则仅在子节点过滤结果非空时保留，并只带匹配的子节点。
// 空查询原样返回 nodes。不修改入参节点。
func Filter(nodes []*Node, query string) []*Node {
	if strings.TrimSpace(query) == "" {
		return nodes
	}
	m := matcher{fold: cases.Fold()}
	m.query = m.fold.String(strings.TrimSpace(query))
	return m.filter(nodes)
}

type matcher struct {
	fold  cases.Caser
	query string
}

func (m *matcher) filter(nodes []*Node) []*Node {
	out := []*Node{}
	for _, n := range nodes {
		if m.matches(n) {
			out = append(out, n)
			continue
		}
		children := m.filter(n.Children)
		if len(children) == 0 {
			continue
		}
		clone := *n
		clone.Children = children
		out = append(out, &clone)
	}
	return out
}

func (m *matcher) matches(n *Node) bool {
	return strings.Contains(m.fold.String(n.Name), m.query) ||
		strings.Contains(m.fold.String(string(n.Kind)), m.query)
}

// FilterForest applies Filter to the assembly trees and the direct parts.
func FilterForest(f Forest, query string) Forest {
	if strings.TrimSpace(query) == "" {
		return f
	}
	return Forest{
		Roots:       Filter(f.Roots, query),
		DirectParts: Filter(f.DirectParts, query),
		OrphanParts: Filter(f.OrphanParts, query),
	}
}

// Matches reports whether n matches query directly, using the same folding
// as Filter.
func Matches(n *Node, query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return true
	}
	m := matcher{fold: cases.Fold()}
	m.query = m.fold.String(q)
	return m.matches(n)
}
