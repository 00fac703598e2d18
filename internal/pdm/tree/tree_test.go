package tree

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
)

func uptr(v uint) *uint { return &v }

func asm(id uint, parent *uint, name string) entity.Assembly {
	return entity.Assembly{ID: id, Name: name, ProjectID: 1, ParentAssemblyID: parent}
}

func part(id uint, assemblyID *uint, name string) entity.Part {
	p := entity.Part{ID: id, Name: name, Quantity: 1, AssemblyID: assemblyID}
	if assemblyID == nil {
		p.ProjectID = uptr(1)
	}
	return p
}

func ids(nodes []*Node) []uint {
	out := make([]uint, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestBuild_Scenario(t *testing.T) {
	assemblies := []entity.Assembly{asm(1, nil, "frame"), asm(2, uptr(1), "bracket")}
	parts := []entity.Part{part(10, uptr(2), "bolt"), part(20, nil, "label")}

	f := Build(assemblies, parts)

	require.Len(t, f.Roots, 1)
	root := f.Roots[0]
	assert.Equal(t, uint(1), root.ID)
	assert.Equal(t, KindAssembly, root.Kind)
	require.Len(t, root.Children, 1)

	sub := root.Children[0]
	assert.Equal(t, uint(2), sub.ID)
	assert.Equal(t, 1, sub.Depth)
	require.Len(t, sub.Children, 1)
	assert.Equal(t, uint(10), sub.Children[0].ID)
	assert.Equal(t, KindPart, sub.Children[0].Kind)
	assert.False(t, sub.Children[0].IsDirectPart)
	assert.Equal(t, uint(2), *sub.Children[0].OwnerAssemblyID())

	require.Len(t, f.DirectParts, 1)
	assert.Equal(t, uint(20), f.DirectParts[0].ID)
	assert.True(t, f.DirectParts[0].IsDirectPart)
	assert.Empty(t, f.OrphanParts)
}

func TestBuild_PartsAfterSubAssemblies(t *testing.T) {
	assemblies := []entity.Assembly{asm(1, nil, "a"), asm(2, uptr(1), "b"), asm(3, uptr(1), "c")}
	parts := []entity.Part{part(10, uptr(1), "p1"), part(11, uptr(1), "p2")}

	f := Build(assemblies, parts)
	require.Len(t, f.Roots, 1)
	children := f.Roots[0].Children
	assert.Equal(t, []uint{2, 3, 10, 11}, ids(children))
	assert.Equal(t, []Kind{KindAssembly, KindAssembly, KindPart, KindPart},
		[]Kind{children[0].Kind, children[1].Kind, children[2].Kind, children[3].Kind})
}

func TestBuild_OrphanParentBecomesRoot(t *testing.T) {
	assemblies := []entity.Assembly{asm(1, nil, "a"), asm(2, uptr(99), "lost")}
	f := Build(assemblies, nil)
	assert.Equal(t, []uint{1, 2}, ids(f.Roots))
}

func TestBuild_OrphanPart(t *testing.T) {
	f := Build([]entity.Assembly{asm(1, nil, "a")}, []entity.Part{part(5, uptr(42), "ghost")})
	assert.Empty(t, f.DirectParts)
	assert.Empty(t, f.Roots[0].Children)
	require.Len(t, f.OrphanParts, 1)
	assert.Equal(t, uint(5), f.OrphanParts[0].ID)
	assert.Nil(t, f.Find(Ref{Kind: KindPart, ID: 5}))
}

func TestBuild_CycleTerminates(t *testing.T) {
	assemblies := []entity.Assembly{asm(1, uptr(2), "a"), asm(2, uptr(1), "b")}

	first := Build(assemblies, nil)
	second := Build(assemblies, nil)

	require.Len(t, first.Roots, 1)
	assert.Equal(t, uint(1), first.Roots[0].ID)
	assert.Equal(t, []uint{2}, ids(first.Roots[0].Children))
	assert.Empty(t, first.Roots[0].Children[0].Children)
	assert.Equal(t, first, second)
}

func TestBuild_SelfParent(t *testing.T) {
	f := Build([]entity.Assembly{asm(7, uptr(7), "loop")}, nil)
	require.Len(t, f.Roots, 1)
	assert.Empty(t, f.Roots[0].Children)
}

func TestBuild_WithOrder(t *testing.T) {
	assemblies := []entity.Assembly{asm(3, nil, "zeta"), asm(1, nil, "alpha"), asm(2, uptr(3), "b"), asm(4, uptr(3), "a")}
	f := Build(assemblies, nil, WithOrder(ByName))
	assert.Equal(t, []uint{1, 3}, ids(f.Roots))
	assert.Equal(t, []uint{4, 2}, ids(f.Roots[1].Children))

	unordered := Build(assemblies, nil)
	assert.Equal(t, []uint{3, 1}, ids(unordered.Roots))
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	assemblies := []entity.Assembly{asm(1, nil, "a"), asm(2, uptr(1), "b")}
	parts := []entity.Part{part(10, uptr(2), "p")}

	f := Build(assemblies, parts)
	f.Roots[0].Assembly.Name = "changed"
	f.Roots[0].Children[0].Children[0].Part.Name = "changed"

	assert.Equal(t, "a", assemblies[0].Name)
	assert.Equal(t, "p", parts[0].Name)
}

func TestForest_Find(t *testing.T) {
	f := Build([]entity.Assembly{asm(1, nil, "a"), asm(2, uptr(1), "b")},
		[]entity.Part{part(10, uptr(2), "p"), part(20, nil, "d")})

	assert.Equal(t, "b", f.Find(Ref{Kind: KindAssembly, ID: 2}).Name)
	assert.Equal(t, "p", f.Find(Ref{Kind: KindPart, ID: 10}).Name)
	assert.True(t, f.Contains(Ref{Kind: KindPart, ID: 20}))
	assert.False(t, f.Contains(Ref{Kind: KindAssembly, ID: 10}))
	assert.Equal(t, 4, f.Len())
	assert.True(t, f.Find(Ref{Kind: KindAssembly, ID: 1}).IsTopLevel())
	assert.False(t, f.Find(Ref{Kind: KindAssembly, ID: 2}).IsTopLevel())
}

func TestSubtreeIDs(t *testing.T) {
	assemblies := []entity.Assembly{asm(1, nil, "a"), asm(2, uptr(1), "b"), asm(3, uptr(2), "c"), asm(4, nil, "d")}
	assert.Equal(t, []uint{1, 2, 3}, SubtreeIDs(assemblies, 1))
	assert.Equal(t, []uint{4}, SubtreeIDs(assemblies, 4))
	assert.Nil(t, SubtreeIDs(assemblies, 99))

	cyclic := []entity.Assembly{asm(1, uptr(2), "a"), asm(2, uptr(1), "b")}
	assert.ElementsMatch(t, []uint{1, 2}, SubtreeIDs(cyclic, 1))
}

// genInput draws assemblies whose parents may be missing or cyclic, and parts
// that may be direct, nested or orphaned.
func genInput(t *rapid.T) ([]entity.Assembly, []entity.Part) {
	n := rapid.IntRange(0, 12).Draw(t, "assemblies")
	assemblies := make([]entity.Assembly, 0, n)
	for i := 1; i <= n; i++ {
		var parent *uint
		if p := rapid.IntRange(0, n+2).Draw(t, "parent"); p > 0 {
			parent = uptr(uint(p))
		}
		assemblies = append(assemblies, asm(uint(i), parent, rapid.StringMatching(`[a-zA-Z]{0,6}`).Draw(t, "name")))
	}
	m := rapid.IntRange(0, 12).Draw(t, "parts")
	parts := make([]entity.Part, 0, m)
	for i := 1; i <= m; i++ {
		var owner *uint
		if a := rapid.IntRange(0, n+2).Draw(t, "owner"); a > 0 {
			owner = uptr(uint(a))
		}
		parts = append(parts, part(uint(100+i), owner, rapid.StringMatching(`[a-zA-Z]{0,6}`).Draw(t, "name")))
	}
	return assemblies, parts
}

func TestBuild_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		assemblies, parts := genInput(t)
		assemblyCopy := slices.Clone(assemblies)
		partCopy := slices.Clone(parts)

		first := Build(assemblies, parts)
		second := Build(assemblies, parts)

		assert.Equal(t, first, second)
		assert.Equal(t, assemblyCopy, assemblies)
		assert.Equal(t, partCopy, parts)
	})
}

func TestBuild_EveryAssemblyOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		assemblies, parts := genInput(t)
		f := Build(assemblies, parts)

		seen := map[uint]int{}
		f.Walk(func(n *Node) bool {
			if n.Kind == KindAssembly {
				seen[n.ID]++
			}
			return true
		})
		assert.Len(t, seen, len(assemblies))
		for id, count := range seen {
			assert.Equal(t, 1, count, "assembly %d", id)
		}
	})
}

func TestBuild_DirectPartExclusivity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		assemblies, parts := genInput(t)
		f := Build(assemblies, parts)

		direct := map[uint]bool{}
		for _, n := range f.DirectParts {
			direct[n.ID] = true
		}
		nested := map[uint]bool{}
		for _, root := range f.Roots {
			var walk func(n *Node)
			walk = func(n *Node) {
				if n.Kind == KindPart {
					nested[n.ID] = true
				}
				for _, c := range n.Children {
					walk(c)
				}
			}
			walk(root)
		}
		for _, p := range parts {
			assert.Equal(t, p.AssemblyID == nil, direct[p.ID], "part %d", p.ID)
			assert.False(t, direct[p.ID] && nested[p.ID], "part %d", p.ID)
		}
	})
}
