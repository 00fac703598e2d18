package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
)

func sampleForest() Forest {
	return Build(
		[]entity.Assembly{asm(1, nil, "Chassis"), asm(2, uptr(1), "Wheel Hub"), asm(3, nil, "Cabin")},
		[]entity.Part{part(10, uptr(2), "Bearing"), part(11, uptr(2), "Nut"), part(12, uptr(1), "Axle"), part(20, nil, "Manual")},
	)
}

func TestFilter_BlankQueryReturnsInput(t *testing.T) {
	f := sampleForest()
	out := Filter(f.Roots, "   ")
	require.Len(t, out, len(f.Roots))
	assert.Same(t, f.Roots[0], out[0])
}

func TestFilter_MatchKeepsWholeSubtree(t *testing.T) {
	f := sampleForest()
	out := Filter(f.Roots, "chassis")
	require.Len(t, out, 1)
	assert.Same(t, f.Roots[0], out[0])
	assert.Len(t, out[0].Children, 2)
}

func TestFilter_DescendantMatchKeepsOnlyPath(t *testing.T) {
	f := sampleForest()
	out := Filter(f.Roots, "BEAR")

	require.Len(t, out, 1)
	assert.Equal(t, uint(1), out[0].ID)
	require.Len(t, out[0].Children, 1)
	hub := out[0].Children[0]
	assert.Equal(t, uint(2), hub.ID)
	assert.Equal(t, []uint{10}, ids(hub.Children))

	// 原树不变
	assert.Len(t, f.Roots[0].Children, 2)
	assert.Len(t, f.Roots[0].Children[0].Children, 2)
}

func TestFilter_MatchesKind(t *testing.T) {
	f := sampleForest()
	out := Filter(f.Roots, "assembly")
	assert.Equal(t, []uint{1, 3}, ids(out))

	parts := Filter(f.DirectParts, "PART")
	assert.Equal(t, []uint{20}, ids(parts))
}

func TestFilter_UnicodeFold(t *testing.T) {
	f := Build([]entity.Assembly{asm(1, nil, "Straße"), asm(2, nil, "ÉCROU")}, nil)
	assert.Equal(t, []uint{1}, ids(Filter(f.Roots, "STRASSE")))
	assert.Equal(t, []uint{2}, ids(Filter(f.Roots, "écrou")))
}

func TestFilterForest(t *testing.T) {
	out := FilterForest(sampleForest(), "manual")
	assert.Empty(t, out.Roots)
	assert.Equal(t, []uint{20}, ids(out.DirectParts))
	assert.NotNil(t, out.Find(Ref{Kind: KindPart, ID: 20}))
}

func TestFilter_Containment(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		assemblies, parts := genInput(t)
		f := Build(assemblies, parts)
		query := rapid.StringMatching(`[a-zA-Z]{1,2}`).Draw(t, "query")

		var check func(nodes []*Node, ancestorMatched bool)
		check = func(nodes []*Node, ancestorMatched bool) {
			for _, n := range nodes {
				direct := Matches(n, query)
				if !direct && !ancestorMatched {
					assert.NotEmpty(t, n.Children, "node %s/%d kept without a match", n.Kind, n.ID)
				}
				check(n.Children, ancestorMatched || direct)
			}
		}
		check(Filter(f.Roots, query), false)
	})
}
