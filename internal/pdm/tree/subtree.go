package tree

import "github.com/bitfantasy/nimo-pdm/internal/pdm/entity"

// SubtreeIDs returns root and every assembly below it, parents before
// children. Unknown roots yield nil.
func SubtreeIDs(assemblies []entity.Assembly, root uint) []uint {
	childrenOf := make(map[uint][]uint)
	found := false
	for _, a := range assemblies {
		if a.ID == root {
			found = true
		}
		if a.ParentAssemblyID != nil {
			childrenOf[*a.ParentAssemblyID] = append(childrenOf[*a.ParentAssemblyID], a.ID)
		}
	}
	if !found {
		return nil
	}

	seen := map[uint]bool{root: true}
	ids := []uint{root}
	for i := 0; i < len(ids); i++ {
		for _, c := range childrenOf[ids[i]] {
			if seen[c] {
				continue
			}
			seen[c] = true
			ids = append(ids, c)
		}
	}
	return ids
}
