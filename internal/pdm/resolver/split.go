package resolver

import "github.com/bitfantasy/nimo-pdm/internal/pdm/entity"

// Groups 按2D/3D分组的文档
type Groups struct {
	TwoD   []entity.Document `json:"2d"`
	ThreeD []entity.Document `json:"3d"`
	// Scanned 需要展示OCR标记的2D文档id
	Scanned []uint `json:"scanned"`
}

// Split groups documents by doc_type. Unknown types are dropped.
func Split(docs []entity.Document) Groups {
	g := Groups{
		TwoD:    []entity.Document{},
		ThreeD:  []entity.Document{},
		Scanned: []uint{},
	}
	for _, d := range docs {
		switch {
		case d.Is2D():
			g.TwoD = append(g.TwoD, d)
			if d.IsScanned() {
				g.Scanned = append(g.Scanned, d.ID)
			}
		case d.Is3D():
			g.ThreeD = append(g.ThreeD, d)
		}
	}
	return g
}

// Latest returns the document with the highest version_no, or nil.
func Latest(docs []entity.Document) *entity.Document {
	var latest *entity.Document
	for i := range docs {
		if latest == nil || docs[i].VersionNo > latest.VersionNo {
			latest = &docs[i]
		}
	}
	return latest
}
