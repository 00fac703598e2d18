package entity

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// 文档类型
const (
	DocType2D = "2D"
	DocType3D = "3D"
)

// 2D文档内容类型，scanned 表示扫描件（需要OCR）
const (
	PDFContentNormal  = "normal"
	PDFContentScanned = "scanned"
)

// Document 装配体或零件的2D/3D文档
type Document struct {
	ID             uint              `json:"id" gorm:"primaryKey;autoIncrement"`
	Title          string            `json:"title" gorm:"size:256;not null"`
	DocType        string            `json:"doc_type" gorm:"size:4;not null;index"` // 2D / 3D
	FileFormat     string            `json:"file_format" gorm:"size:16;not null"`   // pdf / step / stp / glb
	FileName       string            `json:"file_name" gorm:"size:256"`
	AssemblyID     *uint             `json:"assembly_id" gorm:"index"`
	PartID         *uint             `json:"part_id" gorm:"index"`
	ObjectKey      string            `json:"-" gorm:"size:512"`
	DownloadURL    string            `json:"download_url" gorm:"size:512"`
	VersionNo      int               `json:"version_no" gorm:"not null;default:1"`
	Size           int64             `json:"size" gorm:"default:0"`
	PDFContentType string            `json:"pdf_content_type,omitempty" gorm:"size:16"`
	UploadedBy     string            `json:"uploaded_by" gorm:"size:64"`
	ChangeNote     string            `json:"change_note,omitempty" gorm:"type:text"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (Document) TableName() string {
	return "documents"
}

// IsScanned 是否为扫描版PDF（前端需展示OCR标记）
func (d Document) IsScanned() bool {
	return d.Is2D() && d.PDFContentType == PDFContentScanned
}

// Is2D reports whether the document is a drawing.
func (d Document) Is2D() bool {
	return strings.EqualFold(d.DocType, DocType2D)
}

// Is3D reports whether the document is a model.
func (d Document) Is3D() bool {
	return strings.EqualFold(d.DocType, DocType3D)
}
