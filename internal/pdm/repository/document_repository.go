package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
)

// DocumentFilter 文档查询条件
type DocumentFilter struct {
	PartID     uint
	AssemblyID uint
	// PartIDs / AssemblyIDs 批量加载整棵树的文档
	PartIDs     []uint
	AssemblyIDs []uint
}

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// FindByID 根据ID查找文档
func (r *DocumentRepository) FindByID(ctx context.Context, id uint) (*entity.Document, error) {
	var doc entity.Document
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

// List 文档列表（按类型分组，版本降序）
func (r *DocumentRepository) List(ctx context.Context, f DocumentFilter, params ListParams) ([]entity.Document, int64, error) {
	var docs []entity.Document
	var total int64

	db := r.db.WithContext(ctx).Model(&entity.Document{})
	if f.PartID > 0 {
		db = db.Where("part_id = ?", f.PartID)
	}
	if f.AssemblyID > 0 {
		db = db.Where("assembly_id = ?", f.AssemblyID)
	}
	switch {
	case len(f.PartIDs) > 0 && len(f.AssemblyIDs) > 0:
		db = db.Where("part_id IN ? OR assembly_id IN ?", f.PartIDs, f.AssemblyIDs)
	case len(f.PartIDs) > 0:
		db = db.Where("part_id IN ?", f.PartIDs)
	case len(f.AssemblyIDs) > 0:
		db = db.Where("assembly_id IN ?", f.AssemblyIDs)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := params.apply(db).Order("doc_type ASC, version_no DESC, id DESC").Find(&docs).Error
	return docs, total, err
}

// Create 创建文档记录
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// UpdateDownloadURL 回填下载地址（依赖自增ID）
func (r *DocumentRepository) UpdateDownloadURL(ctx context.Context, id uint, url string) error {
	return r.db.WithContext(ctx).Model(&entity.Document{}).
		Where("id = ?", id).
		Update("download_url", url).Error
}

// Delete 删除文档记录
func (r *DocumentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&entity.Document{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetNextVersion 获取下一个版本号：同一归属、同一类型的文档数 + 1
func (r *DocumentRepository) GetNextVersion(ctx context.Context, assemblyID, partID *uint, docType string) (int, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&entity.Document{}).Where("doc_type = ?", docType)
	if partID != nil {
		db = db.Where("part_id = ?", *partID)
	} else if assemblyID != nil {
		db = db.Where("assembly_id = ?", *assemblyID)
	}
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count) + 1, nil
}
