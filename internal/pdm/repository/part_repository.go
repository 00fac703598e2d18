package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
)

// PartFilter 零件查询条件
type PartFilter struct {
	// ProjectID 包含直属零件和项目下装配体的零件
	ProjectID  uint
	AssemblyID uint
	Direct     bool
}

type PartRepository struct {
	db *gorm.DB
}

func NewPartRepository(db *gorm.DB) *PartRepository {
	return &PartRepository{db: db}
}

// FindByID 根据ID查找零件
func (r *PartRepository) FindByID(ctx context.Context, id uint) (*entity.Part, error) {
	var part entity.Part
	if err := r.db.WithContext(ctx).First(&part, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &part, nil
}

// List 零件列表
func (r *PartRepository) List(ctx context.Context, f PartFilter, params ListParams) ([]entity.Part, int64, error) {
	var parts []entity.Part
	var total int64

	db := r.db.WithContext(ctx).Model(&entity.Part{})
	if f.ProjectID > 0 {
		assemblies := r.db.Model(&entity.Assembly{}).Select("id").Where("project_id = ?", f.ProjectID)
		if f.Direct {
			db = db.Where("project_id = ?", f.ProjectID)
		} else {
			db = db.Where("project_id = ? OR assembly_id IN (?)", f.ProjectID, assemblies)
		}
	}
	if f.AssemblyID > 0 {
		db = db.Where("assembly_id = ?", f.AssemblyID)
	}
	if f.Direct {
		db = db.Where("assembly_id IS NULL")
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := params.apply(db).Order("id ASC").Find(&parts).Error
	return parts, total, err
}

// Create 创建零件
func (r *PartRepository) Create(ctx context.Context, part *entity.Part) error {
	return r.db.WithContext(ctx).Create(part).Error
}

// Update 更新零件
func (r *PartRepository) Update(ctx context.Context, part *entity.Part) error {
	res := r.db.WithContext(ctx).Model(part).
		Select("name", "part_no", "quantity", "project_id", "assembly_id").
		Updates(part)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除零件及其文档
func (r *PartRepository) Delete(ctx context.Context, id uint) ([]entity.Document, error) {
	var removed []entity.Document
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Returning{}).Where("part_id = ?", id).Delete(&removed).Error; err != nil {
			return err
		}
		res := tx.Delete(&entity.Part{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
