package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
)

type AssemblyRepository struct {
	db *gorm.DB
}

func NewAssemblyRepository(db *gorm.DB) *AssemblyRepository {
	return &AssemblyRepository{db: db}
}

// FindByID 根据ID查找装配体
func (r *AssemblyRepository) FindByID(ctx context.Context, id uint) (*entity.Assembly, error) {
	var assembly entity.Assembly
	if err := r.db.WithContext(ctx).First(&assembly, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &assembly, nil
}

// List 装配体列表，projectID 为 0 时不过滤。按 id 升序，保证建树顺序稳定
func (r *AssemblyRepository) List(ctx context.Context, projectID uint, params ListParams) ([]entity.Assembly, int64, error) {
	var assemblies []entity.Assembly
	var total int64

	db := r.db.WithContext(ctx).Model(&entity.Assembly{})
	if projectID > 0 {
		db = db.Where("project_id = ?", projectID)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := params.apply(db).Order("id ASC").Find(&assemblies).Error
	return assemblies, total, err
}

// ListByProject 项目下全部装配体
func (r *AssemblyRepository) ListByProject(ctx context.Context, projectID uint) ([]entity.Assembly, error) {
	var assemblies []entity.Assembly
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&assemblies).Error
	return assemblies, err
}

// Create 创建装配体
func (r *AssemblyRepository) Create(ctx context.Context, assembly *entity.Assembly) error {
	return r.db.WithContext(ctx).Create(assembly).Error
}

// Update 更新装配体（名称、父装配）
func (r *AssemblyRepository) Update(ctx context.Context, assembly *entity.Assembly) error {
	res := r.db.WithContext(ctx).Model(assembly).
		Select("name", "parent_assembly_id").
		Updates(assembly)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSubtree 删除一组装配体（通常为某装配体的子树）及其零件和文档
func (r *AssemblyRepository) DeleteSubtree(ctx context.Context, ids []uint) ([]entity.Document, error) {
	var removed []entity.Document
	if len(ids) == 0 {
		return removed, nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parts := tx.Model(&entity.Part{}).Select("id").Where("assembly_id IN ?", ids)
		if err := tx.Clauses(clause.Returning{}).
			Where("assembly_id IN ? OR part_id IN (?)", ids, parts).
			Delete(&removed).Error; err != nil {
			return err
		}
		if err := tx.Where("assembly_id IN ?", ids).Delete(&entity.Part{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&entity.Assembly{})
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
