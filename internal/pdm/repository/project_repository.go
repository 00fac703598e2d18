package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindByID 根据ID查找项目
func (r *ProjectRepository) FindByID(ctx context.Context, id uint) (*entity.Project, error) {
	var project entity.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &project, nil
}

// List 项目列表，query 模糊匹配编号、名称、参考号
func (r *ProjectRepository) List(ctx context.Context, query string, params ListParams) ([]entity.Project, int64, error) {
	var projects []entity.Project
	var total int64

	db := r.db.WithContext(ctx).Model(&entity.Project{})
	if q := strings.TrimSpace(query); q != "" {
		like := "%" + q + "%"
		db = db.Where("project_number ILIKE ? OR name ILIKE ? OR reference_no ILIKE ?", like, like, like)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := params.apply(db).Order("created_at DESC, id DESC").Find(&projects).Error
	return projects, total, err
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Update 更新项目
func (r *ProjectRepository) Update(ctx context.Context, project *entity.Project) error {
	res := r.db.WithContext(ctx).Model(project).
		Select("project_number", "name", "customer_details", "reference_no").
		Updates(project)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除项目及其装配体、零件、文档，返回被删除的文档（用于清理对象存储）
func (r *ProjectRepository) Delete(ctx context.Context, id uint) ([]entity.Document, error) {
	var removed []entity.Document
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assemblies := tx.Model(&entity.Assembly{}).Select("id").Where("project_id = ?", id)
		parts := tx.Model(&entity.Part{}).Select("id").
			Where("project_id = ? OR assembly_id IN (?)", id, assemblies)

		if err := tx.Clauses(clause.Returning{}).
			Where("assembly_id IN (?) OR part_id IN (?)", assemblies, parts).
			Delete(&removed).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ? OR assembly_id IN (?)", id, assemblies).
			Delete(&entity.Part{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&entity.Assembly{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&entity.Project{}, id)
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
