package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// ListParams skip/limit 分页
type ListParams struct {
	Skip  int
	Limit int
}

func (p ListParams) apply(db *gorm.DB) *gorm.DB {
	if p.Skip > 0 {
		db = db.Offset(p.Skip)
	}
	if p.Limit > 0 {
		db = db.Limit(p.Limit)
	}
	return db
}

// Repositories 仓库集合
type Repositories struct {
	Project    *ProjectRepository
	Assembly   *AssemblyRepository
	Part       *PartRepository
	Document   *DocumentRepository
	Preference *PreferenceRepository
}

// NewRepositories 创建仓库集合，rdb 为 nil 时偏好设置不可用
func NewRepositories(db *gorm.DB, rdb *redis.Client) *Repositories {
	return &Repositories{
		Project:    NewProjectRepository(db),
		Assembly:   NewAssemblyRepository(db),
		Part:       NewPartRepository(db),
		Document:   NewDocumentRepository(db),
		Preference: NewPreferenceRepository(rdb),
	}
}

// AutoMigrate 创建/更新表结构
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(
		&entity.Project{},
		&entity.Assembly{},
		&entity.Part{},
		&entity.Document{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
