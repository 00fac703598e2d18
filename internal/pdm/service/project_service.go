package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/repository"
)

// ProjectService 项目服务
type ProjectService struct {
	repo      *repository.ProjectRepository
	store     ObjectStore
	publisher Publisher
	logger    *zap.Logger
}

func NewProjectService(repo *repository.ProjectRepository, store ObjectStore, publisher Publisher, logger *zap.Logger) *ProjectService {
	return &ProjectService{repo: repo, store: store, publisher: publisher, logger: logger}
}

// ProjectInput 创建/更新项目请求
type ProjectInput struct {
	ProjectNumber   string  `json:"project_number" binding:"required,max=64"`
	Name            string  `json:"name" binding:"required,max=256"`
	CustomerDetails *string `json:"customer_details"`
	ReferenceNo     *string `json:"reference_no" binding:"omitempty,max=128"`
}

func (in ProjectInput) apply(p *entity.Project) error {
	p.ProjectNumber = strings.TrimSpace(in.ProjectNumber)
	p.Name = strings.TrimSpace(in.Name)
	p.CustomerDetails = in.CustomerDetails
	p.ReferenceNo = in.ReferenceNo
	if p.ProjectNumber == "" || p.Name == "" {
		return fmt.Errorf("%w: project_number and name are required", ErrInvalid)
	}
	return nil
}

// List 项目列表
func (s *ProjectService) List(ctx context.Context, query string, params repository.ListParams) ([]entity.Project, int64, error) {
	projects, total, err := s.repo.List(ctx, query, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	return projects, total, nil
}

// Get 项目详情
func (s *ProjectService) Get(ctx context.Context, id uint) (*entity.Project, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}
	return p, nil
}

// Create 创建项目
func (s *ProjectService) Create(ctx context.Context, userID string, in ProjectInput) (*entity.Project, error) {
	p := &entity.Project{CreatedBy: userID}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.publisher.Publish(Event{Type: EventProjectChanged, ProjectID: p.ID, Action: "created", UserID: userID})
	return p, nil
}

// Update 更新项目
func (s *ProjectService) Update(ctx context.Context, userID string, id uint, in ProjectInput) (*entity.Project, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	s.publisher.Publish(Event{Type: EventProjectChanged, ProjectID: p.ID, Action: "updated", UserID: userID})
	return p, nil
}

// Delete 删除项目（级联删除树与文档）
func (s *ProjectService) Delete(ctx context.Context, userID string, id uint) error {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	removeObjects(ctx, s.store, removed, s.logger)
	s.publisher.Publish(Event{Type: EventProjectChanged, ProjectID: id, Action: "deleted", UserID: userID})
	return nil
}

// removeObjects 尽力删除对象存储中的文件，失败只记录日志
func removeObjects(ctx context.Context, store ObjectStore, docs []entity.Document, logger *zap.Logger) {
	if store == nil {
		return
	}
	for _, d := range docs {
		if d.ObjectKey == "" {
			continue
		}
		if err := store.Remove(ctx, d.ObjectKey); err != nil {
			logger.Warn("remove document object failed",
				zap.Uint("document_id", d.ID),
				zap.String("object_key", d.ObjectKey),
				zap.Error(err))
		}
	}
}
