package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/repository"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

// AssemblyService 装配体服务
type AssemblyService struct {
	repos     *repository.Repositories
	store     ObjectStore
	publisher Publisher
	logger    *zap.Logger
}

func NewAssemblyService(repos *repository.Repositories, store ObjectStore, publisher Publisher, logger *zap.Logger) *AssemblyService {
	return &AssemblyService{repos: repos, store: store, publisher: publisher, logger: logger}
}

// AssemblyInput 创建/更新装配体请求
type AssemblyInput struct {
	Name             string `json:"name" binding:"required,max=256"`
	ProjectID        uint   `json:"project_id" binding:"required"`
	ParentAssemblyID *uint  `json:"parent_assembly_id"`
}

// List 装配体列表
func (s *AssemblyService) List(ctx context.Context, projectID uint, params repository.ListParams) ([]entity.Assembly, int64, error) {
	items, total, err := s.repos.Assembly.List(ctx, projectID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list assemblies: %w", err)
	}
	return items, total, nil
}

// Get 装配体详情
func (s *AssemblyService) Get(ctx context.Context, id uint) (*entity.Assembly, error) {
	a, err := s.repos.Assembly.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find assembly: %w", err)
	}
	return a, nil
}

// Create 创建装配体，父装配必须属于同一项目
func (s *AssemblyService) Create(ctx context.Context, userID string, in AssemblyInput) (*entity.Assembly, error) {
	a := &entity.Assembly{
		Name:             strings.TrimSpace(in.Name),
		ProjectID:        in.ProjectID,
		ParentAssemblyID: in.ParentAssemblyID,
	}
	if err := s.check(ctx, a); err != nil {
		return nil, err
	}
	if err := s.repos.Assembly.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create assembly: %w", err)
	}
	s.publisher.Publish(Event{Type: EventTreeChanged, ProjectID: a.ProjectID, Kind: string(tree.KindAssembly), ID: a.ID, Action: "created", UserID: userID})
	return a, nil
}

// Update 更新装配体，拒绝会形成环的父装配
func (s *AssemblyService) Update(ctx context.Context, userID string, id uint, in AssemblyInput) (*entity.Assembly, error) {
	a, err := s.repos.Assembly.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find assembly: %w", err)
	}
	if in.ProjectID != 0 && in.ProjectID != a.ProjectID {
		return nil, fmt.Errorf("%w: assembly cannot move to another project", ErrInvalid)
	}
	a.Name = strings.TrimSpace(in.Name)
	a.ParentAssemblyID = in.ParentAssemblyID
	if err := s.check(ctx, a); err != nil {
		return nil, err
	}
	if a.ParentAssemblyID != nil {
		siblings, err := s.repos.Assembly.ListByProject(ctx, a.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("list assemblies: %w", err)
		}
		if slices.Contains(tree.SubtreeIDs(siblings, a.ID), *a.ParentAssemblyID) {
			return nil, fmt.Errorf("%w: parent_assembly_id would create a cycle", ErrInvalid)
		}
	}
	if err := s.repos.Assembly.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update assembly: %w", err)
	}
	s.publisher.Publish(Event{Type: EventTreeChanged, ProjectID: a.ProjectID, Kind: string(tree.KindAssembly), ID: a.ID, Action: "updated", UserID: userID})
	return a, nil
}

func (s *AssemblyService) check(ctx context.Context, a *entity.Assembly) error {
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if _, err := s.repos.Project.FindByID(ctx, a.ProjectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: project %d not found", ErrInvalid, a.ProjectID)
		}
		return fmt.Errorf("find project: %w", err)
	}
	if a.ParentAssemblyID == nil {
		return nil
	}
	parent, err := s.repos.Assembly.FindByID(ctx, *a.ParentAssemblyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: parent assembly %d not found", ErrInvalid, *a.ParentAssemblyID)
		}
		return fmt.Errorf("find parent assembly: %w", err)
	}
	if parent.ProjectID != a.ProjectID {
		return fmt.Errorf("%w: parent assembly belongs to another project", ErrInvalid)
	}
	if a.ID != 0 && parent.ID == a.ID {
		return fmt.Errorf("%w: assembly cannot be its own parent", ErrInvalid)
	}
	return nil
}

// Delete 删除装配体及其整个子树（子装配、零件、文档）
func (s *AssemblyService) Delete(ctx context.Context, userID string, id uint) ([]uint, error) {
	a, err := s.repos.Assembly.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find assembly: %w", err)
	}
	all, err := s.repos.Assembly.ListByProject(ctx, a.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("list assemblies: %w", err)
	}
	ids := tree.SubtreeIDs(all, id)
	removed, err := s.repos.Assembly.DeleteSubtree(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("delete assembly subtree: %w", err)
	}
	removeObjects(ctx, s.store, removed, s.logger)

	s.logger.Info("assembly subtree deleted",
		zap.Uint("assembly_id", id),
		zap.Int("assemblies", len(ids)),
		zap.Int("documents", len(removed)))
	s.publisher.Publish(Event{Type: EventTreeChanged, ProjectID: a.ProjectID, Kind: string(tree.KindAssembly), ID: id, Action: "deleted", UserID: userID})
	return ids, nil
}
