package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/repository"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

// PartService 零件服务
type PartService struct {
	repos     *repository.Repositories
	store     ObjectStore
	publisher Publisher
	logger    *zap.Logger
}

func NewPartService(repos *repository.Repositories, store ObjectStore, publisher Publisher, logger *zap.Logger) *PartService {
	return &PartService{repos: repos, store: store, publisher: publisher, logger: logger}
}

// PartInput 创建/更新零件请求。AssemblyID 为空时 ProjectID 必填（直属零件）
type PartInput struct {
	Name       string `json:"name" binding:"required,max=256"`
	PartNumber string `json:"part_number" binding:"max=128"`
	Quantity   int    `json:"quantity"`
	ProjectID  *uint  `json:"project_id"`
	AssemblyID *uint  `json:"assembly_id"`
}

// List 零件列表
func (s *PartService) List(ctx context.Context, f repository.PartFilter, params repository.ListParams) ([]entity.Part, int64, error) {
	items, total, err := s.repos.Part.List(ctx, f, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list parts: %w", err)
	}
	return items, total, nil
}

// Get 零件详情
func (s *PartService) Get(ctx context.Context, id uint) (*entity.Part, error) {
	p, err := s.repos.Part.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find part: %w", err)
	}
	return p, nil
}

// Create 创建零件
func (s *PartService) Create(ctx context.Context, userID string, in PartInput) (*entity.Part, error) {
	p := &entity.Part{}
	projectID, err := s.apply(ctx, p, in)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Part.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create part: %w", err)
	}
	s.publisher.Publish(Event{Type: EventTreeChanged, ProjectID: projectID, Kind: string(tree.KindPart), ID: p.ID, Action: "created", UserID: userID})
	return p, nil
}

// Update 更新零件
func (s *PartService) Update(ctx context.Context, userID string, id uint, in PartInput) (*entity.Part, error) {
	p, err := s.repos.Part.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find part: %w", err)
	}
	projectID, err := s.apply(ctx, p, in)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Part.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update part: %w", err)
	}
	s.publisher.Publish(Event{Type: EventTreeChanged, ProjectID: projectID, Kind: string(tree.KindPart), ID: p.ID, Action: "updated", UserID: userID})
	return p, nil
}

// apply 规范化输入：数量小于1时取1；成员零件不直接关联项目。返回零件所属项目
func (s *PartService) apply(ctx context.Context, p *entity.Part, in PartInput) (uint, error) {
	p.Name = strings.TrimSpace(in.Name)
	p.PartNumber = strings.TrimSpace(in.PartNumber)
	p.Quantity = in.Quantity
	if p.Quantity < 1 {
		p.Quantity = 1
	}
	if p.Name == "" {
		return 0, fmt.Errorf("%w: name is required", ErrInvalid)
	}

	if in.AssemblyID != nil {
		a, err := s.repos.Assembly.FindByID(ctx, *in.AssemblyID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return 0, fmt.Errorf("%w: assembly %d not found", ErrInvalid, *in.AssemblyID)
			}
			return 0, fmt.Errorf("find assembly: %w", err)
		}
		if in.ProjectID != nil && *in.ProjectID != a.ProjectID {
			return 0, fmt.Errorf("%w: assembly belongs to another project", ErrInvalid)
		}
		p.AssemblyID = in.AssemblyID
		p.ProjectID = nil
		return a.ProjectID, nil
	}

	if in.ProjectID == nil || *in.ProjectID == 0 {
		return 0, fmt.Errorf("%w: project_id is required for a direct part", ErrInvalid)
	}
	if _, err := s.repos.Project.FindByID(ctx, *in.ProjectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%w: project %d not found", ErrInvalid, *in.ProjectID)
		}
		return 0, fmt.Errorf("find project: %w", err)
	}
	p.AssemblyID = nil
	p.ProjectID = in.ProjectID
	return *in.ProjectID, nil
}

// Delete 删除零件及其文档
func (s *PartService) Delete(ctx context.Context, userID string, id uint) error {
	p, err := s.repos.Part.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find part: %w", err)
	}
	removed, err := s.repos.Part.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete part: %w", err)
	}
	removeObjects(ctx, s.store, removed, s.logger)

	var projectID uint
	if p.ProjectID != nil {
		projectID = *p.ProjectID
	} else if p.AssemblyID != nil {
		if a, err := s.repos.Assembly.FindByID(ctx, *p.AssemblyID); err == nil {
			projectID = a.ProjectID
		}
	}
	s.publisher.Publish(Event{Type: EventTreeChanged, ProjectID: projectID, Kind: string(tree.KindPart), ID: id, Action: "deleted", UserID: userID})
	return nil
}
