package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/repository"
)

// PreferenceService 用户偏好
type PreferenceService struct {
	prefs    *repository.PreferenceRepository
	projects *repository.ProjectRepository
}

func NewPreferenceService(prefs *repository.PreferenceRepository, projects *repository.ProjectRepository) *PreferenceService {
	return &PreferenceService{prefs: prefs, projects: projects}
}

// SelectedProject 返回记住的项目，项目已删除时清除并返回 nil
func (s *PreferenceService) SelectedProject(ctx context.Context, userID string) (*uint, error) {
	id, err := s.prefs.GetSelectedProject(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get selected project: %w", err)
	}
	if id == nil {
		return nil, nil
	}
	if _, err := s.projects.FindByID(ctx, *id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = s.prefs.ClearSelectedProject(ctx, userID)
			return nil, nil
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return id, nil
}

// SelectProject 记住选中的项目
func (s *PreferenceService) SelectProject(ctx context.Context, userID string, projectID uint) error {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: project %d not found", ErrInvalid, projectID)
		}
		return fmt.Errorf("find project: %w", err)
	}
	if err := s.prefs.SetSelectedProject(ctx, userID, projectID); err != nil {
		return fmt.Errorf("set selected project: %w", err)
	}
	return nil
}

// ClearSelectedProject 清除选中
func (s *PreferenceService) ClearSelectedProject(ctx context.Context, userID string) error {
	if err := s.prefs.ClearSelectedProject(ctx, userID); err != nil {
		return fmt.Errorf("clear selected project: %w", err)
	}
	return nil
}
