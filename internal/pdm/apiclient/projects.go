package apiclient

import (
	"context"
	"net/http"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
)

// ProjectFilter 项目列表查询
type ProjectFilter struct {
	ListOptions
	Query string
}

// ListProjects 项目列表
func (c *Client) ListProjects(ctx context.Context, f ProjectFilter) (*Page[entity.Project], error) {
	q := f.values()
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	var page Page[entity.Project]
	if err := c.doJSON(ctx, http.MethodGet, "/projects", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProject 项目详情
func (c *Client) GetProject(ctx context.Context, id uint) (*entity.Project, error) {
	var p entity.Project
	if err := c.doJSON(ctx, http.MethodGet, idPath("/projects", id), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject 创建项目
func (c *Client) CreateProject(ctx context.Context, p entity.Project) (*entity.Project, error) {
	var out entity.Project
	if err := c.doJSON(ctx, http.MethodPost, "/projects", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProject 更新项目
func (c *Client) UpdateProject(ctx context.Context, p entity.Project) (*entity.Project, error) {
	var out entity.Project
	if err := c.doJSON(ctx, http.MethodPut, idPath("/projects", p.ID), nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject 删除项目
func (c *Client) DeleteProject(ctx context.Context, id uint) error {
	return c.doJSON(ctx, http.MethodDelete, idPath("/projects", id), nil, nil, nil)
}

type selectedProject struct {
	ProjectID *uint `json:"project_id"`
}

// GetSelectedProject 读取上次选中的项目，未设置时返回 nil
func (c *Client) GetSelectedProject(ctx context.Context) (*uint, error) {
	var out selectedProject
	if err := c.doJSON(ctx, http.MethodGet, "/preferences/selected-project", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.ProjectID, nil
}

// SetSelectedProject 记住选中的项目
func (c *Client) SetSelectedProject(ctx context.Context, id uint) error {
	return c.doJSON(ctx, http.MethodPut, "/preferences/selected-project", nil, selectedProject{ProjectID: &id}, nil)
}

// ClearSelectedProject 取消选中
func (c *Client) ClearSelectedProject(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/preferences/selected-project", nil, nil, nil)
}
