package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
)

// loadPageSize LoadProject 每页条数
const loadPageSize = 500

// AssemblyFilter 装配体列表查询
type AssemblyFilter struct {
	ListOptions
	ProjectID uint
}

// ListAssemblies 装配体列表
func (c *Client) ListAssemblies(ctx context.Context, f AssemblyFilter) (*Page[entity.Assembly], error) {
	q := f.values()
	if f.ProjectID > 0 {
		q.Set("project_id", fmt.Sprint(f.ProjectID))
	}
	var page Page[entity.Assembly]
	if err := c.doJSON(ctx, http.MethodGet, "/assemblies", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateAssembly 创建装配体
func (c *Client) CreateAssembly(ctx context.Context, a entity.Assembly) (*entity.Assembly, error) {
	var out entity.Assembly
	if err := c.doJSON(ctx, http.MethodPost, "/assemblies", nil, a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAssembly 更新装配体
func (c *Client) UpdateAssembly(ctx context.Context, a entity.Assembly) (*entity.Assembly, error) {
	var out entity.Assembly
	if err := c.doJSON(ctx, http.MethodPut, idPath("/assemblies", a.ID), nil, a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAssembly 删除装配体（服务端级联删除子树）
func (c *Client) DeleteAssembly(ctx context.Context, id uint) error {
	return c.doJSON(ctx, http.MethodDelete, idPath("/assemblies", id), nil, nil, nil)
}

// PartFilter 零件列表查询。Direct 仅返回项目直属零件
type PartFilter struct {
	ListOptions
	ProjectID  uint
	AssemblyID uint
	Direct     bool
}

// ListParts 零件列表
func (c *Client) ListParts(ctx context.Context, f PartFilter) (*Page[entity.Part], error) {
	q := f.values()
	if f.ProjectID > 0 {
		q.Set("project_id", fmt.Sprint(f.ProjectID))
	}
	if f.AssemblyID > 0 {
		q.Set("assembly_id", fmt.Sprint(f.AssemblyID))
	}
	if f.Direct {
		q.Set("direct", "true")
	}
	var page Page[entity.Part]
	if err := c.doJSON(ctx, http.MethodGet, "/parts", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreatePart 创建零件
func (c *Client) CreatePart(ctx context.Context, p entity.Part) (*entity.Part, error) {
	var out entity.Part
	if err := c.doJSON(ctx, http.MethodPost, "/parts", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePart 更新零件
func (c *Client) UpdatePart(ctx context.Context, p entity.Part) (*entity.Part, error) {
	var out entity.Part
	if err := c.doJSON(ctx, http.MethodPut, idPath("/parts", p.ID), nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePart 删除零件
func (c *Client) DeletePart(ctx context.Context, id uint) error {
	return c.doJSON(ctx, http.MethodDelete, idPath("/parts", id), nil, nil, nil)
}

// LoadProject 拉取项目下全部装配体和零件（含直属零件），用于客户端建树
func (c *Client) LoadProject(ctx context.Context, projectID uint) ([]entity.Assembly, []entity.Part, error) {
	assemblies, err := collect(ctx, func(ctx context.Context, opts ListOptions) (*Page[entity.Assembly], error) {
		return c.ListAssemblies(ctx, AssemblyFilter{ListOptions: opts, ProjectID: projectID})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load assemblies: %w", err)
	}
	parts, err := collect(ctx, func(ctx context.Context, opts ListOptions) (*Page[entity.Part], error) {
		return c.ListParts(ctx, PartFilter{ListOptions: opts, ProjectID: projectID})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load parts: %w", err)
	}
	return assemblies, parts, nil
}

func collect[T any](ctx context.Context, list func(context.Context, ListOptions) (*Page[T], error)) ([]T, error) {
	out := []T{}
	for skip := 0; ; skip += loadPageSize {
		page, err := list(ctx, ListOptions{Skip: skip, Limit: loadPageSize})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if len(page.Items) < loadPageSize {
			return out, nil
		}
		if page.Pagination != nil && len(out) >= page.Pagination.Total {
			return out, nil
		}
	}
}
