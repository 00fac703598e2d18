package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/observability"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/repository"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/resolver"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

// TreeService 项目结构树
type TreeService struct {
	repos   *repository.Repositories
	metrics *observability.Metrics
	logger  *zap.Logger
}

func NewTreeService(repos *repository.Repositories, metrics *observability.Metrics, logger *zap.Logger) *TreeService {
	return &TreeService{repos: repos, metrics: metrics, logger: logger}
}

// ProjectTree 项目及其结构树
type ProjectTree struct {
	Project *entity.Project `json:"project"`
	tree.Forest
}

// NodeDocuments 节点解析后的文档
type NodeDocuments struct {
	resolver.Result
	Groups resolver.Groups `json:"groups"`
}

// load 并发加载项目、装配体和零件
func (s *TreeService) load(ctx context.Context, projectID uint) (*entity.Project, []entity.Assembly, []entity.Part, error) {
	var (
		project    *entity.Project
		assemblies []entity.Assembly
		parts      []entity.Part
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.repos.Project.FindByID(gctx, projectID)
		if err != nil {
			return fmt.Errorf("find project: %w", err)
		}
		project = p
		return nil
	})
	g.Go(func() error {
		items, err := s.repos.Assembly.ListByProject(gctx, projectID)
		if err != nil {
			return fmt.Errorf("list assemblies: %w", err)
		}
		assemblies = items
		return nil
	})
	g.Go(func() error {
		items, _, err := s.repos.Part.List(gctx, repository.PartFilter{ProjectID: projectID}, repository.ListParams{})
		if err != nil {
			return fmt.Errorf("list parts: %w", err)
		}
		parts = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return project, assemblies, parts, nil
}

// Tree 构建项目结构树
func (s *TreeService) Tree(ctx context.Context, projectID uint) (*ProjectTree, error) {
	project, assemblies, parts, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	forest := tree.Build(assemblies, parts, tree.WithLogger(s.logger))
	s.metrics.ObserveTree(time.Since(start), forest.Len())
	return &ProjectTree{Project: project, Forest: forest}, nil
}

// Search 按名称过滤结构树，保留匹配节点的祖先
func (s *TreeService) Search(ctx context.Context, projectID uint, query string) (*ProjectTree, error) {
	pt, err := s.Tree(ctx, projectID)
	if err != nil {
		return nil, err
	}
	pt.Forest = tree.FilterForest(pt.Forest, query)
	return pt, nil
}

// NodeDocuments 解析节点文档：零件优先取自身文档，没有时继承所属装配体
func (s *TreeService) NodeDocuments(ctx context.Context, ref tree.Ref) (*NodeDocuments, error) {
	target := resolver.Target{Kind: ref.Kind, ID: ref.ID}
	var filters []repository.DocumentFilter

	switch ref.Kind {
	case tree.KindPart:
		p, err := s.repos.Part.FindByID(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("find part: %w", err)
		}
		target.IsDirectPart = p.IsDirect()
		target.AssemblyID = p.AssemblyID
		filters = append(filters, repository.DocumentFilter{PartID: p.ID})
		if p.AssemblyID != nil {
			filters = append(filters, repository.DocumentFilter{AssemblyID: *p.AssemblyID})
		}
	case tree.KindAssembly:
		if _, err := s.repos.Assembly.FindByID(ctx, ref.ID); err != nil {
			return nil, fmt.Errorf("find assembly: %w", err)
		}
		filters = append(filters, repository.DocumentFilter{AssemblyID: ref.ID})
	default:
		return nil, fmt.Errorf("%w: unknown node kind %q", ErrInvalid, ref.Kind)
	}

	var docs []entity.Document
	for _, f := range filters {
		items, _, err := s.repos.Document.List(ctx, f, repository.ListParams{})
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		docs = append(docs, items...)
	}

	res := resolver.Resolve(target, docs)
	return &NodeDocuments{Result: res, Groups: resolver.Split(res.Documents)}, nil
}

// TreeDocuments 加载整棵树的全部文档
func (s *TreeService) TreeDocuments(ctx context.Context, f tree.Forest) ([]entity.Document, error) {
	var filter repository.DocumentFilter
	f.Walk(func(n *tree.Node) bool {
		switch n.Kind {
		case tree.KindAssembly:
			filter.AssemblyIDs = append(filter.AssemblyIDs, n.ID)
		case tree.KindPart:
			filter.PartIDs = append(filter.PartIDs, n.ID)
		}
		return true
	})
	if len(filter.AssemblyIDs) == 0 && len(filter.PartIDs) == 0 {
		return nil, nil
	}
	docs, _, err := s.repos.Document.List(ctx, filter, repository.ListParams{})
	if err != nil {
		return nil, fmt.Errorf("list tree documents: %w", err)
	}
	return docs, nil
}
