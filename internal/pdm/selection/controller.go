// Package selection tracks which tree node is selected, which are expanded and
// which page of each list is shown.
package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/resolver"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

var (
	// ErrNodeNotFound 节点不在当前树中
	ErrNodeNotFound = errors.New("node not found")
	// ErrStale 响应到达时选中节点已变化，结果被丢弃
	ErrStale = errors.New("selection changed before documents arrived")
)

// DocumentFetcher loads the documents that may belong to a node. The result
// is filtered again with resolver.Resolve, so it may be a superset.
type DocumentFetcher interface {
	FetchDocuments(ctx context.Context, target resolver.Target) ([]entity.Document, error)
}

// Confirmer 删除前的确认
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Deleter 远程删除装配体（含子树）和零件
type Deleter interface {
	DeleteAssembly(ctx context.Context, id uint) error
	DeletePart(ctx context.Context, id uint) error
}

// Banner 可关闭的错误提示
type Banner struct {
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// State 控制器状态快照
type State struct {
	Selected  *tree.Ref       `json:"selected"`
	Node      *tree.Node      `json:"node,omitempty"`
	Documents resolver.Result `json:"documents"`
	Groups    resolver.Groups `json:"groups"`
	Loading   bool            `json:"loading"`
	Expanded  []tree.Ref      `json:"expanded"`
	Pages     map[ListKey]int `json:"pages"`
	Banner    *Banner         `json:"banner,omitempty"`
}

// Config 分页大小
type Config struct {
	TreePageSize    int
	ProjectPageSize int
}

// Controller 节点选择状态机，可并发使用
type Controller struct {
	store     *tree.Store
	fetcher   DocumentFetcher
	confirmer Confirmer
	deleter   Deleter
	logger    *zap.Logger
	cfg       Config

	mu           sync.Mutex
	selected     *tree.Ref
	token        uint64
	cancel       context.CancelFunc
	loading      bool
	docs         resolver.Result
	expanded     map[tree.Ref]bool
	pages        map[ListKey]int
	projectCount int
	query        string
	banner       *Banner
}

// NewController wires a controller to store; it reconciles itself after every
// store mutation.
func NewController(store *tree.Store, fetcher DocumentFetcher, confirmer Confirmer, deleter Deleter, cfg Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TreePageSize <= 0 {
		cfg.TreePageSize = TreePageSize
	}
	if cfg.ProjectPageSize <= 0 {
		cfg.ProjectPageSize = ProjectPageSize
	}
	c := &Controller{
		store:     store,
		fetcher:   fetcher,
		confirmer: confirmer,
		deleter:   deleter,
		logger:    logger,
		cfg:       cfg,
		docs:      resolver.Result{Documents: []entity.Document{}},
		expanded:  make(map[tree.Ref]bool),
		pages: map[ListKey]int{
			ListDirectParts: 1,
			ListAssemblies:  1,
			ListProjects:    1,
		},
	}
	store.Watch(c.Reconcile)
	return c
}

// SelectNode 选中节点并拉取其文档
//
// 会取消上一次未完成的拉取。若返回前选中已变化，结果被丢弃并返回 ErrStale。
func (c *Controller) SelectNode(ctx context.Context, ref tree.Ref) (resolver.Result, error) {
	node := c.store.Forest().Find(ref)
	if node == nil {
		return resolver.Result{}, fmt.Errorf("select %s %d: %w", ref.Kind, ref.ID, ErrNodeNotFound)
	}
	target := resolver.TargetOf(node)

	c.mu.Lock()
	c.stopFetchLocked()
	c.token++
	token := c.token
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	sel := ref
	c.selected = &sel
	c.loading = true
	c.docs = resolver.Result{Documents: []entity.Document{}}
	c.mu.Unlock()

	docs, err := c.fetcher.FetchDocuments(fetchCtx, target)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token {
		c.logger.Debug("discarding stale document response",
			zap.String("kind", string(ref.Kind)), zap.Uint("id", ref.ID))
		return resolver.Result{}, ErrStale
	}
	cancel()
	c.cancel = nil
	c.loading = false
	if err != nil {
		c.banner = &Banner{Message: "加载文档失败: " + err.Error(), Err: err}
		c.logger.Warn("fetch documents failed", zap.Error(err),
			zap.String("kind", string(ref.Kind)), zap.Uint("id", ref.ID))
		return resolver.Result{}, fmt.Errorf("fetch documents: %w", err)
	}
	c.docs = resolver.Resolve(target, docs)
	return c.docs, nil
}

// Refresh re-fetches the documents of the current selection.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	sel := c.selected
	c.mu.Unlock()
	if sel == nil {
		return nil
	}
	_, err := c.SelectNode(ctx, *sel)
	if errors.Is(err, ErrStale) {
		return nil
	}
	return err
}

// ToggleExpand flips the expanded state of ref and returns the new state.
func (c *Controller) ToggleExpand(ref tree.Ref) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expanded[ref] {
		delete(c.expanded, ref)
		return false
	}
	c.expanded[ref] = true
	return true
}

// IsExpanded reports whether ref is expanded.
func (c *Controller) IsExpanded(ref tree.Ref) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expanded[ref]
}

// SetProjectCount records the size of the project list used for paging.
func (c *Controller) SetProjectCount(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projectCount = n
	c.pages[ListProjects] = Clamp(c.pages[ListProjects], n, c.cfg.ProjectPageSize)
}

// SetQuery 设置搜索条件，分页按过滤后的树计算
func (c *Controller) SetQuery(query string) {
	c.mu.Lock()
	c.query = query
	c.mu.Unlock()
	c.Reconcile()
}

// View returns the forest filtered by the current query.
func (c *Controller) View() tree.Forest {
	c.mu.Lock()
	query := c.query
	c.mu.Unlock()
	return tree.FilterForest(c.store.Forest(), query)
}

// PageSize returns the page size used for key.
func (c *Controller) PageSize(key ListKey) int {
	if key == ListProjects {
		return c.cfg.ProjectPageSize
	}
	return c.cfg.TreePageSize
}

// ChangePage 切换页码，超出范围时截断到 [1, totalPages]
func (c *Controller) ChangePage(key ListKey, page int) int {
	view := c.View()
	c.mu.Lock()
	defer c.mu.Unlock()
	count, size := c.countLocked(key, view)
	c.pages[key] = Clamp(page, count, size)
	return c.pages[key]
}

// Page returns the current page of key.
func (c *Controller) Page(key ListKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pages[key]; ok {
		return p
	}
	return 1
}

// Delete 删除节点（需确认）
//
// 先调用远程删除，成功后才从本地移除；失败时设置 Banner，树保持不变。
// 用户取消时返回 false, nil。
func (c *Controller) Delete(ctx context.Context, ref tree.Ref) (bool, error) {
	node := c.store.Forest().Find(ref)
	if node == nil {
		return false, fmt.Errorf("delete %s %d: %w", ref.Kind, ref.ID, ErrNodeNotFound)
	}

	prompt := fmt.Sprintf("确定删除%s「%s」吗？", kindLabel(node.Kind), node.Name)
	if node.IsTopLevel() {
		prompt = fmt.Sprintf("确定删除顶层装配体「%s」及其全部子装配和零件吗？", node.Name)
	}
	ok, err := c.confirmer.Confirm(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		return false, nil
	}

	if err := c.deleteRemote(ctx, node); err != nil {
		c.mu.Lock()
		c.banner = &Banner{Message: "删除" + kindLabel(node.Kind) + "失败: " + err.Error(), Err: err}
		c.mu.Unlock()
		c.logger.Warn("delete node failed",
			zap.String("kind", string(ref.Kind)), zap.Uint("id", ref.ID), zap.Error(err))
		return false, fmt.Errorf("delete %s %d: %w", ref.Kind, ref.ID, err)
	}

	c.store.Remove(ref)
	c.logger.Info("node deleted", zap.String("kind", string(ref.Kind)), zap.Uint("id", ref.ID))
	return true, nil
}

func (c *Controller) deleteRemote(ctx context.Context, node *tree.Node) error {
	switch node.Kind {
	case tree.KindAssembly:
		return c.deleter.DeleteAssembly(ctx, node.ID)
	case tree.KindPart:
		return c.deleter.DeletePart(ctx, node.ID)
	default:
		return fmt.Errorf("unknown node kind %q", node.Kind)
	}
}

// Reconcile re-validates selection, expansion and pages against the current
// tree. It runs automatically after store mutations.
func (c *Controller) Reconcile() {
	forest := c.store.Forest()
	view := c.View()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected != nil && !forest.Contains(*c.selected) {
		c.logger.Debug("selected node removed, clearing selection",
			zap.String("kind", string(c.selected.Kind)), zap.Uint("id", c.selected.ID))
		c.clearSelectionLocked()
	}
	for ref := range c.expanded {
		if !forest.Contains(ref) {
			delete(c.expanded, ref)
		}
	}
	for _, key := range []ListKey{ListDirectParts, ListAssemblies} {
		count, size := c.countLocked(key, view)
		c.pages[key] = Clamp(c.pages[key], count, size)
	}
}

// DismissBanner clears the error banner.
func (c *Controller) DismissBanner() {
	c.mu.Lock()
	c.banner = nil
	c.mu.Unlock()
}

// State returns a snapshot of the controller state.
func (c *Controller) State() State {
	forest := c.store.Forest()
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Documents: c.docs,
		Groups:    resolver.Split(c.docs.Documents),
		Loading:   c.loading,
		Expanded:  []tree.Ref{},
		Pages:     make(map[ListKey]int, len(c.pages)),
		Banner:    c.banner,
	}
	if c.selected != nil {
		sel := *c.selected
		s.Selected = &sel
		s.Node = forest.Find(sel)
	}
	for ref := range c.expanded {
		s.Expanded = append(s.Expanded, ref)
	}
	for k, v := range c.pages {
		s.Pages[k] = v
	}
	return s
}

func (c *Controller) countLocked(key ListKey, forest tree.Forest) (count, size int) {
	switch key {
	case ListDirectParts:
		return len(forest.DirectParts), c.cfg.TreePageSize
	case ListAssemblies:
		return len(forest.Roots), c.cfg.TreePageSize
	case ListProjects:
		return c.projectCount, c.cfg.ProjectPageSize
	default:
		return 0, c.cfg.TreePageSize
	}
}

func (c *Controller) stopFetchLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) clearSelectionLocked() {
	c.stopFetchLocked()
	c.token++
	c.selected = nil
	c.loading = false
	c.docs = resolver.Result{Documents: []entity.Document{}}
}

func kindLabel(k tree.Kind) string {
	switch k {
	case tree.KindAssembly:
		return "装配体"
	case tree.KindPart:
		return "零件"
	default:
		return string(k)
	}
}
