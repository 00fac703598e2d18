package service

import (
	"errors"

	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-pdm/internal/config"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/observability"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/repository"
)

// ErrInvalid 业务校验失败，handler 映射为 400
var ErrInvalid = errors.New("invalid input")

// 变更事件类型
const (
	EventProjectChanged  = "project_changed"
	EventTreeChanged     = "tree_changed"
	EventDocumentChanged = "document_changed"
)

// Event 变更通知
type Event struct {
	Type      string `json:"type"`
	ProjectID uint   `json:"project_id,omitempty"`
	Kind      string `json:"kind,omitempty"`
	ID        uint   `json:"id,omitempty"`
	Action    string `json:"action"`
	UserID    string `json:"user_id,omitempty"`
}

// Publisher 推送变更事件（SSE Hub 实现）
type Publisher interface {
	Publish(e Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

// Services 服务集合
type Services struct {
	Project    *ProjectService
	Assembly   *AssemblyService
	Part       *PartService
	Document   *DocumentService
	Tree       *TreeService
	Preference *PreferenceService
	Export     *ExportService
}

// Deps 服务依赖
type Deps struct {
	Repos     *repository.Repositories
	Store     ObjectStore
	Publisher Publisher
	Metrics   *observability.Metrics
	Logger    *zap.Logger
	Config    *config.Config
}

// NewServices 创建服务集合
func NewServices(d Deps) *Services {
	if d.Publisher == nil {
		d.Publisher = nopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Config == nil {
		d.Config = &config.Config{}
	}

	treeSvc := NewTreeService(d.Repos, d.Metrics, d.Logger)
	return &Services{
		Project:    NewProjectService(d.Repos.Project, d.Store, d.Publisher, d.Logger),
		Assembly:   NewAssemblyService(d.Repos, d.Store, d.Publisher, d.Logger),
		Part:       NewPartService(d.Repos, d.Store, d.Publisher, d.Logger),
		Document:   NewDocumentService(d.Repos, d.Store, d.Publisher, d.Metrics, d.Logger, d.Config.Server.PublicURL),
		Tree:       treeSvc,
		Preference: NewPreferenceService(d.Repos.Preference, d.Repos.Project),
		Export:     NewExportService(treeSvc),
	}
}
