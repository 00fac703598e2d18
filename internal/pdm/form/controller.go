package form

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/apiclient"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

// Backend 表单提交依赖的远程接口，*apiclient.Client 满足该接口
type Backend interface {
	CreateAssembly(ctx context.Context, a entity.Assembly) (*entity.Assembly, error)
	UpdateAssembly(ctx context.Context, a entity.Assembly) (*entity.Assembly, error)
	CreatePart(ctx context.Context, p entity.Part) (*entity.Part, error)
	UpdatePart(ctx context.Context, p entity.Part) (*entity.Part, error)
	UploadDocuments(ctx context.Context, r apiclient.UploadRequest) ([]entity.Document, error)
}

// Refresher 提交成功后全量刷新文档列表
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Result 提交结果
type Result struct {
	Assembly  *entity.Assembly
	Part      *entity.Part
	Documents []entity.Document
}

// Controller 编辑表单控制器
type Controller struct {
	backend   Backend
	store     *tree.Store
	refresher Refresher
	logger    *zap.Logger
}

// NewController creates a form controller. store and refresher may be nil.
func NewController(backend Backend, store *tree.Store, refresher Refresher, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		backend:   backend,
		store:     store,
		refresher: refresher,
		logger:    logger,
	}
}

// Submit 校验并提交表单
//
// 校验失败时返回 ValidationErrors 且不发起请求。附件在返回前一律关闭。
func (c *Controller) Submit(ctx context.Context, in Input) (*Result, error) {
	defer in.Close()

	p, err := Validate(in)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	upload := apiclient.UploadRequest{
		Title:      p.Name,
		UploadedBy: p.UploadedBy,
		ChangeNote: p.ChangeNote,
	}

	switch p.Kind {
	case tree.KindAssembly:
		a, err := c.saveAssembly(ctx, p)
		if err != nil {
			return nil, err
		}
		res.Assembly = a
		upload.AssemblyID = &a.ID
		if c.store != nil {
			c.store.UpsertAssembly(*a)
		}
	case tree.KindPart:
		part, err := c.savePart(ctx, p)
		if err != nil {
			return nil, err
		}
		res.Part = part
		upload.PartID = &part.ID
		if c.store != nil {
			c.store.UpsertPart(*part)
		}
	default:
		return nil, fmt.Errorf("submit form: unknown kind %q", p.Kind)
	}

	if p.File2D != nil || p.File3D != nil {
		if p.File2D != nil {
			upload.File2D = &apiclient.File{Name: p.File2D.FileName, Reader: p.File2D.Body}
			upload.FileFormat2D = p.File2D.Format()
			upload.PDFContentType2D = p.PDFContentType
		}
		if p.File3D != nil {
			upload.File3D = &apiclient.File{Name: p.File3D.FileName, Reader: p.File3D.Body}
			upload.FileFormat3D = p.File3D.Format()
		}
		switch {
		case p.File2D != nil && p.File3D == nil:
			upload.DocType = entity.DocType2D
		case p.File3D != nil && p.File2D == nil:
			upload.DocType = entity.DocType3D
		}
		docs, err := c.backend.UploadDocuments(ctx, upload)
		if err != nil {
			return res, fmt.Errorf("upload documents: %w", err)
		}
		res.Documents = docs
	}

	if c.refresher != nil {
		if err := c.refresher.Refresh(ctx); err != nil {
			c.logger.Warn("refresh documents after submit failed", zap.Error(err))
		}
	}
	return res, nil
}

func (c *Controller) saveAssembly(ctx context.Context, p Payload) (*entity.Assembly, error) {
	if p.IsCreate() {
		a, err := c.backend.CreateAssembly(ctx, p.Assembly())
		if err != nil {
			return nil, fmt.Errorf("create assembly: %w", err)
		}
		return a, nil
	}
	a, err := c.backend.UpdateAssembly(ctx, p.Assembly())
	if err != nil {
		return nil, fmt.Errorf("update assembly: %w", err)
	}
	return a, nil
}

func (c *Controller) savePart(ctx context.Context, p Payload) (*entity.Part, error) {
	if p.IsCreate() {
		part, err := c.backend.CreatePart(ctx, p.Part())
		if err != nil {
			return nil, fmt.Errorf("create part: %w", err)
		}
		return part, nil
	}
	part, err := c.backend.UpdatePart(ctx, p.Part())
	if err != nil {
		return nil, fmt.Errorf("update part: %w", err)
	}
	return part, nil
}
