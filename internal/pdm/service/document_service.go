package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/observability"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/repository"
)

// 各类型允许的文件格式
var allowedFormats = map[string][]string{
	entity.DocType2D: {"pdf"},
	entity.DocType3D: {"step", "stp", "glb"},
}

var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"step": "model/step",
	"stp":  "model/step",
	"glb":  "model/gltf-binary",
}

// DocumentService 文档服务
type DocumentService struct {
	repos     *repository.Repositories
	store     ObjectStore
	publisher Publisher
	metrics   *observability.Metrics
	logger    *zap.Logger
	publicURL string
}

func NewDocumentService(repos *repository.Repositories, store ObjectStore, publisher Publisher, metrics *observability.Metrics, logger *zap.Logger, publicURL string) *DocumentService {
	return &DocumentService{
		repos:     repos,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// UploadFile 上传的单个文件
type UploadFile struct {
	FileName string
	Format   string
	Size     int64
	Reader   io.Reader
	// PDFContentType 仅2D
	PDFContentType string
}

// UploadInput 一次上传请求，每个文件生成一条文档记录
type UploadInput struct {
	DocType    string
	Title      string
	AssemblyID *uint
	PartID     *uint
	File2D     *UploadFile
	File3D     *UploadFile
	UploadedBy string
	ChangeNote string
}

// List 文档列表
func (s *DocumentService) List(ctx context.Context, f repository.DocumentFilter, params repository.ListParams) ([]entity.Document, int64, error) {
	docs, total, err := s.repos.Document.List(ctx, f, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return docs, total, nil
}

// Get 文档详情
func (s *DocumentService) Get(ctx context.Context, id uint) (*entity.Document, error) {
	d, err := s.repos.Document.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return d, nil
}

// Upload 上传文档
func (s *DocumentService) Upload(ctx context.Context, in UploadInput) ([]entity.Document, error) {
	if s.store == nil {
		return nil, errors.New("upload documents: object store not configured")
	}
	if (in.AssemblyID == nil) == (in.PartID == nil) {
		return nil, fmt.Errorf("%w: exactly one of assembly_id and part_id is required", ErrInvalid)
	}

	files := map[string]*UploadFile{}
	if in.File2D != nil {
		files[entity.DocType2D] = in.File2D
	}
	if in.File3D != nil {
		files[entity.DocType3D] = in.File3D
	}
	switch len(files) {
	case 0:
		return nil, fmt.Errorf("%w: file_2d or file_3d is required", ErrInvalid)
	case 1:
		if in.DocType != "" && files[strings.ToUpper(in.DocType)] == nil {
			return nil, fmt.Errorf("%w: doc_type %q does not match the uploaded file", ErrInvalid, in.DocType)
		}
	}

	// 先校验全部文件再写入
	var pending []pendingFile
	for _, docType := range []string{entity.DocType2D, entity.DocType3D} {
		f := files[docType]
		if f == nil {
			continue
		}
		pf, err := checkFile(docType, f)
		if err != nil {
			return nil, err
		}
		pending = append(pending, pf)
	}

	projectID, err := s.ownerProject(ctx, in.AssemblyID, in.PartID)
	if err != nil {
		return nil, err
	}

	var docs []entity.Document
	for _, pf := range pending {
		doc, err := s.uploadOne(ctx, in, pf)
		if doc != nil {
			docs = append(docs, *doc)
		}
		if err != nil {
			// 一次上传要么全部成功，要么不留下任何文档
			s.rollback(ctx, docs)
			return nil, err
		}
	}

	s.publisher.Publish(Event{Type: EventDocumentChanged, ProjectID: projectID, Kind: ownerKind(in.PartID), ID: ownerID(in.AssemblyID, in.PartID), Action: "uploaded", UserID: in.UploadedBy})
	return docs, nil
}

// pendingFile 校验通过、待写入的文件
type pendingFile struct {
	docType string
	format  string
	pdfType string
	file    *UploadFile
}

func checkFile(docType string, f *UploadFile) (pendingFile, error) {
	pf := pendingFile{docType: docType, format: normalizeFormat(f.Format, f.FileName), file: f}
	if !formatAllowed(docType, pf.format) {
		return pf, fmt.Errorf("%w: %s document does not accept format %q", ErrInvalid, docType, pf.format)
	}
	if docType == entity.DocType2D {
		pf.pdfType = f.PDFContentType
		if pf.pdfType == "" {
			pf.pdfType = entity.PDFContentNormal
		}
		if pf.pdfType != entity.PDFContentNormal && pf.pdfType != entity.PDFContentScanned {
			return pf, fmt.Errorf("%w: pdf_content_type must be normal or scanned", ErrInvalid)
		}
	}
	return pf, nil
}

// rollback 删除本次上传已写入的文档记录和文件
func (s *DocumentService) rollback(ctx context.Context, docs []entity.Document) {
	for _, d := range docs {
		if err := s.repos.Document.Delete(ctx, d.ID); err != nil {
			s.logger.Warn("rollback document failed", zap.Uint("document_id", d.ID), zap.Error(err))
		}
	}
	removeObjects(ctx, s.store, docs, s.logger)
}

// uploadOne 写入单个文件；记录已创建但后续步骤失败时同时返回文档和错误
func (s *DocumentService) uploadOne(ctx context.Context, in UploadInput, pf pendingFile) (*entity.Document, error) {
	docType, format, pdfType, f := pf.docType, pf.format, pf.pdfType, pf.file

	version, err := s.repos.Document.GetNextVersion(ctx, in.AssemblyID, in.PartID, docType)
	if err != nil {
		return nil, fmt.Errorf("next document version: %w", err)
	}

	key := fmt.Sprintf("documents/%s/%s.%s", time.Now().Format("2006/01"), uuid.New().String(), format)
	if err := s.store.Put(ctx, key, f.Reader, f.Size, contentTypes[format]); err != nil {
		return nil, fmt.Errorf("store document file: %w", err)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSuffix(f.FileName, filepath.Ext(f.FileName))
	}
	doc := &entity.Document{
		Title:          title,
		DocType:        docType,
		FileFormat:     format,
		FileName:       f.FileName,
		AssemblyID:     in.AssemblyID,
		PartID:         in.PartID,
		ObjectKey:      key,
		VersionNo:      version,
		Size:           f.Size,
		PDFContentType: pdfType,
		UploadedBy:     in.UploadedBy,
		ChangeNote:     in.ChangeNote,
		Metadata:       datatypes.JSONMap{"original_name": f.FileName},
	}
	if err := s.repos.Document.Create(ctx, doc); err != nil {
		if rmErr := s.store.Remove(ctx, key); rmErr != nil {
			s.logger.Warn("remove orphan object failed", zap.String("object_key", key), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	doc.DownloadURL = s.downloadURL(doc.ID)
	if err := s.repos.Document.UpdateDownloadURL(ctx, doc.ID, doc.DownloadURL); err != nil {
		return doc, fmt.Errorf("update download url: %w", err)
	}

	s.metrics.ObserveUpload(docType, f.Size)
	s.logger.Info("document uploaded",
		zap.Uint("document_id", doc.ID),
		zap.String("doc_type", docType),
		zap.String("file_format", format),
		zap.Int("version_no", version),
		zap.Int64("size", f.Size))
	return doc, nil
}

func (s *DocumentService) downloadURL(id uint) string {
	return fmt.Sprintf("%s/api/v1/documents/%d/download", s.publicURL, id)
}

// ownerProject 校验归属节点存在并返回所属项目
func (s *DocumentService) ownerProject(ctx context.Context, assemblyID, partID *uint) (uint, error) {
	if partID != nil {
		p, err := s.repos.Part.FindByID(ctx, *partID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return 0, fmt.Errorf("%w: part %d not found", ErrInvalid, *partID)
			}
			return 0, fmt.Errorf("find part: %w", err)
		}
		if p.ProjectID != nil {
			return *p.ProjectID, nil
		}
		if p.AssemblyID == nil {
			return 0, nil
		}
		assemblyID = p.AssemblyID
	}
	a, err := s.repos.Assembly.FindByID(ctx, *assemblyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%w: assembly %d not found", ErrInvalid, *assemblyID)
		}
		return 0, fmt.Errorf("find assembly: %w", err)
	}
	return a.ProjectID, nil
}

// Open 打开文档内容，调用方负责关闭
func (s *DocumentService) Open(ctx context.Context, id uint) (*entity.Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if s.store == nil || doc.ObjectKey == "" {
		return nil, nil, fmt.Errorf("open document %d: %w", id, repository.ErrNotFound)
	}
	rc, err := s.store.Get(ctx, doc.ObjectKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open document %d: %w", id, err)
	}
	return doc, rc, nil
}

// Delete 删除文档及其文件
func (s *DocumentService) Delete(ctx context.Context, userID string, id uint) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repos.Document.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	removeObjects(ctx, s.store, []entity.Document{*doc}, s.logger)

	projectID, err := s.ownerProject(ctx, doc.AssemblyID, doc.PartID)
	if err != nil {
		s.logger.Debug("document owner lookup failed", zap.Uint("document_id", id), zap.Error(err))
	}
	s.publisher.Publish(Event{Type: EventDocumentChanged, ProjectID: projectID, Kind: ownerKind(doc.PartID), ID: ownerID(doc.AssemblyID, doc.PartID), Action: "deleted", UserID: userID})
	return nil
}

// ContentType 根据文件格式返回 MIME 类型
func ContentType(format string) string {
	if ct, ok := contentTypes[strings.ToLower(format)]; ok {
		return ct
	}
	return "application/octet-stream"
}

func normalizeFormat(format, fileName string) string {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if format == "" {
		format = strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	}
	return format
}

func formatAllowed(docType, format string) bool {
	return slices.Contains(allowedFormats[docType], format)
}

func ownerKind(partID *uint) string {
	if partID != nil {
		return "part"
	}
	return "assembly"
}

func ownerID(assemblyID, partID *uint) uint {
	if partID != nil {
		return *partID
	}
	if assemblyID != nil {
		return *assemblyID
	}
	return 0
}
