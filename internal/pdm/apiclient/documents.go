package apiclient

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/resolver"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

// DocumentFilter 文档列表查询
type DocumentFilter struct {
	ListOptions
	PartID     uint
	AssemblyID uint
}

// ListDocuments 文档列表
func (c *Client) ListDocuments(ctx context.Context, f DocumentFilter) (*Page[entity.Document], error) {
	q := f.values()
	if f.PartID > 0 {
		q.Set("part_id", fmt.Sprint(f.PartID))
	}
	if f.AssemblyID > 0 {
		q.Set("assembly_id", fmt.Sprint(f.AssemblyID))
	}
	var page Page[entity.Document]
	if err := c.doJSON(ctx, http.MethodGet, "/documents", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetDocument 文档详情
func (c *Client) GetDocument(ctx context.Context, id uint) (*entity.Document, error) {
	var d entity.Document
	if err := c.doJSON(ctx, http.MethodGet, idPath("/documents", id), nil, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteDocument 删除文档
func (c *Client) DeleteDocument(ctx context.Context, id uint) error {
	return c.doJSON(ctx, http.MethodDelete, idPath("/documents", id), nil, nil, nil)
}

// File 待上传文件
type File struct {
	Name   string
	Reader io.Reader
}

// UploadRequest 文档上传表单，file_2d / file_3d 至少一个
type UploadRequest struct {
	DocType          string
	Title            string
	AssemblyID       *uint
	PartID           *uint
	File2D           *File
	File3D           *File
	FileFormat2D     string
	FileFormat3D     string
	PDFContentType2D string
	UploadedBy       string
	ChangeNote       string
}

// UploadDocuments 上传文档（multipart），返回服务端创建的文档记录
func (c *Client) UploadDocuments(ctx context.Context, r UploadRequest) ([]entity.Document, error) {
	if r.File2D == nil && r.File3D == nil {
		return nil, fmt.Errorf("upload documents: no file")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, r))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/documents", nil), pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var docs []entity.Document
	if err := c.do(req, &docs); err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	return docs, nil
}

func writeUploadForm(mw *multipart.Writer, r UploadRequest) error {
	fields := map[string]string{
		"doc_type":            r.DocType,
		"title":               r.Title,
		"file_format_2d":      r.FileFormat2D,
		"file_format_3d":      r.FileFormat3D,
		"pdf_content_type_2d": r.PDFContentType2D,
		"uploaded_by":         r.UploadedBy,
		"change_note":         r.ChangeNote,
	}
	if r.AssemblyID != nil {
		fields["assembly_id"] = fmt.Sprint(*r.AssemblyID)
	}
	if r.PartID != nil {
		fields["part_id"] = fmt.Sprint(*r.PartID)
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	for field, f := range map[string]*File{"file_2d": r.File2D, "file_3d": r.File3D} {
		if f == nil {
			continue
		}
		part, err := mw.CreateFormFile(field, f.Name)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return fmt.Errorf("copy %s: %w", field, err)
		}
	}
	return mw.Close()
}

// Download 下载文档内容写入 w，download_url 可为绝对地址或服务端相对路径
func (c *Client) Download(ctx context.Context, doc entity.Document, w io.Writer) (int64, error) {
	target := doc.DownloadURL
	if target == "" {
		target = c.endpoint(fmt.Sprintf("/documents/%d/download", doc.ID), nil)
	} else if strings.HasPrefix(target, "/") {
		target = c.baseURL + target
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download document %d: %w", doc.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return io.Copy(w, resp.Body)
}

// FetchDocuments 拉取节点可能关联的文档（零件同时拉取所属装配体的文档）
func (c *Client) FetchDocuments(ctx context.Context, target resolver.Target) ([]entity.Document, error) {
	var filters []DocumentFilter
	switch target.Kind {
	case tree.KindPart:
		filters = append(filters, DocumentFilter{PartID: target.ID})
		if !target.IsDirectPart && target.AssemblyID != nil {
			filters = append(filters, DocumentFilter{AssemblyID: *target.AssemblyID})
		}
	case tree.KindAssembly:
		filters = append(filters, DocumentFilter{AssemblyID: target.ID})
	default:
		return nil, fmt.Errorf("fetch documents: unknown node kind %q", target.Kind)
	}

	var docs []entity.Document
	for _, f := range filters {
		items, err := collect(ctx, func(ctx context.Context, opts ListOptions) (*Page[entity.Document], error) {
			f.ListOptions = opts
			return c.ListDocuments(ctx, f)
		})
		if err != nil {
			return nil, err
		}
		docs = append(docs, items...)
	}
	return docs, nil
}

// NodeDocuments 服务端解析后的节点文档
type NodeDocuments struct {
	resolver.Result
	Groups resolver.Groups `json:"groups"`
}

// GetNodeDocuments 由服务端解析节点文档
func (c *Client) GetNodeDocuments(ctx context.Context, ref tree.Ref) (*NodeDocuments, error) {
	var out NodeDocuments
	path := fmt.Sprintf("/nodes/%s/%d/documents", ref.Kind, ref.ID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
