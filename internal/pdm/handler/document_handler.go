package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/repository"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/service"
)

// DocumentHandler 文档处理器
type DocumentHandler struct {
	svc      *service.DocumentService
	maxBytes int64
}

// NewDocumentHandler maxUploadMB <= 0 时不限制请求大小
func NewDocumentHandler(svc *service.DocumentService, maxUploadMB int64) *DocumentHandler {
	return &DocumentHandler{svc: svc, maxBytes: maxUploadMB << 20}
}

// List GET /documents?part_id=&assembly_id=&skip=&limit=
func (h *DocumentHandler) List(c *gin.Context) {
	partID, ok := queryID(c, "part_id")
	if !ok {
		return
	}
	assemblyID, ok := queryID(c, "assembly_id")
	if !ok {
		return
	}
	params := GetListParams(c)
	items, total, err := h.svc.List(c.Request.Context(), repository.DocumentFilter{PartID: partID, AssemblyID: assemblyID}, params)
	if err != nil {
		handleError(c, err, "文档")
		return
	}
	List(c, items, params, total)
}

// Get GET /documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	d, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err, "文档")
		return
	}
	Success(c, d)
}

// Upload POST /documents (multipart)
// 字段: file_2d, file_3d, doc_type, title, assembly_id, part_id,
// file_format_2d, file_format_3d, pdf_content_type_2d, uploaded_by, change_note
func (h *DocumentHandler) Upload(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(c, 41300, fmt.Sprintf("上传文件超过 %d MB", h.maxBytes>>20))
			return
		}
		BadRequest(c, "无法解析上传文件: "+err.Error())
		return
	}
	defer form.RemoveAll()

	in := service.UploadInput{
		DocType:    c.PostForm("doc_type"),
		Title:      c.PostForm("title"),
		UploadedBy: c.PostForm("uploaded_by"),
		ChangeNote: c.PostForm("change_note"),
	}
	if in.UploadedBy == "" {
		in.UploadedBy = GetUserID(c)
	}
	if in.AssemblyID, err = formID(c, "assembly_id"); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if in.PartID, err = formID(c, "part_id"); err != nil {
		BadRequest(c, err.Error())
		return
	}

	var closers []io.Closer
	defer func() {
		for _, cl := range closers {
			cl.Close()
		}
	}()
	open := func(field, format, pdfType string) (*service.UploadFile, error) {
		headers := form.File[field]
		if len(headers) == 0 {
			return nil, nil
		}
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		closers = append(closers, f)
		return uploadFile(fh, f, format, pdfType), nil
	}
	if in.File2D, err = open("file_2d", c.PostForm("file_format_2d"), c.PostForm("pdf_content_type_2d")); err != nil {
		InternalError(c, "读取上传文件失败: "+err.Error())
		return
	}
	if in.File3D, err = open("file_3d", c.PostForm("file_format_3d"), ""); err != nil {
		InternalError(c, "读取上传文件失败: "+err.Error())
		return
	}

	docs, err := h.svc.Upload(c.Request.Context(), in)
	if err != nil {
		handleError(c, err, "归属节点")
		return
	}
	Created(c, docs)
}

func uploadFile(fh *multipart.FileHeader, r io.Reader, format, pdfType string) *service.UploadFile {
	return &service.UploadFile{
		FileName:       fh.Filename,
		Format:         format,
		Size:           fh.Size,
		Reader:         r,
		PDFContentType: pdfType,
	}
}

func formID(c *gin.Context, name string) (*uint, error) {
	raw := c.PostForm(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("无效的%s: %s", name, raw)
	}
	v := uint(id)
	return &v, nil
}

// Download GET /documents/:id/download
func (h *DocumentHandler) Download(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	doc, rc, err := h.svc.Open(c.Request.Context(), id)
	if err != nil {
		handleError(c, err, "文档")
		return
	}
	defer rc.Close()

	name := doc.FileName
	if name == "" {
		name = fmt.Sprintf("%s.%s", doc.Title, doc.FileFormat)
	}
	headers := map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": name}),
	}
	size := doc.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, service.ContentType(doc.FileFormat), rc, headers)
}

// Delete DELETE /documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), GetUserID(c), id); err != nil {
		handleError(c, err, "文档")
		return
	}
	Success(c, nil)
}
