package handler

import (
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/service"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

// TreeHandler 项目结构树、搜索、导出和节点文档
type TreeHandler struct {
	svc    *service.TreeService
	export *service.ExportService
}

func NewTreeHandler(svc *service.TreeService, export *service.ExportService) *TreeHandler {
	return &TreeHandler{svc: svc, export: export}
}

// Tree GET /projects/:id/tree
func (h *TreeHandler) Tree(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	pt, err := h.svc.Tree(c.Request.Context(), id)
	if err != nil {
		handleError(c, err, "项目")
		return
	}
	Success(c, pt)
}

// Search GET /projects/:id/tree/search?q=
func (h *TreeHandler) Search(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	pt, err := h.svc.Search(c.Request.Context(), id, c.Query("q"))
	if err != nil {
		handleError(c, err, "项目")
		return
	}
	Success(c, pt)
}

// Export GET /projects/:id/export
func (h *TreeHandler) Export(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	f, filename, err := h.export.ExportProject(c.Request.Context(), id)
	if err != nil {
		handleError(c, err, "项目")
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// NodeDocuments GET /nodes/:kind/:id/documents
func (h *TreeHandler) NodeDocuments(c *gin.Context) {
	kind := tree.Kind(c.Param("kind"))
	if !kind.Valid() {
		BadRequest(c, "无效的节点类型: "+string(kind))
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	nd, err := h.svc.NodeDocuments(c.Request.Context(), tree.Ref{Kind: kind, ID: id})
	if err != nil {
		handleError(c, err, "节点")
		return
	}
	Success(c, nd)
}
