package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/service"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	svc *service.ProjectService
}

func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// List GET /projects?q=&skip=&limit=
func (h *ProjectHandler) List(c *gin.Context) {
	params := GetListParams(c)
	items, total, err := h.svc.List(c.Request.Context(), c.Query("q"), params)
	if err != nil {
		handleError(c, err, "项目")
		return
	}
	List(c, items, params, total)
}

// Get GET /projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err, "项目")
		return
	}
	Success(c, p)
}

// Create POST /projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var in service.ProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	p, err := h.svc.Create(c.Request.Context(), GetUserID(c), in)
	if err != nil {
		handleError(c, err, "项目")
		return
	}
	Created(c, p)
}

// Update PUT /projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.ProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	p, err := h.svc.Update(c.Request.Context(), GetUserID(c), id, in)
	if err != nil {
		handleError(c, err, "项目")
		return
	}
	Success(c, p)
}

// Delete DELETE /projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), GetUserID(c), id); err != nil {
		handleError(c, err, "项目")
		return
	}
	Success(c, nil)
}
