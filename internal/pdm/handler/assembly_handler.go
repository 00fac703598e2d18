package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/service"
)

// AssemblyHandler 装配体处理器
type AssemblyHandler struct {
	svc *service.AssemblyService
}

func NewAssemblyHandler(svc *service.AssemblyService) *AssemblyHandler {
	return &AssemblyHandler{svc: svc}
}

// List GET /assemblies?project_id=&skip=&limit=
func (h *AssemblyHandler) List(c *gin.Context) {
	projectID, ok := queryID(c, "project_id")
	if !ok {
		return
	}
	params := GetListParams(c)
	items, total, err := h.svc.List(c.Request.Context(), projectID, params)
	if err != nil {
		handleError(c, err, "装配体")
		return
	}
	List(c, items, params, total)
}

// Get GET /assemblies/:id
func (h *AssemblyHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err, "装配体")
		return
	}
	Success(c, a)
}

// Create POST /assemblies
func (h *AssemblyHandler) Create(c *gin.Context) {
	var in service.AssemblyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	a, err := h.svc.Create(c.Request.Context(), GetUserID(c), in)
	if err != nil {
		handleError(c, err, "装配体")
		return
	}
	Created(c, a)
}

// Update PUT /assemblies/:id
func (h *AssemblyHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.AssemblyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	a, err := h.svc.Update(c.Request.Context(), GetUserID(c), id, in)
	if err != nil {
		handleError(c, err, "装配体")
		return
	}
	Success(c, a)
}

// Delete DELETE /assemblies/:id，级联删除子装配、零件和文档
func (h *AssemblyHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ids, err := h.svc.Delete(c.Request.Context(), GetUserID(c), id)
	if err != nil {
		handleError(c, err, "装配体")
		return
	}
	Success(c, gin.H{"deleted_assembly_ids": ids})
}
