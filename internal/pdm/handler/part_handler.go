package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/repository"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/service"
)

// PartHandler 零件处理器
type PartHandler struct {
	svc *service.PartService
}

func NewPartHandler(svc *service.PartService) *PartHandler {
	return &PartHandler{svc: svc}
}

// List GET /parts?project_id=&assembly_id=&direct=&skip=&limit=
func (h *PartHandler) List(c *gin.Context) {
	projectID, ok := queryID(c, "project_id")
	if !ok {
		return
	}
	assemblyID, ok := queryID(c, "assembly_id")
	if !ok {
		return
	}
	direct, _ := strconv.ParseBool(c.Query("direct"))

	params := GetListParams(c)
	f := repository.PartFilter{ProjectID: projectID, AssemblyID: assemblyID, Direct: direct}
	items, total, err := h.svc.List(c.Request.Context(), f, params)
	if err != nil {
		handleError(c, err, "零件")
		return
	}
	List(c, items, params, total)
}

// Get GET /parts/:id
func (h *PartHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err, "零件")
		return
	}
	Success(c, p)
}

// Create POST /parts
func (h *PartHandler) Create(c *gin.Context) {
	var in service.PartInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	p, err := h.svc.Create(c.Request.Context(), GetUserID(c), in)
	if err != nil {
		handleError(c, err, "零件")
		return
	}
	Created(c, p)
}

// Update PUT /parts/:id
func (h *PartHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.PartInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	p, err := h.svc.Update(c.Request.Context(), GetUserID(c), id, in)
	if err != nil {
		handleError(c, err, "零件")
		return
	}
	Success(c, p)
}

// Delete DELETE /parts/:id
func (h *PartHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), GetUserID(c), id); err != nil {
		handleError(c, err, "零件")
		return
	}
	Success(c, nil)
}
