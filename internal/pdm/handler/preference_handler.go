package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/service"
)

// PreferenceHandler 用户偏好处理器
type PreferenceHandler struct {
	svc *service.PreferenceService
}

func NewPreferenceHandler(svc *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{svc: svc}
}

type selectedProject struct {
	ProjectID *uint `json:"project_id"`
}

// GetSelectedProject GET /preferences/selected-project
func (h *PreferenceHandler) GetSelectedProject(c *gin.Context) {
	id, err := h.svc.SelectedProject(c.Request.Context(), GetUserID(c))
	if err != nil {
		handleError(c, err, "项目")
		return
	}
	Success(c, selectedProject{ProjectID: id})
}

// SetSelectedProject PUT /preferences/selected-project
func (h *PreferenceHandler) SetSelectedProject(c *gin.Context) {
	var req selectedProject
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if req.ProjectID == nil || *req.ProjectID == 0 {
		BadRequest(c, "project_id 不能为空")
		return
	}
	if err := h.svc.SelectProject(c.Request.Context(), GetUserID(c), *req.ProjectID); err != nil {
		handleError(c, err, "项目")
		return
	}
	Success(c, req)
}

// ClearSelectedProject DELETE /preferences/selected-project
func (h *PreferenceHandler) ClearSelectedProject(c *gin.Context) {
	if err := h.svc.ClearSelectedProject(c.Request.Context(), GetUserID(c)); err != nil {
		handleError(c, err, "项目")
		return
	}
	Success(c, selectedProject{})
}
