package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-pdm/internal/config"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/repository"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/service"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/sse"
)

// 列表分页默认值
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Handlers 处理器集合
type Handlers struct {
	Project    *ProjectHandler
	Assembly   *AssemblyHandler
	Part       *PartHandler
	Document   *DocumentHandler
	Tree       *TreeHandler
	Preference *PreferenceHandler
	SSE        *SSEHandler
	Health     *HealthHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub, health *HealthHandler, cfg *config.Config) *Handlers {
	return &Handlers{
		Project:    NewProjectHandler(svc.Project),
		Assembly:   NewAssemblyHandler(svc.Assembly),
		Part:       NewPartHandler(svc.Part),
		Document:   NewDocumentHandler(svc.Document, cfg.Tree.MaxUploadMB),
		Tree:       NewTreeHandler(svc.Tree, svc.Export),
		Preference: NewPreferenceHandler(svc.Preference),
		SSE:        NewSSEHandler(hub),
		Health:     health,
	}
}

// Response 通用响应结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      any         `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data any) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// List 列表响应
func List(c *gin.Context, items any, params repository.ListParams, total int64) {
	Success(c, ListResponse{
		Items:      items,
		Pagination: &Pagination{Skip: params.Skip, Limit: params.Limit, Total: int(total)},
	})
}

// Error 错误响应，HTTP 状态码取业务码前三位
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// Unavailable 依赖服务不可用
func Unavailable(c *gin.Context, message string) {
	Error(c, 50300, message)
}

// handleError 按错误类型返回响应
func handleError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, what+"不存在")
	case errors.Is(err, service.ErrInvalid):
		BadRequest(c, err.Error())
	case errors.Is(err, repository.ErrUnavailable):
		_ = c.Error(err)
		Unavailable(c, err.Error())
	default:
		_ = c.Error(err)
		InternalError(c, err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetListParams 从请求获取 skip/limit
func GetListParams(c *gin.Context) repository.ListParams {
	params := repository.ListParams{Limit: DefaultLimit}
	if s := c.Query("skip"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			params.Skip = v
		}
	}
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			params.Limit = min(v, MaxLimit)
		}
	}
	return params
}

// parseID 解析路径参数中的ID
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || id == 0 {
		BadRequest(c, "无效的ID: "+c.Param(name))
		return 0, false
	}
	return uint(id), true
}

// queryID 解析可选的查询参数ID，缺省为0
func queryID(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil {
		BadRequest(c, "无效的"+name+": "+raw)
		return 0, false
	}
	return uint(id), true
}
