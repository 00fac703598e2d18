package handler

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册 /api/v1 路由，auth 为 JWT 中间件，deleteGuard 作用于删除项目
func RegisterRoutes(r *gin.Engine, h *Handlers, auth gin.HandlerFunc, deleteGuard ...gin.HandlerFunc) {
	if h.Health != nil {
		r.GET("/health/live", h.Health.Live)
		r.GET("/health/ready", h.Health.Ready)
		r.GET("/version", h.Health.Version)
	}

	api := r.Group("/api/v1", auth)
	{
		projects := api.Group("/projects")
		projects.GET("", h.Project.List)
		projects.POST("", h.Project.Create)
		projects.GET("/:id", h.Project.Get)
		projects.PUT("/:id", h.Project.Update)
		projects.DELETE("/:id", append(deleteGuard, h.Project.Delete)...)
		projects.GET("/:id/tree", h.Tree.Tree)
		projects.GET("/:id/tree/search", h.Tree.Search)
		projects.GET("/:id/export", h.Tree.Export)

		assemblies := api.Group("/assemblies")
		assemblies.GET("", h.Assembly.List)
		assemblies.POST("", h.Assembly.Create)
		assemblies.GET("/:id", h.Assembly.Get)
		assemblies.PUT("/:id", h.Assembly.Update)
		assemblies.DELETE("/:id", h.Assembly.Delete)

		parts := api.Group("/parts")
		parts.GET("", h.Part.List)
		parts.POST("", h.Part.Create)
		parts.GET("/:id", h.Part.Get)
		parts.PUT("/:id", h.Part.Update)
		parts.DELETE("/:id", h.Part.Delete)

		documents := api.Group("/documents")
		documents.GET("", h.Document.List)
		documents.POST("", h.Document.Upload)
		documents.GET("/:id", h.Document.Get)
		documents.DELETE("/:id", h.Document.Delete)
		documents.GET("/:id/download", h.Document.Download)

		api.GET("/nodes/:kind/:id/documents", h.Tree.NodeDocuments)

		prefs := api.Group("/preferences")
		prefs.GET("/selected-project", h.Preference.GetSelectedProject)
		prefs.PUT("/selected-project", h.Preference.SetSelectedProject)
		prefs.DELETE("/selected-project", h.Preference.ClearSelectedProject)

		api.GET("/sse/events", h.SSE.Stream)
	}
}
