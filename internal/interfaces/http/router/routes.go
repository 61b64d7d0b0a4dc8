package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由；limit 只作用于触发生成与渲染的端点
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers, limit gin.HandlerFunc) {
	if h.Comic != nil {
		comics := v1.Group("/comics")
		{
			comics.POST("", limit, h.Comic.CreateComic)
			comics.POST("/stream", limit, h.Comic.StreamComic) // SSE
			comics.GET("", h.Comic.ListComics)
			comics.GET("/:id", h.Comic.GetComic)
			comics.DELETE("/:id", h.Comic.DeleteComic)
			comics.POST("/:id/render", limit, h.Comic.RenderComic)
		}
	}

	if h.Prompt != nil {
		prompts := v1.Group("/prompts")
		{
			prompts.GET("/versions", h.Prompt.ListVersions)
			prompts.POST("/activate", h.Prompt.Activate)
			prompts.POST("/preview", h.Prompt.Preview)
			prompts.GET("/cache/stats", h.Prompt.CacheStats)
			prompts.POST("/cache/invalidate", h.Prompt.InvalidateCache)
		}
	}
}
