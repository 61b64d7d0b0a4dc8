package handler

import (
	"github.com/gin-gonic/gin"

	"logitoon-ai-api/internal/interfaces/http/dto"
	"logitoon-ai-api/internal/workflow/prompt"
	"logitoon-ai-api/pkg/logger"
)

// PromptHandler 提示词管理处理器
type PromptHandler struct {
	admin PromptAdmin
}

// NewPromptHandler 创建提示词管理处理器
func NewPromptHandler(admin PromptAdmin) *PromptHandler {
	return &PromptHandler{admin: admin}
}

// ListVersions 各阶段版本
// @Summary 提示词版本
// @Tags Prompts
// @Produce json
// @Router /v1/prompts/versions [get]
func (h *PromptHandler) ListVersions(c *gin.Context) {
	dto.Success(c, h.admin.Versions())
}

// Activate 切换激活版本
// @Summary 切换提示词版本
// @Tags Prompts
// @Accept json
// @Produce json
// @Param body body dto.ActivatePromptRequest true "阶段与版本"
// @Router /v1/prompts/activate [post]
func (h *PromptHandler) Activate(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ActivatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := h.admin.Activate(ctx, req.Stage, req.Version); err != nil {
		logger.Warn(ctx, "prompt activation rejected", "stage", req.Stage, "version", req.Version, "error", err.Error())
		dto.FromError(c, err)
		return
	}
	dto.Success(c, h.admin.Versions())
}

// CacheStats 提示词缓存统计
// @Summary 提示词缓存统计
// @Tags Prompts
// @Produce json
// @Router /v1/prompts/cache/stats [get]
func (h *PromptHandler) CacheStats(c *gin.Context) {
	dto.Success(c, h.admin.CacheStats())
}

// InvalidateCache 清空提示词缓存
// @Summary 清空提示词缓存
// @Tags Prompts
// @Produce json
// @Router /v1/prompts/cache/invalidate [post]
func (h *PromptHandler) InvalidateCache(c *gin.Context) {
	h.admin.InvalidateCache()
	dto.Success(c, dto.InvalidateCacheResponse{Invalidated: true})
}

// Preview 预览阶段提示词
// @Summary 预览提示词
// @Tags Prompts
// @Accept json
// @Produce json
// @Param body body dto.PreviewPromptRequest true "阶段与配置"
// @Router /v1/prompts/preview [post]
func (h *PromptHandler) Preview(c *gin.Context) {
	var req dto.PreviewPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	cfg := req.ToConfig()
	text, err := h.admin.Preview(cfg, req.Stage)
	if err != nil {
		dto.FromError(c, err)
		return
	}

	stage, _ := prompt.ParseStage(req.Stage)
	resp := dto.PreviewPromptResponse{Stage: string(stage), CacheKey: cfg.CacheKey(stage), Prompt: text}
	for _, sv := range h.admin.Versions() {
		if sv.Stage == stage {
			resp.Version = sv.Active
		}
	}
	dto.Success(c, resp)
}
