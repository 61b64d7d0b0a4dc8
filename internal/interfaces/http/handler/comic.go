package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"logitoon-ai-api/internal/application/comic"
	"logitoon-ai-api/internal/domain/repository"
	"logitoon-ai-api/internal/interfaces/http/dto"
	"logitoon-ai-api/internal/interfaces/http/middleware"
	"logitoon-ai-api/internal/workflow/model"
	apperrors "logitoon-ai-api/pkg/errors"
	"logitoon-ai-api/pkg/logger"
)

// ComicHandler 漫画处理器
type ComicHandler struct {
	svc ComicService
}

// NewComicHandler 创建漫画处理器
func NewComicHandler(svc ComicService) *ComicHandler {
	return &ComicHandler{svc: svc}
}

// CreateComic 生成漫画
// @Summary 生成漫画
// @Description 按主题与配置运行逻辑、故事、视觉阶段并保存漫画
// @Tags Comics
// @Accept json
// @Produce json
// @Param body body dto.GenerateComicRequest true "生成参数"
// @Success 201 {object} dto.Response[dto.ComicResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /v1/comics [post]
func (h *ComicHandler) CreateComic(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateComicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Generate(ctx, comic.GenerateInput{
		Topic:     req.Topic,
		Config:    req.ToConfig(),
		RequestID: middleware.GetRequestID(c),
		Progress: func(stage, message string) {
			logger.Info(ctx, "pipeline progress", "stage", stage, "message", message)
		},
	})
	if err != nil {
		logger.Error(ctx, "failed to generate comic", err)
		dto.FromError(c, err)
		return
	}

	resp := dto.ToComicResponse(res.Comic)
	resp.Cached = res.Cached
	dto.Created(c, resp)
}

type streamResult struct {
	res *comic.GenerateResult
	err error
}

// StreamComic 以 SSE 推送阶段进度，最后推送漫画或错误
// @Summary 流式生成漫画
// @Tags Comics
// @Accept json
// @Produce text/event-stream
// @Param body body dto.GenerateComicRequest true "生成参数"
// @Success 200 "SSE stream"
// @Router /v1/comics/stream [post]
func (h *ComicHandler) StreamComic(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateComicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	progressCh := make(chan gin.H, 8)
	doneCh := make(chan streamResult, 1)
	go func() {
		defer close(progressCh)
		res, err := h.svc.Generate(ctx, comic.GenerateInput{
			Topic:     req.Topic,
			Config:    req.ToConfig(),
			RequestID: middleware.GetRequestID(c),
			Progress: func(stage, message string) {
				select {
				case progressCh <- gin.H{"stage": stage, "message": message}:
				case <-ctx.Done():
				}
			},
		})
		doneCh <- streamResult{res: res, err: err}
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-progressCh:
			if ok {
				c.SSEvent("progress", ev)
				return true
			}
			out := <-doneCh
			if out.err != nil {
				logger.Error(ctx, "failed to generate comic", out.err)
				appErr := apperrors.AsAppError(out.err)
				c.SSEvent("error", gin.H{
					"error_code": appErr.Code,
					"message":    apperrors.UserMessage(out.err),
				})
				return false
			}
			resp := dto.ToComicResponse(out.res.Comic)
			resp.Cached = out.res.Cached
			c.SSEvent("comic", resp)
			return false
		case <-ctx.Done():
			return false
		}
	})
}

// ListComics 漫画列表
// @Summary 漫画列表
// @Tags Comics
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Param age_group query string false "年龄段"
// @Param style query string false "画风"
// @Param language query string false "语言"
// @Success 200 {object} dto.Response[dto.ComicListResponse]
// @Router /v1/comics [get]
func (h *ComicHandler) ListComics(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	var q dto.ListComicsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		dto.BadRequest(c, "invalid query: "+err.Error())
		return
	}

	result, err := h.svc.List(ctx, q.ToFilter(), repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list comics", err)
		dto.FromError(c, err)
		return
	}

	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, dto.ToComicListResponse(result.Items), meta)
}

// GetComic 漫画详情
// @Summary 漫画详情
// @Tags Comics
// @Produce json
// @Param id path string true "漫画 ID"
// @Success 200 {object} dto.Response[dto.ComicResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/comics/{id} [get]
func (h *ComicHandler) GetComic(c *gin.Context) {
	ctx := c.Request.Context()

	cm, err := h.svc.Get(ctx, dto.BindComicID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToComicResponse(cm))
}

// DeleteComic 删除漫画
// @Summary 删除漫画
// @Tags Comics
// @Param id path string true "漫画 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/comics/{id} [delete]
func (h *ComicHandler) DeleteComic(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.svc.Delete(ctx, dto.BindComicID(c)); err != nil {
		dto.FromError(c, err)
		return
	}
	dto.NoContent(c)
}

// RenderComic 重新渲染漫画面板
// @Summary 渲染面板
// @Tags Comics
// @Accept json
// @Produce json
// @Param id path string true "漫画 ID"
// @Param body body dto.RenderComicRequest false "面板"
// @Success 202 {object} dto.Response[dto.RenderAcceptedResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/comics/{id}/render [post]
func (h *ComicHandler) RenderComic(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RenderComicRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	cm, err := h.svc.Render(ctx, dto.BindComicID(c), req.PanelIDs, middleware.GetRequestID(c))
	if err != nil {
		logger.Error(ctx, "failed to start render", err)
		dto.FromError(c, err)
		return
	}

	resp := &dto.RenderAcceptedResponse{
		ComicID:      cm.ID,
		PanelIDs:     req.PanelIDs,
		RenderStatus: string(cm.RenderStatus),
	}
	if cm.RenderStatus == model.RenderDone || cm.RenderStatus == model.RenderPartial {
		dto.Success(c, resp)
		return
	}
	dto.Accepted(c, resp)
}
