package dto

// ActivatePromptRequest 切换提示词版本
type ActivatePromptRequest struct {
	Stage   string `json:"stage" binding:"required"`
	Version string `json:"version" binding:"required"`
}

// PreviewPromptRequest 预览某阶段的系统提示词
type PreviewPromptRequest struct {
	Stage string `json:"stage" binding:"required"`
	ComicConfigRequest
}

// PreviewPromptResponse 提示词预览
type PreviewPromptResponse struct {
	Stage    string `json:"stage"`
	Version  string `json:"version"`
	CacheKey string `json:"cache_key"`
	Prompt   string `json:"prompt"`
}

// InvalidateCacheResponse 缓存清理结果
type InvalidateCacheResponse struct {
	Invalidated bool `json:"invalidated"`
}
