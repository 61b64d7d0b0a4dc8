package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logitoon-ai-api/internal/application/comic"
	"logitoon-ai-api/internal/domain/repository"
	"logitoon-ai-api/internal/workflow/model"
	"logitoon-ai-api/internal/workflow/prompt"
	apperrors "logitoon-ai-api/pkg/errors"
)

type fakeComicService struct {
	generateErr error
	comics      map[string]*model.Comic
	lastInput   comic.GenerateInput
	renderCalls [][]int
}

func newFakeComicService() *fakeComicService {
	return &fakeComicService{comics: map[string]*model.Comic{
		"c1": {ID: "c1", Topic: "rain", RenderStatus: model.RenderDone, CreatedAt: time.Unix(0, 0).UTC()},
	}}
}

func (f *fakeComicService) Generate(_ context.Context, in comic.GenerateInput) (*comic.GenerateResult, error) {
	f.lastInput = in
	if in.Progress != nil {
		in.Progress("logic", "Thinking...")
		in.Progress("story", "Writing...")
	}
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return &comic.GenerateResult{Comic: &model.Comic{ID: "new", Topic: in.Topic, RenderStatus: model.RenderPending}}, nil
}

func (f *fakeComicService) Get(_ context.Context, id string) (*model.Comic, error) {
	c, ok := f.comics[id]
	if !ok {
		return nil, apperrors.ErrComicNotFound
	}
	return c, nil
}

func (f *fakeComicService) List(_ context.Context, _ repository.ComicFilter, page repository.Pagination) (*repository.PagedResult[*model.Comic], error) {
	items := make([]*model.Comic, 0, len(f.comics))
	for _, c := range f.comics {
		items = append(items, c)
	}
	return repository.NewPagedResult(items, int64(len(items)), page), nil
}

func (f *fakeComicService) Delete(_ context.Context, id string) error {
	if _, ok := f.comics[id]; !ok {
		return apperrors.ErrComicNotFound
	}
	delete(f.comics, id)
	return nil
}

func (f *fakeComicService) Render(_ context.Context, id string, panelIDs []int, _ string) (*model.Comic, error) {
	if _, ok := f.comics[id]; !ok {
		return nil, apperrors.ErrComicNotFound
	}
	f.renderCalls = append(f.renderCalls, panelIDs)
	return &model.Comic{ID: id, RenderStatus: model.RenderPending}, nil
}

type fakePromptAdmin struct {
	activated []string
	cleared   bool
}

func (f *fakePromptAdmin) Versions() []comic.StageVersions {
	return []comic.StageVersions{{Stage: prompt.StageLogic, Active: "v3.0"}}
}

func (f *fakePromptAdmin) Activate(_ context.Context, stage, version string) error {
	if stage == "nope" {
		return apperrors.ErrUnknownStage
	}
	f.activated = append(f.activated, stage+"@"+version)
	return nil
}

func (f *fakePromptAdmin) CacheStats() prompt.CacheStats { return prompt.CacheStats{} }

func (f *fakePromptAdmin) InvalidateCache() { f.cleared = true }

func (f *fakePromptAdmin) Preview(_ prompt.Config, stage string) (string, error) {
	if _, err := prompt.ParseStage(stage); err != nil {
		return "", err
	}
	return "system prompt", nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine(svc ComicService, admin PromptAdmin) *gin.Engine {
	r := gin.New()
	ch := NewComicHandler(svc)
	r.POST("/v1/comics", ch.CreateComic)
	r.POST("/v1/comics/stream", ch.StreamComic)
	r.GET("/v1/comics", ch.ListComics)
	r.GET("/v1/comics/:id", ch.GetComic)
	r.DELETE("/v1/comics/:id", ch.DeleteComic)
	r.POST("/v1/comics/:id/render", ch.RenderComic)

	ph := NewPromptHandler(admin)
	r.GET("/v1/prompts/versions", ph.ListVersions)
	r.POST("/v1/prompts/activate", ph.Activate)
	r.POST("/v1/prompts/preview", ph.Preview)
	r.POST("/v1/prompts/cache/invalidate", ph.InvalidateCache)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	w := newCloseNotifyingRecorder()
	r.ServeHTTP(w, req)
	return w.ResponseRecorder
}

// closeNotifyingRecorder 让 c.Stream 可以在测试中运行
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyingRecorder() *closeNotifyingRecorder {
	return &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool {
	return r.closed
}

const validBody = `{"topic":" why is the sky blue ","age_group":"toddler","tone":"gentle","character_type":"animal","style_id":"watercolor"}`

func TestCreateComic(t *testing.T) {
	svc := newFakeComicService()
	r := newTestEngine(svc, &fakePromptAdmin{})

	w := do(r, http.MethodPost, "/v1/comics", validBody)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data struct {
			ID           string `json:"id"`
			RenderStatus string `json:"render_status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "new", resp.Data.ID)
	assert.Equal(t, "pending", resp.Data.RenderStatus)
	assert.Equal(t, "watercolor", string(svc.lastInput.Config.Style))
	assert.Equal(t, "toddler", string(svc.lastInput.Config.AgeGroup))
	assert.Equal(t, "gentle", string(svc.lastInput.Config.Tone))
}

func TestCreateComic_MissingFields(t *testing.T) {
	r := newTestEngine(newFakeComicService(), &fakePromptAdmin{})
	w := do(r, http.MethodPost, "/v1/comics", `{"topic":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateComic_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"generation failed", apperrors.ErrGenerationFailed.WithDetail("story: empty"), http.StatusUnprocessableEntity, apperrors.UserMessageGeneric},
		{"rate limited", apperrors.ErrRateLimited, http.StatusTooManyRequests, apperrors.UserMessageRateLimited},
		{"internal", errors.New("boom"), http.StatusInternalServerError, apperrors.UserMessageGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeComicService()
			svc.generateErr = tt.err
			r := newTestEngine(svc, &fakePromptAdmin{})

			w := do(r, http.MethodPost, "/v1/comics", validBody)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
			assert.NotContains(t, w.Body.String(), "boom")
		})
	}
}

func TestStreamComic(t *testing.T) {
	r := newTestEngine(newFakeComicService(), &fakePromptAdmin{})
	w := do(r, http.MethodPost, "/v1/comics/stream", validBody)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event:progress"))
	assert.Contains(t, body, "event:comic")
	assert.Less(t, strings.Index(body, "Thinking"), strings.Index(body, "event:comic"))
}

func TestStreamComic_Error(t *testing.T) {
	svc := newFakeComicService()
	svc.generateErr = apperrors.ErrGenerationFailed
	r := newTestEngine(svc, &fakePromptAdmin{})
	w := do(r, http.MethodPost, "/v1/comics/stream", validBody)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event:progress"))
	assert.Contains(t, body, "event:error")
	assert.Contains(t, body, apperrors.UserMessageGeneric)
	assert.NotContains(t, body, "event:comic")
}

func TestComicCRUD(t *testing.T) {
	svc := newFakeComicService()
	r := newTestEngine(svc, &fakePromptAdmin{})

	w := do(r, http.MethodGet, "/v1/comics/c1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"created_at":"1970-01-01T00:00:00Z"`)

	w = do(r, http.MethodGet, "/v1/comics/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/v1/comics?page=1&page_size=10", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = do(r, http.MethodPost, "/v1/comics/c1/render", `{"panel_ids":[2,3]}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, [][]int{{2, 3}}, svc.renderCalls)

	w = do(r, http.MethodDelete, "/v1/comics/c1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodDelete, "/v1/comics/c1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPromptHandler(t *testing.T) {
	admin := &fakePromptAdmin{}
	r := newTestEngine(newFakeComicService(), admin)

	w := do(r, http.MethodGet, "/v1/prompts/versions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "v3.0")

	w = do(r, http.MethodPost, "/v1/prompts/activate", `{"stage":"story","version":"v2.0"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"story@v2.0"}, admin.activated)

	w = do(r, http.MethodPost, "/v1/prompts/activate", `{"stage":"nope","version":"v1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/v1/prompts/preview",
		`{"stage":"logic","age_group":"toddler","tone":"gentle","character_type":"animal","style_id":"watercolor"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "system prompt")
	assert.Contains(t, w.Body.String(), `"version":"v3.0"`)

	w = do(r, http.MethodPost, "/v1/prompts/cache/invalidate", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, admin.cleared)
}

type checker struct{ err error }

func (c checker) HealthCheck(context.Context) error { return c.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		required map[string]repository.HealthChecker
		optional map[string]repository.HealthChecker
		status   int
		want     string
	}{
		{"all ok", map[string]repository.HealthChecker{"postgres": checker{}}, nil, http.StatusOK, `"status":"ok"`},
		{"required down", map[string]repository.HealthChecker{"redis": checker{errors.New("dial")}}, nil, http.StatusServiceUnavailable, "not_ready"},
		{"optional down", map[string]repository.HealthChecker{"postgres": checker{}}, map[string]repository.HealthChecker{"s3": checker{errors.New("dial")}}, http.StatusOK, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("test", tt.required, tt.optional)
			r := gin.New()
			r.GET("/ready", h.Ready)
			w := do(r, http.MethodGet, "/ready", "")
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}
