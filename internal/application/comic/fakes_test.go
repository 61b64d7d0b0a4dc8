package comic

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"logitoon-ai-api/internal/domain/repository"
	"logitoon-ai-api/internal/infrastructure/messaging"
	"logitoon-ai-api/internal/infrastructure/render"
	"logitoon-ai-api/internal/workflow/model"
	apperrors "logitoon-ai-api/pkg/errors"
)

type memRepo struct {
	mu     sync.Mutex
	comics map[string]*model.Comic
	saves  int
}

func newMemRepo() *memRepo { return &memRepo{comics: map[string]*model.Comic{}} }

func cloneComic(c *model.Comic) *model.Comic {
	return c.Clone()
}

func (r *memRepo) Save(_ context.Context, c *model.Comic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.comics[c.ID] = cloneComic(c)
	return nil
}

func (r *memRepo) Get(_ context.Context, id string) (*model.Comic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comics[id]
	if !ok {
		return nil, apperrors.ErrComicNotFound.WithDetail(id)
	}
	return cloneComic(c), nil
}

func (r *memRepo) List(_ context.Context, _ repository.ComicFilter, p repository.Pagination) (*repository.PagedResult[*model.Comic], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*model.Comic, 0, len(r.comics))
	for _, c := range r.comics {
		items = append(items, cloneComic(c))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comics[id]; !ok {
		return apperrors.ErrComicNotFound.WithDetail(id)
	}
	delete(r.comics, id)
	return nil
}

func (r *memRepo) UpdatePanelImages(_ context.Context, id string, keys map[int]string, status model.RenderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comics[id]
	if !ok {
		return apperrors.ErrComicNotFound.WithDetail(id)
	}
	for i := range c.Panels {
		if k, ok := keys[c.Panels[i].PanelID]; ok {
			c.Panels[i].ImageKey = k
		}
	}
	c.RenderStatus = status
	return nil
}

func (r *memRepo) UpdateRenderStatus(_ context.Context, id string, status model.RenderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comics[id]
	if !ok {
		return apperrors.ErrComicNotFound.WithDetail(id)
	}
	c.RenderStatus = status
	return nil
}

type memCache struct {
	mu          sync.Mutex
	group       singleflight.Group
	items       map[string]*model.Comic
	invalidated int
}

func newMemCache() *memCache { return &memCache{items: map[string]*model.Comic{}} }

func (c *memCache) lookup(key string) (*model.Comic, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hit, ok := c.items[key]
	if !ok {
		return nil, false
	}
	return hit.Clone(), true
}

func (c *memCache) GetOrGenerate(ctx context.Context, key string, generate func(context.Context) (*model.Comic, error)) (*model.Comic, bool, error) {
	if hit, ok := c.lookup(key); ok {
		return hit, true, nil
	}
	generated := false
	v, err, _ := c.group.Do(key, func() (any, error) {
		if hit, ok := c.lookup(key); ok {
			return hit, nil
		}
		comic, err := generate(ctx)
		if err != nil {
			return nil, err
		}
		generated = true
		c.mu.Lock()
		c.items[key] = comic.Clone()
		c.mu.Unlock()
		return comic, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*model.Comic).Clone(), !generated, nil
}

func (c *memCache) InvalidateAll(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.items)
	c.items = map[string]*model.Comic{}
	c.invalidated += n
	return n, nil
}

type memQueue struct {
	mu   sync.Mutex
	jobs []*messaging.RenderJobMessage
	err  error
}

func (q *memQueue) PublishRenderJob(_ context.Context, job *messaging.RenderJobMessage) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.jobs = append(q.jobs, job)
	return "1-0", nil
}

type fakeRenderer struct {
	mu      sync.Mutex
	failOn  string
	prompts []string
}

func (r *fakeRenderer) Render(_ context.Context, prompt string) (*render.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	if r.failOn != "" && strings.Contains(prompt, r.failOn) {
		return nil, errors.New("blocked")
	}
	return &render.Image{Data: []byte("png"), MIMEType: "image/png"}, nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStore) PresignGet(_ context.Context, key string) (string, error) {
	return "https://cdn.test/" + key + "?sig=1", nil
}

func (s *memStore) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, prefix)
	return nil
}
