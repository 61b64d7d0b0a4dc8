package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"logitoon-ai-api/internal/domain/repository"
	"logitoon-ai-api/internal/workflow/catalog"
	"logitoon-ai-api/internal/workflow/model"
	apperrors "logitoon-ai-api/pkg/errors"
)

var _ repository.ComicRepository = (*ComicRepository)(nil)

// comicRecord comics 表
type comicRecord struct {
	ID                  string             `gorm:"primaryKey;type:uuid"`
	Topic               string             `gorm:"type:text;not null"`
	Title               string             `gorm:"type:varchar(200);not null"`
	TopicSummary        string             `gorm:"type:text"`
	TargetAge           string             `gorm:"type:varchar(32);index"`
	Tone                string             `gorm:"type:varchar(32)"`
	Character           string             `gorm:"type:varchar(32)"`
	Style               string             `gorm:"type:varchar(32);index"`
	Language            string             `gorm:"type:varchar(8);index"`
	StylePreset         string             `gorm:"type:varchar(64)"`
	CharacterAnchor     string             `gorm:"type:text"`
	Setting             string             `gorm:"type:text"`
	ColorPalette        string             `gorm:"type:text"`
	MainCharacterPrompt string             `gorm:"type:text"`
	ForbiddenWords      pq.StringArray     `gorm:"type:text[]"`
	Warnings            pq.StringArray     `gorm:"type:text[]"`
	Panels              []model.ComicPanel `gorm:"type:jsonb;serializer:json"`
	EducationalSummary  string             `gorm:"type:text"`
	RenderStatus        string             `gorm:"type:varchar(16);index"`
	CreatedAt           time.Time          `gorm:"index"`
	UpdatedAt           time.Time
}

func (comicRecord) TableName() string { return "comics" }

func toRecord(c *model.Comic) *comicRecord {
	return &comicRecord{
		ID:                  c.ID,
		Topic:               c.Topic,
		Title:               c.Title,
		TopicSummary:        c.TopicSummary,
		TargetAge:           string(c.TargetAge),
		Tone:                string(c.Tone),
		Character:           string(c.Character),
		Style:               string(c.Style),
		Language:            c.Language,
		StylePreset:         c.StylePreset,
		CharacterAnchor:     c.CharacterAnchor,
		Setting:             c.Setting,
		ColorPalette:        c.ColorPalette,
		MainCharacterPrompt: c.MainCharacterPrompt,
		ForbiddenWords:      pq.StringArray(c.ForbiddenWords),
		Warnings:            pq.StringArray(c.Warnings),
		Panels:              c.Panels,
		EducationalSummary:  c.EducationalSummary,
		RenderStatus:        string(c.RenderStatus),
		CreatedAt:           c.CreatedAt,
	}
}

func (r *comicRecord) toModel() *model.Comic {
	return &model.Comic{
		ID:                  r.ID,
		Topic:               r.Topic,
		Title:               r.Title,
		TopicSummary:        r.TopicSummary,
		TargetAge:           catalog.AgeGroup(r.TargetAge),
		Tone:                catalog.Tone(r.Tone),
		Character:           catalog.CharacterType(r.Character),
		Style:               catalog.StyleKey(r.Style),
		Language:            r.Language,
		StylePreset:         r.StylePreset,
		CharacterAnchor:     r.CharacterAnchor,
		Setting:             r.Setting,
		ColorPalette:        r.ColorPalette,
		MainCharacterPrompt: r.MainCharacterPrompt,
		ForbiddenWords:      []string(r.ForbiddenWords),
		Warnings:            []string(r.Warnings),
		Panels:              r.Panels,
		EducationalSummary:  r.EducationalSummary,
		RenderStatus:        model.RenderStatus(r.RenderStatus),
		CreatedAt:           r.CreatedAt,
	}
}

// ComicRepository 漫画库仓储实现
type ComicRepository struct {
	client *Client
}

// NewComicRepository 创建漫画仓储
func NewComicRepository(client *Client) *ComicRepository {
	return &ComicRepository{client: client}
}

// Save 按 ID 插入或整体覆盖
func (r *ComicRepository) Save(ctx context.Context, comic *model.Comic) error {
	ctx, span := tracer.Start(ctx, "postgres.ComicRepository.Save")
	defer span.End()
	span.SetAttributes(attribute.String("comic.id", comic.ID))

	rec := toRecord(comic)
	err := r.client.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(rec).Error
	if err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save comic")
	}
	return nil
}

// Get 根据 ID 获取漫画，不存在时返回 ErrComicNotFound
func (r *ComicRepository) Get(ctx context.Context, id string) (*model.Comic, error) {
	ctx, span := tracer.Start(ctx, "postgres.ComicRepository.Get")
	defer span.End()

	var rec comicRecord
	if err := r.client.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrComicNotFound.WithDetail(id)
		}
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get comic")
	}
	return rec.toModel(), nil
}

// List 按创建时间倒序分页
func (r *ComicRepository) List(ctx context.Context, filter repository.ComicFilter, pagination repository.Pagination) (*repository.PagedResult[*model.Comic], error) {
	ctx, span := tracer.Start(ctx, "postgres.ComicRepository.List")
	defer span.End()

	q := r.client.db.WithContext(ctx).Model(&comicRecord{})
	if filter.AgeGroup != "" {
		q = q.Where("target_age = ?", string(filter.AgeGroup))
	}
	if filter.Style != "" {
		q = q.Where("style = ?", string(filter.Style))
	}
	if filter.Language != "" {
		q = q.Where("language = ?", filter.Language)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to count comics")
	}

	var recs []comicRecord
	err := q.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&recs).Error
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list comics")
	}

	items := make([]*model.Comic, 0, len(recs))
	for i := range recs {
		items = append(items, recs[i].toModel())
	}
	return repository.NewPagedResult(items, total, pagination), nil
}

// Delete 删除漫画
func (r *ComicRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ComicRepository.Delete")
	defer span.End()

	res := r.client.db.WithContext(ctx).Delete(&comicRecord{}, "id = ?", id)
	if res.Error != nil {
		span.RecordError(res.Error)
		return apperrors.Wrap(res.Error, apperrors.CodeDatabaseError, "failed to delete comic")
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrComicNotFound.WithDetail(id)
	}
	return nil
}

// UpdatePanelImages 在行锁内合并各格图片键
func (r *ComicRepository) UpdatePanelImages(ctx context.Context, id string, imageKeys map[int]string, status model.RenderStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.ComicRepository.UpdatePanelImages")
	defer span.End()
	span.SetAttributes(attribute.String("comic.id", id), attribute.Int("comic.images", len(imageKeys)))

	err := r.client.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec comicRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", id).Error; err != nil {
			return err
		}
		rec.Panels = applyImageKeys(rec.Panels, imageKeys)
		rec.RenderStatus = string(status)
		return tx.Model(&rec).Select("Panels", "RenderStatus").Updates(&rec).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrComicNotFound.WithDetail(id)
	}
	if err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to update panel images")
	}
	return nil
}

// UpdateRenderStatus 只更新渲染状态
func (r *ComicRepository) UpdateRenderStatus(ctx context.Context, id string, status model.RenderStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.ComicRepository.UpdateRenderStatus")
	defer span.End()

	res := r.client.db.WithContext(ctx).Model(&comicRecord{}).Where("id = ?", id).Update("render_status", string(status))
	if res.Error != nil {
		span.RecordError(res.Error)
		return apperrors.Wrap(res.Error, apperrors.CodeDatabaseError, fmt.Sprintf("failed to update render status of %s", id))
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrComicNotFound.WithDetail(id)
	}
	return nil
}

func applyImageKeys(panels []model.ComicPanel, imageKeys map[int]string) []model.ComicPanel {
	out := make([]model.ComicPanel, len(panels))
	copy(out, panels)
	for i := range out {
		if key, ok := imageKeys[out[i].PanelID]; ok {
			out[i].ImageKey = key
			out[i].ImageURL = ""
		}
	}
	return out
}
