package repository

import (
	"context"
	"time"

	"github.com/stonebridge/membergate/internal/videocontent/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) List(ctx context.Context, db *gorm.DB, publishedOnly bool) ([]domain.VideoContent, error) {
	query := `SELECT id, slug, title, video_url, is_published, created_at, updated_at
		FROM video_contents`
	if publishedOnly {
		query += ` WHERE is_published = TRUE`
	}
	query += ` ORDER BY created_at ASC`

	var items []domain.VideoContent
	if err := db.WithContext(ctx).Raw(query).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.VideoContent, error) {
	var item domain.VideoContent
	err := db.WithContext(ctx).Raw(
		`SELECT id, slug, title, video_url, is_published, created_at, updated_at
		 FROM video_contents
		 WHERE slug = ?
		 LIMIT 1`,
		slug,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, content *domain.VideoContent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO video_contents (id, slug, title, video_url, is_published, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		content.ID,
		content.Slug,
		content.Title,
		content.VideoURL,
		content.IsPublished,
		content.CreatedAt,
		content.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, content *domain.VideoContent) error {
	return db.WithContext(ctx).Exec(
		`UPDATE video_contents
		 SET title = ?, video_url = ?, is_published = ?, updated_at = ?
		 WHERE slug = ?`,
		content.Title,
		content.VideoURL,
		content.IsPublished,
		time.Now().UTC(),
		content.Slug,
	).Error
}
