package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stonebridge/membergate/internal/videocontent/domain"
	"github.com/stonebridge/membergate/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("videocontent.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) List(ctx context.Context, publishedOnly bool) ([]domain.VideoContent, error) {
	return s.repo.List(ctx, s.db, publishedOnly)
}

func (s *Service) Upsert(ctx context.Context, input domain.UpsertInput) (*domain.VideoContent, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" {
		return nil, domain.ErrInvalidSlug
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	videoURL := strings.TrimSpace(input.VideoURL)
	parsed, err := url.Parse(videoURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, domain.ErrInvalidURL
	}

	existing, err := s.repo.FindBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if existing == nil {
		content := &domain.VideoContent{
			ID:          s.genID.Generate(),
			Slug:        slug,
			Title:       title,
			VideoURL:    videoURL,
			IsPublished: input.IsPublished,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err := s.repo.Insert(ctx, s.db, content)
		if err == nil {
			s.log.Info("video content created", zap.String("slug", slug))
			return content, nil
		}
		// A concurrent writer won the find/insert race; fall through to
		// the update path.
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		existing, err = s.repo.FindBySlug(ctx, s.db, slug)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, gorm.ErrRecordNotFound
		}
	}

	existing.Title = title
	existing.VideoURL = videoURL
	existing.IsPublished = input.IsPublished
	existing.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, existing); err != nil {
		return nil, err
	}
	s.log.Info("video content updated", zap.String("slug", slug))
	return existing, nil
}
