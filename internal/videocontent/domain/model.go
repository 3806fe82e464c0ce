package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrInvalidSlug  = errors.New("invalid_slug")
	ErrInvalidTitle = errors.New("invalid_title")
	ErrInvalidURL   = errors.New("invalid_video_url")
)

// VideoContent is one gated video entry shown to verified members.
type VideoContent struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	Slug        string       `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Title       string       `json:"title" gorm:"type:text;not null"`
	VideoURL    string       `json:"video_url" gorm:"type:text;not null"`
	IsPublished bool         `json:"is_published" gorm:"not null"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`
}

func (VideoContent) TableName() string { return "video_contents" }

// UpsertInput carries one admin-supplied content entry keyed by slug.
type UpsertInput struct {
	Slug        string
	Title       string
	VideoURL    string
	IsPublished bool
}

type Repository interface {
	List(ctx context.Context, db *gorm.DB, publishedOnly bool) ([]VideoContent, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*VideoContent, error)
	Insert(ctx context.Context, db *gorm.DB, content *VideoContent) error
	Update(ctx context.Context, db *gorm.DB, content *VideoContent) error
}

type Service interface {
	List(ctx context.Context, publishedOnly bool) ([]VideoContent, error)
	Upsert(ctx context.Context, input UpsertInput) (*VideoContent, error)
}
