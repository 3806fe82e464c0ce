package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	videodomain "github.com/stonebridge/membergate/internal/videocontent/domain"
)

type videoView struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	VideoURL    string `json:"videoUrl"`
	IsPublished bool   `json:"isPublished"`
}

type upsertVideoRequest struct {
	Title       string `json:"title"`
	VideoURL    string `json:"videoUrl"`
	IsPublished bool   `json:"isPublished"`
}

func (s *Server) ListVideos(c *gin.Context) {
	items, err := s.videoSvc.List(c.Request.Context(), true)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]videoView, 0, len(items))
	for _, item := range items {
		views = append(views, videoView{
			Slug:        item.Slug,
			Title:       item.Title,
			VideoURL:    item.VideoURL,
			IsPublished: item.IsPublished,
		})
	}
	c.JSON(http.StatusOK, gin.H{"videos": views})
}

func (s *Server) UpsertVideo(c *gin.Context) {
	var req upsertVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	content, err := s.videoSvc.Upsert(c.Request.Context(), videodomain.UpsertInput{
		Slug:        c.Param("slug"),
		Title:       req.Title,
		VideoURL:    req.VideoURL,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, videoView{
		Slug:        content.Slug,
		Title:       content.Title,
		VideoURL:    content.VideoURL,
		IsPublished: content.IsPublished,
	})
}
