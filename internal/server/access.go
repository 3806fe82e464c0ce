package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	accessdomain "github.com/stonebridge/membergate/internal/access/domain"
)

type verifyAccessRequest struct {
	Email         string `json:"email"`
	TransactionID string `json:"transactionId"`
}

type verifyAccessResponse struct {
	Success      bool           `json:"success"`
	SessionToken string         `json:"sessionToken"`
	User         verifyUserView `json:"user"`
}

type verifyUserView struct {
	Email         string `json:"email"`
	TransactionID string `json:"transactionId"`
}

func (s *Server) VerifyAccess(c *gin.Context) {
	var req verifyAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Malformed input is indistinguishable from a failed lookup so the
		// endpoint cannot be used to probe which field was wrong.
		AbortWithError(c, accessdomain.ErrAccessDenied)
		return
	}

	grant, err := s.accessSvc.Verify(c.Request.Context(), req.Email, req.TransactionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, verifyAccessResponse{
		Success:      true,
		SessionToken: grant.Token,
		User: verifyUserView{
			Email:         grant.Email,
			TransactionID: grant.TransactionID,
		},
	})
}
