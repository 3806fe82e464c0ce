package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type syncPaymentRequest struct {
	SessionID string `json:"sessionId"`
}

type syncPaymentResponse struct {
	Success bool        `json:"success"`
	Payment paymentView `json:"payment"`
}

type paymentView struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Email  string `json:"email"`
}

func (s *Server) SyncPaymentStatus(c *gin.Context) {
	var req syncPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("sessionId", "invalid_session_id", "sessionId is required"))
		return
	}

	record, err := s.paymentSvc.SyncStatus(c.Request.Context(), req.SessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, syncPaymentResponse{
		Success: true,
		Payment: paymentView{
			ID:     record.ID.String(),
			Status: string(record.Status),
			Email:  record.UserEmail,
		},
	})
}
