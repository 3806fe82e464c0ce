package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createCheckoutSessionRequest struct {
	Email string `json:"email"`
}

type checkoutSessionResponse struct {
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req createCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("email", "invalid_email", "email is required"))
		return
	}

	session, err := s.paymentSvc.StartCheckout(c.Request.Context(), req.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, checkoutSessionResponse{
		SessionID:   session.SessionID,
		RedirectURL: session.RedirectURL,
	})
}

func (s *Server) CreateDeferredCheckoutSession(c *gin.Context) {
	session, err := s.paymentSvc.StartDeferredCheckout(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, checkoutSessionResponse{
		SessionID:   session.SessionID,
		RedirectURL: session.RedirectURL,
	})
}
