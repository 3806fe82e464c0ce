package server

import (
	"github.com/gin-gonic/gin"
)

// classifyErrorForLog feeds the request logger the same taxonomy the error
// envelope uses, so log lines and responses agree on what went wrong.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	if vErr := asValidationErrors(err); vErr != nil {
		code := ""
		if len(vErr.Errors) > 0 {
			code = vErr.Errors[0].Code
		}
		return "validation_error", code
	}
	_, payload := mapError(err)
	return payload.Type, err.Error()
}

// VerifyRateLimit throttles access verification per client address. A redis
// outage fails open: slower enumeration protection beats locking paying
// members out.
func (s *Server) VerifyRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.verifyLimiter.Enabled() {
			c.Next()
			return
		}

		allowed, err := s.verifyLimiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.Next()
			return
		}
		if !allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "access_verify")
			}
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
