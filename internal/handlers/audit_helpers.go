package handlers

import (
	"github.com/gin-gonic/gin"

	"chat-sync/internal/observability"
)

func (h *AuthHandler) emitAudit(c *gin.Context, level, action, text, subject string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, action, text, observability.RequestID(c), subject)
}
