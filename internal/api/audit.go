package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/halolight/halolight/internal/identity"
)

type auditHandlers struct {
	audit *identity.Auditor
}

func (h *auditHandlers) recent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		limit = 50
	}
	respondOK(c, h.audit.Recent(limit))
}
