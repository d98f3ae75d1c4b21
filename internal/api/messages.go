package api

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/fixtures"
)

type messageHandlers struct {
	data *fixtures.Store
}

func (h *messageHandlers) listConversations(c *gin.Context) {
	respondOK(c, h.data.ListConversations())
}

func (h *messageHandlers) listMessages(c *gin.Context) {
	messages, err := h.data.ListMessages(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, messages)
}

func (h *messageHandlers) send(c *gin.Context) {
	var req struct {
		Sender string `json:"sender"`
		Body   string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return
	}
	if req.Sender == "" {
		req.Sender = "You"
	}

	msg, err := h.data.AppendMessage(c.Param("id"), req.Sender, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, msg)
}
