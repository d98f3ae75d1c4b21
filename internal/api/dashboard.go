package api

import (
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/fixtures"
)

type dashboardHandlers struct {
	data *fixtures.Store
}

func (h *dashboardHandlers) stats(c *gin.Context) {
	respondOK(c, h.data.Stats())
}

func (h *dashboardHandlers) activities(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, total := h.data.Activities(page, pageSize)
	respondList(c, list, total, page, pageSize)
}

type calendarHandlers struct {
	data *fixtures.Store
}

// parseTimeParam parses an optional RFC 3339 query parameter; absent values
// return the zero time.
func parseTimeParam(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.ValidationError(name, "must be an RFC 3339 timestamp")
	}
	return t, nil
}

func (h *calendarHandlers) list(c *gin.Context) {
	from, err := parseTimeParam(c, "from")
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := parseTimeParam(c, "to")
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, h.data.ListEvents(from, to))
}

func (h *calendarHandlers) create(c *gin.Context) {
	var ev fixtures.CalendarEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	created, err := h.data.CreateEvent(ev)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, created)
}

func (h *calendarHandlers) update(c *gin.Context) {
	var ev fixtures.CalendarEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	updated, err := h.data.UpdateEvent(c.Param("id"), ev)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

func (h *calendarHandlers) delete(c *gin.Context) {
	if err := h.data.DeleteEvent(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
