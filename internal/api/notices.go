package api

import (
	"github.com/gin-gonic/gin"

	"github.com/halolight/halolight/internal/fixtures"
)

type noticeHandlers struct {
	data *fixtures.Store
}

// noticeList extends the standard list shape with the unread counter the
// header badge needs.
type noticeList struct {
	List     []fixtures.Notice `json:"list"`
	Total    int               `json:"total"`
	Unread   int               `json:"unread"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

func (h *noticeHandlers) list(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, total, unread := h.data.ListNotices(page, pageSize)
	respondOK(c, noticeList{List: list, Total: total, Unread: unread, Page: page, PageSize: pageSize})
}

func (h *noticeHandlers) markRead(c *gin.Context) {
	if err := h.data.MarkNoticeRead(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

func (h *noticeHandlers) markAllRead(c *gin.Context) {
	h.data.MarkAllNoticesRead()
	respondOK(c, nil)
}

func (h *noticeHandlers) clear(c *gin.Context) {
	h.data.ClearNotices()
	respondOK(c, nil)
}
