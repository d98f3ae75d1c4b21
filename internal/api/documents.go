package api

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/fixtures"
)

type documentHandlers struct {
	data *fixtures.Store
}

func (h *documentHandlers) list(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, total := h.data.ListDocuments(c.Query("search"), page, pageSize)
	respondList(c, list, total, page, pageSize)
}

func (h *documentHandlers) create(c *gin.Context) {
	var doc fixtures.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	created, err := h.data.CreateDocument(doc)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, created)
}

func (h *documentHandlers) update(c *gin.Context) {
	var doc fixtures.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	updated, err := h.data.UpdateDocument(c.Param("id"), doc)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

func (h *documentHandlers) delete(c *gin.Context) {
	if err := h.data.DeleteDocument(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

type fileHandlers struct {
	data *fixtures.Store
}

func (h *fileHandlers) list(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, total := h.data.ListFiles(c.Query("path"), page, pageSize)
	respondList(c, list, total, page, pageSize)
}

func (h *fileHandlers) create(c *gin.Context) {
	var entry fixtures.FileEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	created, err := h.data.CreateFile(entry)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, created)
}

func (h *fileHandlers) update(c *gin.Context) {
	var entry fixtures.FileEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	updated, err := h.data.UpdateFile(c.Param("id"), entry)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

func (h *fileHandlers) delete(c *gin.Context) {
	if err := h.data.DeleteFile(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
