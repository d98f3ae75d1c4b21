package api

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/identity"
)

type roleHandlers struct {
	ids *identity.Service
}

func (h *roleHandlers) list(c *gin.Context) {
	roles, err := h.ids.ListRoles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, roles)
}

func (h *roleHandlers) get(c *gin.Context) {
	role, err := h.ids.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, role)
}

func (h *roleHandlers) create(c *gin.Context) {
	var role identity.Role
	if err := c.ShouldBindJSON(&role); err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	created, err := h.ids.CreateRole(c.Request.Context(), &role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, created)
}

func (h *roleHandlers) update(c *gin.Context) {
	var patch identity.RolePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	role, err := h.ids.UpdateRole(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, role)
}

func (h *roleHandlers) delete(c *gin.Context) {
	if err := h.ids.DeleteRole(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
