package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/identity"
)

type userHandlers struct {
	ids *identity.Service
}

// pageParams reads the shared ?page= and ?pageSize= query parameters.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}

func (h *userHandlers) list(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := identity.UserFilter{
		Search: c.Query("search"),
		Role:   c.Query("role"),
		Status: c.Query("status"),
	}

	users, total, err := h.ids.ListUsers(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, users, total, page, pageSize)
}

func (h *userHandlers) get(c *gin.Context) {
	user, err := h.ids.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}

func (h *userHandlers) create(c *gin.Context) {
	var req struct {
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
		Role        string `json:"role"`
		Avatar      string `json:"avatar"`
		Password    string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	user := &identity.User{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Role:        req.Role,
		Avatar:      req.Avatar,
		Status:      identity.StatusActive,
	}
	created, err := h.ids.CreateUser(c.Request.Context(), user, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, created)
}

func (h *userHandlers) update(c *gin.Context) {
	var patch identity.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	user, err := h.ids.UpdateUser(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}

func (h *userHandlers) delete(c *gin.Context) {
	if err := h.ids.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
