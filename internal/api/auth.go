package api

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/identity"
)

type authHandlers struct {
	ids *identity.Service
}

type loginResult struct {
	User         *identity.User `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	ExpiresIn    int64          `json:"expiresIn"`
}

// login authenticates credentials and issues a token pair.
func (h *authHandlers) login(c *gin.Context) {
	var creds identity.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	user, pair, err := h.ids.Authenticate(c.Request.Context(), creds)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, loginResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// refresh rotates a token pair.
func (h *authHandlers) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		respondError(c, apperrors.BadRequest("refreshToken is required"))
		return
	}

	user, pair, err := h.ids.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, loginResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// logout acknowledges the client discarding its tokens. Tokens are stateless,
// so there is nothing to revoke server-side.
func (h *authHandlers) logout(c *gin.Context) {
	respondOK(c, nil)
}

// profile returns the authenticated user's record.
func (h *authHandlers) profile(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		respondError(c, apperrors.Unauthorized("not authenticated"))
		return
	}

	user, err := h.ids.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}
