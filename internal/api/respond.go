// Package api exposes the REST surface consumed by the dashboard frontend.
// Every response uses the {code, data, message} envelope: code 0 on success,
// the HTTP status code on failure.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/halolight/halolight/internal/common/errors"
)

// Response is the envelope for every API response body.
type Response struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

// ListResult is the data shape for paged collection endpoints.
type ListResult struct {
	List     interface{} `json:"list"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// respondOK writes a success envelope.
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Data: data, Message: "success"})
}

// respondList writes a success envelope around a paged collection.
func respondList(c *gin.Context, list interface{}, total, page, pageSize int) {
	respondOK(c, ListResult{List: list, Total: total, Page: page, PageSize: pageSize})
}

// respondError maps an error to its HTTP status and writes a failure
// envelope. Plain errors become a generic 500 so internals stay private.
func respondError(c *gin.Context, err error) {
	status := apperrors.GetHTTPStatus(err)
	message := "internal server error"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && status < http.StatusInternalServerError {
		message = appErr.Message
	}
	c.JSON(status, Response{Code: status, Data: nil, Message: message})
}
