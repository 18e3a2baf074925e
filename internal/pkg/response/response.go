package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pagination metadata returned with paginated responses.
type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	TotalPage   int   `json:"total_page"`
	Size        int   `json:"size"`
	HasNextPage bool  `json:"has_next_page"`
}

type pagedResponse struct {
	Status     string      `json:"status"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// OK sends a 200 success envelope.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data})
}

// OKMsg sends a 200 success envelope with a message alongside the data.
func OKMsg(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": message, "data": data})
}

// Paged sends a paginated success envelope.
func Paged(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, pagedResponse{
		Status:     "success",
		Data:       data,
		Pagination: pagination,
	})
}

// Created sends a 201 success envelope.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": data})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"status": "error", "message": message})
}

// BadRequest sends a 400 error envelope.
func BadRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 error envelope. The message distinguishes missing
// vs. invalid vs. expired vs. revoked for operators, but never reveals
// account existence.
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	fail(c, http.StatusUnauthorized, message)
}

// Forbidden sends a 403 error envelope.
func Forbidden(c *gin.Context) {
	fail(c, http.StatusForbidden, "You are not allowed to access this resource")
}

// NotFound sends a 404 error envelope.
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	fail(c, http.StatusNotFound, message)
}

// MethodNotAllowed sends a 405 error envelope.
func MethodNotAllowed(c *gin.Context) {
	fail(c, http.StatusMethodNotAllowed, "Method not allowed")
}

// Conflict sends a 409 error envelope.
func Conflict(c *gin.Context, message string) {
	fail(c, http.StatusConflict, message)
}

// UnprocessableEntity sends a 422 error envelope.
func UnprocessableEntity(c *gin.Context, message string) {
	fail(c, http.StatusUnprocessableEntity, message)
}

// TooManyRequests sends a 429 error envelope.
func TooManyRequests(c *gin.Context, message string) {
	fail(c, http.StatusTooManyRequests, message)
}

// InternalError sends a 500 error envelope.
func InternalError(c *gin.Context, err error) {
	fail(c, http.StatusInternalServerError, err.Error())
}

// BadGateway sends a 502 error envelope.
func BadGateway(c *gin.Context, message string) {
	fail(c, http.StatusBadGateway, message)
}
