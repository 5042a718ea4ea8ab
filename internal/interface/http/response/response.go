package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const CodeRateLimited = "RATE_LIMITED"

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PaginatedResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func Paginated(c *gin.Context, data interface{}, total, limit, offset int) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+limit < total,
		},
	})
}

// Error writes err as an envelope. Anything that is not an AppError, and every
// 5xx, is logged with its cause and reaches the client with a generic message.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Wrap(err, apperror.ErrCodeInternal, "internal server error")
	}

	message := appErr.Message
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
			"code":   appErr.Code,
			"error":  err.Error(),
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		message = "internal server error"
	}
	if appErr.Code == apperror.ErrCodeUpstreamFailure {
		message = appErr.Message
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus, Response{
		Success: false,
		Error:   &ErrorInfo{Code: string(appErr.Code), Message: message},
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
	})
}

func BadRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, string(apperror.ErrCodeBadRequest), message)
}

func Unauthorized(c *gin.Context, message string) {
	fail(c, http.StatusUnauthorized, string(apperror.ErrCodeUnauthorized), message)
}

func Forbidden(c *gin.Context, message string) {
	fail(c, http.StatusForbidden, string(apperror.ErrCodeForbidden), message)
}

func Conflict(c *gin.Context, message string) {
	fail(c, http.StatusConflict, string(apperror.ErrCodeConflict), message)
}

func TooManyRequests(c *gin.Context, message string) {
	fail(c, http.StatusTooManyRequests, CodeRateLimited, message)
}
