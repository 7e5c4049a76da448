package middleware

import (
	"cryptourist/internal/apperr"
	"cryptourist/internal/log"

	"github.com/gin-gonic/gin"
)

// Fail передает ошибку в ErrorHandler и прерывает цепочку.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler отвечает JSON {"error", "request_id", "fields"} на последнюю ошибку запроса.
func ErrorHandler(l log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := apperr.HTTPStatus(err)
		rid := GetRequestID(c)

		l.Errorw("request_failed", "request_id", rid, "status", status, "error", err)

		payload := gin.H{
			"error":      apperr.PublicMessage(err),
			"request_id": rid,
		}
		if ae, ok := apperr.As(err); ok && len(ae.Fields) > 0 {
			payload["fields"] = ae.Fields
		}
		c.AbortWithStatusJSON(status, payload)
	}
}
