package middleware

import (
	"fmt"
	"runtime/debug"

	"cryptourist/internal/apperr"
	"cryptourist/internal/log"

	"github.com/gin-gonic/gin"
)

// Recovery пишет панику со стеком в журнал и отвечает 500 через ErrorHandler,
// поэтому подключается после него.
func Recovery(l log.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		l.Errorw("panic_recovered",
			"request_id", GetRequestID(c),
			"panic", recovered,
			"stack", string(debug.Stack()),
		)

		Fail(c, apperr.Wrap(fmt.Errorf("panic: %v", recovered)))
	})
}
