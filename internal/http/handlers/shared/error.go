package shared

import (
	"github.com/aurelia-shop/internal/http/response"
	"github.com/aurelia-shop/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	value, ok := c.Get("request_id")
	if !ok {
		return logger.S()
	}
	id, ok := value.(string)
	if !ok || id == "" {
		return logger.S()
	}
	return logger.SW("request_id", id)
}

// RespondError 返回业务错误响应。带底层错误时记录日志，纯业务拒绝不落日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	if err != nil {
		appErr := response.WrapError(code, msg, err)
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, code, msg)
}
