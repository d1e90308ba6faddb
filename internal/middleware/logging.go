// Package middleware 包含了 gin 的中间件。
package middleware

import (
	"time"

	"hr-assistant-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// RequestLogger 记录每个 HTTP 请求的方法、路径、状态码与耗时。
// 流式接口的耗时覆盖整个推流过程。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if status >= 500 {
			log.Errorf("[HTTP] %s %s -> %d (%v)", c.Request.Method, path, status, latency)
		} else {
			log.Infof("[HTTP] %s %s -> %d (%v)", c.Request.Method, path, status, latency)
		}
	}
}
