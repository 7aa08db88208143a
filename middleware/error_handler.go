package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"salon-manager/utils"
)

// ErrorHandler reports errors attached with c.Error to the log and Sentry
// after the handler chain has written its response.
func ErrorHandler(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		for _, ginErr := range c.Errors {
			fields := map[string]interface{}{
				"endpoint":   c.FullPath(),
				"method":     c.Request.Method,
				"status":     c.Writer.Status(),
				"request_id": c.GetString(RequestIDKey),
			}
			log.WithFields(logrus.Fields(fields)).WithError(ginErr.Err).Error("request failed")
			utils.CaptureError(ginErr.Err, fields)
		}
	}
}
