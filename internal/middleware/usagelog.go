package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moon4656/skyboot-core/internal/domain"
	"github.com/moon4656/skyboot-core/internal/idgen"
	"github.com/moon4656/skyboot-core/internal/logsink"
)

// UsageLog records every handled request in the API usage log.
// Failures to enqueue never affect the response.
func UsageLog(sink *logsink.Sink[*domain.APIUsageLogEntry], ids *idgen.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := &domain.APIUsageLogEntry{
			LogID:          ids.NewLogID(),
			Endpoint:       c.Request.URL.Path,
			Method:         c.Request.Method,
			SourceIP:       c.ClientIP(),
			ResponseStatus: c.Writer.Status(),
			ResponseTimeMS: time.Since(start).Milliseconds(),
			CreatedAt:      ids.Now(),
		}
		if session := SessionFromContext(c); session != nil {
			entry.UserID = session.UserID
		}
		sink.Append(entry)
	}
}
