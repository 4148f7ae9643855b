package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"shares-backend/internal/application/health"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/pkg/response"
)

// ErrorHandler is the global Fiber error handler. Server errors are appended to
// the health error log in Redis when rdb is set.
func ErrorHandler(rdb *redis.Client) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if e, ok := err.(*fiber.Error); ok {
			return response.Error(c, e.Message, e.Code, nil)
		}
		if _, ok := apperrors.As(err); ok {
			return response.FromError(c, err)
		}

		log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("path", c.Path()).Msg("request failed")
		if rdb != nil {
			entry, _ := json.Marshal(map[string]interface{}{
				"time":    time.Now(),
				"method":  c.Method(),
				"path":    c.OriginalURL(),
				"message": err.Error(),
				"traceId": GetTraceID(c),
			})
			ctx := context.Background()
			rdb.LPush(ctx, health.KeyErrorLog, entry)
			rdb.LTrim(ctx, health.KeyErrorLog, 0, 49)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}
