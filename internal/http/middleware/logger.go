package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Logger emits one access log event per request with request_id, method, path, status and
// latency (milliseconds). 5xx responses log at error level and 4xx at warn.
func Logger(log zerolog.Logger) fiber.Handler {
	return accessLog(log, nil)
}

// LoggerWithWriter writes bare JSON access events to w, stamping each with a "ts" field in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	if loc == nil {
		loc = time.Local
	}
	return accessLog(zerolog.New(w), loc)
}

func accessLog(log zerolog.Logger, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusFromError(err)
		}

		var ev *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			ev = log.Error()
		case status >= fiber.StatusBadRequest:
			ev = log.Warn()
		default:
			ev = log.Info()
		}
		if loc != nil {
			ev = ev.Str("ts", start.In(loc).Format(time.RFC3339Nano))
		}

		ev.Str("request_id", GetRequestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Float64("latency", float64(time.Since(start).Microseconds())/1000).
			Msg("request")

		return err
	}
}

// statusFromError mirrors how the global error handler turns a handler error into a status.
func statusFromError(err error) int {
	if fe, ok := err.(*fiber.Error); ok {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
