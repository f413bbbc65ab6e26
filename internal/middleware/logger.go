package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/logger"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

// Logger returns a request logger that only records slow or failed requests.
func Logger() fiber.Handler {
	return fiberlogger.New(fiberlogger.Config{
		Format: "${status} | ${latency} | ${method} | ${path} | ${ip} | ${error}\n",
		Output: &filteredWriter{
			slowThreshold:    500 * time.Millisecond,
			errorStatusFloor: 400,
		},
	})
}

// filteredWriter receives one formatted line per request:
//
//	"200 | 1.23ms | GET | /path | 10.0.0.1 | "
//
// and forwards it to zap when the status or latency crosses its thresholds.
type filteredWriter struct {
	slowThreshold    time.Duration
	errorStatusFloor int
}

func (w *filteredWriter) Write(p []byte) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(string(p)), "|", 6)
	if len(parts) < 4 {
		logger.Log.Info(strings.TrimSpace(string(p)))
		return len(p), nil
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	status, _ := strconv.Atoi(parts[0])
	latency, _ := time.ParseDuration(parts[1])
	if status < w.errorStatusFloor && latency < w.slowThreshold {
		return len(p), nil
	}

	fields := []zap.Field{
		zap.Int("status", status),
		zap.Duration("latency", latency),
		zap.String("method", parts[2]),
		zap.String("path", parts[3]),
	}
	if len(parts) > 4 {
		fields = append(fields, zap.String("ip", parts[4]))
	}
	if len(parts) > 5 && parts[5] != "" {
		fields = append(fields, zap.String("error", parts[5]))
	}
	switch {
	case status >= 500:
		logger.Log.Error("request", fields...)
	case status >= w.errorStatusFloor:
		logger.Log.Warn("request", fields...)
	default:
		logger.Log.Info("slow request", fields...)
	}
	return len(p), nil
}
