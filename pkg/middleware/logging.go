package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"taskboard-backend/pkg/logging"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger attaches a request-scoped logger to the context and writes one
// access log line per request after it completes.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLog := log.With("request_id", middleware.GetReqID(r.Context()))
			r = r.WithContext(logging.WithContext(r.Context(), reqLog))

			// 创建响应写入器包装器来捕获状态码
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// the auth middleware runs later and stores the caller on its own request copy
			var userID string
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				level := slog.LevelInfo
				switch {
				case status >= 500:
					level = slog.LevelError
				case status >= 400:
					level = slog.LevelWarn
				}
				attrs := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"ip", r.RemoteAddr,
				}
				if userID != "" {
					attrs = append(attrs, "user_id", userID)
				}
				reqLog.Log(r.Context(), level, "request", attrs...)
			}()

			next.ServeHTTP(ww, r.WithContext(withUserSlot(r.Context(), &userID)))
		})
	}
}

type userSlotKey struct{}

// withUserSlot lets inner middleware report the authenticated caller back to the access log.
func withUserSlot(ctx context.Context, slot *string) context.Context {
	return context.WithValue(ctx, userSlotKey{}, slot)
}

func reportUser(ctx context.Context, userID string) {
	if slot, ok := ctx.Value(userSlotKey{}).(*string); ok {
		*slot = userID
	}
}
