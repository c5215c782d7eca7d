package observability

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/a2h-store/api/internal/platform/auth"
	"github.com/a2h-store/api/internal/platform/httpx"
	"github.com/a2h-store/api/internal/platform/requestctx"
)

// ContextLoggerMiddleware seeds every request context with the process
// logger so handlers and services can log without plumbing.
func ContextLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestctx.WithLogger(r.Context(), logger)))
		})
	}
}

// AccessLogMiddleware writes a start and completion line per request. The
// completion line carries the shopper session, the staff actor when an
// admin call authenticated, and the Cloud Logging trace resource so log
// entries group under their trace in the console.
func AccessLogMiddleware(projectID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			traceInfo, _ := requestctx.Trace(ctx)
			route := routeOf(r)

			logger := requestctx.Logger(ctx).With(
				zap.String("request_id", middleware.GetReqID(ctx)),
				zap.String("method", ScrubMethod(r.Method)),
				zap.String("route", ScrubRoute(route)),
				zap.String("trace_id", traceInfo.TraceID),
				zap.String("session_id", ScrubSessionID(requestctx.SessionID(ctx))),
				zap.String("actor_id", actorID(ctx)),
			)
			if resource := traceLogResource(traceInfo); resource != "" {
				logger = logger.With(zap.String("logging.googleapis.com/trace", resource))
			}
			if ip := clientIP(r); ip != "" {
				logger = logger.With(zap.String("remote_ip", ip))
			}

			ctx = requestctx.WithLogger(ctx, logger)
			r = r.WithContext(ctx)

			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			begin := time.Now()
			logger.Info("request started")

			var panicked bool
			defer func() {
				code := sw.Code()
				if panicked && code < http.StatusInternalServerError {
					code = http.StatusInternalServerError
				}

				if span := trace.SpanFromContext(ctx); span != nil {
					attrs := []attribute.KeyValue{semconv.HTTPResponseStatusCode(code)}
					if route != "" {
						attrs = append(attrs, semconv.HTTPRoute(ScrubRoute(route)))
					}
					span.SetAttributes(attrs...)
					markSpanStatus(span, code)
				}

				fields := []zap.Field{
					zap.Int("status", code),
					zap.Duration("latency", time.Since(begin)),
					zap.Int64("bytes", sw.Written()),
				}
				switch {
				case panicked || code >= http.StatusInternalServerError:
					logger.Error("request completed", fields...)
				case code >= http.StatusBadRequest:
					logger.Warn("request completed", fields...)
				default:
					logger.Info("request completed", fields...)
				}
			}()

			defer func() {
				if rec := recover(); rec != nil {
					panicked = true
					panic(rec)
				}
			}()

			next.ServeHTTP(sw, r)
		})
	}
}

// PanicRecoveryMiddleware converts handler panics into a JSON 500 and logs
// the stack. It sits outside AccessLogMiddleware so the access log still
// records the failed request.
func PanicRecoveryMiddleware(fallback *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					ctx := r.Context()
					logger := requestctx.Logger(ctx)
					if logger == nil || logger == requestctx.NoopLogger() {
						logger = fallback
						if logger == nil {
							logger = requestctx.NoopLogger()
						}
					}
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.ByteString("stack", debug.Stack()),
					)
					httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "internal server error", http.StatusInternalServerError))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// actorID is the authenticated staff UID, empty for storefront traffic.
func actorID(ctx context.Context) string {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		return ""
	}
	return ScrubActorID(identity.UID)
}

func routeOf(r *http.Request) string {
	if r == nil {
		return "/"
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if r.URL != nil && r.URL.Path != "" {
		return r.URL.Path
	}
	return "/"
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return scrubField(addr, maxSessionField)
}

func traceLogResource(info requestctx.TraceInfo) string {
	if info.ProjectID == "" || info.TraceID == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/traces/%s", info.ProjectID, info.TraceID)
}

func markSpanStatus(span trace.Span, code int) {
	if span == nil {
		return
	}
	if code >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(code))
		return
	}
	span.SetStatus(codes.Ok, http.StatusText(code))
}

// statusWriter remembers the status code and byte count the handler wrote.
type statusWriter struct {
	http.ResponseWriter
	code    int
	written int64
}

func (w *statusWriter) WriteHeader(code int) {
	if code < 100 {
		code = http.StatusOK
	}
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

func (w *statusWriter) Code() int {
	if w.code == 0 {
		return http.StatusOK
	}
	return w.code
}

func (w *statusWriter) Written() int64 {
	return w.written
}
