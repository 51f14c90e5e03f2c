// internal/api/middleware.go
package api

import (
	"net/http"
	"time"

	"pitch-scorer/internal/common/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// captureWriter records status and bytes written.
type captureWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	n, err := cw.ResponseWriter.Write(b)
	cw.bytes += n
	return n, err
}

// accessLog logs one line per request. Server errors log at error level.
func accessLog(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(cw, r)

			fields := map[string]interface{}{
				"method":    r.Method,
				"path":      r.URL.Path,
				"status":    cw.status,
				"bytes":     cw.bytes,
				"elapsedMs": time.Since(start).Milliseconds(),
				"httpReqId": chimw.GetReqID(r.Context()),
			}
			if cw.status >= http.StatusInternalServerError {
				log.Error("request done", fields)
				return
			}
			log.Info("request done", fields)
		})
	}
}
