package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userTokenHeader = "X-User-Token"

// userToken reads the caller identity. Verification happens upstream; an
// empty token means an unauthenticated request.
func userToken(r *http.Request) string {
	return r.Header.Get(userTokenHeader)
}

// requireUser rejects requests without a user token and returns it
// otherwise.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := userToken(r)
	if token == "" {
		s.writeError(w, http.StatusUnauthorized, "missing "+userTokenHeader+" header")
		return "", false
	}
	return token, true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps the recorder usable for the SSE stream.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withRequestLog tags every request with an id and logs its outcome.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rec, r)

		s.log.Debug("Request handled",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
