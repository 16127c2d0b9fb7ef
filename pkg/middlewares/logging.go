package middlewares

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
	"github.com/sirupsen/logrus"
)

// statusRecorder captures the status code and size of a response
type statusRecorder struct {
	http.ResponseWriter

	statusCode int
	size       int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

type LoggingMw struct {
	logHeaders bool
	next       http.Handler
}

func NewLoggingMw(logHeaders bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return NewLogging(logHeaders, next)
	}
}

func NewLogging(logHeaders bool, next http.Handler) *LoggingMw {
	return &LoggingMw{next: next, logHeaders: logHeaders}
}

// Tag the request with a transaction ID and write one audit line once it
// has been served
func (mw *LoggingMw) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	txnID := uuid.New().String()
	startTime := time.Now()

	rw.Header().Set("X-Txn-ID", txnID)
	r = r.WithContext(logging.WithTxnID(r.Context(), txnID))

	if mw.logHeaders {
		logging.Logger(r.Context()).Debugf("request headers: %+v", r.Header)
	}

	rec := &statusRecorder{ResponseWriter: rw, statusCode: http.StatusOK}
	mw.next.ServeHTTP(rec, r)

	fields := logrus.Fields{
		"entrytype": "audit",
		"status":    rec.statusCode,
		"method":    r.Method,
		"remote":    r.RemoteAddr,
		"duration":  time.Since(startTime),
		"path":      r.URL.Path,
		"size":      rec.size,
	}
	if id, ok := CorrelationID(r.Context()); ok {
		fields["correlation"] = id
	}

	logging.Logger(r.Context()).WithFields(fields).Info(http.StatusText(rec.statusCode))
}
