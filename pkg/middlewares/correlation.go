package middlewares

import (
	"context"
	"net/http"
	"regexp"

	"github.com/gorilla/mux"
)

var correlationIDRegexp = regexp.MustCompile(`^[\w-]{3,64}$`)

type ctxKey int

const correlationIDKey ctxKey = iota

// CorrelationID returns the caller supplied correlation ID of a request
func CorrelationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDKey).(string)
	return id, ok
}

type CorrelationMw struct {
	headerName string
	next       http.Handler
}

func NewCorrelationMw(headerName string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return NewCorrelation(headerName, next)
	}
}

func NewCorrelation(headerName string, next http.Handler) *CorrelationMw {
	return &CorrelationMw{headerName: http.CanonicalHeaderKey(headerName), next: next}
}

// Echo a valid correlation ID back to the caller and keep it in the request
// context; an invalid one is replaced with a marker
func (mw *CorrelationMw) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(mw.headerName)
	if id != "" {
		if !correlationIDRegexp.MatchString(id) {
			id = "<Bad_Correlation_Id>"
		}

		rw.Header().Set(mw.headerName, id)
		r = r.WithContext(context.WithValue(r.Context(), correlationIDKey, id))
	}

	mw.next.ServeHTTP(rw, r)
}
