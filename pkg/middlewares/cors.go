package middlewares

import (
	"net/http"

	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
	"github.com/rs/cors"
)

type CorsMw struct {
	h http.Handler
}

// CorsOptions allows browser clients from the given origins to use the API
func CorsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-Correlation-ID"},
		ExposedHeaders: []string{"X-Txn-ID", "X-Correlation-ID"},
		MaxAge:         600,
	}
}

// NewCors wraps next.  Preflight requests never match a route, so wrap the
// whole router rather than adding this as router middleware.
func NewCors(opts cors.Options, next http.Handler) *CorsMw {
	return &CorsMw{
		h: cors.New(opts).Handler(next),
	}
}

func (mw *CorsMw) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" {
		logging.Logger(r.Context()).Debugf("cross origin %s request from %s", r.Method, origin)
	}

	mw.h.ServeHTTP(rw, r)
}
