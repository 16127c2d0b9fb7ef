package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jake-scott/snoo-buttons/internal/pkg/worker"
	"github.com/jake-scott/snoo-buttons/pkg/middlewares"
)

// NewRouter returns the HTTP API: POST /commands[/{name}] and GET /status
func NewRouter(queue CommandQueue, status func() worker.Status, logHeaders bool, corsOrigins []string) http.Handler {
	ch := NewCommandHandler(queue)
	sh := NewStatusHandler(status, queue)

	r := mux.NewRouter()
	r.Use(middlewares.NewCorrelationMw("X-Correlation-ID"))
	r.Use(middlewares.NewLoggingMw(logHeaders))
	r.Use(middlewares.NewRecoveryMw())
	r.Handle("/commands", &ch).Methods(http.MethodPost)
	r.Handle("/commands/{name}", &ch).Methods(http.MethodPost)
	r.Handle("/status", &sh).Methods(http.MethodGet)

	if len(corsOrigins) == 0 {
		return r
	}

	return middlewares.NewCors(middlewares.CorsOptions(corsOrigins), r)
}
