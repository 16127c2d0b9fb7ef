package handlers

import (
	"net/http"

	"github.com/go-openapi/errors"
	"github.com/go-openapi/validate"
	"github.com/gorilla/mux"
	"github.com/jake-scott/snoo-buttons/internal/pkg/command"
	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
)

// CommandQueue is where accepted commands go
type CommandQueue interface {
	Enqueue(cmd command.Command) bool
	Len() int
	Cap() int
}

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Command    string `json:"command"`
	QueueDepth int    `json:"queueDepth"`
}

// CommandHandler queues commands posted as /commands/{name} or as a JSON
// body {"command": name} posted to /commands
type CommandHandler struct {
	queue CommandQueue
}

func NewCommandHandler(queue CommandQueue) CommandHandler {
	return CommandHandler{queue: queue}
}

func (h *CommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name, in := mux.Vars(r)["name"], "path"
	if name == "" {
		req := commandRequest{}
		if err := decodeJSONBody(w, r, &req); err != nil {
			logging.Logger(r.Context()).WithError(err).Info("bad command request")
			errors.ServeError(w, r, errors.New(http.StatusBadRequest, "%s", err))
			return
		}
		name, in = req.Command, "body"
	}

	canonical := command.Canonical(name)
	names := command.Names()
	if verr := validate.Enum("command", in, canonical, names); verr != nil {
		errors.ServeError(w, r, verr)
		return
	}

	cmd, err := command.Parse(canonical)
	if err != nil {
		errors.ServeError(w, r, errors.NotFound("%s", err))
		return
	}

	if !h.queue.Enqueue(cmd) {
		errors.ServeError(w, r, errors.New(http.StatusTooManyRequests, "command queue is full, %s dropped", cmd.Name()))
		return
	}

	logging.Logger(r.Context()).Infof("queued %s from %s", cmd.Name(), r.RemoteAddr)
	sendJSONResponse(w, r, http.StatusAccepted, commandResponse{
		Command:    cmd.Name(),
		QueueDepth: h.queue.Len(),
	})
}
