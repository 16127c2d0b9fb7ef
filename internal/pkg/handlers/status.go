package handlers

import (
	"net/http"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/jake-scott/snoo-buttons/internal/pkg/worker"
)

type activityResponse struct {
	Level          string           `json:"level"`
	Hold           bool             `json:"hold"`
	UpTransition   string           `json:"upTransition"`
	DownTransition string           `json:"downTransition"`
	Event          string           `json:"event,omitempty"`
	EventTime      *strfmt.DateTime `json:"eventTime,omitempty"`
}

type statusResponse struct {
	State         string            `json:"state"`
	Serial        string            `json:"serial,omitempty"`
	SessionStart  *strfmt.DateTime  `json:"sessionStart,omitempty"`
	QueueDepth    int               `json:"queueDepth"`
	QueueCapacity int               `json:"queueCapacity"`
	Applied       int               `json:"applied"`
	Failed        int               `json:"failed"`
	LastError     string            `json:"lastError,omitempty"`
	Activity      *activityResponse `json:"activity,omitempty"`
}

// StatusHandler reports what the worker is doing
type StatusHandler struct {
	status func() worker.Status
	queue  CommandQueue
}

func NewStatusHandler(status func() worker.Status, queue CommandQueue) StatusHandler {
	return StatusHandler{
		status: status,
		queue:  queue,
	}
}

func dateTime(t time.Time) *strfmt.DateTime {
	if t.IsZero() {
		return nil
	}

	dt := strfmt.DateTime(t.UTC())
	return &dt
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := h.status()

	resp := statusResponse{
		State:         st.State.String(),
		Serial:        st.Serial,
		SessionStart:  dateTime(st.SessionStart),
		QueueDepth:    h.queue.Len(),
		QueueCapacity: h.queue.Cap(),
		Applied:       st.Applied,
		Failed:        st.Failed,
		LastError:     st.LastError,
	}

	if a := st.LastActivity; a != nil {
		resp.Activity = &activityResponse{
			Level:          a.StateMachine.State.String(),
			Hold:           a.StateMachine.Hold,
			UpTransition:   a.StateMachine.UpTransition.String(),
			DownTransition: a.StateMachine.DownTransition.String(),
			Event:          string(a.Event),
			EventTime:      dateTime(a.EventTime),
		}
	}

	sendJSONResponse(w, r, http.StatusOK, resp)
}
