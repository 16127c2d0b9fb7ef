package middlewares

import (
	"net/http"
	"runtime/debug"

	"github.com/go-openapi/errors"
	"github.com/gorilla/mux"
	"github.com/jake-scott/snoo-buttons/internal/pkg/logging"
	"github.com/sirupsen/logrus"
)

// RecoveryMw turns a panicking handler into a 500 naming the transaction,
// so the caller can find the stack trace in the daemon log
type RecoveryMw struct {
	next http.Handler
}

func NewRecoveryMw() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return NewRecovery(next)
	}
}

func NewRecovery(next http.Handler) *RecoveryMw {
	return &RecoveryMw{next: next}
}

func (mw *RecoveryMw) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}

		fields := logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}
		if id, ok := CorrelationID(r.Context()); ok {
			fields["correlation"] = id
		}
		logging.Logger(r.Context()).WithFields(fields).Errorf("handler panicked: %v\n%s", p, debug.Stack())

		msg := http.StatusText(http.StatusInternalServerError)
		if txnID, ok := logging.TxnID(r.Context()); ok {
			msg += " (transaction " + txnID + ")"
		}
		errors.ServeError(rw, r, errors.New(http.StatusInternalServerError, "%s", msg))
	}()

	mw.next.ServeHTTP(rw, r)
}
