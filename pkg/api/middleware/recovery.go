package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/dd0wney/cluso-uaspace/pkg/logging"
)

// PanicRecovery turns a handler panic into a 500. The panic and its stack
// are logged; the client only sees a generic message.
func PanicRecovery(logger logging.Logger) Middleware {
	logger = logging.OrDefault(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic in handler",
					logging.String("method", r.Method),
					logging.Path(r.URL.Path),
					logging.RequestID(GetRequestID(r)),
					logging.String("panic", fmt.Sprint(rec)),
					logging.String("stack", string(debug.Stack())),
				)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
