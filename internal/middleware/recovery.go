package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/mkanilsson/workout-backend/internal/instrumentation"

	log "github.com/sirupsen/logrus"
)

func PanicRecovery(instr *instrumentation.Instrumentation) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(respWriter http.ResponseWriter, req *http.Request) {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("http: panic serving %s: %v\n%s", req.URL.Path, r, debug.Stack())
					if instr != nil {
						instr.CounterHandleRequestPanic.Inc()
					}
				}
			}()

			// handler call
			next.ServeHTTP(respWriter, req)
		})
	}
}
