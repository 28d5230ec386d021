package middleware

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Vasu1712/algonomic-backend/internal/api/respond"
)

// Recover turns a handler panic into a generic 500.
func Recover(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.WithFields(logrus.Fields{
						"panic":  rec,
						"method": r.Method,
						"path":   r.URL.Path,
					}).Error("handler panicked")
					respond.JSON(w, http.StatusInternalServerError, respond.ErrorBody{Error: "Something broke!"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
