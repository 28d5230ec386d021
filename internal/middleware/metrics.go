package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Vasu1712/algonomic-backend/internal/metrics"
)

// Metrics records request counts and latency labelled by route template.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		done := metrics.RequestStarted(r.Method, route)
		sr := newStatusRecorder(w)
		next.ServeHTTP(sr, r)
		done(sr.status)
	})
}
