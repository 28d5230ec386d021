// Package onboarding exposes the onboarding websocket.
package onboarding

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterOnboardingRoutes registers the websocket route.
func RegisterOnboardingRoutes(r *mux.Router, handler *OnboardingHandler) {
	r.HandleFunc("/ws/onboarding", func(w http.ResponseWriter, req *http.Request) {
		handler.Log.Infof("[Onboarding] WebSocket %s", req.URL.Path)
		handler.ServeWS(w, req)
	}).Methods(http.MethodGet)
}
