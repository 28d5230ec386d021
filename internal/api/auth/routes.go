// Package auth exposes the account endpoints.
package auth

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Vasu1712/algonomic-backend/internal/middleware"
)

// RegisterAuthRoutes registers sign-up, login and the protected endpoint.
func RegisterAuthRoutes(r *mux.Router, handler *AuthHandler, verifier middleware.Verifier) {
	r.HandleFunc("/api/signup", func(w http.ResponseWriter, req *http.Request) {
		handler.Log.Infof("[Auth] %s %s", req.Method, req.URL.Path)
		handler.SignUp(w, req)
	}).Methods(http.MethodPost)

	r.HandleFunc("/api/login", func(w http.ResponseWriter, req *http.Request) {
		handler.Log.Infof("[Auth] %s %s", req.Method, req.URL.Path)
		handler.Login(w, req)
	}).Methods(http.MethodPost)

	r.Handle("/api/protected", middleware.RequireAuth(verifier)(http.HandlerFunc(handler.Protected))).
		Methods(http.MethodGet)
}
