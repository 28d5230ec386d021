// Package generate exposes the variation grid endpoint.
package generate

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterGenerateRoutes registers the generation route.
func RegisterGenerateRoutes(r *mux.Router, handler *GenerateHandler) {
	r.HandleFunc("/api/v1/generate/{fileId}", func(w http.ResponseWriter, req *http.Request) {
		handler.Log.Infof("[Generate] %s %s", req.Method, req.URL.Path)
		handler.Generate(w, req)
	}).Methods(http.MethodGet)
}
