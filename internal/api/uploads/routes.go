// Package uploads exposes the file intake endpoint.
package uploads

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterUploadRoutes registers the upload route. mw wraps the handler,
// outermost first.
func RegisterUploadRoutes(r *mux.Router, handler *UploadHandler, mw ...func(http.Handler) http.Handler) {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		handler.Log.Infof("[Upload] %s %s", req.Method, req.URL.Path)
		handler.UploadFile(w, req)
	})
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	r.Handle("/api/v1/uploadFile", h).Methods(http.MethodPost)
}
