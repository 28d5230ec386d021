// Package respond writes JSON bodies and translates errors into the stable
// {error, details} shape.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Vasu1712/algonomic-backend/internal/apperr"
)

// ErrorBody is the body of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes err. An *apperr.Error keeps its message and details; anything
// else becomes a generic 500 and is only logged.
func Error(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		log.WithError(err).Error("unhandled error")
		JSON(w, http.StatusInternalServerError, ErrorBody{Error: "Something broke!"})
		return
	}

	status := apperr.HTTPStatus(ae.Code)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("code", ae.Code).Error("request failed")
	}
	JSON(w, status, ErrorBody{Error: ae.Message, Details: ae.Details})
}
