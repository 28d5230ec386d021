package generate

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Vasu1712/algonomic-backend/internal/api/respond"
	"github.com/Vasu1712/algonomic-backend/internal/apperr"
	"github.com/Vasu1712/algonomic-backend/internal/models"
)

// Generator produces the variant grid for a stored upload.
type Generator interface {
	Generate(ctx context.Context, fileID string) ([]models.Variant, error)
}

// GenerateHandler serves the variation grid.
type GenerateHandler struct {
	Generator Generator
	Log       logrus.FieldLogger
}

type successResponse struct {
	Success    bool             `json:"success"`
	Variations []models.Variant `json:"variations"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Generate handles GET /api/v1/generate/{fileId}.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["fileId"]

	variants, err := h.Generator.Generate(r.Context(), fileID)
	if err != nil {
		msg := "Failed to generate variations"
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Code == apperr.CodeSourceNotFound {
			msg = ae.Message
		} else {
			h.Log.WithError(err).WithField("file_id", fileID).Error("variation generation failed")
		}
		respond.JSON(w, http.StatusInternalServerError, failureResponse{Success: false, Error: msg})
		return
	}

	respond.JSON(w, http.StatusOK, successResponse{Success: true, Variations: variants})
}
