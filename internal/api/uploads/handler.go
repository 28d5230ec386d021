package uploads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Vasu1712/algonomic-backend/internal/api/respond"
	"github.com/Vasu1712/algonomic-backend/internal/apperr"
	"github.com/Vasu1712/algonomic-backend/internal/middleware"
	uploadsvc "github.com/Vasu1712/algonomic-backend/internal/uploads"
)

// formField is the multipart field that carries the image.
const formField = "file"

// multipart framing allowance on top of the file size ceiling
const envelopeSlack = 1 << 20

// Publisher delivers an event to a user's live connections.
type Publisher interface {
	Publish(userID string, data []byte)
}

// UploadHandler holds the dependencies for the upload endpoint.
type UploadHandler struct {
	Service *uploadsvc.Service
	Hub     Publisher
	Log     logrus.FieldLogger
}

// StoredEvent is published to the uploader's websocket clients.
type StoredEvent struct {
	Type   string `json:"type"`
	FileID string `json:"fileId"`
}

// UploadFile handles POST /api/v1/uploadFile with a single multipart "file"
// field and responds with the file id and a data URI of the stored bytes.
func (h *UploadHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	part, err := h.readPart(w, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	id, signedIn := middleware.IdentityFrom(r.Context())
	if signedIn {
		part.OwnerID = id.UserID
	}

	res, err := h.Service.Upload(r.Context(), part)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	respond.JSON(w, http.StatusOK, res)

	if signedIn && h.Hub != nil {
		data, err := json.Marshal(StoredEvent{Type: "upload.stored", FileID: res.FileID})
		if err == nil {
			h.Hub.Publish(id.UserID, data)
		}
	}

	h.Service.Complete(context.WithoutCancel(r.Context()), res.FileID)
}

// readPart streams the multipart body and returns the single file part. The
// part is read through a limited reader so an oversized file is rejected
// before anything is stored.
func (h *UploadHandler) readPart(w http.ResponseWriter, r *http.Request) (uploadsvc.Part, error) {
	limit := h.Service.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+envelopeSlack)

	mr, err := r.MultipartReader()
	if err != nil {
		return uploadsvc.Part{}, apperr.New(apperr.CodeInvalidInput, "No file uploaded")
	}

	var (
		part  uploadsvc.Part
		found bool
	)
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return uploadsvc.Part{}, h.readError(err, limit)
		}

		if p.FileName() == "" {
			if _, err := io.Copy(io.Discard, p); err != nil {
				return uploadsvc.Part{}, h.readError(err, limit)
			}
			continue
		}
		if p.FormName() != formField {
			return uploadsvc.Part{}, apperr.New(apperr.CodeInvalidInput, "Unexpected field")
		}
		if found {
			return uploadsvc.Part{}, apperr.New(apperr.CodeInvalidInput, "Only one file may be uploaded")
		}

		data, err := io.ReadAll(io.LimitReader(p, limit+1))
		if err != nil {
			return uploadsvc.Part{}, h.readError(err, limit)
		}
		if int64(len(data)) > limit {
			return uploadsvc.Part{}, tooLarge(limit)
		}
		part = uploadsvc.Part{Name: p.FileName(), Data: data}
		found = true
	}

	if !found {
		return uploadsvc.Part{}, apperr.New(apperr.CodeInvalidInput, "No file uploaded")
	}
	return part, nil
}

func (h *UploadHandler) readError(err error, limit int64) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return tooLarge(limit)
	}
	h.Log.WithError(err).Warn("[Upload] malformed multipart body")
	return &apperr.Error{
		Code:    apperr.CodeInvalidInput,
		Message: "Malformed upload",
		Details: "request body is not a valid multipart form",
		Cause:   err,
	}
}

func tooLarge(limit int64) error {
	return &apperr.Error{
		Code:    apperr.CodePayloadTooLarge,
		Message: "File too large",
		Details: fmt.Sprintf("maximum upload size is %d bytes", limit),
	}
}
