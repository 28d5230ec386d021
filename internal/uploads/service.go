package uploads

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Vasu1712/algonomic-backend/internal/apperr"
	"github.com/Vasu1712/algonomic-backend/internal/config"
	"github.com/Vasu1712/algonomic-backend/internal/metrics"
)

// Part is one uploaded file as read from the request.
type Part struct {
	Name    string
	Data    []byte
	OwnerID string // empty for anonymous uploads
}

// Result is the body returned for a successful upload.
type Result struct {
	FileID       string `json:"fileId"`
	CroppedImage string `json:"croppedImage"`
}

// Service runs one upload request end to end.
type Service struct {
	store    *Store
	maxBytes int64
	policy   string
	log      logrus.FieldLogger
}

// NewService creates a Service. policy is config.RetentionDurable or
// config.RetentionEphemeral.
func NewService(store *Store, maxBytes int64, policy string, log logrus.FieldLogger) *Service {
	return &Service{
		store:    store,
		maxBytes: maxBytes,
		policy:   policy,
		log:      log,
	}
}

// MaxBytes is the per-file size ceiling.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

// Ephemeral reports whether uploads are discarded once the response is sent.
func (s *Service) Ephemeral() bool { return s.policy == config.RetentionEphemeral }

// Upload stores the part, reads it back and returns it as a data URI.
func (s *Service) Upload(ctx context.Context, part Part) (Result, error) {
	if len(part.Data) == 0 {
		metrics.RecordUpload("invalid")
		return Result{}, apperr.New(apperr.CodeInvalidInput, "No file uploaded")
	}
	if int64(len(part.Data)) > s.maxBytes {
		metrics.RecordUpload("too_large")
		return Result{}, apperr.New(apperr.CodePayloadTooLarge, "File too large")
	}

	u, err := s.store.Store(ctx, part.Data, part.Name, part.OwnerID)
	if err != nil {
		return Result{}, s.failed(err)
	}

	data, err := s.store.Read(ctx, u.FileID)
	if err != nil {
		_ = s.store.Discard(ctx, u.FileID)
		return Result{}, s.failed(err)
	}

	metrics.RecordUpload("ok")
	s.log.WithFields(logrus.Fields{
		"file_id": u.FileID,
		"size":    u.Size,
		"mime":    u.MimeType,
	}).Info("upload stored")

	return Result{
		FileID:       u.FileID,
		CroppedImage: DataURI(u.MimeType, data),
	}, nil
}

// Complete runs after the response has been written. Under the ephemeral
// policy it discards the stored bytes; under the durable policy it does
// nothing and the sweeper expires the upload later.
func (s *Service) Complete(ctx context.Context, fileID string) {
	if !s.Ephemeral() {
		return
	}
	if err := s.store.Discard(ctx, fileID); err != nil {
		s.log.WithError(err).WithField("file_id", fileID).Warn("discard after response failed")
		return
	}
	s.log.WithField("file_id", fileID).Debug("temporary upload cleaned up")
}

func (s *Service) failed(err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Code == apperr.CodeInvalidInput {
		metrics.RecordUpload("invalid")
		return ae
	}
	metrics.RecordUpload("failed")
	s.log.WithError(err).Error("upload failed")
	return apperr.Wrap(apperr.CodeUploadFailed, "Error processing upload", err)
}

// DataURI encodes data as a self-describing data URI. Non-image types are
// labelled image/jpeg, the type clients expect for previews.
func DataURI(mimeType string, data []byte) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mimeType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}
