package models

import "time"

// Upload is the metadata kept for one stored upload. The bytes themselves live
// in a blob backend under StoredPath.
type Upload struct {
	FileID       string    `json:"fileId"`       // 12-character random identifier
	OriginalName string    `json:"originalName"` // Client-supplied file name
	Ext          string    `json:"ext"`          // Lower-cased extension of OriginalName, with the dot
	MimeType     string    `json:"mimeType"`     // Sniffed content type
	Size         int64     `json:"size"`         // Payload length in bytes
	StoredPath   string    `json:"storedPath"`   // Blob key: <fileId><ext>
	OwnerID      string    `json:"ownerId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"` // Zero for ephemeral uploads
}

// Expired reports whether the upload is past its expiry at now.
func (u Upload) Expired(now time.Time) bool {
	return !u.ExpiresAt.IsZero() && !now.Before(u.ExpiresAt)
}
