package contracts

import (
	"encoding/base64"
	"fmt"
	"time"
)

// EncodingBase64 is the only byte encoding currently produced for file content.
const EncodingBase64 = "base64"

// FilePayload carries binary file content across the broker. The wire format
// is JSON, so the bytes travel as text and name their own encoding.
type FilePayload struct {
	OriginalName string `json:"originalName" validate:"required"`
	MimeType     string `json:"mimeType" validate:"required"`
	Size         int64  `json:"size"`
	Encoding     string `json:"encoding" validate:"required"`
	Data         string `json:"data"`
}

func NewFilePayload(originalName, mimeType string, content []byte) FilePayload {
	return FilePayload{
		OriginalName: originalName,
		MimeType:     mimeType,
		Size:         int64(len(content)),
		Encoding:     EncodingBase64,
		Data:         base64.StdEncoding.EncodeToString(content),
	}
}

// Bytes reconstructs the binary content.
func (p FilePayload) Bytes() ([]byte, error) {
	switch p.Encoding {
	case EncodingBase64:
		b, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 file content: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported file encoding %q", p.Encoding)
	}
}

// UploadFileRequest is the payload of PatternUploadFile. Email is the
// uploader's address, used only for the upload notification.
type UploadFileRequest struct {
	File   FilePayload `json:"file" validate:"required"`
	UserID string      `json:"userId" validate:"required"`
	Email  string      `json:"email,omitempty" validate:"omitempty,email"`
}

// FileRef addresses one file owned by one user.
type FileRef struct {
	FileID string `json:"fileId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

type FileRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	OriginalName string    `json:"originalName"`
	Filename     string    `json:"filename"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	URL          string    `json:"url"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

type DeleteFileResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
