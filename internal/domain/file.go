package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

const MaxFileSize = 5 << 20

var allowedMimeTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
}

type File struct {
	ID           string
	UserID       string
	OriginalName string
	Filename     string
	MimeType     string
	Size         int64
	S3Key        string
	URL          string
	UploadedAt   time.Time
}

// ValidateUpload enforces the accepted MIME types and the size limit. Both
// violations are reported together when they coincide.
func ValidateUpload(mimeType string, size int64) error {
	_, typeOK := allowedMimeTypes[strings.ToLower(mimeType)]
	sizeOK := size <= MaxFileSize

	switch {
	case !typeOK && !sizeOK:
		return fmt.Errorf("%w: %s is not allowed and %d bytes exceeds the %d byte limit",
			ErrUnsupportedFileType, mimeType, size, MaxFileSize)
	case !typeOK:
		return fmt.Errorf("%w: %s is not allowed, only PDF and JPEG files are accepted", ErrUnsupportedFileType, mimeType)
	case !sizeOK:
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, size, MaxFileSize)
	}
	return nil
}

// ObjectKey returns the storage key for a new object owned by userID. The
// extension comes from the original name, or from the MIME type when the name
// has none.
func ObjectKey(userID, objectID, originalName, mimeType string) string {
	ext := strings.ToLower(path.Ext(originalName))
	if ext == "" {
		ext = allowedMimeTypes[strings.ToLower(mimeType)]
	}
	return fmt.Sprintf("users/%s/%s%s", userID, objectID, ext)
}
