package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"savvybot-backend/internal/notify"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// MaxDocumentSize is the largest document accepted for upload.
const MaxDocumentSize = 10 << 20

// AllowedDocumentExtensions lists accepted extensions, lower-case and without the dot.
var AllowedDocumentExtensions = []string{"pdf", "docx", "jpg", "jpeg", "png", "webp", "heic", "gif"}

// ValidateDocument checks a file before anything is sent.
func ValidateDocument(name string, size int64) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if !slices.Contains(AllowedDocumentExtensions, ext) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFileType, name)
	}
	if size > MaxDocumentSize {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}
	return nil
}

// DocumentUploader receives validated documents.
type DocumentUploader interface {
	UploadDocument(ctx context.Context, name string, r io.Reader) error
}

// UploadDocument validates and uploads one document, reporting the outcome as a notification.
func UploadDocument(ctx context.Context, up DocumentUploader, n notify.Sink, name string, size int64, r io.Reader) error {
	if err := ValidateDocument(name, size); err != nil {
		desc := "Please upload a PDF, DOCX or image file."
		title := "Unsupported file type"
		if errors.Is(err, ErrFileTooLarge) {
			title = "File too large"
			desc = "Please upload a file under 10 MB."
		}
		n.Notify(notify.Notification{Title: title, Description: desc})
		return err
	}

	if err := up.UploadDocument(ctx, filepath.Base(name), r); err != nil {
		n.Notify(notify.Notification{Title: "Error", Description: "Could not upload document. Please try again."})
		return fmt.Errorf("upload document: %w", err)
	}
	n.Notify(notify.Notification{
		Title:       "Upload successful",
		Description: fmt.Sprintf("Your document %q has been uploaded.", filepath.Base(name)),
	})
	return nil
}
