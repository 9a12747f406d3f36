package validator

import (
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/futig/foodsafety-backend/internal/config"
)

type CountyCatalog interface {
	Contains(id string) bool
}

// Validator checks request payloads at the API boundary.
type Validator struct {
	cfg      config.FileUploadConfig
	counties CountyCatalog
}

func NewValidator(cfg config.FileUploadConfig, counties CountyCatalog) *Validator {
	return &Validator{cfg: cfg, counties: counties}
}

// SanitizeFilename sanitizes a filename for use as a source label
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		"\x00", "",
	)
	return strings.TrimSpace(replacer.Replace(filename))
}

func fileExtension(fh *multipart.FileHeader) string {
	return strings.ToLower(filepath.Ext(fh.Filename))
}
