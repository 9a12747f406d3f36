package validator

import (
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/futig/foodsafety-backend/internal/entity"
)

var AllowedExtensions = map[string]bool{
	".pdf":      true,
	".docx":     true,
	".html":     true,
	".htm":      true,
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// ValidateUpload checks an uploaded document's extension and size.
func (v *Validator) ValidateUpload(file *multipart.FileHeader) error {
	if file == nil {
		return fmt.Errorf("%w: file", entity.ErrMissingField)
	}

	ext := fileExtension(file)
	if !AllowedExtensions[ext] {
		return fmt.Errorf("%w: %q (allowed: pdf, docx, html, txt, md)", entity.ErrUnsupportedFileType, ext)
	}
	if file.Size > v.cfg.MaxFileSize {
		return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, file.Filename, file.Size, v.cfg.MaxFileSize)
	}
	return nil
}

func (v *Validator) ValidateIngestText(req *entity.IngestTextRequest) error {
	if strings.TrimSpace(req.Source) == "" {
		return fmt.Errorf("%w: source", entity.ErrMissingField)
	}
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("%w: text", entity.ErrMissingField)
	}
	if int64(len(req.Text)) > v.cfg.MaxFileSize {
		return fmt.Errorf("%w: text is %d bytes (max %d)", entity.ErrInputTooLarge, len(req.Text), v.cfg.MaxFileSize)
	}
	if req.Page != nil && *req.Page < 1 {
		return fmt.Errorf("%w: page must be positive", entity.ErrInvalidFormat)
	}
	return v.ValidateCounty(req.County)
}

// ValidateCounty requires a known county tag.
func (v *Validator) ValidateCounty(county string) error {
	if strings.TrimSpace(county) == "" {
		return fmt.Errorf("%w: county", entity.ErrMissingField)
	}
	if !v.counties.Contains(county) {
		return fmt.Errorf("%w: %q", entity.ErrInvalidCounty, county)
	}
	return nil
}
