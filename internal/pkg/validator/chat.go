package validator

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/futig/foodsafety-backend/internal/entity"
)

// The payload is forwarded to the model as-is, so it must be canonical standard base64.
var dataURLRe = regexp.MustCompile(`^data:(image/(?:png|jpeg|webp|gif));base64,([A-Za-z0-9+/]+={0,2})$`)

// ValidateChatRequest checks the transcript, the optional image and the county tag.
func (v *Validator) ValidateChatRequest(req *entity.ChatRequest) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("%w: messages", entity.ErrMissingField)
	}
	if v.cfg.MaxMessages > 0 && len(req.Messages) > v.cfg.MaxMessages {
		return fmt.Errorf("%w: %d messages (max %d)", entity.ErrInputTooLarge, len(req.Messages), v.cfg.MaxMessages)
	}

	for i, m := range req.Messages {
		if m.Role != entity.RoleUser && m.Role != entity.RoleAssistant {
			return fmt.Errorf("%w: messages[%d].role %q", entity.ErrInvalidFormat, i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" && m.Image == "" {
			return fmt.Errorf("%w: messages[%d].content", entity.ErrMissingField, i)
		}
		if v.cfg.MaxMessageLen > 0 && utf8.RuneCountInString(m.Content) > v.cfg.MaxMessageLen {
			return fmt.Errorf("%w: messages[%d] is longer than %d characters", entity.ErrInputTooLarge, i, v.cfg.MaxMessageLen)
		}
		if m.Image != "" {
			if m.Role != entity.RoleUser {
				return fmt.Errorf("%w: messages[%d] only user turns may carry images", entity.ErrInvalidImage, i)
			}
			if err := v.ValidateImage(m.Image); err != nil {
				return err
			}
		}
	}

	if req.LastUserTurn() == nil {
		return fmt.Errorf("%w: at least one user message", entity.ErrMissingField)
	}

	if req.Image != "" {
		if err := v.ValidateImage(req.Image); err != nil {
			return err
		}
	}

	if req.County != "" && !v.counties.Contains(req.County) {
		return fmt.Errorf("%w: %q", entity.ErrInvalidCounty, req.County)
	}
	return nil
}

// ValidateImage accepts base64 data URLs of common raster formats within the size limit.
func (v *Validator) ValidateImage(dataURL string) error {
	m := dataURLRe.FindStringSubmatch(dataURL)
	if m == nil {
		return fmt.Errorf("%w: expected a base64 data URL with an image MIME type", entity.ErrInvalidImage)
	}

	decoded, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return fmt.Errorf("%w: malformed base64 payload", entity.ErrInvalidImage)
	}
	if len(decoded) == 0 {
		return fmt.Errorf("%w: empty image", entity.ErrInvalidImage)
	}
	if v.cfg.MaxImageSize > 0 && len(decoded) > v.cfg.MaxImageSize {
		return fmt.Errorf("%w: image is %d bytes (max %d)", entity.ErrInputTooLarge, len(decoded), v.cfg.MaxImageSize)
	}
	return nil
}

func (v *Validator) ValidateExportRequest(req *entity.ExportRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("%w: message", entity.ErrMissingField)
	}
	if v.cfg.MaxMessageLen > 0 && utf8.RuneCountInString(req.Question) > v.cfg.MaxMessageLen {
		return fmt.Errorf("%w: question is longer than %d characters", entity.ErrInputTooLarge, v.cfg.MaxMessageLen)
	}
	if req.County != "" && !v.counties.Contains(req.County) {
		return fmt.Errorf("%w: %q", entity.ErrInvalidCounty, req.County)
	}
	return nil
}
