package office

import (
	"fmt"
	"strings"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/unidoc/unioffice/common/license"
)

// Activate registers the metered unioffice key. DOCX reading and writing refuse to run without it.
func Activate(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("%w: UNIDOC_LICENSE_API_KEY is not set", entity.ErrConfiguration)
	}
	if err := license.SetMeteredKey(apiKey); err != nil {
		return fmt.Errorf("%w: set unioffice key: %v", entity.ErrConfiguration, err)
	}
	return nil
}

// IsLicenseError reports whether err comes from unioffice's license gate rather than the document.
func IsLicenseError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "license")
}

// WrapError classifies a unioffice failure: license problems become entity.ErrConfiguration,
// anything else is attributed to the document via fallback.
func WrapError(op string, err error, fallback error) error {
	if IsLicenseError(err) {
		return fmt.Errorf("%w: %s: %v", entity.ErrConfiguration, op, err)
	}
	return fmt.Errorf("%w: %s: %v", fallback, op, err)
}
