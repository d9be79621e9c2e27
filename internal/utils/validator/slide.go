package validator

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// SlideValidator checks slide uploads before they are accepted into
// the pipeline.
type SlideValidator struct {
	config *ValidatorConfig
}

// ValidatorConfig holds validation settings.
type ValidatorConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// NewSlideValidator creates a validator; nil config uses defaults.
func NewSlideValidator(vc *ValidatorConfig) *SlideValidator {
	if vc == nil {
		vc = &ValidatorConfig{
			MaxFileSize:       8 << 30,
			AllowedExtensions: []string{".isyntax", ".i2syntax"},
		}
	}
	return &SlideValidator{config: vc}
}

// ValidateUpload rejects uploads that cannot be iSyntax slides.
func (v *SlideValidator) ValidateUpload(header *multipart.FileHeader) error {
	if header.Size <= 0 {
		return fmt.Errorf("empty upload: %s", header.Filename)
	}
	if header.Size > v.config.MaxFileSize {
		return fmt.Errorf("file size %d exceeds maximum of %d bytes", header.Size, v.config.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	for _, allowed := range v.config.AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("unsupported file type: %s", ext)
}
