package intake

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/gabriel-vasile/mimetype"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Upload errors.
var (
	ErrEmptyUpload     = errors.New("empty upload")
	ErrUploadTooLarge  = errors.New("upload too large")
	ErrUnsupportedType = errors.New("unsupported content type")
)

// CheckUpload enforces size and type limits on an uploaded document.
// The content type is sniffed from the bytes; the client's declared type
// is ignored.
func CheckUpload(cfg domain.UploadConfig, filename string, data []byte) (domain.Upload, error) {
	if len(data) == 0 {
		return domain.Upload{}, ErrEmptyUpload
	}
	if cfg.MaxBytes > 0 && int64(len(data)) > cfg.MaxBytes {
		return domain.Upload{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrUploadTooLarge, len(data), cfg.MaxBytes)
	}

	mt := mimetype.Detect(data)
	allowed := slices.ContainsFunc(cfg.AllowedTypes, func(t string) bool {
		return mt.Is(t)
	})
	if !allowed {
		return domain.Upload{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	return domain.Upload{
		Filename:    filepath.Base(filename),
		ContentType: mt.String(),
		Data:        data,
	}, nil
}
