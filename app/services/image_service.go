package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/reqid"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

// sniffLen is how much http.DetectContentType looks at.
const sniffLen = 512

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var unsafeName = regexp.MustCompile(`[^a-z0-9_-]+`)

// ImageService stores uploaded product images and hands back the reference
// to save on the product.
type ImageService struct {
	files    *storage.Manager
	maxBytes int64
	now      func() time.Time
	nonce    func() string
}

func NewImageService(files *storage.Manager, maxBytes int64) *ImageService {
	return &ImageService{
		files:    files,
		maxBytes: maxBytes,
		now:      time.Now,
		nonce:    func() string { return reqid.New()[:8] },
	}
}

// MaxBytes is the largest accepted upload.
func (s *ImageService) MaxBytes() int64 { return s.maxBytes }

// Store checks that r holds a supported image no larger than the limit and
// writes it under a fresh key derived from filename. The content decides
// the type; the client's extension and Content-Type are ignored.
func (s *ImageService) Store(ctx context.Context, filename string, r io.Reader) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", models.Invalid("image", "is empty")
	}

	contentType := http.DetectContentType(head)
	ext, ok := imageExt[contentType]
	if !ok {
		return "", models.Invalid("image", "must be a JPEG, PNG, WebP or GIF image")
	}

	// One byte past the limit is enough to know it is too big.
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxBytes+1)
	buf, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(buf)) > s.maxBytes {
		return "", models.Invalid("image", fmt.Sprintf("must not exceed %d MB", s.maxBytes>>20))
	}

	return s.files.Put(ctx, s.key(filename, ext), bytes.NewReader(buf), contentType)
}

func (s *ImageService) key(filename, ext string) string {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	base = strings.Trim(unsafeName.ReplaceAllString(base, "-"), "-")
	if len(base) > 40 {
		base = base[:40]
	}
	if base == "" {
		base = "img"
	}
	// Two uploads of the same name in one millisecond still get distinct keys.
	return fmt.Sprintf("%d-%s-%s%s", s.now().UnixMilli(), s.nonce(), base, ext)
}

// Discard removes an image stored by Store whose product write failed.
func (s *ImageService) Discard(ctx context.Context, ref string) {
	if err := s.files.DeleteRef(ctx, ref); err != nil {
		logger.WithCtx(ctx).Warn("discard upload failed", "ref", ref, "error", err)
	}
}
