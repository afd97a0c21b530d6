package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"minisocial/internal/config"
	"minisocial/internal/models"
	"minisocial/internal/observability"
	"minisocial/internal/storage"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	MaxImageSide = 2048
	WebPQuality  = 80
	// MaxImagePixels bounds the decoded size of an upload. The header is
	// checked before decoding since the decoder allocates from it.
	MaxImagePixels = 40_000_000

	defaultMediaMaxBytes = 10 * 1024 * 1024
)

var videoExt = map[string]string{
	"video/mp4":  "mp4",
	"video/webm": "webm",
}

type UploadMediaInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// MediaService turns uploaded bytes into a stored object and hands back the
// public reference. Images are normalised to WebP; videos are kept as sent.
type MediaService struct {
	store    storage.ObjectStorage
	baseURL  string
	maxBytes int64
}

func NewMediaService(store storage.ObjectStorage, cfg *config.Config) *MediaService {
	s := &MediaService{store: store, baseURL: "/uploads", maxBytes: defaultMediaMaxBytes}
	if cfg != nil {
		if cfg.MediaPublicBaseURL != "" {
			s.baseURL = cfg.MediaPublicBaseURL
		}
		s.maxBytes = cfg.MediaMaxUploadBytes()
	}
	return s
}

// Upload stores in.Content and returns its media URL.
func (s *MediaService) Upload(ctx context.Context, in UploadMediaInput) (string, error) {
	if len(in.Content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	detected := http.DetectContentType(in.Content)

	var (
		body        []byte
		ext         string
		contentType string
		kind        string
	)
	if e, ok := videoExt[detected]; ok {
		body, ext, contentType, kind = in.Content, e, detected, "video"
	} else {
		if !isAllowedImageMIME(detected) {
			return "", models.NewValidationError("Unsupported media type")
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Content))
		if err != nil {
			return "", models.NewValidationError("Invalid image file")
		}
		if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
			return "", models.NewValidationError(fmt.Sprintf("Image dimensions too large (max %d pixels)", MaxImagePixels))
		}
		decoded, _, err := image.Decode(bytes.NewReader(in.Content))
		if err != nil {
			return "", models.NewValidationError("Invalid image file")
		}
		encoded, err := encodeWebP(resizeToFit(decoded, MaxImageSide, MaxImageSide), WebPQuality)
		if err != nil {
			return "", models.NewInternalError(err)
		}
		body, ext, contentType, kind = encoded, "webp", "image/webp", "image"
	}

	key := "media/" + uuid.NewString() + "." + ext
	if err := s.store.Put(ctx, key, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
		return "", models.NewStorageUnavailableError(err)
	}
	observability.MediaUploadBytes.WithLabelValues(kind).Observe(float64(len(body)))

	return s.baseURL + "/" + key, nil
}

// Discard deletes the object behind a URL returned by Upload. URLs that
// did not come from this service are ignored.
func (s *MediaService) Discard(ctx context.Context, mediaURL string) error {
	key, ok := strings.CutPrefix(mediaURL, s.baseURL+"/")
	if !ok || !strings.HasPrefix(key, "media/") {
		return nil
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return models.NewStorageUnavailableError(err)
	}
	return nil
}

func isAllowedImageMIME(mime string) bool {
	switch mime {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
