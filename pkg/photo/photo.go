// Package photo turns client uploads into stored JPEG assets.
package photo

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"

	"zeptical/pkg/apperr"
	"zeptical/pkg/asset"
	"zeptical/pkg/logger"
	"zeptical/pkg/metrics"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	DefaultQuality = 70
	MaxBytes       = 15 << 20
	AvatarMaxBytes = 5 << 20
	MaxPixels      = 50_000_000
)

var allowedTypes = []string{"image/jpeg", "image/jpg", "image/png"}

// Upload is a file received from a client. Open may be called more than once.
type Upload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// FromMultipart wraps a multipart file header. A nil header yields a nil Upload.
func FromMultipart(fh *multipart.FileHeader) *Upload {
	if fh == nil {
		return nil
	}
	return &Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open:     func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// FromBytes wraps an in-memory file.
func FromBytes(name string, b []byte) *Upload {
	return &Upload{
		Filename: name,
		Size:     int64(len(b)),
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(b)), nil },
	}
}

// Validate reads the upload, enforcing maxBytes and the jpeg/png allow-list
// on the sniffed content type. It returns the file contents.
func Validate(u *Upload, maxBytes int64) ([]byte, error) {
	if u == nil || u.Open == nil {
		return nil, apperr.New(apperr.KindValidation, "file is required")
	}
	if maxBytes <= 0 {
		maxBytes = MaxBytes
	}
	if u.Size > maxBytes {
		return nil, tooLarge(maxBytes)
	}
	rc, err := u.Open()
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindAssetProcessing, "could not read the uploaded file")
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxBytes+1))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindAssetProcessing, "could not read the uploaded file")
	}
	if int64(len(data)) > maxBytes {
		return nil, tooLarge(maxBytes)
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		return nil, apperr.New(apperr.KindUnsupportedMedia, "Only JPG, JPEG and PNG images are allowed")
	}
	// header only; the pixel data is decoded later by Process
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindAssetProcessing, "could not process the image")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, apperr.New(apperr.KindUnsupportedMedia, fmt.Sprintf("Image dimensions are too large (max %d megapixels)", MaxPixels/1_000_000))
	}
	return data, nil
}

func tooLarge(maxBytes int64) error {
	return apperr.New(apperr.KindPayloadTooLarge, fmt.Sprintf("File is too large (max %dMB)", maxBytes>>20))
}

// Pipeline validates, transcodes and stores uploads, and discards replaced assets.
type Pipeline struct {
	store   asset.Store
	quality int
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(store asset.Store, quality int, log *zap.Logger, m *metrics.Metrics) *Pipeline {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Pipeline{store: store, quality: quality, log: logger.OrNop(log).Named("photo"), metrics: m}
}

// Process stores u as a JPEG in cat and returns its public URL.
func (p *Pipeline) Process(ctx context.Context, cat asset.Category, u *Upload, maxBytes int64) (string, error) {
	data, err := Validate(u, maxBytes)
	if err != nil {
		p.metrics.UploadRejected(string(apperr.KindOf(err)))
		return "", err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		p.metrics.UploadRejected(string(apperr.KindAssetProcessing))
		return "", apperr.Wrap(err, apperr.KindAssetProcessing, "could not process the image")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return "", apperr.Wrap(err, apperr.KindAssetProcessing, "could not process the image")
	}

	name, err := p.store.Put(ctx, cat, bytes.NewReader(buf.Bytes()), ".jpeg")
	p.metrics.AssetWritten(string(cat), err)
	if err != nil {
		p.log.Error("store asset", zap.String("category", string(cat)), zap.Error(err))
		return "", err
	}
	url := p.store.URL(cat, name)
	p.log.Debug("asset stored",
		zap.String("category", string(cat)),
		zap.String("url", url),
		zap.Int("bytes", buf.Len()),
	)
	return url, nil
}

// Replace stores u and then discards oldURL. The new URL is returned even when
// the old file could not be removed. Callers that persist the URL themselves
// should use Process and Discard around their own write instead.
func (p *Pipeline) Replace(ctx context.Context, cat asset.Category, oldURL string, u *Upload, maxBytes int64) (string, error) {
	url, err := p.Process(ctx, cat, u, maxBytes)
	if err != nil {
		return "", err
	}
	if oldURL != "" && oldURL != url {
		p.Discard(ctx, cat, oldURL)
	}
	return url, nil
}

// Discard deletes a stored asset. Failures are logged, never returned.
func (p *Pipeline) Discard(ctx context.Context, cat asset.Category, url string) {
	if url == "" {
		return
	}
	err := p.store.Delete(ctx, cat, url)
	p.metrics.AssetDeleted(string(cat), err)
	if err != nil {
		p.log.Warn("discard asset", zap.String("category", string(cat)), zap.String("url", url), zap.Error(err))
	}
}
