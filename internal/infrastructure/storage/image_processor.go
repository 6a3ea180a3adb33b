package storage

import (
	"bytes"
	"errors"
	"fmt"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyPayload = errors.New("empty payload")
	ErrNotAnImage   = errors.New("payload is not an image")
	ErrTooLarge     = errors.New("payload exceeds size limit")
)

// ImageInfo is what the processor derives from raw bytes.
// Width/Height stay nil for image types Go cannot decode (svg, heic...).
type ImageInfo struct {
	MimeType  string
	Extension string
	Size      int64
	Width     *int
	Height    *int
}

type ImageProcessor struct {
	MaxSize int64 // bytes
}

func NewImageProcessor(maxSize int64) *ImageProcessor {
	return &ImageProcessor{MaxSize: maxSize}
}

// Probe sniffs the MIME type from content, rejects anything that is not image/*
// and reads the displayed dimensions (EXIF orientation applied).
func (p *ImageProcessor) Probe(data []byte) (*ImageInfo, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	if p.MaxSize > 0 && int64(len(data)) > p.MaxSize {
		return nil, fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, len(data), p.MaxSize)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotAnImage, mt.String())
	}

	info := &ImageInfo{
		MimeType:  baseMime(mt.String()),
		Extension: mt.Extension(),
		Size:      int64(len(data)),
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		b := img.Bounds()
		if w, h := b.Dx(), b.Dy(); w > 0 && h > 0 {
			info.Width, info.Height = &w, &h
		}
	}

	return info, nil
}

// baseMime drops parameters such as "; charset=utf-8".
func baseMime(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		return strings.TrimSpace(m[:i])
	}
	return m
}
