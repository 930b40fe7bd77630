package processor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/musicwidget/internal/domain"
	"go.uber.org/zap"
)

// ThumbnailProcessor turns album art into the square widget thumbnail
type ThumbnailProcessor struct {
	logger *zap.Logger
	size   int
}

// NewThumbnailProcessor creates a processor producing art_size x art_size PNGs
func NewThumbnailProcessor(logger *zap.Logger, cfg domain.Config) *ThumbnailProcessor {
	return &ThumbnailProcessor{
		logger: logger,
		size:   cfg.GetArtSize(),
	}
}

// Process decodes imageData, center-crops it to a square and encodes it as PNG
func (p *ThumbnailProcessor) Process(ctx context.Context, imageData []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(imageData), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	thumb := imaging.Fill(img, p.size, p.size, imaging.Center, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, thumb, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	p.logger.Debug("Thumbnail created",
		zap.Int("srcWidth", bounds.Dx()),
		zap.Int("srcHeight", bounds.Dy()),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

var _ domain.ImageProcessor = (*ThumbnailProcessor)(nil)
