package imagery

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	apperrors "go-deforestation-monitor/internal/errors"
	"go-deforestation-monitor/internal/logger"
)

// Loader decodes image files from disk into RawImage values.
type Loader struct{}

// NewLoader creates an image loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load decodes the file at path into a RawImage with canonical RGB channel
// order. It fails with an unreadable_image error when the path is missing,
// the data is corrupt, or the codec is unsupported.
func (l *Loader) Load(path string) (*RawImage, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.NewUnreadableImageError(fmt.Sprintf("could not load image: %s", path), err)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, apperrors.NewUnreadableImageError(fmt.Sprintf("could not load image: %s", path), err)
	}

	raw := &RawImage{
		Img:      img,
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
		Channels: channelCount(img),
	}

	logger.WithFields(logrus.Fields{
		"path":     path,
		"width":    raw.Width,
		"height":   raw.Height,
		"channels": raw.Channels,
	}).Debug("Loaded image")

	return raw, nil
}

// channelCount reports 1 for grayscale sources and 3 for everything else.
// Alpha is never carried into analysis.
func channelCount(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	default:
		return 3
	}
}
