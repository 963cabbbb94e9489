package pdfdoc

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
	"github.com/wailsapp/mimetype"
)

// images wider than this many pixels are scaled down before embedding
const maxImageWidthPx = 1600

type preparedImage struct {
	png    []byte
	width  int
	height int
}

// prepareImage decodes a png, jpeg or gif upload, scales it down when it is
// very wide and re-encodes it as png for embedding.
func prepareImage(content []byte) (*preparedImage, error) {
	mType := mimetype.Detect(content)
	if mType == nil {
		return nil, fmt.Errorf("unknown image type")
	}

	var img image.Image
	var err error

	switch mType.String() {
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(content))
	case "image/png":
		img, err = png.Decode(bytes.NewReader(content))
	case "image/gif":
		img, err = gif.Decode(bytes.NewReader(content))
	default:
		return nil, fmt.Errorf("unsupported image format: %s", mType.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if img.Bounds().Dx() > maxImageWidthPx {
		img = resize.Resize(maxImageWidthPx, 0, img, resize.Lanczos3)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
	}

	return &preparedImage{
		png:    buf.Bytes(),
		width:  bounds.Dx(),
		height: bounds.Dy(),
	}, nil
}

// fitBox scales w×h to fit inside maxW×maxH keeping the aspect ratio.
func fitBox(w, h int, maxW, maxH float64) (float64, float64) {
	scale := min(maxW/float64(w), maxH/float64(h))
	return float64(w) * scale, float64(h) * scale
}
