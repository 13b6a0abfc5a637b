// Package imageprep bounds captured photos to a transportable size.
//
// Prepared images exist purely to cap the payload carried by the offline
// queue and the network call; no analysis happens here.
package imageprep

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	// register decoders for the formats a camera or picker produces
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/gusuihan4-tech/kaluli/internal/apperror"
)

// Preparer decodes, downscales, and re-encodes images.
type Preparer struct {
	maxWidth int
	quality  int
}

// New returns a Preparer capping output width at maxWidth pixels and
// re-encoding at the given JPEG quality (1-100).
func New(maxWidth, quality int) *Preparer {
	if maxWidth <= 0 {
		maxWidth = 1024
	}
	if quality <= 0 || quality > 100 {
		quality = 70
	}
	return &Preparer{maxWidth: maxWidth, quality: quality}
}

// Prepare decodes raw image bytes, proportionally scales the image down to
// the configured max width, and returns it as a JPEG data URI. Images
// already within bounds are still re-encoded so every queued payload has
// the same format and quality.
func (p *Preparer) Prepare(raw []byte) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperror.ErrDecode, err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > p.maxWidth {
		h = h * p.maxWidth / w
		if h < 1 {
			h = 1
		}
		w = p.maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.quality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
