package orders

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
)

const minJPEGQuality = 40

// Downscale decodes an uploaded photo, caps its longest side at maxDim and
// re-encodes it as JPEG, stepping quality down until the payload fits
// targetBytes. The target is best effort: the lowest-quality encoding is
// returned even when it stays above the target.
func Downscale(data []byte, maxDim, targetBytes, quality int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnsupportedFileType, err, "decode image")
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxDim || height > maxDim {
		if width >= height {
			height = height * maxDim / width
			width = maxDim
		} else {
			width = width * maxDim / height
			height = maxDim
		}
		if width < 1 {
			width = 1
		}
		if height < 1 {
			height = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	for q := quality; ; q -= 10 {
		buf.Reset()
		if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: q}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode jpeg")
		}
		if buf.Len() <= targetBytes || q-10 < minJPEGQuality {
			break
		}
	}
	return buf.Bytes(), nil
}
