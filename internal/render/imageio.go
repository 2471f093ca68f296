package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// LoadBaseImage decodes a stimulus image (PNG, JPEG, BMP, TIFF or WebP).
func LoadBaseImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &InputNotFoundError{Path: path, Err: err}
		}
		return nil, &RenderError{Op: "decode", Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &RenderError{Op: "decode", Path: path, Err: err}
	}
	return img, nil
}

// workingCopy returns an opaque RGBA copy of base anchored at the origin.
// Transparent areas of base are flattened onto white.
func workingCopy(base image.Image) *image.RGBA {
	b := base.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), base, b.Min, draw.Over)
	return dst
}

// SavePNG writes img to path as PNG. Parent directories are created as
// needed. The file is written to a temporary name in the same directory and
// renamed into place, so a partially written artifact is never visible
// under path.
func SavePNG(img image.Image, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Path: path, Err: fmt.Errorf("encoding png: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}
