// Package imagecodec shrinks embedded image payloads before they are stored.
//
// Payloads are data URLs (data:image/png;base64,...). Compress decodes one,
// scales it down to a maximum width keeping the aspect ratio, and re-encodes
// it as a JPEG data URL.
package imagecodec

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Defaults used when a Codec is created without explicit settings.
const (
	DefaultQuality  = 0.8
	DefaultMaxWidth = 800
)

var (
	// ErrInvalidArgument is returned for a quality outside (0,1] or a
	// non-positive maximum width.
	ErrInvalidArgument = errors.New("imagecodec: invalid argument")

	// ErrDecode is returned when the payload is not a decodable image.
	ErrDecode = errors.New("imagecodec: cannot decode image")

	// ErrEncode is returned when the scaled image cannot be re-encoded.
	ErrEncode = errors.New("imagecodec: cannot encode image")
)

const jpegPrefix = "data:image/jpeg;base64,"

// Compress decodes encoded, scales it to at most maxWidth pixels wide and
// re-encodes it as a JPEG data URL at the given quality in (0,1].
func Compress(ctx context.Context, encoded string, quality float64, maxWidth int) (string, error) {
	if quality <= 0 || quality > 1 || math.IsNaN(quality) {
		return "", fmt.Errorf("%w: quality %v not in (0,1]", ErrInvalidArgument, quality)
	}
	if maxWidth <= 0 {
		return "", fmt.Errorf("%w: max width %d", ErrInvalidArgument, maxWidth)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	_, data, err := parsePayload(encoded)
	if err != nil {
		return "", err
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	w, h := ScaledSize(src.Bounds().Dx(), src.Bounds().Dy(), maxWidth)

	// JPEG has no alpha channel; transparent areas are flattened onto white.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return jpegPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ScaledSize returns the output dimensions for a w×h image limited to
// maxWidth. Height is scaled by the same factor as width.
func ScaledSize(w, h, maxWidth int) (int, int) {
	if w <= maxWidth {
		return w, h
	}
	nh := int(math.Round(float64(h) * float64(maxWidth) / float64(w)))
	if nh < 1 {
		nh = 1
	}
	return maxWidth, nh
}

// Dimensions reads the pixel size of a payload without decoding it fully.
func Dimensions(encoded string) (int, int, error) {
	_, data, err := parsePayload(encoded)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return cfg.Width, cfg.Height, nil
}

func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

// parsePayload splits a data URL into its media type and decoded bytes.
// A bare base64 string is accepted with an empty media type.
func parsePayload(encoded string) (string, []byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return "", nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	mediaType := ""
	payload := encoded
	if strings.HasPrefix(encoded, "data:") {
		header, body, ok := strings.Cut(encoded[len("data:"):], ",")
		if !ok {
			return "", nil, fmt.Errorf("%w: data URL without payload", ErrDecode)
		}
		params := strings.Split(header, ";")
		mediaType = strings.ToLower(params[0])
		if params[len(params)-1] != "base64" {
			return "", nil, fmt.Errorf("%w: data URL is not base64", ErrDecode)
		}
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}
	return mediaType, data, nil
}
