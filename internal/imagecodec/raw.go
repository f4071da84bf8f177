package imagecodec

import (
	"context"
	"strings"
)

// Codec compresses payloads with fixed settings.
type Codec struct {
	Quality  float64
	MaxWidth int
}

// New returns a Codec, substituting defaults for zero settings.
func New(quality float64, maxWidth int) Codec {
	if quality == 0 {
		quality = DefaultQuality
	}
	if maxWidth == 0 {
		maxWidth = DefaultMaxWidth
	}
	return Codec{Quality: quality, MaxWidth: maxWidth}
}

// Compress runs Compress with the codec's settings.
func (c Codec) Compress(ctx context.Context, encoded string) (string, error) {
	return Compress(ctx, encoded, c.Quality, c.MaxWidth)
}

// IsRaw reports whether a payload still needs optimizing: a decodable data
// URL that is not JPEG, or a JPEG wider than the codec allows. Anything that
// is not a data URL (remote links, empty strings) is left alone.
func (c Codec) IsRaw(encoded string) bool {
	if !strings.HasPrefix(encoded, "data:image/") {
		return false
	}
	mediaType, _, err := parsePayload(encoded)
	if err != nil {
		return false
	}
	w, _, err := Dimensions(encoded)
	if err != nil {
		return false
	}
	if mediaType != "image/jpeg" && mediaType != "image/jpg" {
		return true
	}
	return w > c.MaxWidth
}
