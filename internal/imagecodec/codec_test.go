package imagecodec

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngDataURL renders a w×h gradient as a PNG data URL.
func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestCompress_ScalesWideImage(t *testing.T) {
	out, err := Compress(context.Background(), pngDataURL(t, 1600, 900), 0.8, 800)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, jpegPrefix))

	w, h, err := Dimensions(out)
	require.NoError(t, err)
	assert.Equal(t, 800, w)
	assert.Equal(t, 450, h)
}

func TestCompress_KeepsNarrowImageSize(t *testing.T) {
	out, err := Compress(context.Background(), pngDataURL(t, 120, 80), 0.5, 800)
	require.NoError(t, err)

	w, h, err := Dimensions(out)
	require.NoError(t, err)
	assert.Equal(t, 120, w)
	assert.Equal(t, 80, h)
}

func TestCompress_BareBase64(t *testing.T) {
	payload := strings.TrimPrefix(pngDataURL(t, 40, 20), "data:image/png;base64,")
	out, err := Compress(context.Background(), payload, 1, 10)
	require.NoError(t, err)

	w, h, err := Dimensions(out)
	require.NoError(t, err)
	assert.Equal(t, 10, w)
	assert.Equal(t, 5, h)
}

func TestCompress_Errors(t *testing.T) {
	ctx := context.Background()
	valid := pngDataURL(t, 4, 4)

	tests := []struct {
		name    string
		payload string
		quality float64
		width   int
		want    error
	}{
		{"zero quality", valid, 0, 800, ErrInvalidArgument},
		{"quality above one", valid, 1.5, 800, ErrInvalidArgument},
		{"zero width", valid, 0.8, 0, ErrInvalidArgument},
		{"empty payload", "", 0.8, 800, ErrDecode},
		{"not base64", "data:image/png;base64,%%%", 0.8, 800, ErrDecode},
		{"not an image", "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hello")), 0.8, 800, ErrDecode},
		{"no comma", "data:image/png;base64", 0.8, 800, ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compress(ctx, tt.payload, tt.quality, tt.width)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompress_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compress(ctx, pngDataURL(t, 4, 4), 0.8, 800)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		w, h, maxW   int
		wantW, wantH int
	}{
		{800, 600, 800, 800, 600},
		{1000, 500, 800, 800, 400},
		{3000, 1, 800, 800, 1},
		{1001, 1000, 1000, 1000, 999},
	}
	for _, tt := range tests {
		w, h := ScaledSize(tt.w, tt.h, tt.maxW)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}

func TestCodec_IsRaw(t *testing.T) {
	c := New(0, 0)
	assert.Equal(t, DefaultQuality, c.Quality)
	assert.Equal(t, DefaultMaxWidth, c.MaxWidth)

	small := pngDataURL(t, 10, 10)
	assert.True(t, c.IsRaw(small), "png is raw")

	jpegSmall, err := c.Compress(context.Background(), small)
	require.NoError(t, err)
	assert.False(t, c.IsRaw(jpegSmall), "already optimized")

	narrow := Codec{Quality: 0.8, MaxWidth: 5}
	assert.True(t, narrow.IsRaw(jpegSmall), "jpeg wider than limit")

	assert.False(t, c.IsRaw("https://example.com/a.png"))
	assert.False(t, c.IsRaw(""))
	assert.False(t, c.IsRaw("data:image/png;base64,@@@"))
}
