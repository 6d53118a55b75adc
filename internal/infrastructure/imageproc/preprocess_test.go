package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepare_DownscalesLargeImage(t *testing.T) {
	p := NewPreprocessor(100, 85)

	data, mime := p.Prepare(testPNG(t, 400, 200), "image/png")

	assert.Equal(t, "image/jpeg", mime)

	decoded, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())
}

func TestPrepare_DownscalesByHeightWhenTaller(t *testing.T) {
	p := NewPreprocessor(100, 85)

	data, _ := p.Prepare(testPNG(t, 200, 400), "image/png")

	decoded, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 50, decoded.Bounds().Dx())
	assert.Equal(t, 100, decoded.Bounds().Dy())
}

func TestPrepare_KeepsSmallImageDimensions(t *testing.T) {
	p := NewPreprocessor(1024, 85)

	data, mime := p.Prepare(testPNG(t, 60, 40), "image/png")

	assert.Equal(t, "image/jpeg", mime)

	decoded, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 60, decoded.Bounds().Dx())
	assert.Equal(t, 40, decoded.Bounds().Dy())
}

func TestPrepare_PassesThroughUndecodableBytes(t *testing.T) {
	p := NewPreprocessor(1024, 85)

	original := []byte("not an image at all")
	data, mime := p.Prepare(original, "image/heic")

	assert.Equal(t, original, data)
	assert.Equal(t, "image/heic", mime)
}

func TestPrepare_ZeroMaxDimensionDisablesResize(t *testing.T) {
	p := NewPreprocessor(0, 85)

	data, _ := p.Prepare(testPNG(t, 300, 300), "image/png")

	decoded, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, decoded.Bounds().Dx())
}
