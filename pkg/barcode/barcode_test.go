package barcode

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocess_UpscalesShortSide(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))

	out := Preprocess(img)

	assert.Equal(t, 1600, out.Bounds().Dx())
	assert.Equal(t, 800, out.Bounds().Dy())
}

func TestPreprocess_KeepsLargeImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1200, 900))

	out := Preprocess(img)

	assert.Equal(t, 1200, out.Bounds().Dx())
	assert.Equal(t, 900, out.Bounds().Dy())
}

func TestPreprocessingDecoder_Delegates(t *testing.T) {
	var seen image.Rectangle
	dec := PreprocessingDecoder{Next: DecoderFunc(func(_ context.Context, img image.Image) ([]Code, error) {
		seen = img.Bounds()
		return []Code{{Format: "CODE128", Text: "WO-1"}}, nil
	})}

	codes, err := dec.Decode(context.Background(), image.NewGray(image.Rect(0, 0, 100, 100)))

	require.NoError(t, err)
	assert.Equal(t, "WO-1", codes[0].Text)
	assert.Equal(t, 800, seen.Dx())
}

func TestPreprocessingDecoder_NoNext(t *testing.T) {
	_, err := PreprocessingDecoder{}.Decode(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
	assert.Error(t, err)
}

func TestFirstText(t *testing.T) {
	text, ok := FirstText([]Code{{Text: "  "}, {Text: " R-22 "}, {Text: "X"}})
	assert.True(t, ok)
	assert.Equal(t, "R-22", text)

	_, ok = FirstText(nil)
	assert.False(t, ok)
}

func TestScan(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	dec := DecoderFunc(func(context.Context, image.Image) ([]Code, error) {
		return []Code{{Format: "QR", Text: "WO-100"}}, nil
	})
	text, err := Scan(context.Background(), dec, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "WO-100", text)

	empty := DecoderFunc(func(context.Context, image.Image) ([]Code, error) { return nil, nil })
	_, err = Scan(context.Background(), empty, bytes.NewReader(buf.Bytes()))
	assert.True(t, errors.Is(err, ErrNoCode))

	_, err = Scan(context.Background(), dec, bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}
