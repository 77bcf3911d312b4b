// Package barcode is the boundary to a barcode decoding engine. It prepares blurry label
// photos before handing them to a Decoder and picks the scanned reference text.
package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

// MinShortSide is the smallest short side, in pixels, handed to the engine
const MinShortSide = 800

// ErrNoCode is returned when an image holds no readable code
var ErrNoCode = errors.New("バーコードが検出されませんでした")

// Code is one decoded barcode
// 読み取ったバーコード1件
type Code struct {
	Format string `json:"format"`
	Text   string `json:"text"`
}

// Decoder decodes barcodes from an image
// 画像からバーコードを読み取る
type Decoder interface {
	Decode(ctx context.Context, img image.Image) ([]Code, error)
}

// DecoderFunc adapts a function to Decoder
type DecoderFunc func(ctx context.Context, img image.Image) ([]Code, error)

// Decode implements Decoder
func (f DecoderFunc) Decode(ctx context.Context, img image.Image) ([]Code, error) {
	return f(ctx, img)
}

// PreprocessingDecoder cleans up label photos before delegating to Next
// 前処理（グレースケール・コントラスト・シャープ・拡大）後に委譲するデコーダー
type PreprocessingDecoder struct {
	Next Decoder
}

// Decode implements Decoder
func (d PreprocessingDecoder) Decode(ctx context.Context, img image.Image) ([]Code, error) {
	if d.Next == nil {
		return nil, fmt.Errorf("デコーダーが設定されていません")
	}
	return d.Next.Decode(ctx, Preprocess(img))
}

// Preprocess converts to grayscale, boosts contrast, sharpens and upscales so the short
// side is at least MinShortSide
// 画像の前処理
func Preprocess(img image.Image) image.Image {
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, 30)
	out = imaging.Sharpen(out, 1.0)

	b := out.Bounds()
	w, h := b.Dx(), b.Dy()
	short := w
	if h < short {
		short = h
	}
	if short > 0 && short < MinShortSide {
		scale := float64(MinShortSide) / float64(short)
		w = int(float64(w)*scale + 0.5)
		h = int(float64(h)*scale + 0.5)
		out = imaging.Resize(out, w, h, imaging.Lanczos)
	}
	return out
}

// FirstText returns the first non-empty trimmed code text
// 最初の空でないテキストを返す
func FirstText(codes []Code) (string, bool) {
	for _, c := range codes {
		if t := strings.TrimSpace(c.Text); t != "" {
			return t, true
		}
	}
	return "", false
}

// Scan decodes an encoded image (PNG, JPEG, ...) and returns the first code text
// エンコード済み画像を読み取り、最初のコードを返す
func Scan(ctx context.Context, dec Decoder, r io.Reader) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("画像を読み込めません: %w", err)
	}
	codes, err := dec.Decode(ctx, img)
	if err != nil {
		return "", err
	}
	text, ok := FirstText(codes)
	if !ok {
		return "", ErrNoCode
	}
	return text, nil
}
