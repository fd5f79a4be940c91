package barcode

import (
	"context"
	"image"
	"image/draw"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/disintegration/imaging"
	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/pdf417"
	"github.com/makiuchi-d/gozxing/qrcode"
)

type gozxingBackend struct{}

// formatReader pairs a reader with the descriptor type it produces.
type formatReader struct {
	typ    metadata.Type
	reader gozxing.Reader
}

// newReaders builds fresh readers for the requested types. Readers carry
// state between calls, so each Decode gets its own set.
func newReaders(opts Options) []formatReader {
	all := []formatReader{
		{metadata.TypeQRCode, qrcode.NewQRCodeReader()},
		{metadata.TypeAztecCode, aztec.NewAztecReader()},
		{metadata.TypePDF417Code, pdf417.NewPDF417Reader()},
		{metadata.TypeEAN13Code, oned.NewEAN13Reader()},
		{metadata.TypeEAN8Code, oned.NewEAN8Reader()},
		{metadata.TypeUPCECode, oned.NewUPCEReader()},
		{metadata.TypeCode128Code, oned.NewCode128Reader()},
		{metadata.TypeCode93Code, oned.NewCode93Reader()},
		{metadata.TypeCode39Code, oned.NewCode39Reader()},
	}
	out := make([]formatReader, 0, len(all))
	for _, fr := range all {
		if opts.wants(fr.typ) || (fr.typ == metadata.TypeCode39Code && opts.wants(metadata.TypeCode39Mod43Code)) {
			out = append(out, fr)
		}
	}
	return out
}

func (b *gozxingBackend) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	opts = opts.withDefaults()

	// Apply ROI if requested and valid
	src, offset := img, img.Bounds().Min
	if !opts.ROI.Empty() {
		if roiImg, ok := subImage(img, opts.ROI); ok {
			src = roiImg
			offset = roiImg.Bounds().Min
		}
	}

	// imaging returns origin-based copies, so engine points are relative to offset
	work := imaging.Clone(src)
	results, err := b.scan(ctx, work, opts)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 && opts.TryMirrored {
		width := float64(work.Bounds().Dx())
		flipped := imaging.FlipH(work)
		results, err = b.scan(ctx, flipped, opts)
		if err != nil {
			return nil, err
		}
		for i := range results {
			results[i].Mirrored = true
			for j, p := range results[i].Points {
				results[i].Points[j] = geometry.Pt(width-p.X, p.Y)
			}
		}
	}

	out := results[:0]
	for _, r := range results {
		r = applyCode39Mod43(r, opts)
		if !opts.wants(r.Type) {
			continue
		}
		for j, p := range r.Points {
			r.Points[j] = p.Add(geometry.Pt(float64(offset.X), float64(offset.Y)))
		}
		out = append(out, r)
	}
	return out, nil
}

// scan decodes up to opts.MaxSymbols symbols, masking each one out of img
// before looking for the next.
func (b *gozxingBackend) scan(ctx context.Context, img *image.NRGBA, opts Options) ([]Result, error) {
	var out []Result
	for len(out) < opts.MaxSymbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, ok := decodeOnce(img, opts)
		if !ok {
			break
		}
		out = append(out, res)

		mask := maskRect(res.Points, img.Bounds())
		if mask.Empty() {
			break
		}
		draw.Draw(img, mask, image.White, image.Point{}, draw.Src)
	}
	return out, nil
}

func decodeOnce(img image.Image, opts Options) (Result, bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		slog.Debug("barcode: cannot binarize image", "error", err)
		return Result{}, false
	}

	hints := make(map[gozxing.DecodeHintType]interface{})
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	if opts.Charset != "" {
		hints[gozxing.DecodeHintType_CHARACTER_SET] = opts.Charset
	}

	for _, fr := range newReaders(opts) {
		r, err := fr.reader.Decode(bmp, hints)
		if err != nil || r == nil {
			// not found, checksum and format errors all mean "not this symbology"
			continue
		}
		typ := mapFormatFromZXing(r.GetBarcodeFormat(), fr.typ)
		text := r.GetText()
		if r.GetBarcodeFormat() == gozxing.BarcodeFormat_UPC_A {
			text = "0" + text
		}
		res := Result{Type: typ, Text: text, Raw: r.GetRawBytes()}
		for _, p := range r.GetResultPoints() {
			if p == nil {
				continue
			}
			res.Points = append(res.Points, geometry.Pt(p.GetX(), p.GetY()))
		}
		return res, true
	}
	return Result{}, false
}

// mapFormatFromZXing maps an engine format to a descriptor type. UPC-A is
// reported as EAN-13, of which it is a subset.
func mapFormatFromZXing(bf gozxing.BarcodeFormat, fallback metadata.Type) metadata.Type {
	switch bf {
	case gozxing.BarcodeFormat_QR_CODE:
		return metadata.TypeQRCode
	case gozxing.BarcodeFormat_AZTEC:
		return metadata.TypeAztecCode
	case gozxing.BarcodeFormat_PDF_417:
		return metadata.TypePDF417Code
	case gozxing.BarcodeFormat_CODE_128:
		return metadata.TypeCode128Code
	case gozxing.BarcodeFormat_CODE_93:
		return metadata.TypeCode93Code
	case gozxing.BarcodeFormat_CODE_39:
		return metadata.TypeCode39Code
	case gozxing.BarcodeFormat_EAN_8:
		return metadata.TypeEAN8Code
	case gozxing.BarcodeFormat_EAN_13, gozxing.BarcodeFormat_UPC_A:
		return metadata.TypeEAN13Code
	case gozxing.BarcodeFormat_UPC_E:
		return metadata.TypeUPCECode
	default:
		return fallback
	}
}

// maskRect covers the symbol described by pts with some margin. Matrix codes
// report pattern centres rather than edges, and linear symbols report a
// single scanline whose height is derived from the width.
func maskRect(pts []geometry.Point, within image.Rectangle) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	r := geometry.BoundingRect(pts)
	mx := math.Max(4, r.Width*0.3)
	my := math.Max(4, r.Height*0.3)
	if r.Height < r.Width*0.1 {
		my = math.Max(my, r.Width*0.5)
	}
	return image.Rect(
		int(math.Floor(r.X-mx)), int(math.Floor(r.Y-my)),
		int(math.Ceil(r.MaxX()+mx)), int(math.Ceil(r.MaxY()+my)),
	).Intersect(within)
}

// subImage returns a sub-image if supported by the image implementation.
func subImage(img image.Image, r image.Rectangle) (image.Image, bool) {
	// Ensure ROI intersects bounds
	rb := r.Intersect(img.Bounds())
	if rb.Empty() {
		return nil, false
	}
	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if s, ok := img.(subImager); ok {
		return s.SubImage(rb), true
	}
	// Fallback: copy into new RGBA that keeps the ROI coordinates
	dst := image.NewRGBA(rb)
	draw.Draw(dst, rb, img, rb.Min, draw.Src)
	return dst, true
}
