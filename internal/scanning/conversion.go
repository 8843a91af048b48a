package scanning

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	_ "golang.org/x/image/bmp"  // Register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// MaxImageSide bounds the longest side of images sent to the oracle.
	MaxImageSide = 2048
	// JPEGQuality is used when re-encoding images for the oracle.
	JPEGQuality = 85
)

// PrepareImage decodes a receipt image, flattens it onto white, shrinks it so
// the longest side is at most MaxImageSide and re-encodes it as JPEG.
func PrepareImage(imageData []byte, contentType string) ([]byte, error) {
	mimeType := normalizeMimeType(contentType)
	img, err := decodeImage(imageData, mimeType)
	if err != nil {
		return nil, &ImageError{ContentType: mimeType, Err: err}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fitWithin(img, MaxImageSide), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// PrepareOCRImage converts any supported input to PNG at full resolution,
// which is what the OCR engine reads best.
func PrepareOCRImage(imageData []byte, contentType string) ([]byte, error) {
	mimeType := normalizeMimeType(contentType)
	if mimeType == "image/png" && !isHEICFormat(imageData) {
		return imageData, nil
	}

	img, err := decodeImage(imageData, mimeType)
	if err != nil {
		return nil, &ImageError{ContentType: mimeType, Err: err}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func normalizeMimeType(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

// decodeImage handles PDFs (first page), HEIC/HEIF and the formats registered with image.
func decodeImage(data []byte, mimeType string) (image.Image, error) {
	if mimeType == "application/pdf" || bytes.HasPrefix(data, []byte("%PDF")) {
		return pdfToImage(data)
	}

	// Go's standard image package doesn't support HEIC
	if isHEICFormat(data) || isHEICMimeType(mimeType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if strings.Contains(err.Error(), "unknown format") {
			return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, BMP, TIFF, WebP, HEIC, HEIF, PDF. Error: %w", err)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// pdfToImage renders the first page of a PDF (most receipts are single page)
func pdfToImage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// fitWithin scales img down so neither side exceeds maxSide and composites it
// onto a white background, dropping any alpha channel.
func fitWithin(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if longest := max(w, h); longest > maxSide {
		w = max(1, w*maxSide/longest)
		h = max(1, h*maxSide/longest)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	}
	return dst
}

// isHEICFormat checks if the image data is in HEIC/HEIF format
// HEIC files carry an ftyp box at offset 4 with a HEIF family brand
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		if brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1" {
			return true
		}
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
