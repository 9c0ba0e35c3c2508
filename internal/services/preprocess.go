package services

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	"github.com/rotisserie/eris"
)

// PreprocessService turns an uploaded receipt document into a clean
// grayscale PNG ready for OCR, recording each step it applied.
type PreprocessService struct{}

func NewPreprocessService() *PreprocessService {
	return &PreprocessService{}
}

// PreprocessResult is the OCR-ready image plus the applied step trace.
type PreprocessResult struct {
	PNG   []byte
	Steps []string
}

// Process decodes the upload (PDF, HEIC, JPEG, PNG, GIF), converts it to
// grayscale and binarizes it with Otsu's threshold.
func (s *PreprocessService) Process(data []byte, mimeType string) (*PreprocessResult, error) {
	var (
		img   image.Image
		err   error
		steps []string
	)

	switch {
	case isPDF(data):
		img, err = firstPDFPage(data)
		if err != nil {
			return nil, err
		}
		steps = append(steps, "pdf_first_page")
	case isHEIC(data) || isHEICMimeType(mimeType):
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, eris.Wrap(err, "preprocess: decode HEIC image")
		}
		steps = append(steps, "heic_decode")
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, eris.Wrap(err, "preprocess: decode image")
		}
	}

	gray := toGray(img)
	steps = append(steps, "to_gray")

	bin := otsuThreshold(gray)
	steps = append(steps, "otsu_threshold")

	var buf bytes.Buffer
	if err := png.Encode(&buf, bin); err != nil {
		return nil, eris.Wrap(err, "preprocess: encode PNG")
	}

	return &PreprocessResult{PNG: buf.Bytes(), Steps: steps}, nil
}

// firstPDFPage renders the first page of a PDF. Receipts are single-page
// documents.
func firstPDFPage(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, eris.Wrap(err, "preprocess: open PDF")
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, eris.Wrap(err, "preprocess: render PDF page")
	}
	return img, nil
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}

// otsuThreshold binarizes a grayscale image with the threshold that
// maximizes between-class variance of the histogram.
func otsuThreshold(gray *image.Gray) *image.Gray {
	var hist [256]int
	for _, px := range gray.Pix {
		hist[px]++
	}
	total := len(gray.Pix)

	sum := 0.0
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var (
		sumB, wB  float64
		maxVar    float64
		threshold uint8
	)
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		v := wB * wF * (mB - mF) * (mB - mF)
		if v > maxVar {
			maxVar = v
			threshold = uint8(t)
		}
	}

	out := image.NewGray(gray.Bounds())
	for i, px := range gray.Pix {
		if px > threshold {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

func isPDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

// HEIC files carry an ftyp box with a HEIC brand at offset 4.
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	return brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1"
}

func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
