package pages

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/ccitt"

	"github.com/saraedum/digitizer/internal/pdf"
)

// Image decodes the page's scan into a raster image.
func (p Page) Image() (image.Image, error) {
	stream, err := p.scanImage()
	if err != nil {
		return nil, err
	}
	img, err := decodeImage(p.file, stream)
	if err != nil {
		return nil, fmt.Errorf("pages: decoding page %d scan: %w", p.Number, err)
	}
	return img, nil
}

// decodeImage turns an image XObject into an image.Image. Scanned
// articles use JPEG (DCTDecode), fax compression (CCITTFaxDecode) or
// plain flate-compressed samples.
func decodeImage(f *pdf.File, stream *pdf.Stream) (image.Image, error) {
	data, remaining, parms, err := f.DecodeStream(stream)
	if err != nil {
		return nil, err
	}

	if len(remaining) > 0 {
		switch remaining[0] {
		case "DCTDecode":
			img, err := jpeg.Decode(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("jpeg scan: %w", err)
			}
			return img, nil
		case "CCITTFaxDecode":
			return decodeCCITT(stream.Dict, parms[0], data)
		default:
			return nil, fmt.Errorf("unsupported image codec %s", remaining[0])
		}
	}
	return decodeRawSamples(stream.Dict, data)
}

func imageSize(dict pdf.Dict) (width, height int, err error) {
	w, okW := dict.Int("Width")
	h, okH := dict.Int("Height")
	if !okW || !okH || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("image without valid /Width and /Height")
	}
	return int(w), int(h), nil
}

func decodeCCITT(dict, parms pdf.Dict, data []byte) (image.Image, error) {
	width, height, err := imageSize(dict)
	if err != nil {
		return nil, err
	}

	subFormat := ccitt.Group3
	if k, ok := parms.Int("K"); ok && k < 0 {
		subFormat = ccitt.Group4
	}
	blackIs1 := false
	if v, ok := parms.Get("BlackIs1").(pdf.Bool); ok {
		blackIs1 = bool(v)
	}
	byteAlign := false
	if v, ok := parms.Get("EncodedByteAlign").(pdf.Bool); ok {
		byteAlign = bool(v)
	}
	if c, ok := parms.Int("Columns"); ok && c > 0 {
		width = int(c)
	}

	gray := image.NewGray(image.Rect(0, 0, width, height))
	opts := &ccitt.Options{Invert: !blackIs1, Align: byteAlign}
	if err := ccitt.DecodeIntoGray(gray, bytes.NewReader(data), ccitt.MSB, subFormat, opts); err != nil {
		return nil, fmt.Errorf("fax scan: %w", err)
	}
	return gray, nil
}

// decodeRawSamples handles uncompressed sample data: 1-bit and 8-bit
// DeviceGray plus 8-bit DeviceRGB.
func decodeRawSamples(dict pdf.Dict, data []byte) (image.Image, error) {
	width, height, err := imageSize(dict)
	if err != nil {
		return nil, err
	}
	bits, ok := dict.Int("BitsPerComponent")
	if !ok {
		bits = 8
	}
	colorSpace := dict.NameValue("ColorSpace")

	switch {
	case colorSpace == "DeviceRGB" && bits == 8:
		if len(data) < width*height*3 {
			return nil, fmt.Errorf("truncated RGB sample data")
		}
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				i := (y*width + x) * 3
				img.SetRGBA(x, y, color.RGBA{R: data[i], G: data[i+1], B: data[i+2], A: 0xFF})
			}
		}
		return img, nil

	case bits == 8:
		if len(data) < width*height {
			return nil, fmt.Errorf("truncated gray sample data")
		}
		img := image.NewGray(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+width], data[y*width:(y+1)*width])
		}
		return img, nil

	case bits == 1:
		rowBytes := (width + 7) / 8
		if len(data) < rowBytes*height {
			return nil, fmt.Errorf("truncated bilevel sample data")
		}
		img := image.NewGray(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			row := data[y*rowBytes:]
			for x := 0; x < width; x++ {
				v := byte(0)
				if row[x/8]&(0x80>>(x%8)) != 0 {
					v = 0xFF
				}
				img.SetGray(x, y, color.Gray{Y: v})
			}
		}
		return img, nil

	default:
		return nil, fmt.Errorf("unsupported sample format: %s with %d bits", colorSpace, bits)
	}
}
