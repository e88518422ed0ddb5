package dashboard

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
)

// qrQuietZone is the light margin, in modules, drawn around the code.
const qrQuietZone = 2

// maxQRModules bounds what RenderQR accepts; larger images are not QR codes
// a terminal could show anyway.
const maxQRModules = 177 + 2*8

// RenderQR turns a QR code PNG into terminal text. Each line holds two
// module rows drawn with half blocks; light modules are filled so the code
// reads correctly on a dark background.
func RenderQR(data []byte) ([]string, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode qr image: %w", err)
	}

	box, ok := darkBounds(img)
	if !ok {
		return nil, fmt.Errorf("qr image has no dark modules")
	}

	module := moduleSize(img, box)
	cols := box.Dx() / module
	rows := box.Dy() / module
	if cols > maxQRModules || rows > maxQRModules {
		return nil, fmt.Errorf("qr image too large: %dx%d modules", cols, rows)
	}

	isDark := func(c, r int) bool {
		if c < 0 || r < 0 || c >= cols || r >= rows {
			return false
		}
		return dark(img, box.Min.X+c*module+module/2, box.Min.Y+r*module+module/2)
	}

	lines := make([]string, 0, (rows+2*qrQuietZone+1)/2)
	for r := -qrQuietZone; r < rows+qrQuietZone; r += 2 {
		var sb strings.Builder
		for c := -qrQuietZone; c < cols+qrQuietZone; c++ {
			top, bottom := !isDark(c, r), !isDark(c, r+1)
			switch {
			case top && bottom:
				sb.WriteString("█")
			case top:
				sb.WriteString("▀")
			case bottom:
				sb.WriteString("▄")
			default:
				sb.WriteString(" ")
			}
		}
		lines = append(lines, sb.String())
	}
	return lines, nil
}

func dark(img image.Image, x, y int) bool {
	r, g, b, a := img.At(x, y).RGBA()
	if a < 0x8000 {
		return false
	}
	lum := (299*r + 587*g + 114*b) / 1000
	return lum < 0x8000
}

// darkBounds returns the smallest rectangle holding every dark pixel.
func darkBounds(img image.Image) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !dark(img, x, y) {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// moduleSize measures the top edge of the top-left finder pattern, which is
// always seven modules of dark.
func moduleSize(img image.Image, box image.Rectangle) int {
	run := 0
	for x := box.Min.X; x < box.Max.X && dark(img, x, box.Min.Y); x++ {
		run++
	}
	if size := run / 7; size > 0 {
		return size
	}
	return 1
}
