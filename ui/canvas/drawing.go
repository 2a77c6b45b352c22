// Package canvas provides drawing primitives for the layer and minimap views.
package canvas

import (
	"image"
	"image/color"

	"cartograph/pkg/geometry"
)

var (
	backgroundColor = color.RGBA{R: 48, G: 48, B: 48, A: 255}
	selectionColor  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	cameraColor     = color.RGBA{R: 255, G: 64, B: 64, A: 255}
	labelColor      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// digitPatterns contains 3x5 pixel patterns for digits 0-9.
// Each digit is represented as 5 rows of 3 bits.
var digitPatterns = [10][5]uint8{
	{0b111, 0b101, 0b101, 0b101, 0b111}, // 0
	{0b010, 0b110, 0b010, 0b010, 0b111}, // 1
	{0b111, 0b001, 0b111, 0b100, 0b111}, // 2
	{0b111, 0b001, 0b111, 0b001, 0b111}, // 3
	{0b101, 0b101, 0b111, 0b001, 0b001}, // 4
	{0b111, 0b100, 0b111, 0b001, 0b111}, // 5
	{0b111, 0b100, 0b111, 0b101, 0b111}, // 6
	{0b111, 0b001, 0b001, 0b001, 0b001}, // 7
	{0b111, 0b101, 0b111, 0b101, 0b111}, // 8
	{0b111, 0b101, 0b111, 0b001, 0b111}, // 9
}

// letterPatterns covers the characters used in layer labels.
var letterPatterns = map[rune][5]uint8{
	'A': {0b010, 0b101, 0b111, 0b101, 0b101},
	'E': {0b111, 0b100, 0b110, 0b100, 0b111},
	'L': {0b100, 0b100, 0b100, 0b100, 0b111},
	'R': {0b110, 0b101, 0b110, 0b101, 0b101},
	'Y': {0b101, 0b101, 0b010, 0b010, 0b010},
	'X': {0b101, 0b101, 0b010, 0b101, 0b101},
	'_': {0b000, 0b000, 0b000, 0b000, 0b111},
	'-': {0b000, 0b000, 0b111, 0b000, 0b000},
	'.': {0b000, 0b000, 0b000, 0b000, 0b010},
	' ': {0b000, 0b000, 0b000, 0b000, 0b000},
}

// charPattern returns the 3x5 pixel pattern for a character, or an empty
// pattern for unsupported characters.
func charPattern(ch rune) [5]uint8 {
	if ch >= '0' && ch <= '9' {
		return digitPatterns[ch-'0']
	}
	if ch >= 'a' && ch <= 'z' {
		ch = ch - 'a' + 'A'
	}
	if pattern, ok := letterPatterns[ch]; ok {
		return pattern
	}
	return [5]uint8{}
}

// fill paints the whole output with col.
func fill(output *image.RGBA, col color.RGBA) {
	for i := 0; i < len(output.Pix); i += 4 {
		output.Pix[i] = col.R
		output.Pix[i+1] = col.G
		output.Pix[i+2] = col.B
		output.Pix[i+3] = col.A
	}
}

// drawOutline draws the border of r, dashed when dashed is set. Pixels
// outside the output are skipped.
func drawOutline(output *image.RGBA, r geometry.Rect, col color.RGBA, dashed bool) {
	if r.Empty() {
		return
	}
	x1, y1 := r.X, r.Y
	x2, y2 := r.Right()-1, r.Bottom()-1
	bounds := output.Bounds()

	set := func(x, y int) {
		if dashed && (x+y)%4 >= 2 {
			return
		}
		if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
			output.SetRGBA(x, y, col)
		}
	}

	for x := x1; x <= x2; x++ {
		set(x, y1)
		set(x, y2)
	}
	for y := y1; y <= y2; y++ {
		set(x1, y)
		set(x2, y)
	}
}

// drawText renders text with the 3x5 glyphs, top-left at (x, y), each glyph
// pixel drawn as a scale x scale block.
func drawText(output *image.RGBA, text string, x, y int, col color.RGBA, scale int) {
	if scale < 1 {
		scale = 1
	}
	bounds := output.Bounds()
	cx := x
	for _, ch := range text {
		pattern := charPattern(ch)
		for row := 0; row < 5; row++ {
			for bit := 0; bit < 3; bit++ {
				if pattern[row]&(1<<(2-bit)) == 0 {
					continue
				}
				for dy := 0; dy < scale; dy++ {
					for dx := 0; dx < scale; dx++ {
						px := cx + bit*scale + dx
						py := y + row*scale + dy
						if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
							output.SetRGBA(px, py, col)
						}
					}
				}
			}
		}
		cx += 4 * scale
	}
}

// textWidth returns the width in pixels of text drawn by drawText.
func textWidth(text string, scale int) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (4*n - 1) * scale
}
