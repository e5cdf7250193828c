package tui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
)

// upperHalf is drawn with the top pixel as foreground and the bottom pixel
// as background, giving two vertical pixels per cell.
const upperHalf = "▀"

// fitCells returns the cell size that fits img into maxW x maxH cells while
// keeping its aspect ratio. Each cell covers one pixel column and two rows.
func fitCells(img image.Image, maxW, maxH int) (w, h int) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}

	w = maxW
	px := b.Dy() * w / b.Dx() // pixel rows at full width
	if px > maxH*2 {
		px = maxH * 2
		w = b.Dx() * px / b.Dy()
	}
	h = (px + 1) / 2
	return max(w, 1), max(h, 1)
}

// renderHalfBlocks renders img as colored half-block cells no larger than
// maxW x maxH.
func renderHalfBlocks(img image.Image, maxW, maxH int) string {
	w, h := fitCells(img, maxW, maxH)
	if w == 0 || h == 0 {
		return ""
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h*2))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var b strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			top := hexColor(dst.RGBAAt(x, 2*y))
			bottom := hexColor(dst.RGBAAt(x, 2*y+1))
			b.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom)).
				Render(upperHalf))
		}
		if y < h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// placeholder renders the box shown while a thumbnail is loading or missing.
func placeholder(label string, w, h int, style lipgloss.Style) string {
	if w <= 0 || h <= 0 {
		return ""
	}
	return style.
		Width(w).
		Height(h).
		Align(lipgloss.Center, lipgloss.Center).
		Render(label)
}
