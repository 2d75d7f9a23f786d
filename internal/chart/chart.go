// Package chart renders the daily index series as a PNG: one bar per
// day colored per record, with a 30-day running mean overlay.
package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ua-snap/swti/internal/models"
)

// Full-resolution chart export dimensions.
const (
	Width  = 1000
	Height = 650
)

// RunningMeanWindow is the smoothing window for the overlay line.
const RunningMeanWindow = 30

const (
	marginLeft   = 60
	marginRight  = 20
	marginTop    = 40
	marginBottom = 50
)

var (
	bgColor   = color.RGBA{255, 255, 255, 255}
	axisColor = color.RGBA{51, 51, 51, 255}
	gridColor = color.RGBA{221, 221, 221, 255}
	meanColor = color.RGBA{51, 51, 51, 255}
)

// Render draws the series into a PNG. The y scale is symmetric around
// zero and padded to the nearest whole index unit.
func Render(records []models.DailyIndexRecord) ([]byte, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records to render")
	}

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	fill(img, img.Bounds(), bgColor)

	yMax := 1.0
	for _, rec := range records {
		if a := math.Abs(rec.Index); a > yMax {
			yMax = a
		}
	}
	yMax = math.Ceil(yMax)

	plotW := Width - marginLeft - marginRight
	plotH := Height - marginTop - marginBottom

	xAt := func(i int) int {
		return marginLeft + i*plotW/len(records)
	}
	yAt := func(v float64) int {
		return marginTop + int((yMax-v)/(2*yMax)*float64(plotH))
	}

	// Horizontal gridlines and y tick labels.
	step := yMax / 2
	for v := -yMax; v <= yMax; v += step {
		y := yAt(v)
		hline(img, marginLeft, Width-marginRight, y, gridColor)
		label(img, 8, y+4, fmt.Sprintf("%5.1f", v))
	}
	hline(img, marginLeft, Width-marginRight, yAt(0), axisColor)

	barW := plotW / len(records)
	if barW < 1 {
		barW = 1
	}

	for i, rec := range records {
		x := xAt(i)
		y0 := yAt(0)
		y1 := yAt(rec.Index)
		if y1 < y0 {
			y0, y1 = y1, y0
		}
		fill(img, image.Rect(x, y0, x+barW, y1+1), parseHexColor(rec.Color))
	}

	// 30-day running mean overlay.
	var prevX, prevY int
	havePrev := false
	sum := 0.0
	for i, rec := range records {
		sum += rec.Index
		if i >= RunningMeanWindow {
			sum -= records[i-RunningMeanWindow].Index
		}
		if i < RunningMeanWindow-1 {
			continue
		}
		x := xAt(i) + barW/2
		y := yAt(sum / RunningMeanWindow)
		if havePrev {
			line(img, prevX, prevY, x, y, meanColor)
		}
		prevX, prevY = x, y
		havePrev = true
	}

	// X labels at the start of each quarter-ish span.
	labelEvery := len(records) / 8
	if labelEvery < 1 {
		labelEvery = 1
	}
	for i := 0; i < len(records); i += labelEvery {
		label(img, xAt(i), Height-marginBottom+20, records[i].Date.Format("Jan 2006"))
	}

	label(img, marginLeft, 20, "Alaska Statewide Temperature Index")

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func hline(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y, c)
	}
}

// line draws a segment between two points, stepped along the longer axis.
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := x1 - x0
	dy := y1 - y0
	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	if steps == 0 {
		img.SetRGBA(x0, y0, c)
		return
	}
	for i := 0; i <= steps; i++ {
		x := x0 + dx*i/steps
		y := y0 + dy*i/steps
		img.SetRGBA(x, y, c)
	}
}

func label(img *image.RGBA, x, y int, text string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(axisColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func parseHexColor(s string) color.RGBA {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return axisColor
	}
	return color.RGBA{r, g, b, 255}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
