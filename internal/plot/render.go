package plot

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/phpdave11/gofpdf"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/kartoza/moment-rotation/internal/curve"
)

const (
	Title  = "Moment-rotation plot"
	XLabel = "Rotation (mrad)"
	YLabel = "Moment (kNm)"

	DefaultWidth  = 600
	DefaultHeight = 400
)

// Format is an export file format
type Format string

const (
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
	FormatJPEG Format = "jpeg"
)

// FormatFromPath infers the format from the file extension. Unknown or
// missing extensions fall back to PNG.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".jpg", ".jpeg":
		return FormatJPEG
	default:
		return FormatPNG
	}
}

// Viewport restricts the visible axis ranges
type Viewport struct {
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
	YMin float64 `json:"ymin"`
	YMax float64 `json:"ymax"`
}

// Valid reports whether the viewport has a positive finite extent
func (v Viewport) Valid() bool {
	for _, f := range []float64{v.XMin, v.XMax, v.YMin, v.YMax} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return v.XMax > v.XMin && v.YMax > v.YMin
}

// RenderOptions controls the size and visible window of a rendering
type RenderOptions struct {
	Width  int
	Height int
	View   *Viewport
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

var (
	gridStyle = chart.Style{
		StrokeColor: drawing.Color{R: 176, G: 176, B: 176, A: 255},
		StrokeWidth: 0.5,
	}
	// drawn on an empty surface so the decorated axes still render
	invisible = drawing.Color{R: 255, G: 255, B: 255, A: 0}
)

// Bounds returns the auto-scaled view: the origin and every point, padded
// by 5% on each axis
func (s *Surface) Bounds() Viewport {
	v := Viewport{}
	for _, c := range s.Curves() {
		for _, p := range c.Points {
			if isFinite(p.Rotation) {
				v.XMin = math.Min(v.XMin, p.Rotation)
				v.XMax = math.Max(v.XMax, p.Rotation)
			}
			if isFinite(p.Moment) {
				v.YMin = math.Min(v.YMin, p.Moment)
				v.YMax = math.Max(v.YMax, p.Moment)
			}
		}
	}
	if v.XMax == v.XMin {
		v.XMax = v.XMin + 1
	}
	if v.YMax == v.YMin {
		v.YMax = v.YMin + 1
	}

	padX := (v.XMax - v.XMin) * 0.05
	padY := (v.YMax - v.YMin) * 0.05
	if v.XMin < 0 {
		v.XMin -= padX
	}
	if v.YMin < 0 {
		v.YMin -= padY
	}
	v.XMax += padX
	v.YMax += padY
	return v
}

// Chart builds the go-chart description of the current state
func (s *Surface) Chart(opts RenderOptions) chart.Chart {
	opts = opts.withDefaults()

	view := s.Bounds()
	if opts.View != nil && opts.View.Valid() {
		view = *opts.View
	}

	curves := s.Curves()
	var series, legend []chart.Series
	for _, c := range curves {
		line := chart.Style{StrokeColor: c.Color.Value, StrokeWidth: 2}

		// go-chart draws outside its axes, so only the visible runs are handed over
		for _, piece := range clipPolyline(c.Points[:], view) {
			series = append(series, continuous(piece, line))
		}

		var markers []curve.Point
		for _, p := range c.Points {
			if view.inside(p) {
				markers = append(markers, p)
			}
		}
		if len(markers) > 0 {
			series = append(series, continuous(markers, chart.Style{
				StrokeColor: invisible,
				StrokeWidth: 1,
				DotColor:    c.Color.Value,
				DotWidth:    4,
			}))
		}

		// the legend lists every curve, visible or not
		legend = append(legend, chart.ContinuousSeries{Name: c.Label, Style: line})
	}
	if len(series) == 0 {
		series = append(series, chart.ContinuousSeries{
			Style:   chart.Style{StrokeColor: invisible, StrokeWidth: 1},
			XValues: []float64{view.XMin, view.XMax},
			YValues: []float64{view.YMin, view.YMax},
		})
	}

	ch := chart.Chart{
		Title:      Title,
		TitleStyle: chart.Style{FontSize: 14},
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 24, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           XLabel,
			NameStyle:      chart.Style{FontSize: 12},
			Range:          &chart.ContinuousRange{Min: view.XMin, Max: view.XMax},
			GridMajorStyle: gridStyle,
			GridMinorStyle: gridStyle,
		},
		YAxis: chart.YAxis{
			Name:           YLabel,
			NameStyle:      chart.Style{FontSize: 12},
			Range:          &chart.ContinuousRange{Min: view.YMin, Max: view.YMax},
			GridMajorStyle: gridStyle,
			GridMinorStyle: gridStyle,
		},
		Series: series,
	}
	if len(legend) > 0 {
		ch.Elements = []chart.Renderable{chart.Legend(&chart.Chart{Series: legend})}
	}
	return ch
}

func continuous(points []curve.Point, style chart.Style) chart.ContinuousSeries {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.Rotation, p.Moment
	}
	return chart.ContinuousSeries{Style: style, XValues: xs, YValues: ys}
}

// Render writes the plot in the given format
func (s *Surface) Render(w io.Writer, format Format, opts RenderOptions) error {
	var raster bytes.Buffer
	ch := s.Chart(opts)
	if err := ch.Render(chart.PNG, &raster); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	switch format {
	case FormatPNG:
		_, err := io.Copy(w, &raster)
		return err
	case FormatJPEG:
		img, err := png.Decode(&raster)
		if err != nil {
			return fmt.Errorf("decode raster: %w", err)
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case FormatPDF:
		return writePDF(w, raster.Bytes())
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// writePDF places the rendered raster on a landscape A4 page
func writePDF(w io.Writer, raster []byte) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(Title, true)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("plot", opts, bytes.NewReader(raster))
	pageW, _ := pdf.GetPageSize()
	left, top, right, _ := pdf.GetMargins()
	pdf.ImageOptions("plot", left, top, pageW-left-right, 0, false, opts, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return pdf.Output(w)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
