package output

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/inodb/tnbc-explorer/internal/query"
)

// The chart is a 7x7 inch figure rendered at 300 dpi. Geometry below is
// given in pixels at 100 dpi and multiplied by unit.
const (
	dpi          = 300
	figureInches = 7
	unit         = dpi / 100.0
	chartWidth   = figureInches * dpi
	chartHeight  = figureInches * dpi
	marginLeft   = 90 * unit
	marginRight  = 40 * unit
	marginTop    = 70 * unit
	marginBottom = 70 * unit
	capHalfWidth = 10 * unit
	yTicks       = 5
)

// Font sizes in points.
const (
	tickPoints  = 10
	labelPoints = 12
	titlePoints = 14
)

var (
	fontsOnce   sync.Once
	regularFont *truetype.Font
	boldFont    *truetype.Font
	fontsErr    error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regularFont, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		boldFont, fontsErr = truetype.Parse(gobold.TTF)
	})
	if fontsErr != nil {
		return fmt.Errorf("parse chart font: %w", fontsErr)
	}
	return nil
}

func fontFace(f *truetype.Font, points float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: points, DPI: dpi, Hinting: font.HintingFull})
}

// Bar colors for the TNBC and Normal cohorts.
const (
	colorTNBC   = "#4600b7"
	colorNormal = "#d26013"
)

type bar struct {
	label string
	color string
	s     query.Summary
}

// ChartFileName returns the image name for a gene, with path separators
// replaced so the file always lands in the target directory.
func ChartFileName(gene string) string {
	safe := strings.NewReplacer("/", "_", `\`, "_").Replace(gene)
	return safe + "_expression_plot.png"
}

// SaveChart renders the chart for r into dir, creating it if needed, and
// returns the file path.
func SaveChart(dir string, r *query.Result) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create chart directory: %w", err)
	}
	path := filepath.Join(dir, ChartFileName(r.Gene))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}
	if err := WriteChart(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close chart file: %w", err)
	}
	return path, nil
}

// WriteChart renders a PNG bar chart of the cohort means with standard error
// bars. Bars with an undefined mean are omitted and labelled n/a; undefined
// standard errors draw no error bar.
func WriteChart(w io.Writer, r *query.Result) error {
	bars := []bar{
		{label: "TNBC", color: colorTNBC, s: r.TNBC},
		{label: "Normal", color: colorNormal, s: r.Normal},
	}

	if err := loadFonts(); err != nil {
		return err
	}
	tickFace := fontFace(regularFont, tickPoints)
	labelFace := fontFace(regularFont, labelPoints)
	titleFace := fontFace(boldFont, titlePoints)

	yMin, yMax := chartRange(bars)
	plotW := chartWidth - marginLeft - marginRight
	plotH := chartHeight - marginTop - marginBottom
	bottom := marginTop + plotH
	toY := func(v float64) float64 {
		return bottom - (v-yMin)/(yMax-yMin)*plotH
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Grid and tick labels
	dc.SetLineWidth(unit)
	dc.SetFontFace(tickFace)
	for i := 0; i <= yTicks; i++ {
		v := yMin + (yMax-yMin)*float64(i)/yTicks
		y := toY(v)
		dc.SetRGB(0.9, 0.9, 0.9)
		dc.DrawLine(marginLeft, y, marginLeft+plotW, y)
		dc.Stroke()
		dc.SetRGB(0.2, 0.2, 0.2)
		dc.DrawStringAnchored(fmt.Sprintf("%.1f", v), marginLeft-8*unit, y, 1, 0.5)
	}

	slot := plotW / float64(len(bars))
	barW := slot * 0.6
	dc.SetFontFace(labelFace)
	for i, b := range bars {
		cx := marginLeft + slot*(float64(i)+0.5)

		dc.SetRGB(0.2, 0.2, 0.2)
		dc.DrawStringAnchored(b.label, cx, bottom+20*unit, 0.5, 0.5)

		if math.IsNaN(b.s.Mean) {
			dc.DrawStringAnchored("n/a", cx, bottom-12*unit, 0.5, 0.5)
			continue
		}

		top := toY(b.s.Mean)
		base := toY(math.Max(yMin, 0))
		dc.SetHexColor(b.color)
		dc.DrawRectangle(cx-barW/2, math.Min(top, base), barW, math.Abs(base-top))
		dc.Fill()

		if b.s.SEMDefined() {
			hi := toY(b.s.Mean + b.s.SEM)
			lo := toY(b.s.Mean - b.s.SEM)
			dc.SetRGB(0, 0, 0)
			dc.SetLineWidth(2 * unit)
			dc.DrawLine(cx, hi, cx, lo)
			dc.DrawLine(cx-capHalfWidth, hi, cx+capHalfWidth, hi)
			dc.DrawLine(cx-capHalfWidth, lo, cx+capHalfWidth, lo)
			dc.Stroke()
		}
	}

	// Axes
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1.5 * unit)
	dc.DrawLine(marginLeft, marginTop, marginLeft, bottom)
	dc.DrawLine(marginLeft, bottom, marginLeft+plotW, bottom)
	dc.Stroke()

	dc.SetFontFace(titleFace)
	dc.DrawStringAnchored(fmt.Sprintf("Expression of %s in TNBC vs. Normal Tissue", r.Gene),
		chartWidth/2, marginTop/2, 0.5, 0.5)

	dc.SetFontFace(labelFace)
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), 24*unit, marginTop+plotH/2)
	dc.DrawStringAnchored("Mean Gene Expression (log2(norm_count + 1))", 24*unit, marginTop+plotH/2, 0.5, 0.5)
	dc.Pop()

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return nil
}

// chartRange returns a y-axis range covering every bar and error bar,
// anchored at zero.
func chartRange(bars []bar) (float64, float64) {
	lo, hi := 0.0, 0.0
	for _, b := range bars {
		if math.IsNaN(b.s.Mean) {
			continue
		}
		top, bot := b.s.Mean, b.s.Mean
		if b.s.SEMDefined() {
			top += b.s.SEM
			bot -= b.s.SEM
		}
		hi = math.Max(hi, top)
		lo = math.Min(lo, bot)
	}
	if hi == lo {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.1
	if lo < 0 {
		lo -= pad
	}
	return lo, hi + pad
}
