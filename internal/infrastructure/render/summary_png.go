package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"CountryAtlas/internal/domain"
	"CountryAtlas/internal/ports"
)

const (
	DefaultFileName = "summary.png"

	canvasWidth  = 800
	canvasHeight = 600
)

var (
	background = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
	darkText   = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	midText    = color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff}
	lightText  = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}

	printer = message.NewPrinter(language.English)

	regularFont = sync.OnceValues(func() (*opentype.Font, error) {
		return opentype.Parse(goregular.TTF)
	})
)

// SummaryPNG draws the top-N report onto a fixed 800x600 canvas and stores
// it at a single cache path, replacing the previous image.
type SummaryPNG struct {
	dir    string
	file   string
	logger *slog.Logger
}

var _ ports.SummaryRenderer = (*SummaryPNG)(nil)

// NewSummaryPNG builds a renderer writing to dir/file.
func NewSummaryPNG(dir, file string, logger *slog.Logger) *SummaryPNG {
	if file == "" {
		file = DefaultFileName
	}
	if dir == "" {
		dir = "cache"
	}
	return &SummaryPNG{dir: dir, file: file, logger: logger}
}

// Path is the fixed location of the artifact.
func (s *SummaryPNG) Path() string {
	return filepath.Join(s.dir, s.file)
}

// Render writes the summary image and returns its path.
func (s *SummaryPNG) Render(ctx context.Context, summary domain.Summary) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	faces, err := newFaceSet()
	if err != nil {
		return "", err
	}
	defer faces.close()

	img := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	for _, l := range layout(summary) {
		face, err := faces.get(l.size)
		if err != nil {
			return "", err
		}
		drawLine(img, l, face)
	}

	tmp, err := os.CreateTemp(s.dir, "summary-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if err := png.Encode(tmp, img); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	path := s.Path()
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("replace %s: %w", path, err)
	}

	if s.logger != nil {
		s.logger.Info("summary image generated", "path", path, "entries", len(summary.Top))
	}
	return path, nil
}

type line struct {
	text     string
	x, y     int
	size     float64
	color    color.Color
	centered bool
}

func layout(summary domain.Summary) []line {
	generated := summary.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	limit := summary.Limit
	if limit <= 0 {
		limit = len(summary.Top)
	}

	lines := []line{
		{text: "Country Summary Report", x: canvasWidth / 2, y: 50, size: 28, color: darkText, centered: true},
		{text: fmt.Sprintf("Total Countries: %d", summary.TotalCountries), x: canvasWidth / 2, y: 100, size: 20, color: midText, centered: true},
		{text: "Last Updated: " + generated.UTC().Format(time.RFC3339), x: canvasWidth / 2, y: 130, size: 14, color: lightText, centered: true},
		{text: fmt.Sprintf("Top %d Countries by GDP", limit), x: 50, y: 180, size: 20, color: darkText},
	}

	for i, c := range summary.Top {
		lines = append(lines,
			line{text: fmt.Sprintf("%d. %s", i+1, c.Name), x: 70, y: 220 + i*60, size: 18, color: darkText},
			line{text: "GDP: " + FormatGDP(c.EstimatedGDP), x: 90, y: 242 + i*60, size: 14, color: midText},
		)
	}
	return lines
}

// FormatGDP renders a value as a grouped dollar amount without fractional digits.
func FormatGDP(v float64) string {
	rounded := math.Round(v)
	if math.Abs(rounded) < math.MaxInt64 {
		return printer.Sprintf("$%d", int64(rounded))
	}
	return printer.Sprintf("$%.0f", rounded)
}

// faceSet caches one sized face per point size for a single render.
type faceSet struct {
	font  *opentype.Font
	faces map[float64]font.Face
}

func newFaceSet() (*faceSet, error) {
	f, err := regularFont()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &faceSet{font: f, faces: map[float64]font.Face{}}, nil
}

func (fs *faceSet) get(size float64) (font.Face, error) {
	if face, ok := fs.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(fs.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face %.0fpt: %w", size, err)
	}
	fs.faces[size] = face
	return face, nil
}

func (fs *faceSet) close() {
	for _, face := range fs.faces {
		_ = face.Close()
	}
}

// drawLine draws l with its baseline at l.y.
func drawLine(dst *image.RGBA, l line, face font.Face) {
	x := l.x
	if l.centered {
		x -= font.MeasureString(face, l.text).Ceil() / 2
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(l.color),
		Face: face,
		Dot:  fixed.P(x, l.y),
	}
	d.DrawString(l.text)
}
