package services

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"codeberg.org/go-fonts/liberation/liberationmonoregular"
	"git.sr.ht/~sbinet/gg"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"mist-map-backup/models"
	"mist-map-backup/utils"
)

const (
	markerRadius = 10
	labelOffset  = 7
	labelPoints  = 9

	annotatedSuffix = "-AP_locations.png"
)

var (
	markerGreen = color.RGBA{R: 0, G: 128, B: 0, A: 255}
	markerBlue  = color.RGBA{R: 0, G: 0, B: 255, A: 255}
)

// Annotator draws AP markers and labels onto downloaded map images.
// It is not safe for concurrent use: font faces keep glyph caches.
type Annotator struct {
	face   font.Face
	logger *utils.Logger
}

// NewAnnotator prepares the label font. fontPath is an optional TrueType file;
// when it cannot be loaded the embedded Liberation Mono is used, then the
// built-in bitmap face.
func NewAnnotator(fontPath string, logger *utils.Logger) *Annotator {
	return &Annotator{face: loadLabelFace(fontPath, logger), logger: logger}
}

func loadLabelFace(fontPath string, logger *utils.Logger) font.Face {
	if fontPath != "" {
		face, err := gg.LoadFontFace(fontPath, labelPoints)
		if err == nil {
			return face
		}
		logger.Warn("Font file %s could not be loaded (%v). Loading the embedded font.", fontPath, err)
	}

	face, err := gg.LoadFontFaceFromBytes(liberationmonoregular.TTF, labelPoints)
	if err != nil {
		logger.Warn("Embedded font could not be loaded (%v). Loading the default font.", err)
		return basicfont.Face7x13
	}
	return face
}

// MarkerColor picks the marker colour from the model name: "AP" is green,
// "BT" is blue. Other models are not drawn.
func MarkerColor(model string) (color.RGBA, bool) {
	switch {
	case strings.Contains(model, "AP"):
		return markerGreen, true
	case strings.Contains(model, "BT"):
		return markerBlue, true
	}
	return color.RGBA{}, false
}

// AnnotatedPath is where the annotated copy of imagePath is written
func AnnotatedPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + annotatedSuffix
}

// Annotate draws every positioned AP onto a copy of the image at imagePath
// and saves it as PNG next to the source. The source file is not modified.
func (a *Annotator) Annotate(mapName, imagePath string, aps []*models.AccessPoint) (models.MapAnnotation, error) {
	result := models.MapAnnotation{MapName: mapName, Counts: make(map[string]int)}

	src, err := loadImage(imagePath)
	if err != nil {
		return result, err
	}

	canvas, converted := toRGB(src)
	result.Converted = converted
	if converted {
		a.logger.Info("%s has been converted to RGB", filepath.Base(imagePath))
	}

	dc := gg.NewContextForRGBA(canvas)
	dc.SetFontFace(a.face)

	for _, ap := range aps {
		if !ap.HasPosition() {
			a.logger.Debug("%s has no x/y on %s, not drawn", ap.Name, mapName)
			continue
		}
		c, ok := MarkerColor(ap.Model)
		if !ok {
			a.logger.Debug("%s (%s) has no marker colour, not drawn", ap.Name, ap.Model)
			continue
		}

		x, y := round3(*ap.X), round3(*ap.Y)
		dc.SetColor(c)
		dc.DrawCircle(x, y, markerRadius)
		dc.Fill()
		dc.DrawStringAnchored(ap.Name, x+labelOffset, y+labelOffset, 0, 1)
		result.Counts[ap.Model]++
	}

	names := make([]string, 0, len(result.Counts))
	for m := range result.Counts {
		names = append(names, m)
	}
	sort.Strings(names)
	for _, m := range names {
		a.logger.Info("%s has %d %ss on the map.", mapName, result.Counts[m], m)
	}

	out := AnnotatedPath(imagePath)
	if err := dc.SavePNG(out); err != nil {
		return result, fmt.Errorf("failed to save %s: %w", out, err)
	}
	result.OutputPath = out
	return result, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open map image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode map image %s: %w", path, err)
	}
	return img, nil
}

type opaquer interface {
	Opaque() bool
}

// needsConversion reports colour modes that cannot take true-colour markers
// as-is: paletted, grayscale, CMYK, or carrying an alpha channel.
func needsConversion(img image.Image) bool {
	switch img.(type) {
	case *image.Paletted, *image.Gray, *image.Gray16, *image.CMYK, *image.NRGBA, *image.NRGBA64:
		return true
	}
	if o, ok := img.(opaquer); ok {
		return !o.Opaque()
	}
	return false
}

// toRGB copies img onto an opaque RGBA canvas anchored at (0,0).
// Alpha is dropped, not composited, so colour values survive unchanged.
func toRGB(img image.Image) (*image.RGBA, bool) {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	converted := needsConversion(img)

	if o, ok := img.(opaquer); ok && o.Opaque() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst, converted
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}
	return dst, converted
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
