// Package variations builds the brightness/contrast grid for an uploaded
// image.
package variations

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Vasu1712/algonomic-backend/internal/metrics"
	"github.com/Vasu1712/algonomic-backend/internal/models"
	"github.com/Vasu1712/algonomic-backend/internal/uploads"
)

// Steps is the number of values per axis.
const Steps = 5

// Source resolves a file id to its bytes and content type.
type Source interface {
	Read(ctx context.Context, fileID string) ([]byte, error)
	Stat(ctx context.Context, fileID string) (models.Upload, error)
}

// Generator produces variant descriptors for stored uploads.
type Generator struct {
	source Source
}

// NewGenerator creates a Generator reading sources from src.
func NewGenerator(src Source) *Generator {
	return &Generator{source: src}
}

// Levels returns the per-axis values 0.2, 0.4, 0.6, 0.8, 1.0. Each value is
// computed from its integer index, not by repeated addition.
func Levels() []float64 {
	levels := make([]float64, Steps)
	for i := range levels {
		levels[i] = float64(2*(i+1)) / 10
	}
	return levels
}

// FileName returns the stable output name for a (brightness, contrast) pair.
func FileName(brightness, contrast float64) string {
	return fmt.Sprintf("output_b%s_c%s.jpg", format(brightness), format(contrast))
}

// Generate returns the 25 variants for fileID in brightness-major order.
// The source is read once; every variant carries it as imageData, no pixel
// processing is done.
func (g *Generator) Generate(ctx context.Context, fileID string) ([]models.Variant, error) {
	u, err := g.source.Stat(ctx, fileID)
	if err != nil {
		metrics.RecordGeneration("failed")
		return nil, err
	}
	data, err := g.source.Read(ctx, fileID)
	if err != nil {
		metrics.RecordGeneration("failed")
		return nil, err
	}
	metrics.RecordGeneration("ok")
	return Sweep(uploads.DataURI(u.MimeType, data)), nil
}

// Sweep builds the grid for an already encoded image.
func Sweep(imageData string) []models.Variant {
	levels := Levels()
	out := make([]models.Variant, 0, len(levels)*len(levels))
	for _, b := range levels {
		for _, c := range levels {
			out = append(out, models.Variant{
				FileName:   FileName(b, c),
				Brightness: round2(b),
				Contrast:   round2(c),
				ImageData:  imageData,
			})
		}
	}
	return out
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(format(v), 64)
	return r
}
