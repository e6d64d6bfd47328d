package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"

	"librasflow/internal/config"
	"librasflow/internal/logging"
	"librasflow/internal/project"
	"librasflow/internal/services"
	"librasflow/internal/storage"
)

const stageName = "export"

// ErrExportFailed is the terminal marker for a failed export run.
var ErrExportFailed = errors.New("export failed")

// ArtifactName is the object name of a project's export artifact within its
// storage namespace.
const ArtifactName = "export.jpg"

// FrameSource captures the current video frame.
type FrameSource interface {
	Frame(ctx context.Context) (image.Image, error)
}

// OverlaySource captures the rendering widget's current visual output.
type OverlaySource interface {
	Overlay(ctx context.Context) (image.Image, error)
}

// ProgressFunc receives export progress as a percentage. Values are
// monotonically non-decreasing from 0 to 100.
type ProgressFunc func(percent int)

// Assembler composites the video frame with the widget overlay and uploads
// the result as the project's export artifact.
type Assembler struct {
	store      storage.ObjectStore
	stagingDir string
	quality    int
	logger     *slog.Logger
}

// AssemblerOption configures the assembler.
type AssemblerOption func(*Assembler)

// WithLogger routes assembler diagnostics to the given logger.
func WithLogger(logger *slog.Logger) AssemblerOption {
	return func(a *Assembler) {
		a.logger = logging.NewComponentLogger(logger, "export-assembler")
	}
}

// NewAssembler constructs an assembler uploading to store, staging encoded
// output under cfg.Paths.ExportDir.
func NewAssembler(store storage.ObjectStore, cfg *config.Config, opts ...AssemblerOption) (*Assembler, error) {
	if store == nil {
		return nil, errors.New("object store required")
	}
	quality := cfg.Export.JPEGQuality
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	assembler := &Assembler{
		store:      store,
		stagingDir: cfg.Paths.ExportDir,
		quality:    quality,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(assembler)
	}
	return assembler, nil
}

// Export captures both sources, composites them, and uploads the encoded
// result. The returned URL must only be linked to the project after Export
// returns successfully; on any failure no partial artifact is referenced.
func (a *Assembler) Export(ctx context.Context, proj *project.Project, frames FrameSource, overlays OverlaySource, onProgress ProgressFunc) (string, error) {
	if proj == nil {
		return "", services.Wrap(services.ErrValidation, stageName, "export", "project required", nil)
	}
	progress := newProgressTracker(onProgress)
	progress.report(0)

	frame, err := frames.Frame(ctx)
	if err != nil {
		return "", a.failure("capture frame", "could not capture the video frame", err)
	}
	progress.report(15)

	overlay, err := overlays.Overlay(ctx)
	if err != nil {
		return "", a.failure("capture overlay", "could not capture the rendering widget output", err)
	}
	progress.report(30)

	composited := composite(frame, overlay)
	progress.report(50)

	staged, err := a.stage(composited)
	if err != nil {
		return "", a.failure("encode", "could not encode the export artifact", err)
	}
	// The staging file is removed on every path once the upload settles.
	defer os.Remove(staged)
	progress.report(70)

	data, err := os.ReadFile(staged)
	if err != nil {
		return "", a.failure("read staging", "could not read the staged artifact", err)
	}
	// A fixed object name keeps re-exports idempotent and lets project
	// deletion find the artifact without tracking extra state.
	objectPath := storage.ObjectPath(proj.OwnerID, proj.ID, ArtifactName)
	url, err := a.store.Put(ctx, objectPath, data, "image/jpeg")
	if err != nil {
		return "", a.failure("upload", "could not upload the export artifact", err)
	}
	progress.report(100)

	a.logger.Info("export uploaded",
		logging.String("project_id", proj.ID),
		logging.String("object_path", objectPath),
		logging.Int("bytes", len(data)),
	)
	return url, nil
}

func (a *Assembler) failure(op, message string, err error) error {
	return services.Wrap(services.ErrProvider, stageName, op, message, fmt.Errorf("%w: %w", ErrExportFailed, err))
}

// stage encodes the image to a temporary file and returns its path. Callers
// remove the file when done.
func (a *Assembler) stage(img image.Image) (string, error) {
	if err := os.MkdirAll(a.stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	file, err := os.CreateTemp(a.stagingDir, "export-*.jpg")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: a.quality}); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	if _, err := file.Write(buf.Bytes()); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("write staging file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("close staging file: %w", err)
	}
	return filepath.Clean(file.Name()), nil
}

// composite draws the overlay onto the frame anchored at the bottom-right
// corner, matching how the rendering widget sits over the player.
func composite(frame, overlay image.Image) image.Image {
	bounds := frame.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, frame, bounds.Min, draw.Src)

	ob := overlay.Bounds()
	anchor := image.Pt(bounds.Max.X-ob.Dx(), bounds.Max.Y-ob.Dy())
	target := image.Rectangle{Min: anchor, Max: bounds.Max}
	draw.Draw(out, target, overlay, ob.Min, draw.Over)
	return out
}

type progressTracker struct {
	fn   ProgressFunc
	last int
}

func newProgressTracker(fn ProgressFunc) *progressTracker {
	return &progressTracker{fn: fn, last: -1}
}

// report forwards percent, clamped so consumers only ever see a
// non-decreasing sequence.
func (p *progressTracker) report(percent int) {
	if p.fn == nil {
		return
	}
	if percent < p.last {
		return
	}
	p.last = percent
	p.fn(percent)
}
