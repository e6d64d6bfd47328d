package main

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"

	"librasflow/internal/export"
	"librasflow/internal/project"
	"librasflow/internal/workflow"
)

// imageFileSource decodes a still image from disk on demand. The same
// type serves both the video frame and the interpreter overlay inputs.
type imageFileSource struct {
	path string
}

func (s imageFileSource) Frame(ctx context.Context) (image.Image, error) {
	return s.decode()
}

func (s imageFileSource) Overlay(ctx context.Context) (image.Image, error) {
	return s.decode()
}

func (s imageFileSource) decode() (image.Image, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return img, nil
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var framePath string
	var overlayPath string

	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Assemble and upload the final artifact",
		Long: "Composites the interpreter overlay onto the video frame, encodes the " +
			"result as JPEG and uploads it to the configured object store.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}

			params := workflow.StageParams{
				Frames:   imageFileSource{path: framePath},
				Overlays: imageFileSource{path: overlayPath},
				OnProgress: func(percent int) {
					fmt.Fprintf(cmd.OutOrStdout(), "\rExporting... %3d%%", percent)
				},
			}
			proj, err := manager.EnterStage(cmd.Context(), args[0], project.StageExport, params)
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if proj.ArtifactURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Export complete: %s\n", proj.ArtifactURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&framePath, "frame", "", "Video frame image (PNG or JPEG)")
	cmd.Flags().StringVar(&overlayPath, "overlay", "", "Interpreter overlay image (PNG or JPEG)")
	_ = cmd.MarkFlagRequired("frame")
	_ = cmd.MarkFlagRequired("overlay")
	return cmd
}

var _ export.FrameSource = imageFileSource{}
var _ export.OverlaySource = imageFileSource{}
