package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"librasflow/internal/acquisition"
	"librasflow/internal/project"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var title string
	var videoURL string
	var fileRef string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project from a YouTube link or an uploaded video",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ctx.owner()
			if err != nil {
				return err
			}
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}

			var source project.VideoSource
			switch {
			case strings.TrimSpace(videoURL) != "" && strings.TrimSpace(fileRef) != "":
				return fmt.Errorf("pass either --url or --file, not both")
			case strings.TrimSpace(videoURL) != "":
				videoID, err := acquisition.ExtractVideoID(videoURL)
				if err != nil {
					return err
				}
				source = project.VideoSource{Kind: project.SourceRemote, PlatformVideoID: videoID}
			case strings.TrimSpace(fileRef) != "":
				source = project.VideoSource{Kind: project.SourceUpload, FileRef: strings.TrimSpace(fileRef)}
			default:
				return fmt.Errorf("a video source is required: pass --url or --file")
			}

			proj, err := manager.CreateProject(cmd.Context(), owner, title, source)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s at stage %s\n", proj.ID, proj.Stage)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Project title")
	cmd.Flags().StringVarP(&videoURL, "url", "u", "", "YouTube video URL or id")
	cmd.Flags().StringVarP(&fileRef, "file", "f", "", "Storage reference of an uploaded video")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your projects, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ctx.owner()
			if err != nil {
				return err
			}
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}
			projects, err := manager.ListProjects(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects yet.")
				return nil
			}

			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{
					p.ID,
					truncate(p.Title, 32),
					string(p.Stage),
					formatStatus(p),
					p.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Stage", "Status", "Created"}, rows))
			return nil
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}
			proj, err := manager.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", proj.Title)
			fmt.Fprintf(out, "  id:       %s\n", proj.ID)
			fmt.Fprintf(out, "  owner:    %s\n", proj.OwnerID)
			fmt.Fprintf(out, "  source:   %s (%s)\n", proj.Source.Ref(), proj.Source.Kind)
			fmt.Fprintf(out, "  stage:    %s\n", proj.Stage)
			fmt.Fprintf(out, "  status:   %s\n", formatStatus(proj))
			if proj.ArtifactURL != "" {
				fmt.Fprintf(out, "  artifact: %s\n", proj.ArtifactURL)
			}

			set, err := manager.Captions(cmd.Context(), proj.ID)
			if err != nil {
				return err
			}
			entries, err := manager.Interpretations(cmd.Context(), proj.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  captions: %d entries\n", set.Len())
			fmt.Fprintf(out, "  interpretations: %d entries\n", len(entries))
			return nil
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and its stored artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ctx.owner()
			if err != nil {
				return err
			}
			if !force {
				return fmt.Errorf("deletion is permanent; re-run with --force to confirm")
			}
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}
			if err := manager.DeleteProject(cmd.Context(), args[0], owner); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation requirement")
	return cmd
}
