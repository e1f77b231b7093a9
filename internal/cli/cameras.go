package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"camvault/internal/dto"
	"camvault/internal/model"

	"github.com/spf13/cobra"
)

func newCamerasCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cameras",
		Short: "Manage registered cameras",
		Long:  `List, register, update and remove cameras, or take a server-side snapshot.`,
	}
	cmd.AddCommand(
		newCamerasListCommand(o),
		newCamerasAddCommand(o),
		newCamerasGetCommand(o),
		newCamerasUpdateCommand(o),
		newCamerasRemoveCommand(o),
		newCamerasSnapshotCommand(o),
	)
	return cmd
}

func newCamerasListCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active cameras, most recently used first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cameras, err := o.client().ListCameras(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if o.jsonOutput {
				return writeJSON(out, cameras)
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tURL\tLAST USED")
			fmt.Fprintln(w, "--\t----\t----\t---\t---------")
			for _, cam := range cameras {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					cam.ID,
					cam.Name,
					cam.Kind,
					cam.URL,
					cam.LastUsed.Local().Format(time.DateTime),
				)
			}
			return w.Flush()
		},
	}
}

func newCamerasAddCommand(o *options) *cobra.Command {
	var (
		name, url, kind, resolution string
		fps                         float64
		template                    int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a camera",
		Example: `  camctl cameras add --name "Front Door" --url http://10.0.0.5:8080/video
  camctl cameras add --template 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := o.templates()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("template") {
				saved := cache.List()
				if template < 1 || template > len(saved) {
					return fmt.Errorf("template %d does not exist, %d saved", template, len(saved))
				}
				if !cmd.Flags().Changed("name") {
					name = saved[template-1].Name
				}
				if !cmd.Flags().Changed("url") {
					url = saved[template-1].URL
				}
			}

			in := dto.CameraCreate{Name: name, URL: url, Kind: model.CameraKind(kind)}
			if resolution != "" || fps > 0 {
				in.Metadata = &model.CameraMetadata{Resolution: resolution, FPS: fps}
			}

			cam, err := o.client().CreateCamera(cmd.Context(), in)
			if err != nil {
				return err
			}

			if _, err := cache.Remember(cam.Name, cam.URL); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not save camera template: %v\n", err)
			}

			if o.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), cam)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Camera %s registered: %s (%s)\n", cam.ID, cam.Name, cam.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "camera name")
	cmd.Flags().StringVar(&url, "url", "", "camera stream or snapshot URL")
	cmd.Flags().StringVar(&kind, "type", "", "camera type: webcam or ip (default ip)")
	cmd.Flags().StringVar(&resolution, "resolution", "", "resolution, e.g. 1920x1080")
	cmd.Flags().Float64Var(&fps, "fps", 0, "frames per second")
	cmd.Flags().IntVar(&template, "template", 0, "pre-fill name and url from saved template N (see 'camctl templates list')")
	return cmd
}

func newCamerasGetCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <camera-id>",
		Short: "Show one camera",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cam, err := o.client().GetCamera(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if o.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), cam)
			}
			return printCamera(cmd.OutOrStdout(), cam)
		},
	}
}

func newCamerasUpdateCommand(o *options) *cobra.Command {
	var (
		name, url, kind, resolution string
		fps                         float64
	)

	cmd := &cobra.Command{
		Use:   "update <camera-id>",
		Short: "Change a camera's name, url, type or metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var patch dto.CameraPatch
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("url") {
				patch.URL = &url
			}
			if flags.Changed("type") {
				k := model.CameraKind(kind)
				patch.Kind = &k
			}
			if flags.Changed("resolution") || flags.Changed("fps") {
				patch.Metadata = &model.CameraMetadata{Resolution: resolution, FPS: fps}
			}
			if patch == (dto.CameraPatch{}) {
				return fmt.Errorf("nothing to update: pass at least one of --name, --url, --type, --resolution, --fps")
			}

			cam, err := o.client().UpdateCamera(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			if o.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), cam)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Camera %s updated\n", cam.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new camera name")
	cmd.Flags().StringVar(&url, "url", "", "new camera URL")
	cmd.Flags().StringVar(&kind, "type", "", "new camera type: webcam or ip")
	cmd.Flags().StringVar(&resolution, "resolution", "", "new resolution")
	cmd.Flags().Float64Var(&fps, "fps", 0, "new frames per second")
	return cmd
}

func newCamerasRemoveCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <camera-id>",
		Aliases: []string{"delete"},
		Short:   "Remove a camera; its photos are kept",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.client().DeleteCamera(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Camera %s removed\n", args[0])
			return nil
		},
	}
}

func newCamerasSnapshotCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <camera-id>",
		Short: "Ask the server to grab and store one frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := o.client().Snapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printCaptured(cmd.OutOrStdout(), o.jsonOutput, res)
		},
	}
}

func printCamera(out io.Writer, cam *model.Camera) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", cam.ID)
	fmt.Fprintf(w, "Name:\t%s\n", cam.Name)
	fmt.Fprintf(w, "URL:\t%s\n", cam.URL)
	fmt.Fprintf(w, "Type:\t%s\n", cam.Kind)
	fmt.Fprintf(w, "Last used:\t%s\n", cam.LastUsed.Local().Format(time.DateTime))
	if cam.Metadata != nil {
		fmt.Fprintf(w, "Resolution:\t%s\n", cam.Metadata.Resolution)
		fmt.Fprintf(w, "FPS:\t%g\n", cam.Metadata.FPS)
	}
	return w.Flush()
}

func printCaptured(out io.Writer, jsonOutput bool, res *dto.IngestResult) error {
	if jsonOutput {
		return writeJSON(out, res)
	}
	fmt.Fprintf(out, "Captured photo %s from %s: %s\n", res.ID, res.CameraName, res.ImageURL)
	return nil
}
