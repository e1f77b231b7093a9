package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"camvault/internal/dto"

	"github.com/spf13/cobra"
)

func newPhotosCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photos",
		Short: "Browse and delete stored photos",
	}
	cmd.AddCommand(newPhotosListCommand(o), newPhotosRemoveCommand(o))
	return cmd
}

func newPhotosListCommand(o *options) *cobra.Command {
	var filter dto.PhotoFilters

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List photos, most recent capture first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := o.client().ListPhotos(cmd.Context(), filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if o.jsonOutput {
				return writeJSON(out, page)
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tCAMERA\tCAPTURED\tSIZE\tURL")
			fmt.Fprintln(w, "--\t------\t--------\t----\t---")
			for _, p := range page.Data {
				url := p.SecureURL
				if url == "" {
					url = p.ImageURL
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					p.ID,
					p.CameraName,
					p.CapturedAt.Local().Format(time.DateTime),
					p.Metadata.Size,
					url,
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nShowing %d of %d", len(page.Data), page.Total)
			if page.HasMore {
				fmt.Fprintf(out, " (more with --skip %d)", page.Skip+page.Limit)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.CameraName, "camera", "", "only photos from this camera name")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "page size (server default 50)")
	cmd.Flags().IntVar(&filter.Skip, "skip", 0, "number of photos to skip")
	return cmd
}

func newPhotosRemoveCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <photo-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a photo and its stored image",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.client().DeletePhoto(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Photo %s deleted\n", args[0])
			return nil
		},
	}
}
