package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTemplatesCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Camera name/url pairs remembered by 'cameras add'",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved camera templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := o.templates()
			if err != nil {
				return err
			}
			saved := cache.List()

			out := cmd.OutOrStdout()
			if o.jsonOutput {
				return writeJSON(out, saved)
			}
			if len(saved) == 0 {
				fmt.Fprintln(out, "No saved templates")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "#\tNAME\tURL")
			fmt.Fprintln(w, "-\t----\t---")
			for i, t := range saved {
				fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, t.Name, t.URL)
			}
			return w.Flush()
		},
	})
	return cmd
}
