// Package cli implements the camctl command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"camvault/internal/client"
	"camvault/internal/templates"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// options is shared by every command of one root command instance.
type options struct {
	v          *viper.Viper
	cfgFile    string
	jsonOutput bool
}

// NewRootCommand builds the camctl command tree with its own configuration.
func NewRootCommand() *cobra.Command {
	o := &options{v: viper.New()}

	root := &cobra.Command{
		Use:   "camctl",
		Short: "A CLI for the camvault camera registry and snapshot store",
		Long: `Register cameras, capture snapshots with an optional countdown,
and browse or delete stored photos on a camvault server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(o.v, o.cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&o.cfgFile, "config", "", "config file (default is $HOME/.camctl.yaml)")
	root.PersistentFlags().BoolVar(&o.jsonOutput, "json", false, "Output results as JSON")
	root.PersistentFlags().String("server", "", "camvault server URL (default http://localhost:8080)")
	o.v.BindPFlag(keyServerURL, root.PersistentFlags().Lookup("server"))

	root.AddCommand(
		newCamerasCommand(o),
		newPhotosCommand(o),
		newCaptureCommand(o),
		newTemplatesCommand(o),
	)
	return root
}

func (o *options) client() *client.Client {
	return client.New(o.v.GetString(keyServerURL), o.v.GetDuration(keyTimeout))
}

func (o *options) templates() (*templates.Cache, error) {
	return templates.Load(o.v.GetString(keyTemplatesFile))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	return nil
}
