package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "describe",
		Short: "Print the regeneration kinds and features this configuration supports",
		RunE:  runDescribe,
	})
}

func runDescribe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())

	if a.service == nil {
		return errors.New("regeneration disabled: set REGEN_GENERATOR_URL")
	}
	return printJSON(cmd.OutOrStdout(), a.service.Describe())
}
