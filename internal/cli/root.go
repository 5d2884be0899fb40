// Package cli implements the regend commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/regenops/config"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

var envFiles []string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:          "regend",
	Short:        "Story regeneration coordinator",
	Long:         "Validates, caches and coordinates regeneration of illustrated children's stories while keeping the protagonist consistent.",
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringSliceVarP(&envFiles, "env-file", "e", nil, "Dotenv files to load before the environment (default: .env)")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Context(), envFiles...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
