package cli

import (
	"github.com/spf13/cobra"

	"github.com/jonwraymond/regenops/cache"
	"github.com/jonwraymond/regenops/consistency"
)

// statsReport is the output of the stats command.
type statsReport struct {
	Store       string            `json:"store"`
	Cache       cache.Stats       `json:"cache"`
	Consistency consistency.Stats `json:"consistency"`
}

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache and character profile statistics from the configured store",
		RunE:  runStats,
	})
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())

	return printJSON(cmd.OutOrStdout(), statsReport{
		Store:       cfg.Store,
		Cache:       a.cache.Stats(),
		Consistency: a.tracker.Stats(),
	})
}
