package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/regenops/health"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Run the readiness checks once and exit non-zero when unhealthy",
		RunE:  runCheck,
	})
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())

	report := a.health.CheckAll(cmd.Context())
	if err := printJSON(cmd.OutOrStdout(), health.NewResponse(report, time.Now())); err != nil {
		return err
	}
	if report.Status == health.StatusUnhealthy {
		return fmt.Errorf("service unhealthy")
	}
	return nil
}
