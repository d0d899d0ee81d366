package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/app"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/epilot"
)

func newCheckCmd(s *Session) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify configuration and API client setup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := s.Output()
			cfg, err := s.Config()
			if err != nil {
				return err
			}
			a, err := s.App()
			if err != nil {
				return err
			}

			token := "set"
			if cfg.APIToken == "" {
				token = "missing"
			}
			info := map[string]any{
				"tenant":           cfg.Tenant,
				"token":            token,
				"timeout_seconds":  int(cfg.APITimeout.Seconds()),
				"keep_alive":       cfg.APIKeepAlive,
				"request_delay_ms": cfg.RequestDelay.Milliseconds(),
				"services":         len(a.API.Catalog().All()),
				"ledger":           cfg.LedgerType,
				"output_dir":       cfg.OutputDir,
			}

			if probe {
				schemas, err := a.API.ListSchemas(cmd.Context())
				if err != nil {
					return fmt.Errorf("probe failed: %w", err)
				}
				info["probe"] = fmt.Sprintf("ok (%d schemas)", len(schemas))
			}

			out.Print(
				[]string{"SETTING", "VALUE"},
				[][]string{
					{"tenant", cfg.Tenant},
					{"token", token},
					{"timeout", cfg.APITimeout.String()},
					{"keep_alive", strconv.FormatBool(cfg.APIKeepAlive)},
					{"request_delay", cfg.RequestDelay.String()},
					{"services", strconv.Itoa(len(a.API.Catalog().All()))},
					{"ledger", cfg.LedgerType + " " + cfg.LedgerPath},
					{"probe", str(info["probe"])},
				},
				info,
			)
			out.Success("Configuration OK")
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Issue one authenticated GET to verify the token")
	return cmd
}

func newAPIsCmd(s *Session) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "apis",
		Short: "List the platform APIs from the public discovery document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := s.Output()
			cfg, err := s.Config()
			if err != nil {
				return err
			}

			apis, err := epilot.NewDiscoverer(cfg.APITimeout).Discover(cmd.Context(), url)
			if err != nil {
				return err
			}

			rows := make([][]string, len(apis))
			for i, api := range apis {
				rows[i] = []string{api.Name, api.BaseURL, api.SpecURL}
			}
			out.Print([]string{"NAME", "BASE URL", "SPEC"}, rows, apis)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", epilot.DiscoveryURL, "Discovery document URL")
	return cmd
}

func newServicesCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the configured service catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := s.Output()
			cfg, err := s.Config()
			if err != nil {
				return err
			}
			catalog, err := app.LoadCatalog(cfg)
			if err != nil {
				return err
			}

			services := catalog.All()
			rows := make([][]string, len(services))
			for i, svc := range services {
				rows[i] = []string{svc.ID, svc.Name, strings.TrimSuffix(svc.BaseURL, "/")}
			}
			out.Print([]string{"ID", "NAME", "BASE URL"}, rows, services)
			return nil
		},
	}
}
