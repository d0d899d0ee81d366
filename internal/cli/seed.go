package cli

import (
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/batch"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/seed"
)

func newSeedCmd(s *Session) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Create demo entities from a YAML or JSON data file",
		Long: "Creates the groups of a demo data file in order (produkte, kunden, chancen, auftraege, then the rest).\n" +
			"Entities already recorded in the ledger are skipped. A $links map turns titles of\n" +
			"previously created entities into relations.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := seed.Load(args[0])
			if err != nil {
				return err
			}
			a, err := s.App()
			if err != nil {
				return err
			}
			seeder, err := a.Seeder(cmd.Context())
			if err != nil {
				return err
			}
			if dir == "" {
				dir = filepath.Join(a.Config.OutputDir, "demo")
			}

			results, runErr := seeder.Run(cmd.Context(), data, dir)

			total := batch.Summary{}
			rows := make([][]string, len(results))
			for i, r := range results {
				rows[i] = []string{
					r.Group, r.Schema,
					strconv.Itoa(r.Summary.Succeeded), strconv.Itoa(r.Summary.Skipped), strconv.Itoa(r.Summary.Failed),
					r.File,
				}
				total.Total += r.Summary.Total
				total.Succeeded += r.Summary.Succeeded
				total.Skipped += r.Summary.Skipped
				total.Failed += r.Summary.Failed
				total.Cancelled = total.Cancelled || r.Summary.Cancelled
			}

			out := s.Output()
			if !out.JSONMode() {
				out.Table([]string{"GROUP", "SCHEMA", "CREATED", "SKIPPED", "FAILED", "IDS FILE"}, rows)
			}
			if runErr != nil && total.Total == 0 {
				return runErr
			}
			return printSummary(out, "seed", total)
		},
	}

	cmd.Flags().StringVar(&dir, "out", "", "Directory for <group>_ids.json files (default <output_dir>/demo)")
	return cmd
}
