package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/export"
)

func newExportCmd(s *Session) *cobra.Command {
	var dir string

	kinds := make([]string, 0, len(export.Kinds()))
	for _, k := range export.Kinds() {
		kinds = append(kinds, string(k))
	}

	cmd := &cobra.Command{
		Use:       "export KIND",
		Short:     "Export configuration to JSON files (KIND: " + strings.Join(kinds, ", ") + ", all)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: append(kinds, "all"),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}

			var selected []export.Kind
			if strings.EqualFold(args[0], "all") {
				selected = export.Kinds()
			} else {
				k, err := export.ParseKind(args[0])
				if err != nil {
					return err
				}
				selected = []export.Kind{k}
			}

			stamp := s.now()
			exp := a.Exporter()
			results := make([]export.Result, 0, len(selected))
			var errs []error
			for _, k := range selected {
				target := dir
				switch {
				case target == "":
					target = export.TimestampedPath(filepath.Join(a.Config.OutputDir, string(k)), stamp)
				case len(selected) > 1:
					target = filepath.Join(dir, string(k))
				}

				res, err := exp.Export(cmd.Context(), k, target)
				if err != nil {
					errs = append(errs, err)
					if cmd.Context().Err() != nil {
						break
					}
					continue
				}
				results = append(results, res)
			}

			rows := make([][]string, len(results))
			for i, r := range results {
				rows[i] = []string{string(r.Kind), strconv.Itoa(r.Total), strconv.Itoa(r.DetailFailures), r.Dir}
			}
			out := s.Output()
			out.Print([]string{"KIND", "EXPORTED", "DETAIL FAILURES", "DIRECTORY"}, rows, results)
			for _, r := range results {
				if r.Total == 0 {
					out.Warn(fmt.Sprintf("no %s found", r.Kind))
				}
			}
			if len(results) == 0 {
				return errors.Join(errs...)
			}
			for _, err := range errs {
				out.Warn(err.Error())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "out", "", "Output directory (default <output_dir>/<kind>_<timestamp>)")
	return cmd
}
