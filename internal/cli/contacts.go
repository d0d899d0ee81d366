package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/export"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/importer"
)

func newContactsCmd(s *Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Export and import customer contacts",
	}

	cmd.AddCommand(
		newContactsExportCmd(s),
		newContactsImportCmd(s),
		newContactsExampleCmd(s),
	)

	return cmd
}

func newContactsExportCmd(s *Session) *cobra.Command {
	var path string
	var limit int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every contact to a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			if path == "" {
				path = export.TimestampedPath(filepath.Join(a.Config.OutputDir, "contacts_export.csv"), s.now())
			}

			n, err := a.Exporter().ExportContactsCSV(cmd.Context(), path, limit)
			if err != nil {
				return err
			}

			out := s.Output()
			if n == 0 {
				out.Warn("no contacts found, nothing written")
				return nil
			}
			out.Success(fmt.Sprintf("Exported %d contacts to %s", n, path))
			if out.JSONMode() {
				out.JSON(map[string]any{"path": path, "rows": n})
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "out", "", "Output CSV path (default <output_dir>/contacts_export_<timestamp>.csv)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many contacts (0 = all)")
	return cmd
}

func newContactsImportCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create contacts from a CSV file (first_name,last_name,email,phone)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			im, err := a.Importer(cmd.Context())
			if err != nil {
				return err
			}

			sum, err := im.ImportFile(cmd.Context(), args[0])
			if err != nil && sum.Total == 0 {
				return err
			}
			return printSummary(s.Output(), "import-customers", sum)
		},
	}
}

func newContactsExampleCmd(s *Session) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "example",
		Short: "Write an example customer CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := importer.WriteExampleCSV(path); err != nil {
				return err
			}
			s.Output().Success(fmt.Sprintf("Example written to %s; import it with: epilot contacts import %s", path, path))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "out", importer.DefaultExamplePath, "Output CSV path")
	return cmd
}
