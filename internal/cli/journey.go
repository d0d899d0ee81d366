package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/export"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/epilot"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/publishers"
)

func newJourneyCmd(s *Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journey",
		Short: "Fetch and apply journey configurations",
	}

	cmd.AddCommand(
		newJourneyGetCmd(s),
		newJourneyApplyCmd(s),
	)

	return cmd
}

func newJourneyGetCmd(s *Session) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show a journey configuration, or save it with --out for editing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			journey, err := a.API.GetJourney(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := s.Output()
			if path == "" {
				out.JSON(journey)
				return nil
			}
			if err := export.WriteJSON(path, journey); err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Journey %s saved to %s; apply edits with: epilot journey apply %s %s", args[0], path, args[0], path))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "out", "", "Write the journey to this JSON file")
	return cmd
}

func newJourneyApplyCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "apply ID FILE",
		Short: "Replace a journey configuration with a YAML or JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			journey, err := readDefinition(args[1])
			if err != nil {
				return err
			}
			if _, err := a.API.UpdateJourney(cmd.Context(), args[0], journey); err != nil {
				return err
			}
			a.Notify(cmd.Context(), publishers.OperationUpdate, journeySchema, epilot.Object{"id": args[0], "name": epilot.ResourceName(journey)})

			s.Output().Success(fmt.Sprintf("Journey updated: %s", args[0]))
			return nil
		},
	}
}

func newDesignCmd(s *Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "design",
		Short: "Manage journey designs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create FILE",
		Short: "Create a design from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			design, err := readDefinition(args[0])
			if err != nil {
				return err
			}
			created, err := a.API.CreateDesign(cmd.Context(), design)
			if err != nil {
				return err
			}
			a.Notify(cmd.Context(), publishers.OperationCreate, designSchema, created)

			out := s.Output()
			out.Success(fmt.Sprintf("Design created: %s", epilot.ResourceID(created)))
			out.Print([]string{"ID", "NAME"}, resourceRows([]epilot.Object{created}), created)
			return nil
		},
	})

	return cmd
}
