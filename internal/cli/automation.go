package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/epilot"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/publishers"
)

var flowHeaders = []string{"ID", "NAME", "SCHEMA", "ENABLED"}

func newAutomationCmd(s *Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automation",
		Short: "Manage automation flows",
	}

	cmd.AddCommand(
		newAutomationCreateCmd(s),
		newAutomationUpdateCmd(s),
		newAutomationSimplifyEmailCmd(s),
	)

	return cmd
}

func newAutomationCreateCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "create FILE",
		Short: "Create an automation flow from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			flow, err := readDefinition(args[0])
			if err != nil {
				return err
			}
			created, err := a.API.CreateAutomationFlow(cmd.Context(), flow)
			if err != nil {
				return err
			}
			a.Notify(cmd.Context(), publishers.OperationCreate, automationSchema, created)

			out := s.Output()
			out.Success(fmt.Sprintf("Automation created: %s", epilot.ResourceID(created)))
			out.Print(flowHeaders, resourceRows([]epilot.Object{created}, "entity_schema", "enabled"), created)
			return nil
		},
	}
}

func newAutomationUpdateCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "update ID FILE",
		Short: "Replace an automation flow; only updatable fields are sent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			flow, err := readDefinition(args[1])
			if err != nil {
				return err
			}
			updated, err := a.API.UpdateAutomationFlow(cmd.Context(), args[0], epilot.UpdatableFlow(flow))
			if err != nil {
				return err
			}
			a.Notify(cmd.Context(), publishers.OperationUpdate, automationSchema, updated)

			out := s.Output()
			out.Success(fmt.Sprintf("Automation updated: %s", args[0]))
			out.Print(flowHeaders, resourceRows([]epilot.Object{updated}, "entity_schema", "enabled"), updated)
			return nil
		},
	}
}

func newAutomationSimplifyEmailCmd(s *Session) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "simplify-email ID",
		Short: "Rewrite the HTML bodies of send-email actions as plain text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			out := s.Output()

			if dryRun {
				flow, err := a.API.GetAutomationFlow(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				changed, err := epilot.PlainTextEmails(flow)
				if err != nil {
					return err
				}
				out.Success(fmt.Sprintf("%d email action(s) would change; nothing written", changed))
				out.JSON(epilot.UpdatableFlow(flow))
				return nil
			}

			flow, changed, err := a.API.SimplifyAutomationEmails(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if changed == 0 {
				out.Success("No HTML email actions found; flow left unchanged")
				return nil
			}
			a.Notify(cmd.Context(), publishers.OperationUpdate, automationSchema, flow)

			out.Success(fmt.Sprintf("Automation %s updated: %d email action(s) now plain text", args[0], changed))
			out.Print(flowHeaders, resourceRows([]epilot.Object{flow}, "entity_schema", "enabled"), flow)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the converted flow without updating it")
	return cmd
}
