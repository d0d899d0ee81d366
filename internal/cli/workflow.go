package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/epilot"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/publishers"
)

const (
	workflowSchema   = "workflow_definition"
	automationSchema = "automation_flow"
	journeySchema    = "journey"
	designSchema     = "design"
)

func newWorkflowCmd(s *Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflow definitions and executions",
	}

	cmd.AddCommand(
		newWorkflowListCmd(s),
		newWorkflowCreateCmd(s),
		newWorkflowUpdateCmd(s),
		newWorkflowStartCmd(s),
	)

	return cmd
}

func newWorkflowListCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workflow definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			defs, err := a.API.ListWorkflowDefinitions(cmd.Context())
			if err != nil {
				return err
			}
			s.Output().Print([]string{"ID", "NAME", "STATUS"}, resourceRows(defs, "status"), defs)
			return nil
		},
	}
}

func newWorkflowCreateCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "create FILE",
		Short: "Create a workflow definition from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			def, err := readDefinition(args[0])
			if err != nil {
				return err
			}
			created, err := a.API.CreateWorkflowDefinition(cmd.Context(), def)
			if err != nil {
				return err
			}
			a.Notify(cmd.Context(), publishers.OperationCreate, workflowSchema, created)

			out := s.Output()
			out.Success(fmt.Sprintf("Workflow created: %s", epilot.ResourceID(created)))
			out.Print([]string{"ID", "NAME", "STATUS"}, resourceRows([]epilot.Object{created}, "status"), created)
			return nil
		},
	}
}

func newWorkflowUpdateCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "update ID FILE",
		Short: "Replace a workflow definition with a YAML or JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			def, err := readDefinition(args[1])
			if err != nil {
				return err
			}
			updated, err := a.API.UpdateWorkflowDefinition(cmd.Context(), args[0], def)
			if err != nil {
				return err
			}
			a.Notify(cmd.Context(), publishers.OperationUpdate, workflowSchema, updated)

			out := s.Output()
			out.Success(fmt.Sprintf("Workflow updated: %s", args[0]))
			out.Print([]string{"ID", "NAME", "STATUS"}, resourceRows([]epilot.Object{updated}, "status"), updated)
			return nil
		},
	}
}

func newWorkflowStartCmd(s *Session) *cobra.Command {
	var schema string

	cmd := &cobra.Command{
		Use:   "start DEFINITION_ID ENTITY_ID",
		Short: "Start a workflow on an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			exec, err := a.API.StartWorkflowExecution(cmd.Context(), args[0], args[1], schema)
			if err != nil {
				return err
			}
			a.Notify(cmd.Context(), publishers.OperationStart, schema, epilot.Object{"_id": args[1], "name": args[0]})

			out := s.Output()
			out.Success(fmt.Sprintf("Workflow %s started on %s", args[0], args[1]))
			out.Print([]string{"EXECUTION", "NAME", "STATUS"}, resourceRows([]epilot.Object{exec}, "status"), exec)
			return nil
		},
	}

	cmd.Flags().StringVar(&schema, "schema", "opportunity", "Schema of the entity")
	return cmd
}
