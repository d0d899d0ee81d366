package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/epilot"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/publishers"
)

var entityHeaders = []string{"ID", "TITLE", "SCHEMA", "CREATED"}

func entityRows(items []epilot.Object) [][]string {
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = []string{epilot.ResourceID(item), epilot.ResourceName(item), str(item["_schema"]), str(item["_created_at"])}
	}
	return rows
}

func newEntityCmd(s *Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Manage entities",
	}

	cmd.AddCommand(
		newEntityListCmd(s),
		newEntitySearchCmd(s),
		newEntityGetCmd(s),
		newEntityCreateCmd(s),
		newEntityUpdateCmd(s),
		newEntityPatchCmd(s),
		newEntityDeleteCmd(s),
		newEntitySchemasCmd(s),
	)

	return cmd
}

func newEntityListCmd(s *Session) *cobra.Command {
	var schema string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			items, err := a.API.ListEntities(cmd.Context(), schema, limit)
			if err != nil {
				return err
			}
			s.Output().Print(entityHeaders, entityRows(items), items)
			return nil
		},
	}

	cmd.Flags().StringVar(&schema, "schema", "", "Restrict to one entity schema")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of entities")
	return cmd
}

func newEntitySearchCmd(s *Session) *cobra.Command {
	var schema string
	var from, size, limit int
	var all bool

	cmd := &cobra.Command{
		Use:   "search [QUERY]",
		Short: "Search entities (QUERY uses the search syntax, e.g. _schema:contact)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			if schema != "" {
				if query != "" {
					query = epilot.SchemaQuery(schema) + " AND " + query
				} else {
					query = epilot.SchemaQuery(schema)
				}
			}
			if query == "" {
				return fmt.Errorf("a query or --schema is required")
			}

			var items []epilot.Object
			hits := 0
			if all {
				items, err = a.API.SearchAll(cmd.Context(), query, size, limit, func(fetched, total int) {
					s.Logger().DebugObj("search page fetched", "search_progress", map[string]any{"fetched": fetched, "total": total})
				})
				hits = len(items)
			} else {
				var res epilot.SearchResult
				res, err = a.API.SearchEntities(cmd.Context(), epilot.EntitySearch{Query: query, From: from, Size: size, Hydrate: true})
				items, hits = res.Results, res.Hits
			}
			if err != nil {
				return err
			}

			out := s.Output()
			out.Print(entityHeaders, entityRows(items), map[string]any{"hits": hits, "results": items})
			if !out.JSONMode() {
				out.Success(fmt.Sprintf("%d of %d hits shown", len(items), hits))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schema, "schema", "", "Restrict to one entity schema")
	cmd.Flags().IntVar(&from, "from", 0, "Offset of the first hit")
	cmd.Flags().IntVar(&size, "size", epilot.DefaultSearchPageSize, "Page size")
	cmd.Flags().BoolVar(&all, "all", false, "Page through every hit")
	cmd.Flags().IntVar(&limit, "limit", 0, "With --all, stop after this many hits (0 = no limit)")
	return cmd
}

func newEntityGetCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "get SCHEMA ID",
		Short: "Show one entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			entity, err := a.API.GetEntity(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			s.Output().JSON(entity)
			return nil
		},
	}
}

func newEntityCreateCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "create SCHEMA FILE",
		Short: "Create an entity from a YAML or JSON file",
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
			created, err := a.API.CreateEntity(cmd.Context(), args[0], def)
			if err != nil {
				return err
			}
			a.Notify(cmd.Context(), publishers.OperationCreate, args[0], created)

			out := s.Output()
			out.Success(fmt.Sprintf("Entity created: %s", epilot.ResourceID(created)))
			out.Print(entityHeaders, entityRows([]epilot.Object{created}), created)
			return nil
		},
	}
}

func newEntityUpdateCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "update SCHEMA ID FILE",
		Short: "Replace an entity with the contents of a YAML or JSON file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			def, err := readDefinition(args[2])
			if err != nil {
				return err
			}
			updated, err := a.API.UpdateEntity(cmd.Context(), args[0], args[1], def)
			if err != nil {
				return err
			}
			a.Notify(cmd.Context(), publishers.OperationUpdate, args[0], updated)

			out := s.Output()
			out.Success(fmt.Sprintf("Entity updated: %s", args[1]))
			out.Print(entityHeaders, entityRows([]epilot.Object{updated}), updated)
			return nil
		},
	}
}

func newEntityPatchCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "patch SCHEMA ID FILE",
		Short: "Apply the fields of a YAML or JSON file to an entity",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			patch, err := readDefinition(args[2])
			if err != nil {
				return err
			}
			patched, err := a.API.PatchEntity(cmd.Context(), args[0], args[1], patch)
			if err != nil {
				return err
			}
			a.Notify(cmd.Context(), publishers.OperationUpdate, args[0], patched)

			out := s.Output()
			out.Success(fmt.Sprintf("Entity patched: %s (%d fields)", args[1], len(patch)))
			out.Print(entityHeaders, entityRows([]epilot.Object{patched}), patched)
			return nil
		},
	}
}

func newEntityDeleteCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete SCHEMA ID",
		Short: "Delete an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			if _, err := a.API.DeleteEntity(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			a.Notify(cmd.Context(), publishers.OperationDelete, args[0], epilot.Object{"_id": args[1]})

			s.Output().Success(fmt.Sprintf("Entity deleted: %s", args[1]))
			return nil
		},
	}
}

func newEntitySchemasCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List entity schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			schemas, err := a.API.ListSchemas(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, len(schemas))
			for i, sc := range schemas {
				attrs, _ := sc["attributes"].([]any)
				rows[i] = []string{str(sc["slug"]), str(sc["name"]), strconv.Itoa(len(attrs))}
			}
			s.Output().Print([]string{"SLUG", "NAME", "ATTRIBUTES"}, rows, schemas)
			return nil
		},
	}
}
