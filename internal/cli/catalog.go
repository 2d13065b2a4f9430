package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/x2s-labs/x2s/pkg/catalog"
)

func newCatalogCommand() *cobra.Command {
	var patterns bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List function translation rules",
		Long: `List the function and pattern rules the translator applies.
The built-in catalog is shown unless --catalog points at an overlay file,
in which case the merged rule set is listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())
			cat, err := catalog.Load(cfg.Catalog)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)

			if patterns {
				t.AppendHeader(table.Row{"Name", "Match", "Description"})
				for _, pr := range cat.Patterns() {
					t.AppendRow(table.Row{pr.Name, pr.Match, pr.Description})
				}
			} else {
				t.AppendHeader(table.Row{"Function", "Handler", "Target", "Description"})
				for _, fr := range cat.Functions() {
					target := fr.Target
					if target == "" {
						target = fr.Template
					}
					t.AppendRow(table.Row{fr.Name, fr.Handler, target, fr.Description})
				}
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&patterns, "patterns", false, "list pattern rules instead of function rules")
	return cmd
}
