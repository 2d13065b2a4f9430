package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/x2s-labs/x2s/pkg/dialect"
)

func newDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List registered SQL dialects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Default Schema", "Calc View Schema", "Concat"})

			for _, name := range dialect.List() {
				d, ok := dialect.Get(name)
				if !ok {
					continue
				}
				t.AppendRow(table.Row{d.Name, d.DefaultSchema, d.CalcViewSchema, d.ConcatOperator})
			}
			t.Render()
			return nil
		},
	}
}
