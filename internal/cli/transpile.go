package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newTranspileCommand() *cobra.Command {
	var (
		outPath   string
		programID string
	)

	cmd := &cobra.Command{
		Use:   "transpile <file.sql>",
		Short: "Transpile stage-structured SQL to an ABAP report",
		Long: `Transpile re-parses SQL produced by convert into its stage graph and
emits an equivalent ABAP report: base tables are fetched with SELECT
and FOR ALL ENTRIES, joins and unions are assembled in internal
tables, and the final result is exported as CSV.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd.Context())

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			eng, err := newEngine(cfg, cmd, engineOverrides{})
			if err != nil {
				return err
			}

			id := programID
			if id == "" {
				id = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			res, err := eng.Transpile(cmd.Context(), string(data), id)
			if err != nil {
				return err
			}

			for _, warn := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warn)
			}

			if cfg.Output == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"program_id": res.ProgramID,
					"abap":       res.Program,
					"driving":    res.Plan.Driving,
					"warnings":   res.Warnings,
				})
			}

			if outPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), res.Program)
				return nil
			}
			if err := os.WriteFile(outPath, []byte(res.Program), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&programID, "program-id", "", "Report identifier (default: input file name)")

	return cmd
}
