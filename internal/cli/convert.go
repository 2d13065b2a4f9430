package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/x2s-labs/x2s/internal/config"
	"github.com/x2s-labs/x2s/internal/engine"
	"github.com/x2s-labs/x2s/internal/sqlcheck"
)

func newConvertCommand() *cobra.Command {
	var (
		outDir     string
		createView bool
		viewName   string
		emitABAP   bool
		jobs       int
		paramFlags []string
	)

	cmd := &cobra.Command{
		Use:   "convert <scenario.xml> [more.xml ...]",
		Short: "Convert calculation view XML to SQL",
		Long: `Convert parses calculation view XML, renders dialect SQL and runs the
validator over the result. With --abap the rendered SQL is additionally
transpiled into an ABAP report per scenario.

A single input without --out-dir prints to stdout; otherwise one
<SCENARIO_ID>.sql (and .abap) file is written per input.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd.Context())
			params, err := parseParams(paramFlags)
			if err != nil {
				return err
			}

			eng, err := newEngine(cfg, cmd, engineOverrides{
				createView: createView,
				viewName:   viewName,
				params:     params,
			})
			if err != nil {
				return err
			}

			items, err := eng.ConvertFiles(cmd.Context(), args, jobs)
			if err != nil {
				return err
			}

			writeFiles := outDir != "" || len(items) > 1
			var failed int
			for _, item := range items {
				if item.Err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", item.Path, item.Err)
					if item.Result == nil {
						continue
					}
				}

				var abap *engine.TranspileResult
				if emitABAP && item.Err == nil {
					abap, err = eng.Transpile(cmd.Context(), item.Result.SQL, item.Result.ScenarioID)
					if err != nil {
						failed++
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", item.Path, err)
					}
				}

				if cfg.Output == "json" {
					if err := writeJSONReport(cmd.OutOrStdout(), item, abap); err != nil {
						return err
					}
				} else {
					printReport(cmd.OutOrStdout(), item.Result)
					if !writeFiles && item.Result != nil {
						fmt.Fprintln(cmd.OutOrStdout(), item.Result.SQL)
						if abap != nil {
							fmt.Fprintln(cmd.OutOrStdout(), abap.Program)
						}
					}
				}

				if writeFiles {
					if err := writeOutputs(outDir, item.Result, abap); err != nil {
						return err
					}
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d conversions failed", failed, len(items))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for generated files (default: stdout for a single input)")
	cmd.Flags().BoolVar(&createView, "create-view", false, "Wrap output in the dialect's view DDL")
	cmd.Flags().StringVar(&viewName, "view", "", "View name (default: scenario ID)")
	cmd.Flags().BoolVar(&emitABAP, "abap", false, "Also transpile the SQL to an ABAP report")
	cmd.Flags().IntVar(&jobs, "jobs", 4, "Maximum concurrent conversions")
	cmd.Flags().StringArrayVar(&paramFlags, "param", nil, "Input parameter value as NAME=VALUE (repeatable)")

	return cmd
}

type engineOverrides struct {
	createView bool
	viewName   string
	params     map[string]string
}

// newEngine builds an engine from the loaded configuration plus
// per-command overrides.
func newEngine(cfg *config.Config, cmd *cobra.Command, ov engineOverrides) (*engine.Engine, error) {
	params := make(map[string]string, len(cfg.Params)+len(ov.params))
	for k, v := range cfg.Params {
		params[k] = v
	}
	for k, v := range ov.params {
		params[k] = v
	}

	return engine.New(engine.Config{
		Dialect:         cfg.Dialect,
		CatalogPath:     cfg.Catalog,
		SchemaOverrides: cfg.SchemaMap,
		TargetSchema:    cfg.TargetSchema,
		Client:          cfg.Client,
		Language:        cfg.Language,
		Params:          params,
		CreateView:      ov.createView || cfg.CreateView,
		ViewName:        firstNonEmpty(ov.viewName, cfg.ViewName),
		Strict:          cfg.Strict,
		Autocorrect:     cfg.Autocorrect.Enabled,
		Confidence:      sqlcheck.Confidence(cfg.Autocorrect.Confidence),
		Logger:          getLogger(cmd.Context()),
	})
}

func parseParams(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(flags))
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q (expected NAME=VALUE)", f)
		}
		params[name] = value
	}
	return params, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// writeOutputs writes the SQL (and optional ABAP) files for one
// converted scenario.
func writeOutputs(outDir string, res *engine.ConvertResult, abap *engine.TranspileResult) error {
	if res == nil {
		return nil
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	sqlPath := filepath.Join(outDir, res.ScenarioID+".sql")
	if err := os.WriteFile(sqlPath, []byte(res.SQL+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", sqlPath, err)
	}

	if abap != nil {
		abapPath := filepath.Join(outDir, res.ScenarioID+".abap")
		if err := os.WriteFile(abapPath, []byte(abap.Program), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", abapPath, err)
		}
	}
	return nil
}
