// Package engine orchestrates the conversion pipeline: calculation
// view XML to portable SQL, advisory validation with optional
// automatic correction, and SQL to ABAP transpilation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/x2s-labs/x2s/internal/abapgen"
	"github.com/x2s-labs/x2s/internal/cvparser"
	"github.com/x2s-labs/x2s/internal/lineage"
	"github.com/x2s-labs/x2s/internal/render"
	"github.com/x2s-labs/x2s/internal/sqlcheck"
	"github.com/x2s-labs/x2s/pkg/catalog"
	"github.com/x2s-labs/x2s/pkg/dialect"
)

// Config holds engine configuration.
type Config struct {
	// Dialect names the target SQL dialect (must be registered).
	Dialect string
	// CatalogPath optionally overlays function rules on the builtin
	// catalog.
	CatalogPath string

	// SchemaOverrides maps logical schema names to physical ones.
	SchemaOverrides map[string]string
	// TargetSchema, when set, replaces every table schema reference.
	TargetSchema string
	Client       string
	Language     string
	// Params are supplied input-parameter values by name.
	Params map[string]string

	// CreateView wraps output in the dialect's view DDL.
	CreateView bool
	// ViewName overrides the scenario ID as the created view's name.
	ViewName string

	// Strict promotes validation errors to conversion failures.
	Strict bool
	// Autocorrect applies fixes for reported issues before returning.
	Autocorrect bool
	// Confidence is the minimum fix confidence applied when
	// autocorrecting. Defaults to high.
	Confidence sqlcheck.Confidence

	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Engine converts calculation view scenarios for one dialect. It is
// stateless across calls and safe for concurrent use.
type Engine struct {
	dialect   *dialect.Dialect
	catalog   *catalog.Catalog
	validator *sqlcheck.Validator
	corrector *sqlcheck.Corrector
	logger    *slog.Logger
	cfg       Config
}

// New creates an engine. The dialect must be registered and the
// catalog overlay, when configured, must load.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d, ok := dialect.Get(cfg.Dialect)
	if !ok {
		return nil, fmt.Errorf("dialect %q not found (registered: %v)", cfg.Dialect, dialect.List())
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	confidence := cfg.Confidence
	if confidence == "" {
		confidence = sqlcheck.ConfidenceHigh
	}

	logger.Debug("initializing engine",
		"dialect", d.Name, "strict", cfg.Strict, "autocorrect", cfg.Autocorrect)

	return &Engine{
		dialect:   d,
		catalog:   cat,
		validator: sqlcheck.NewValidator(d),
		corrector: sqlcheck.NewCorrector(d, confidence),
		logger:    logger,
		cfg:       cfg,
	}, nil
}

// Dialect returns the engine's target dialect.
func (e *Engine) Dialect() *dialect.Dialect {
	return e.dialect
}

// ConvertResult is the outcome of one XML-to-SQL conversion.
type ConvertResult struct {
	// RequestID correlates log lines for this conversion.
	RequestID string
	ScenarioID string
	SQL        string
	Stages     []render.Stage
	// Report holds the validator's findings for the SQL as returned,
	// i.e. after any autocorrection.
	Report sqlcheck.Report
	// Corrections lists the fixes autocorrection applied.
	Corrections []sqlcheck.Correction
	Warnings    []string
}

// Convert runs the full XML-to-SQL pipeline on one scenario document.
func (e *Engine) Convert(ctx context.Context, xmlData []byte) (*ConvertResult, error) {
	requestID := uuid.NewString()
	log := e.logger.With("request_id", requestID)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sc, err := cvparser.Parse(xmlData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	log.Debug("scenario parsed", "scenario", sc.ID, "nodes", len(sc.Nodes))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := render.New(e.dialect, e.catalog, render.Config{
		SchemaOverrides: e.cfg.SchemaOverrides,
		TargetSchema:    e.cfg.TargetSchema,
		Client:          e.cfg.Client,
		Language:        e.cfg.Language,
		Params:          e.cfg.Params,
		CreateView:      e.cfg.CreateView,
		ViewName:        e.cfg.ViewName,
	})
	rendered, err := r.Render(sc)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", sc.ID, err)
	}

	res := &ConvertResult{
		RequestID:  requestID,
		ScenarioID: sc.ID,
		SQL:        rendered.SQL,
		Stages:     rendered.Stages,
		Warnings:   rendered.Warnings,
	}

	report := e.validator.Validate(res.SQL, sc)
	log.Debug("sql validated",
		"scenario", sc.ID,
		"errors", len(report.Errors()),
		"warnings", len(report.Warnings()))

	if e.cfg.Autocorrect && len(report.Issues) > 0 {
		fixed := e.corrector.Apply(res.SQL, report.Issues)
		if fixed.Changed() {
			log.Info("sql autocorrected",
				"scenario", sc.ID, "fixes", len(fixed.Applied))
			res.SQL = fixed.SQL
			res.Corrections = fixed.Applied
			report = e.validator.Validate(res.SQL, sc)
		}
	}
	res.Report = report

	if e.cfg.Strict {
		if err := report.Err(); err != nil {
			return res, fmt.Errorf("conversion of %s rejected: %w", sc.ID, err)
		}
	}

	log.Info("scenario converted", "scenario", sc.ID, "stages", len(res.Stages))
	return res, nil
}

// ConvertFile converts one scenario file from disk.
func (e *Engine) ConvertFile(ctx context.Context, path string) (*ConvertResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return e.Convert(ctx, data)
}

// TranspileResult is the outcome of one SQL-to-ABAP transpilation.
type TranspileResult struct {
	RequestID string
	ProgramID string
	Program   string
	Plan      *lineage.Plan
	Warnings  []string
}

// Transpile converts stage-structured SQL into an ABAP report.
// programID may be empty when the SQL carries a view name to derive
// one from; the generator falls back to a generic name otherwise.
func (e *Engine) Transpile(ctx context.Context, sqlText, programID string) (*TranspileResult, error) {
	requestID := uuid.NewString()
	log := e.logger.With("request_id", requestID)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g, err := lineage.Parse(sqlText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sql lineage: %w", err)
	}
	log.Debug("lineage parsed", "stages", len(g.Stages), "final", g.FinalStage)

	res, err := abapgen.Generate(g, abapgen.Config{
		ProgramID:       programID,
		SchemaOverrides: e.cfg.SchemaOverrides,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate abap: %w", err)
	}

	log.Info("sql transpiled",
		"program_id", programID,
		"driving", res.Plan.Driving,
		"lookups", len(res.Plan.Lookups))

	return &TranspileResult{
		RequestID: requestID,
		ProgramID: programID,
		Program:   res.Program,
		Plan:      res.Plan,
		Warnings:  res.Warnings,
	}, nil
}

// ConvertToABAP chains Convert and Transpile: the scenario's rendered
// SQL is re-parsed and emitted as an ABAP report named after the
// scenario.
func (e *Engine) ConvertToABAP(ctx context.Context, xmlData []byte) (*ConvertResult, *TranspileResult, error) {
	conv, err := e.Convert(ctx, xmlData)
	if err != nil {
		return conv, nil, err
	}
	trans, err := e.Transpile(ctx, conv.SQL, conv.ScenarioID)
	if err != nil {
		return conv, nil, err
	}
	return conv, trans, nil
}
