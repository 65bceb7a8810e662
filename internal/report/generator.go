package report

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/verustcode/materiality/internal/content"
	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/internal/selection"
	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/idgen"
	"github.com/verustcode/materiality/pkg/logger"
	"github.com/verustcode/materiality/pkg/telemetry"
)

// EmptyReportMessage is the placeholder shown when nothing survives pruning.
const EmptyReportMessage = "No selections were made for this report."

// TablesSource yields the current mapping snapshot.
type TablesSource interface {
	Tables() *mapping.Tables
}

// Options controls report generation.
type Options struct {
	// Strict fails the generation on configuration gaps instead of warning.
	Strict bool
	// Title is the document title of serialized output.
	Title string
	// AssetDir resolves local images referenced from markdown.
	AssetDir string
	// Stylesheet is inlined into the standalone document.
	Stylesheet string
	// Language is the BCP 47 tag written to <html lang>.
	Language string
}

// Generator runs the report pipeline: plan, enrich, build, post-process, serialize.
// It holds no per-request state and is safe for concurrent use.
type Generator struct {
	tables TablesSource
	repo   content.Repository
	opts   Options
}

// NewGenerator creates a generator.
func NewGenerator(tables TablesSource, repo content.Repository, opts Options) *Generator {
	return &Generator{tables: tables, repo: repo, opts: opts}
}

// Options returns the generator options.
func (g *Generator) Options() Options { return g.opts }

// Request is one report generation.
type Request struct {
	ReportID    string
	SessionID   string
	ReportType  selection.ReportType
	Institution string
	Selections  *selection.Selections
}

// Result is a generated report.
type Result struct {
	ReportID     string               `json:"report_id"`
	ReportType   selection.ReportType `json:"report_type"`
	Title        string               `json:"title"`
	Institution  string               `json:"institution,omitempty"`
	Language     string               `json:"language,omitempty"`
	Tree         Node                 `json:"tree"`
	TOC          []TOCGroup           `json:"toc"`
	Warnings     []Warning            `json:"warnings"`
	ErrorFlag    bool                 `json:"error_flag"`
	ErrorMessage string               `json:"error_message,omitempty"`
	ErrorCode    errors.ErrorCode     `json:"error_code,omitempty"` // set with ErrorFlag
	Body         string               `json:"-"`
	Document     string               `json:"-"`
	GeneratedAt  time.Time            `json:"generated_at"`
	Duration     time.Duration        `json:"duration"`
}

// Empty reports whether the report is the placeholder only.
func (r *Result) Empty() bool {
	empty := false
	Walk(r.Tree, func(n Node) {
		empty = empty || HasClass(n, classEmpty)
	})
	return empty
}

// Generate assembles one report. Empty selections are a normal input and yield a
// placeholder report with the error flag set.
func (g *Generator) Generate(ctx context.Context, req *Request) (*Result, error) {
	if req.ReportID == "" {
		req.ReportID = idgen.NewReportID()
	}
	if req.Selections == nil {
		req.Selections = selection.New()
	}
	if !req.ReportType.Valid() {
		return nil, errors.New(errors.ErrCodeValidation, "unknown report type").
			WithDetails(map[string]string{"report_type": string(req.ReportType)})
	}
	tables := g.tables.Tables()
	if tables == nil {
		return nil, errors.New(errors.ErrCodeMappingNotFound, "mapping tables are not loaded")
	}

	ctx, span := telemetry.StartSpan(ctx, "report.Generate",
		telemetry.WithReportAttributes(req.ReportID, req.SessionID, string(req.ReportType)))
	defer span.End()

	log := logger.WithReportContext(req.ReportID, req.SessionID)
	metrics := telemetry.GetMetrics()
	start := time.Now()
	metrics.RecordReportStarted(ctx, string(req.ReportType))

	res, err := g.generate(ctx, req, tables)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordReportCompleted(ctx, string(req.ReportType), "failed", elapsed.Seconds())
		telemetry.SetSpanError(span, err)
		log.Error("Report generation failed", zap.String(logger.FieldReportType, string(req.ReportType)), zap.Error(err))
		return nil, err
	}
	res.GeneratedAt = start
	res.Duration = elapsed

	metrics.RecordReportCompleted(ctx, string(req.ReportType), "completed", elapsed.Seconds())
	telemetry.SetSpanAttributes(span,
		telemetry.AttrWarningCount.Int(len(res.Warnings)),
		telemetry.AttrSectionCount.Int(len(res.TOC)),
		telemetry.AttrStrict.Bool(g.opts.Strict),
		attribute.Bool("report.empty", res.Empty()),
	)
	telemetry.SetSpanOK(span)
	log.Info("Report generated",
		zap.String(logger.FieldReportType, string(req.ReportType)),
		zap.Int("sections", len(res.TOC)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Bool("error_flag", res.ErrorFlag),
		zap.Duration("duration", elapsed),
	)
	return res, nil
}

func (g *Generator) generate(ctx context.Context, req *Request, tables *mapping.Tables) (*Result, error) {
	gaps := newGapCollector(g.opts.Strict)
	repo := content.NewCache(g.repo)

	plan := PlanStructure(tables.OutputStructure, req.ReportType)
	for _, col := range plan.UnknownColumns {
		logger.Warn("Output structure column has no builder", zap.String("column", col))
	}

	records := req.Selections.All()
	var rows []EnrichedSelection
	if plan.IsEmpty() {
		logger.Warn("Output structure has no rows for report type",
			zap.String(logger.FieldReportType, string(req.ReportType)))
	} else {
		en := &enricher{tables: tables, plan: plan, repo: repo, gaps: gaps}
		var err error
		if rows, err = en.Enrich(ctx, records); err != nil {
			return nil, err
		}
	}

	bc := &buildContext{
		ctx:       ctx,
		tables:    tables,
		repo:      repo,
		gaps:      gaps,
		records:   records,
		scenarios: req.Selections.Scenarios(),
	}

	var sections []Node
	for _, section := range plan.Sections() {
		node, err := g.buildSection(bc, plan, section, rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, node)
	}

	tree, err := g.postProcess(Div("report", sections...))
	if err != nil {
		return nil, err
	}
	tree, toc := BuildTOC(tree)

	span := telemetry.SpanFromContext(ctx)
	for kind, n := range gaps.counts() {
		telemetry.GetMetrics().RecordConfigGaps(ctx, kind, int64(n))
		telemetry.AddSpanEvent(span, "config.gap", attribute.String("gap.kind", kind), attribute.Int("gap.count", n))
	}

	body, err := NewSerializer(g.opts.AssetDir).Render(tree)
	if err != nil {
		return nil, err
	}

	flag, msg := selection.ErrorFlag(req.Selections, req.ReportType)
	var code errors.ErrorCode
	if flag {
		code = errors.ErrCodeEmptySelection
	}
	warnings := gaps.warnings
	if warnings == nil {
		warnings = []Warning{}
	}
	if toc == nil {
		toc = []TOCGroup{}
	}
	title := g.title(req)
	return &Result{
		ReportID:     req.ReportID,
		ReportType:   req.ReportType,
		Title:        title,
		Institution:  req.Institution,
		Tree:         tree,
		TOC:          toc,
		Warnings:     warnings,
		ErrorFlag:    flag,
		ErrorMessage: msg,
		ErrorCode:    code,
		Body:         body,
		Language:     g.opts.Language,
		Document:     WrapDocument(g.opts.Language, title, g.opts.Stylesheet, body),
	}, nil
}

// buildSection renders one top-level section: a level-1 heading followed by its
// sub-sections, the summary table first.
func (g *Generator) buildSection(bc *buildContext, plan *Plan, section string, rows []EnrichedSelection) (Node, error) {
	kinds := plan.SubSections(section)
	for i, k := range kinds {
		if k == SubSectionSummaryTable && i > 0 {
			kinds = append([]SubSectionKind{k}, append(kinds[:i:i], kinds[i+1:]...)...)
			break
		}
	}

	children := []Node{Heading(1, section, classSectionTitle)}
	for _, kind := range kinds {
		build, ok := builders[kind]
		if !ok {
			continue
		}
		node, err := build(bc, section, plan.EntriesFor(section, kind), filterRows(rows, section, kind))
		if err != nil {
			return nil, err
		}
		children = append(children, node)
	}
	return Div("report-section", children...), nil
}

func (g *Generator) postProcess(root *Container) (Node, error) {
	pruned, _ := Prune(root).(*Container)
	if pruned == nil {
		return Div("report", Div(classEmpty, Para(EmptyReportMessage))), nil
	}
	merged, err := MergeSectorSections(pruned)
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (g *Generator) title(req *Request) string {
	title := g.opts.Title
	if title == "" {
		title = string(req.ReportType) + " Report"
	}
	if req.Institution != "" && req.Institution != selection.NotApplicable {
		title = req.Institution + ": " + title
	}
	return title
}
